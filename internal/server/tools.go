package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/citebank/internal/registry"
	"github.com/mohammad-safakhou/citebank/internal/toolkit"
)

// ToolsHandler maps each toolkit call onto a route. Tool failures stay
// in-band with status 200; only malformed requests get HTTP errors.
type ToolsHandler struct {
	Kit *toolkit.Toolkit
}

func (h *ToolsHandler) Register(g *echo.Group) {
	g.POST("/search", h.search)
	g.POST("/details", h.details)
	g.GET("/domains", h.domains)
	g.POST("/filter", h.filter)
	g.POST("/validate", h.validate)
	g.DELETE("/sessions/:key", h.dispose)
}

type searchRequest struct {
	Queries    []string `json:"queries"`
	MaxResults int      `json:"max_results_per_query"`
}

func (h *ToolsHandler) search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return respond(c, h.Kit.Search(c.Request().Context(), req.Queries, req.MaxResults))
}

type detailsRequest struct {
	CitationIDs []string `json:"citation_ids"`
	SessionKey  string   `json:"session_key"`
}

func (h *ToolsHandler) details(c echo.Context) error {
	var req detailsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return respond(c, h.Kit.GetSourceDetails(c.Request().Context(), req.CitationIDs, req.SessionKey))
}

func (h *ToolsHandler) domains(c echo.Context) error {
	return respond(c, h.Kit.ListAvailableDomains(c.Request().Context(), c.QueryParam("session_key")))
}

type filterRequest struct {
	Domains    []string `json:"domains"`
	SessionKey string   `json:"session_key"`
}

func (h *ToolsHandler) filter(c echo.Context) error {
	var req filterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return respond(c, h.Kit.FilterSourcesByDomain(c.Request().Context(), req.Domains, req.SessionKey))
}

type validateRequest struct {
	URL string `json:"url"`
}

func (h *ToolsHandler) validate(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.URL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url required")
	}
	return respond(c, h.Kit.ValidateURL(c.Request().Context(), req.URL))
}

func (h *ToolsHandler) dispose(c echo.Context) error {
	err := h.Kit.Dispose(c.Request().Context(), c.Param("key"))
	switch {
	case errors.Is(err, registry.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// respond sends JSON tool output as JSON and everything else as plain text.
func respond(c echo.Context, out string) error {
	if json.Valid([]byte(out)) {
		return c.JSONBlob(http.StatusOK, []byte(out))
	}
	return c.String(http.StatusOK, out)
}

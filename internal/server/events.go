package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const keepAliveInterval = 15 * time.Second

// streamEvents relays a session's events as Server-Sent Events.
func (s *Server) streamEvents(c echo.Context) error {
	if s.sub == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "events disabled")
	}
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session key required")
	}
	ctx := c.Request().Context()
	ch, err := s.sub.Subscribe(ctx, key)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := resp.Write([]byte(": keep-alive\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
		case env, ok := <-ch:
			if !ok {
				return nil
			}
			data, err := json.Marshal(env)
			if err != nil {
				s.logger.Warn("encode event", zap.Error(err))
				continue
			}
			if _, err := resp.Write([]byte("event: " + env.Type + "\ndata: " + string(data) + "\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

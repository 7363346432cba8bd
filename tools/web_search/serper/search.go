package serper

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/citebank/internal/httpx"
	"github.com/mohammad-safakhou/citebank/tools/web_search/models"
)

const defaultURL = "https://google.serper.dev/search"

// Search queries Google results through serper.dev.
type Search struct {
	APIKey  string
	BaseURL string
	Client  *httpx.Client
}

type response struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Date    string `json:"date"`
	} `json:"organic"`
}

func (s *Search) Name() string { return "serper" }

func (s *Search) Ready() error {
	if strings.TrimSpace(s.APIKey) == "" {
		return errors.New("SERPER_API_KEY not found")
	}
	return nil
}

func (s *Search) Search(ctx context.Context, q models.Query) ([]models.Result, error) {
	endpoint := s.BaseURL
	if endpoint == "" {
		endpoint = defaultURL
	}
	query := q.Text
	if len(q.IncludeDomains) > 0 {
		sites := make([]string, 0, len(q.IncludeDomains))
		for _, d := range q.IncludeDomains {
			sites = append(sites, "site:"+d)
		}
		query += " (" + strings.Join(sites, " OR ") + ")"
	}
	for _, d := range q.ExcludeDomains {
		query += " -site:" + d
	}
	payload := map[string]any{"q": query, "num": q.MaxResults}

	var raw response
	if err := s.Client.DoJSON(ctx, http.MethodPost, endpoint, map[string]string{"X-API-KEY": s.APIKey}, payload, &raw); err != nil {
		return nil, err
	}
	out := make([]models.Result, 0, len(raw.Organic))
	for _, r := range raw.Organic {
		out = append(out, models.Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet, Published: r.Date})
	}
	return out, nil
}

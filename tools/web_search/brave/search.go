package brave

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mohammad-safakhou/citebank/internal/httpx"
	"github.com/mohammad-safakhou/citebank/tools/web_search/models"
)

const defaultURL = "https://api.search.brave.com/res/v1/web/search"

// Search queries the Brave web search API.
type Search struct {
	APIKey  string
	BaseURL string
	Client  *httpx.Client
}

type response struct {
	Web struct {
		Results []struct {
			Title         string   `json:"title"`
			URL           string   `json:"url"`
			Description   string   `json:"description"`
			ExtraSnippets []string `json:"extra_snippets"`
			Age           string   `json:"age"`
		} `json:"results"`
	} `json:"web"`
}

func (s *Search) Name() string { return "brave" }

func (s *Search) Ready() error {
	if strings.TrimSpace(s.APIKey) == "" {
		return errors.New("BRAVE_SEARCH_KEY not found")
	}
	return nil
}

func (s *Search) Search(ctx context.Context, q models.Query) ([]models.Result, error) {
	endpoint := s.BaseURL
	if endpoint == "" {
		endpoint = defaultURL
	}
	query := q.Text
	for _, d := range q.IncludeDomains {
		query += " site:" + d
	}
	for _, d := range q.ExcludeDomains {
		query += " -site:" + d
	}
	count := q.MaxResults
	if count < 1 || count > 20 {
		count = 20
	}
	full := fmt.Sprintf("%s?q=%s&count=%d", endpoint, url.QueryEscape(query), count)

	headers := map[string]string{
		"Accept":               "application/json",
		"X-Subscription-Token": s.APIKey,
	}
	var raw response
	if err := s.Client.DoJSON(ctx, http.MethodGet, full, headers, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]models.Result, 0, len(raw.Web.Results))
	for _, r := range raw.Web.Results {
		res := models.Result{Title: r.Title, URL: r.URL, Snippet: r.Description, Published: r.Age}
		if len(r.ExtraSnippets) > 0 {
			res.Excerpts = append([]string{r.Description}, r.ExtraSnippets...)
		}
		out = append(out, res)
	}
	return out, nil
}

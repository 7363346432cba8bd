package searxng

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/mohammad-safakhou/citebank/internal/httpx"
	"github.com/mohammad-safakhou/citebank/tools/web_search/models"
)

// Search queries a self-hosted SearXNG instance through its JSON API.
type Search struct {
	BaseURL string
	Client  *httpx.Client
}

type response struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		PublishedDate string `json:"publishedDate"`
	} `json:"results"`
}

func (s *Search) Name() string { return "searxng" }

func (s *Search) Ready() error {
	if strings.TrimSpace(s.BaseURL) == "" {
		return errors.New("SEARXNG_BASE_URL not found")
	}
	return nil
}

// Search requests the first result page. SearXNG has no domain filters, so
// include/exclude lists are folded into the query as site: operators.
func (s *Search) Search(ctx context.Context, q models.Query) ([]models.Result, error) {
	params := url.Values{}
	params.Set("q", withSites(q))
	params.Set("format", "json")
	params.Set("pageno", "1")
	endpoint := strings.TrimRight(s.BaseURL, "/") + "/search?" + params.Encode()

	headers := map[string]string{"Accept": "application/json"}
	var raw response
	if err := s.Client.DoJSON(ctx, http.MethodGet, endpoint, headers, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]models.Result, 0, len(raw.Results))
	for _, r := range raw.Results {
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Snippet: r.Content, Published: r.PublishedDate})
	}
	return out, nil
}

func withSites(q models.Query) string {
	parts := []string{q.Text}
	if len(q.IncludeDomains) > 0 {
		sites := make([]string, 0, len(q.IncludeDomains))
		for _, d := range q.IncludeDomains {
			sites = append(sites, "site:"+d)
		}
		parts = append(parts, "("+strings.Join(sites, " OR ")+")")
	}
	for _, d := range q.ExcludeDomains {
		parts = append(parts, "-site:"+d)
	}
	return strings.Join(parts, " ")
}

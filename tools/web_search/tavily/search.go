package tavily

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/citebank/internal/httpx"
	"github.com/mohammad-safakhou/citebank/tools/web_search/models"
)

const defaultURL = "https://api.tavily.com/search"

// Search queries the Tavily search API.
type Search struct {
	APIKey  string
	BaseURL string
	Client  *httpx.Client
}

type request struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	MaxResults        int      `json:"max_results"`
	SearchDepth       string   `json:"search_depth"`
	IncludeRawContent bool     `json:"include_raw_content"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	ExcludeDomains    []string `json:"exclude_domains,omitempty"`
}

type response struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		RawContent    string `json:"raw_content"`
		PublishedDate string `json:"published_date"`
	} `json:"results"`
}

func (s *Search) Name() string { return "tavily" }

func (s *Search) Ready() error {
	if strings.TrimSpace(s.APIKey) == "" {
		return errors.New("TAVILY_API_KEY not found")
	}
	return nil
}

func (s *Search) Search(ctx context.Context, q models.Query) ([]models.Result, error) {
	endpoint := s.BaseURL
	if endpoint == "" {
		endpoint = defaultURL
	}
	body := request{
		APIKey:            s.APIKey,
		Query:             q.Text,
		MaxResults:        q.MaxResults,
		SearchDepth:       "advanced",
		IncludeRawContent: true,
		IncludeDomains:    q.IncludeDomains,
		ExcludeDomains:    q.ExcludeDomains,
	}
	var raw response
	if err := s.Client.DoJSON(ctx, http.MethodPost, endpoint, nil, body, &raw); err != nil {
		return nil, err
	}
	out := make([]models.Result, 0, len(raw.Results))
	for _, r := range raw.Results {
		out = append(out, models.Result{
			Title:     r.Title,
			URL:       r.URL,
			Snippet:   r.Content,
			Extract:   r.RawContent,
			Published: r.PublishedDate,
		})
	}
	return out, nil
}

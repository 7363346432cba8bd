package parallel

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/citebank/internal/httpx"
	"github.com/mohammad-safakhou/citebank/tools/web_search/models"
)

const (
	defaultURL = "https://api.parallel.ai/v1beta/search"
	betaHeader = "search-extract-2025-10-10"
)

// Search queries the Parallel search API, which returns page excerpts.
type Search struct {
	APIKey  string
	BaseURL string
	Client  *httpx.Client
}

type sourcePolicy struct {
	IncludeDomains []string `json:"include_domains"`
	ExcludeDomains []string `json:"exclude_domains"`
}

type request struct {
	Objective     string        `json:"objective"`
	SearchQueries []string      `json:"search_queries"`
	MaxResults    int           `json:"max_results"`
	Mode          string        `json:"mode"`
	Excerpts      excerptOpts   `json:"excerpts"`
	SourcePolicy  *sourcePolicy `json:"source_policy,omitempty"`
}

type excerptOpts struct {
	MaxCharsPerResult int `json:"max_chars_per_result"`
}

type response struct {
	SearchID string `json:"search_id"`
	Results  []struct {
		Title    string   `json:"title"`
		URL      string   `json:"url"`
		Excerpts []string `json:"excerpts"`
		Extract  string   `json:"extract"`
		Snippet  string   `json:"snippet"`
	} `json:"results"`
}

func (s *Search) Name() string { return "parallel" }

func (s *Search) Ready() error {
	if strings.TrimSpace(s.APIKey) == "" {
		return errors.New("PARALLEL_API_KEY not found")
	}
	return nil
}

func (s *Search) Search(ctx context.Context, q models.Query) ([]models.Result, error) {
	endpoint := s.BaseURL
	if endpoint == "" {
		endpoint = defaultURL
	}
	body := request{
		Objective:     q.Text,
		SearchQueries: []string{q.Text},
		MaxResults:    q.MaxResults,
		Mode:          "one-shot",
		Excerpts:      excerptOpts{MaxCharsPerResult: 2000},
	}
	if len(q.IncludeDomains) > 0 || len(q.ExcludeDomains) > 0 {
		body.SourcePolicy = &sourcePolicy{
			IncludeDomains: append([]string{}, q.IncludeDomains...),
			ExcludeDomains: append([]string{}, q.ExcludeDomains...),
		}
	}
	headers := map[string]string{
		"x-api-key":     s.APIKey,
		"parallel-beta": betaHeader,
	}
	var raw response
	if err := s.Client.DoJSON(ctx, http.MethodPost, endpoint, headers, body, &raw); err != nil {
		return nil, err
	}
	out := make([]models.Result, 0, len(raw.Results))
	for _, r := range raw.Results {
		out = append(out, models.Result{
			Title:    r.Title,
			URL:      r.URL,
			Snippet:  r.Snippet,
			Extract:  r.Extract,
			Excerpts: r.Excerpts,
		})
	}
	return out, nil
}

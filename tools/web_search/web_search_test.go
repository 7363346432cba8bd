package web_search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/citebank/config"
	"github.com/mohammad-safakhou/citebank/internal/httpx"
	"github.com/mohammad-safakhou/citebank/tools/web_search/models"
)

func newSearcher(t *testing.T, provider, apiKey, baseURL string) WebSearcher {
	t.Helper()
	s, err := NewWebSearcher(config.SearchConfig{Provider: provider, APIKey: apiKey, BaseURL: baseURL}, httpx.New(time.Second))
	require.NoError(t, err)
	return s
}

func TestTavilySearch(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tvly", body["api_key"])
		assert.Equal(t, "contract law", body["query"])
		assert.EqualValues(t, 2, body["max_results"])
		assert.Equal(t, []any{"gov.uk"}, body["include_domains"])
		_, _ = w.Write([]byte(`{"results":[{"title":"Act","url":"https://www.gov.uk/act","content":"short","raw_content":"long body"}]}`))
	}))
	defer srv.Close()

	s := newSearcher(t, config.ProviderTavily, "tvly", srv.URL)
	got, err := s.Search(context.Background(), models.Query{Text: "contract law", MaxResults: 2, IncludeDomains: []string{"gov.uk"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "short", got[0].Snippet)
	require.Equal(t, "long body", got[0].Extract)
}

func TestParallelSearchHeadersAndExcerpts(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "p-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "search-extract-2025-10-10", r.Header.Get("parallel-beta"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "phone specs", body["objective"])
		_, hasPolicy := body["source_policy"]
		assert.False(t, hasPolicy)
		_, _ = w.Write([]byte(`{"search_id":"s1","results":[{"title":"Specs","url":"https://a.example/x","excerpts":["one","two"]}]}`))
	}))
	defer srv.Close()

	s := newSearcher(t, config.ProviderParallel, "p-key", srv.URL)
	got, err := s.Search(context.Background(), models.Query{Text: "phone specs", MaxResults: 3})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []string{"one", "two"}, got[0].Excerpts)
}

func TestSearxngSearch(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("pageno"))
		assert.Equal(t, "golang -site:spam.example", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"results":[{"title":"Go","url":"https://go.dev","content":"The Go language"}]}`))
	}))
	defer srv.Close()

	s := newSearcher(t, config.ProviderSearxng, "", srv.URL+"/")
	got, err := s.Search(context.Background(), models.Query{Text: "golang", ExcludeDomains: []string{"spam.example"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "The Go language", got[0].Snippet)
}

func TestSerperAndBrave(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/serper", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk", r.Header.Get("X-API-KEY"))
		_, _ = w.Write([]byte(`{"organic":[{"title":"S","link":"https://s.example","snippet":"serp"}]}`))
	})
	mux.HandleFunc("/brave", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bk", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "5", r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(`{"web":{"results":[{"title":"B","url":"https://b.example","description":"desc","extra_snippets":["more"]}]}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sp := newSearcher(t, config.ProviderSerper, "sk", srv.URL+"/serper")
	got, err := sp.Search(context.Background(), models.Query{Text: "q", MaxResults: 5})
	require.NoError(t, err)
	require.Equal(t, "https://s.example", got[0].URL)

	br := newSearcher(t, config.ProviderBrave, "bk", srv.URL+"/brave")
	got, err = br.Search(context.Background(), models.Query{Text: "q", MaxResults: 5})
	require.NoError(t, err)
	require.Equal(t, []string{"desc", "more"}, got[0].Excerpts)
}

func TestProviderErrorsCarryStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := newSearcher(t, config.ProviderTavily, "bad", srv.URL)
	_, err := s.Search(context.Background(), models.Query{Text: "x", MaxResults: 1})
	var se *httpx.StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusUnauthorized, se.Code)
	require.False(t, se.Retryable())
}

func TestReadiness(t *testing.T) {
	t.Parallel()
	tests := []struct {
		provider string
		key      string
		base     string
		ready    bool
	}{
		{provider: config.ProviderTavily, ready: false},
		{provider: config.ProviderTavily, key: "k", ready: true},
		{provider: config.ProviderParallel, ready: false},
		{provider: config.ProviderSearxng, key: "ignored", ready: false},
		{provider: config.ProviderSearxng, base: "http://searx", ready: true},
		{provider: config.ProviderSerper, ready: false},
		{provider: config.ProviderBrave, key: "k", ready: true},
	}
	for _, tt := range tests {
		s := newSearcher(t, tt.provider, tt.key, tt.base)
		err := CheckReady(s)
		if tt.ready {
			require.NoError(t, err, tt.provider)
			continue
		}
		assert.ErrorIs(t, err, ErrNotConfigured, tt.provider)
	}
}

func TestUnsupportedProvider(t *testing.T) {
	t.Parallel()
	_, err := NewWebSearcher(config.SearchConfig{Provider: "altavista"}, nil)
	require.ErrorIs(t, err, ErrUnsupportedProvider)
}

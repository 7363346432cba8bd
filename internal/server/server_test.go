package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mohammad-safakhou/citebank/config"
	"github.com/mohammad-safakhou/citebank/internal/aggregator"
	"github.com/mohammad-safakhou/citebank/internal/events"
	"github.com/mohammad-safakhou/citebank/internal/httpx"
	"github.com/mohammad-safakhou/citebank/internal/registry/inmemory"
	"github.com/mohammad-safakhou/citebank/internal/retriever"
	"github.com/mohammad-safakhou/citebank/internal/retry"
	"github.com/mohammad-safakhou/citebank/internal/toolkit"
	"github.com/mohammad-safakhou/citebank/tools/validate"
	"github.com/mohammad-safakhou/citebank/tools/web_fetch/httpfetch"
	"github.com/mohammad-safakhou/citebank/tools/web_search/tavily"
)

type stubSubscriber struct {
	envs []events.Envelope
}

func (s stubSubscriber) Subscribe(ctx context.Context, key string) (<-chan events.Envelope, error) {
	ch := make(chan events.Envelope, len(s.envs))
	for _, env := range s.envs {
		env.SessionKey = key
		ch <- env
	}
	close(ch)
	return ch, nil
}

func newTestServer(t *testing.T, sub events.Subscriber) *Server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]string{
			{"title": "Guide", "url": "https://ico.org.uk/guide", "content": "Guidance"},
			{"title": "Blog", "url": "https://blog.example.com/post", "content": "Opinion"},
		}})
	}))
	t.Cleanup(upstream.Close)

	logger := zaptest.NewLogger(t)
	store := inmemory.NewInMemorySessionStore()
	client := httpx.New(time.Second)
	agg := aggregator.New(&tavily.Search{APIKey: "k", BaseURL: upstream.URL, Client: client}, store, nil,
		aggregator.Options{DefaultMaxResults: 5, TrustedDomains: []string{"ico.org.uk"}, Policy: retry.Policy{MaxRetries: 1}}, logger)
	ret := retriever.New(&httpfetch.Fetcher{Client: client}, nil, store, nil, retriever.Options{FetchPolicy: retry.Policy{MaxRetries: 1}}, logger)
	val := validate.New(config.ValidatorConfig{Timeout: time.Second, MaxRetries: 1}, logger)
	kit := toolkit.New(agg, ret, store, val, nil, toolkit.Options{ToolTimeout: 5 * time.Second}, logger)
	return New(kit, sub, Options{MetricsEnabled: true}, logger)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSearchAndDomainRoutes(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/v1/search", `{"queries":["ico guidance"],"max_results_per_query":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextPlain))
	key, ok := aggregator.KeyFromSummary(rec.Body.String())
	require.True(t, ok, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = do(t, s, http.MethodGet, "/v1/domains?session_key="+key, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `["blog.example.com","ico.org.uk"]`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/v1/filter", `{"domains":["ico.org.uk"],"session_key":"`+key+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	require.Equal(t, 1, filtered.Count)

	rec = do(t, s, http.MethodDelete, "/v1/sessions/"+key, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodDelete, "/v1/sessions/"+key, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"session not found"}`, rec.Body.String())
}

func TestToolErrorsStayInBand(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/v1/details", `{"citation_ids":["src_1"],"session_key":"missing"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"error":"No cached search data found"}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/v1/search", `{"queries":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Error: no queries provided", rec.Body.String())
}

func TestMalformedRequests(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	tests := []struct {
		name, method, path, body string
		code                     int
	}{
		{name: "bad json", method: http.MethodPost, path: "/v1/search", body: `{"queries":`, code: http.StatusBadRequest},
		{name: "empty url", method: http.MethodPost, path: "/v1/validate", body: `{"url":"  "}`, code: http.StatusBadRequest},
		{name: "events disabled", method: http.MethodGet, path: "/v1/sessions/abc/events", code: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			require.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestStreamEvents(t *testing.T) {
	t.Parallel()
	sub := stubSubscriber{envs: []events.Envelope{{
		EventID:    "e1",
		Type:       events.TypeDetailsFetched,
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"count":1}`),
	}}}
	s := newTestServer(t, sub)

	rec := do(t, s, http.MethodGet, "/v1/sessions/abc123/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	body := rec.Body.String()
	require.Contains(t, body, "event: "+events.TypeDetailsFetched+"\n")
	require.Contains(t, body, `"session_key":"abc123"`)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

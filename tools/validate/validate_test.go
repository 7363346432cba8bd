package validate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/citebank/config"
	"github.com/mohammad-safakhou/citebank/internal/httpx"
)

func testConfig() config.ValidatorConfig {
	return config.ValidatorConfig{
		Timeout:      time.Second,
		MaxRetries:   2,
		BackoffBase:  time.Millisecond,
		PreviewChars: 500,
		UserAgent:    "DeepResearchAgent/1.0",
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>Statute text " + r.UserAgent() + "</body></html>"))
	})
	mux.HandleFunc("/gone", http.NotFound)
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/soft", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<h1>Error 404</h1><p>Page Not Found</p>"))
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	v := New(testConfig(), nil)
	tests := []struct {
		path string
		want string
	}{
		{path: "/ok", want: "VALIDATION_SUCCESS: Status 200. Preview: <html><body>Statute text DeepResearchAgent/1.0"},
		{path: "/moved", want: "VALIDATION_SUCCESS: Status 200."},
		{path: "/gone", want: "VALIDATION_FAILED: HTTP 404 URL not found"},
		{path: "/forbidden", want: "VALIDATION_FAILED: HTTP 403"},
		{path: "/soft", want: "VALIDATION_FAILED: Content suggests 404 Not Found."},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := v.Validate(context.Background(), srv.URL+tt.path)
			if !strings.HasPrefix(got, tt.want) {
				t.Fatalf("Validate(%s) = %q, want prefix %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestValidatePreviewIsCapped(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 2000)))
	}))
	defer srv.Close()

	got := New(testConfig(), nil).Validate(context.Background(), srv.URL)
	want := "VALIDATION_SUCCESS: Status 200. Preview: " + strings.Repeat("a", 300) + "..."
	require.Equal(t, want, got)
}

type flakyDoer struct{ calls atomic.Int32 }

func (f *flakyDoer) Do(*http.Request) (*http.Response, error) {
	f.calls.Add(1)
	return nil, errors.New("connection refused")
}

func TestValidateNetworkErrorRetriedThenReported(t *testing.T) {
	t.Parallel()
	doer := &flakyDoer{}
	v := New(testConfig(), nil, httpx.WithDoer(doer))
	got := v.Validate(context.Background(), "https://example.gov/page")
	require.Equal(t, "VALIDATION_ERROR: connection refused", got)
	require.EqualValues(t, 2, doer.calls.Load())
}

func TestValidateRejectsBadURL(t *testing.T) {
	t.Parallel()
	got := New(testConfig(), nil).Validate(context.Background(), "ftp://example.com/file")
	require.True(t, strings.HasPrefix(got, "VALIDATION_ERROR: invalid url"), got)
}

package web_search

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/citebank/config"
	"github.com/mohammad-safakhou/citebank/internal/httpx"
	"github.com/mohammad-safakhou/citebank/tools/web_search/brave"
	"github.com/mohammad-safakhou/citebank/tools/web_search/models"
	"github.com/mohammad-safakhou/citebank/tools/web_search/parallel"
	"github.com/mohammad-safakhou/citebank/tools/web_search/searxng"
	"github.com/mohammad-safakhou/citebank/tools/web_search/serper"
	"github.com/mohammad-safakhou/citebank/tools/web_search/tavily"
)

// WebSearcher runs a single query against a search provider. Implementations
// make exactly one request per call; callers own retrying.
type WebSearcher interface {
	Name() string
	// Ready reports missing credentials or endpoints without touching the network.
	Ready() error
	Search(ctx context.Context, q models.Query) ([]models.Result, error)
}

var (
	ErrUnsupportedProvider = errors.New("unsupported search provider")
	ErrNotConfigured       = errors.New("search provider not configured")
)

// NewWebSearcher builds the provider selected by cfg. The returned searcher
// may still fail Ready when credentials are missing.
func NewWebSearcher(cfg config.SearchConfig, client *httpx.Client) (WebSearcher, error) {
	if client == nil {
		client = httpx.New(cfg.Timeout)
	}
	switch cfg.Provider {
	case config.ProviderTavily:
		return &tavily.Search{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Client: client}, nil
	case config.ProviderParallel:
		return &parallel.Search{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Client: client}, nil
	case config.ProviderSearxng:
		return &searxng.Search{BaseURL: cfg.BaseURL, Client: client}, nil
	case config.ProviderSerper:
		return &serper.Search{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Client: client}, nil
	case config.ProviderBrave:
		return &brave.Search{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Client: client}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

// CheckReady wraps a searcher's Ready error in ErrNotConfigured.
func CheckReady(s WebSearcher) error {
	if s == nil {
		return ErrNotConfigured
	}
	if err := s.Ready(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	return nil
}

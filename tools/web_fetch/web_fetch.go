package web_fetch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/mohammad-safakhou/citebank/config"
	"github.com/mohammad-safakhou/citebank/internal/httpx"
	"github.com/mohammad-safakhou/citebank/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/citebank/tools/web_fetch/httpfetch"
	"github.com/mohammad-safakhou/citebank/tools/web_fetch/models"
)

// WebFetcher downloads one page per call. Retrying belongs to the caller.
type WebFetcher interface {
	Fetch(ctx context.Context, url string) (models.Page, error)
}

// NewWebFetcher builds the fetcher selected by cfg.Mode.
func NewWebFetcher(cfg config.FetchConfig) (WebFetcher, error) {
	switch cfg.Mode {
	case config.FetchModeHTTP, "":
		client := httpx.New(cfg.Timeout, httpx.WithUserAgent(cfg.UserAgent), httpx.WithMaxBytes(cfg.MaxBytes))
		return &httpfetch.Fetcher{Client: client}, nil
	case config.FetchModeChromedp:
		return &chromedp.Fetcher{Timeout: cfg.Timeout, UserAgent: cfg.UserAgent}, nil
	default:
		return nil, fmt.Errorf("unsupported fetch mode %q", cfg.Mode)
	}
}

// HashHTML fingerprints raw markup so repeated fetches can be compared.
func HashHTML(html string) string {
	sum := sha1.Sum([]byte(html))
	return hex.EncodeToString(sum[:])
}

package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/mohammad-safakhou/citebank/internal/httpx"
	"github.com/mohammad-safakhou/citebank/internal/retry"
	"github.com/mohammad-safakhou/citebank/tools/web_fetch/models"
)

// Fetcher performs a plain GET with a browser user agent, following redirects.
type Fetcher struct {
	Client *httpx.Client
}

var acceptHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (models.Page, error) {
	if strings.TrimSpace(url) == "" {
		return models.Page{}, retry.Permanent(errors.New("invalid url"))
	}
	t0 := time.Now()
	resp, err := f.Client.GetOK(ctx, url, acceptHeaders)
	if err != nil {
		return models.Page{URL: url}, err
	}
	if !isText(resp.ContentType) {
		return models.Page{URL: url, Status: resp.StatusCode}, retry.Permanent(fmt.Errorf("unsupported content type %q", resp.ContentType))
	}
	return models.Page{
		URL:         url,
		FinalURL:    resp.FinalURL,
		Status:      resp.StatusCode,
		ContentType: resp.ContentType,
		HTML:        string(resp.Body),
		RenderMS:    int(time.Since(t0) / time.Millisecond),
		FetchedAt:   time.Now().UTC(),
	}, nil
}

func isText(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}
	return strings.HasPrefix(mt, "text/") || strings.Contains(mt, "html") || strings.Contains(mt, "xml")
}

package chromedp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/mohammad-safakhou/citebank/internal/retry"
	"github.com/mohammad-safakhou/citebank/tools/web_fetch/models"
)

// Fetcher renders pages in headless Chrome, for sites that only produce
// content through JavaScript.
type Fetcher struct {
	Timeout   time.Duration
	UserAgent string
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (models.Page, error) {
	if strings.TrimSpace(url) == "" {
		return models.Page{}, retry.Permanent(errors.New("invalid url"))
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	t0 := time.Now()

	html, finalURL, err := f.render(ctx, url)
	if err != nil {
		return models.Page{URL: url}, fmt.Errorf("render %s: %w", url, err)
	}
	return models.Page{
		URL:         url,
		FinalURL:    finalURL,
		Status:      200,
		ContentType: "text/html",
		HTML:        html,
		RenderMS:    int(time.Since(t0) / time.Millisecond),
		FetchedAt:   time.Now().UTC(),
	}, nil
}

func (f *Fetcher) render(ctx context.Context, url string) (string, string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(f.UserAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html, location string
	err := chromedp.Run(bctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if location == "" {
		location = url
	}
	return html, location, err
}

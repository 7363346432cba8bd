// Package validate checks that a URL is reachable before it is cited.
package validate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/citebank/config"
	"github.com/mohammad-safakhou/citebank/internal/helpers"
	"github.com/mohammad-safakhou/citebank/internal/httpx"
	"github.com/mohammad-safakhou/citebank/internal/retry"
)

// Result prefixes understood by agents.
const (
	PrefixSuccess = "VALIDATION_SUCCESS"
	PrefixFailed  = "VALIDATION_FAILED"
	PrefixError   = "VALIDATION_ERROR"
)

const successPreviewChars = 300

// Validator issues a GET and classifies the answer.
type Validator struct {
	client       *httpx.Client
	policy       retry.Policy
	previewChars int
	logger       *zap.Logger
}

func New(cfg config.ValidatorConfig, logger *zap.Logger, opts ...httpx.Option) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	preview := cfg.PreviewChars
	if preview <= 0 {
		preview = 500
	}
	opts = append([]httpx.Option{httpx.WithUserAgent(cfg.UserAgent), httpx.WithMaxBytes(256 << 10)}, opts...)
	return &Validator{
		client:       httpx.New(cfg.Timeout, opts...),
		policy:       retry.Policy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.BackoffBase},
		previewChars: preview,
		logger:       logger.Named("validate"),
	}
}

var headers = map[string]string{"Accept": "text/html,application/xhtml+xml"}

// Validate returns a single status line; it never fails.
//
//	VALIDATION_SUCCESS: Status 200. Preview: <text>...
//	VALIDATION_FAILED: HTTP 404 URL not found
//	VALIDATION_ERROR: <cause>
func (v *Validator) Validate(ctx context.Context, rawURL string) string {
	target, err := helpers.CanonicalURL(rawURL)
	if err != nil {
		return fmt.Sprintf("%s: invalid url: %v", PrefixError, err)
	}

	resp, err := retry.Do(ctx, retry.ComponentValidate, v.policy, func(ctx context.Context) (*httpx.Response, error) {
		return v.client.Get(ctx, target, headers)
	}, retry.WithLogger(v.logger))
	if err != nil {
		v.logger.Debug("validation error", zap.String("url", target), zap.Error(err))
		var rerr *retry.Error
		if errors.As(err, &rerr) && rerr.Err != nil {
			err = rerr.Err
		}
		return fmt.Sprintf("%s: %v", PrefixError, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Sprintf("%s: HTTP %d URL not found", PrefixFailed, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Sprintf("%s: HTTP %d", PrefixFailed, resp.StatusCode)
	}

	head := strings.ToLower(helpers.TruncateRunes(string(resp.Body), v.previewChars))
	if strings.Contains(head, "404") && strings.Contains(head, "not found") {
		return PrefixFailed + ": Content suggests 404 Not Found."
	}
	preview := helpers.Preview(string(resp.Body), helpers.WithLimit(successPreviewChars), helpers.WithEllipsis(""))
	return fmt.Sprintf("%s: Status %d. Preview: %s...", PrefixSuccess, resp.StatusCode, preview)
}

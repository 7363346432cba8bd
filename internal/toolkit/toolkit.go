// Package toolkit is the string-in, string-out surface agents call. Every
// failure is reported in-band: "Error: ..." text for the summary tools and an
// "error" field for the JSON ones.
package toolkit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/citebank/internal/aggregator"
	"github.com/mohammad-safakhou/citebank/internal/events"
	"github.com/mohammad-safakhou/citebank/internal/registry"
	"github.com/mohammad-safakhou/citebank/internal/retriever"
	"github.com/mohammad-safakhou/citebank/tools/validate"
)

const noSessionMessage = "No cached search data found"

type Options struct {
	RequireSessionKey bool
	// ToolTimeout bounds a whole tool call, retries included. Zero disables it.
	ToolTimeout time.Duration
}

type Toolkit struct {
	agg       *aggregator.Aggregator
	ret       *retriever.Retriever
	store     registry.Store
	validator *validate.Validator
	events    events.Publisher
	opts      Options
	logger    *zap.Logger
}

func New(agg *aggregator.Aggregator, ret *retriever.Retriever, store registry.Store, validator *validate.Validator, pub events.Publisher, opts Options, logger *zap.Logger) *Toolkit {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pub == nil {
		pub = events.Noop{}
	}
	return &Toolkit{agg: agg, ret: ret, store: store, validator: validator, events: pub, opts: opts, logger: logger.Named("toolkit")}
}

func (t *Toolkit) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.opts.ToolTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.opts.ToolTimeout)
}

// Search runs the batch and returns the summary text.
func (t *Toolkit) Search(ctx context.Context, queries []string, maxResults int) string {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	res, err := t.agg.Search(ctx, queries, maxResults)
	if err != nil {
		t.logger.Warn("search failed", zap.Error(err))
		return "Error: " + err.Error()
	}
	return res.Summary
}

// GetSourceDetails returns the JSON detail view of the requested sources.
func (t *Toolkit) GetSourceDetails(ctx context.Context, ids []string, sessionKey string) string {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	details, err := t.ret.GetDetails(ctx, ids, sessionKey)
	if err != nil {
		return errorJSON(err)
	}
	return toJSON(details)
}

// ListAvailableDomains returns the session's distinct domains as a JSON array.
func (t *Toolkit) ListAvailableDomains(ctx context.Context, sessionKey string) string {
	sess, err := registry.Resolve(ctx, t.store, sessionKey, t.opts.RequireSessionKey)
	if errors.Is(err, registry.ErrSessionNotFound) && sessionKey == "" {
		return "[]"
	}
	if err != nil {
		return errorJSON(err)
	}
	return toJSON(sess.Domains())
}

type filterOutput struct {
	MatchedSources  map[string]registry.SourceSummary `json:"matched_sources"`
	Count           int                               `json:"count"`
	DomainsSearched []string                          `json:"domains_searched"`
}

// FilterSourcesByDomain returns the sources whose domain exactly matches one of domains.
func (t *Toolkit) FilterSourcesByDomain(ctx context.Context, domains []string, sessionKey string) string {
	sess, err := registry.Resolve(ctx, t.store, sessionKey, t.opts.RequireSessionKey)
	if err != nil {
		return "Error: " + errText(err)
	}
	if domains == nil {
		domains = []string{}
	}
	matched := sess.FilterByDomain(domains)
	return toJSON(filterOutput{MatchedSources: matched, Count: len(matched), DomainsSearched: domains})
}

// ValidateURL checks that url answers with a non-error page.
func (t *Toolkit) ValidateURL(ctx context.Context, url string) string {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	return t.validator.Validate(ctx, url)
}

// Dispose drops a session and everything registered under it.
func (t *Toolkit) Dispose(ctx context.Context, sessionKey string) error {
	if sessionKey == "" {
		return registry.ErrSessionKeyRequired
	}
	if err := t.store.Delete(ctx, sessionKey); err != nil {
		return err
	}
	if err := t.events.Publish(ctx, sessionKey, events.TypeSessionDisposed, map[string]string{"session_key": sessionKey}); err != nil {
		t.logger.Warn("publish session_disposed", zap.Error(err))
	}
	t.logger.Info("session disposed", zap.String("session_key", sessionKey))
	return nil
}

func errText(err error) string {
	if errors.Is(err, registry.ErrSessionNotFound) {
		return noSessionMessage
	}
	return err.Error()
}

func errorJSON(err error) string {
	return toJSON(map[string]string{"error": errText(err)})
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return `{"error":"encode response"}`
	}
	return string(b)
}

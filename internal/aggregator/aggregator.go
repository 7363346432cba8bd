// Package aggregator fans a batch of queries out to the search provider and
// registers every hit under a stable citation ID.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mohammad-safakhou/citebank/internal/events"
	"github.com/mohammad-safakhou/citebank/internal/helpers"
	"github.com/mohammad-safakhou/citebank/internal/metrics"
	"github.com/mohammad-safakhou/citebank/internal/registry"
	"github.com/mohammad-safakhou/citebank/internal/retry"
	"github.com/mohammad-safakhou/citebank/tools/extract"
	"github.com/mohammad-safakhou/citebank/tools/web_search"
	"github.com/mohammad-safakhou/citebank/tools/web_search/models"
)

// MaxResultsLimit bounds max_results_per_query.
const MaxResultsLimit = 20

var (
	ErrNoQueries = errors.New("no queries provided")
	// ErrNotConfigured matches web_search.ErrNotConfigured under errors.Is.
	ErrNotConfigured = web_search.ErrNotConfigured
)

type Options struct {
	DefaultMaxResults int
	MaxConcurrency    int
	IncludeDomains    []string
	ExcludeDomains    []string
	TrustedDomains    []string
	Policy            retry.Policy
}

// Result is what a search call returns to the tool layer.
type Result struct {
	SessionKey  string
	Summary     string
	CitationIDs []string
	Cached      bool
}

type Aggregator struct {
	searcher web_search.WebSearcher
	store    registry.Store
	events   events.Publisher
	opts     Options
	logger   *zap.Logger
	inflight singleflight.Group
}

func New(searcher web_search.WebSearcher, store registry.Store, pub events.Publisher, opts Options, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pub == nil {
		pub = events.Noop{}
	}
	if opts.DefaultMaxResults <= 0 {
		opts.DefaultMaxResults = 3
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 8
	}
	return &Aggregator{searcher: searcher, store: store, events: pub, opts: opts, logger: logger.Named("search")}
}

// Search runs queries concurrently and returns the rendered summary. A batch
// identical to one already held by the store is answered from it without any
// network call.
func (a *Aggregator) Search(ctx context.Context, queries []string, maxResults int) (*Result, error) {
	queries = cleanQueries(queries)
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}
	if err := web_search.CheckReady(a.searcher); err != nil {
		return nil, err
	}
	maxResults = a.clampMax(maxResults)
	key := registry.SessionKey(queries)

	ch := a.inflight.DoChan(key, func() (any, error) {
		// Shared by every caller of this key, so it must outlive any one of them.
		return a.search(context.WithoutCancel(ctx), key, queries, maxResults)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Result), nil
	}
}

func (a *Aggregator) search(ctx context.Context, key string, queries []string, maxResults int) (*Result, error) {
	existing, err := a.store.Get(ctx, key)
	switch {
	case err == nil && existing.Populated():
		metrics.SearchCacheHits.Inc()
		a.logger.Debug("session cache hit", zap.String("session_key", key))
		return &Result{SessionKey: key, Summary: existing.Summary(), CitationIDs: existing.CitationIDs(), Cached: true}, nil
	case err != nil && !errors.Is(err, registry.ErrSessionNotFound):
		return nil, fmt.Errorf("load session %s: %w", key, err)
	}

	sess := registry.NewSession(queries, maxResults)
	g := new(errgroup.Group)
	g.SetLimit(a.opts.MaxConcurrency)
	for i, q := range queries {
		g.Go(func() error {
			a.runQuery(ctx, sess, i, q, maxResults)
			return nil
		})
	}
	_ = g.Wait()

	summary := renderSummary(sess)
	sess.SetSummary(summary)
	if err := a.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", key, err)
	}

	ids := sess.CitationIDs()
	a.logger.Info("search complete",
		zap.String("session_key", key),
		zap.Int("queries", len(queries)),
		zap.Int("sources", len(ids)))
	if err := a.events.Publish(ctx, key, events.TypeSearchComplete, map[string]any{
		"queries":      queries,
		"citation_ids": ids,
	}); err != nil {
		a.logger.Warn("publish search_complete", zap.Error(err))
	}
	return &Result{SessionKey: key, Summary: summary, CitationIDs: ids}, nil
}

// runQuery fills slot i of sess. Failures are recorded on the query result;
// they never affect sibling queries.
func (a *Aggregator) runQuery(ctx context.Context, sess *registry.Session, i int, q string, maxResults int) {
	start := 1 + i*maxResults
	log := a.logger.With(zap.String("query", q), zap.Int("offset", start))

	hits, err := retry.Do(ctx, retry.ComponentSearch, a.opts.Policy, func(ctx context.Context) ([]models.Result, error) {
		return a.searcher.Search(ctx, models.Query{
			Text:           q,
			MaxResults:     maxResults,
			IncludeDomains: a.opts.IncludeDomains,
			ExcludeDomains: a.opts.ExcludeDomains,
		})
	}, retry.WithLogger(log))
	if err != nil {
		metrics.SearchQueries.WithLabelValues(a.searcher.Name(), "error").Inc()
		log.Warn("query failed", zap.Error(err))
		if serr := sess.SetQueryResult(i, registry.QueryResult{Query: q, Error: err.Error()}, nil); serr != nil {
			log.Error("record query failure", zap.Error(serr))
		}
		return
	}
	metrics.SearchQueries.WithLabelValues(a.searcher.Name(), "ok").Inc()

	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	qr := registry.QueryResult{Query: q, CitationIDs: make([]string, 0, len(hits))}
	recs := make([]registry.SourceRecord, 0, len(hits))
	for j, hit := range hits {
		id := helpers.CitationID(start + j)
		hit.Snippet = helpers.PlainText(hit.Snippet)
		excerpt := extract.Search(hit.Envelope())
		verified := helpers.DomainMatches(helpers.Domain(hit.URL), a.opts.TrustedDomains)
		recs = append(recs, registry.NewSourceRecord(id, hit.URL, helpers.PlainText(hit.Title), excerpt, q, verified))
		qr.CitationIDs = append(qr.CitationIDs, id)
	}
	if err := sess.SetQueryResult(i, qr, recs); err != nil {
		log.Error("register sources", zap.Error(err))
		return
	}
	metrics.SourcesRegistered.Add(float64(len(recs)))
}

func (a *Aggregator) clampMax(n int) int {
	if n <= 0 {
		n = a.opts.DefaultMaxResults
	}
	return min(n, MaxResultsLimit)
}

func cleanQueries(in []string) []string {
	out := make([]string, 0, len(in))
	for _, q := range in {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

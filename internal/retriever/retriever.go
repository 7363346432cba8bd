// Package retriever resolves full content for cited sources on demand:
// promote a substantive excerpt, otherwise fetch and extract the page, then
// optionally refine it once.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mohammad-safakhou/citebank/internal/events"
	"github.com/mohammad-safakhou/citebank/internal/helpers"
	"github.com/mohammad-safakhou/citebank/internal/metrics"
	"github.com/mohammad-safakhou/citebank/internal/registry"
	"github.com/mohammad-safakhou/citebank/internal/retry"
	"github.com/mohammad-safakhou/citebank/tools/extract"
	"github.com/mohammad-safakhou/citebank/tools/refine"
	"github.com/mohammad-safakhou/citebank/tools/web_fetch"
	"github.com/mohammad-safakhou/citebank/tools/web_fetch/models"
)

var ErrNoCitationIDs = errors.New("no citation ids provided")

var errRefineClaimed = errors.New("refinement already attempted")

type Options struct {
	InlineMinChars    int
	MaxChars          int
	RefineMinChars    int
	MaxConcurrency    int
	RequireSessionKey bool
	// ResolveTimeout bounds the shared fetch-and-refine of one record.
	ResolveTimeout time.Duration
	// DisallowDomains are never fetched; their records fail without a request.
	DisallowDomains []string
	FetchPolicy     retry.Policy
}

// Source is the detail view of one record.
type Source struct {
	Title    string              `json:"title"`
	URL      string              `json:"url"`
	Domain   string              `json:"domain"`
	Content  string              `json:"content"`
	State    registry.FetchState `json:"state"`
	Verified bool                `json:"verified"`
}

type Details struct {
	SessionKey string            `json:"session_key"`
	Sources    map[string]Source `json:"sources"`
	Count      int               `json:"count"`
}

type Retriever struct {
	fetcher  web_fetch.WebFetcher
	refiner  refine.Refiner
	store    registry.Store
	events   events.Publisher
	opts     Options
	logger   *zap.Logger
	inflight singleflight.Group
}

func New(fetcher web_fetch.WebFetcher, refiner refine.Refiner, store registry.Store, pub events.Publisher, opts Options, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	if refiner == nil {
		refiner = refine.Noop()
	}
	if pub == nil {
		pub = events.Noop{}
	}
	if opts.InlineMinChars <= 0 {
		opts.InlineMinChars = 500
	}
	if opts.RefineMinChars <= 0 {
		opts.RefineMinChars = 300
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 8
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = 2 * time.Minute
	}
	return &Retriever{fetcher: fetcher, refiner: refiner, store: store, events: pub, opts: opts, logger: logger.Named("fetch")}
}

// GetDetails returns content for the requested IDs of a session. Unknown IDs
// are left out of the result; duplicates collapse.
func (r *Retriever) GetDetails(ctx context.Context, ids []string, sessionKey string) (*Details, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, ErrNoCitationIDs
	}
	sess, err := registry.Resolve(ctx, r.store, sessionKey, r.opts.RequireSessionKey)
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		out = &Details{SessionKey: sess.Key(), Sources: make(map[string]Source, len(ids))}
	)
	g := new(errgroup.Group)
	g.SetLimit(r.opts.MaxConcurrency)
	for _, id := range ids {
		if _, ok := sess.Record(id); !ok {
			continue
		}
		g.Go(func() error {
			rec := r.resolveShared(ctx, sess, id)
			mu.Lock()
			out.Sources[id] = Source{
				Title:    rec.Title,
				URL:      rec.URL,
				Domain:   rec.Domain,
				Content:  rec.Content(),
				State:    rec.State,
				Verified: rec.Verified,
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	out.Count = len(out.Sources)

	if err := r.store.Save(context.WithoutCancel(ctx), sess); err != nil {
		r.logger.Warn("save session after details", zap.String("session_key", sess.Key()), zap.Error(err))
	}
	states := make(map[string]string, len(out.Sources))
	for id, s := range out.Sources {
		states[id] = s.State.String()
	}
	if err := r.events.Publish(ctx, sess.Key(), events.TypeDetailsFetched, map[string]any{"states": states}); err != nil {
		r.logger.Warn("publish details_fetched", zap.Error(err))
	}
	return out, nil
}

// resolveShared runs resolve once per (session, id) across concurrent
// callers. The shared work is detached from any single caller and bounded by
// ResolveTimeout; a caller that gives up gets the record as it stands.
func (r *Retriever) resolveShared(ctx context.Context, sess *registry.Session, id string) registry.SourceRecord {
	ch := r.inflight.DoChan(sess.Key()+"/"+id, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.ResolveTimeout)
		defer cancel()
		return r.resolve(rctx, sess, id), nil
	})
	select {
	case res := <-ch:
		return res.Val.(registry.SourceRecord)
	case <-ctx.Done():
		rec, _ := sess.Record(id)
		return rec
	}
}

// resolve brings one record to its final state for this request and returns
// a copy of it.
func (r *Retriever) resolve(ctx context.Context, sess *registry.Session, id string) registry.SourceRecord {
	rec, _ := sess.Record(id)
	log := r.logger.With(zap.String("session_key", sess.Key()), zap.String("citation_id", id))

	if rec.NeedsFetch() {
		if rec.State == registry.NotFetched && utf8.RuneCountInString(rec.Excerpt) >= r.opts.InlineMinChars {
			rec = r.update(sess, rec, func(x *registry.SourceRecord) error { return x.SetFetched(extract.Cap(x.Excerpt, r.opts.MaxChars), time.Now().UTC()) }, log)
		} else {
			rec = r.fetch(ctx, sess, rec, log)
		}
		metrics.DetailFetches.WithLabelValues(rec.State.String()).Inc()
	}
	return r.maybeRefine(ctx, sess, rec, log)
}

func (r *Retriever) fetch(ctx context.Context, sess *registry.Session, rec registry.SourceRecord, log *zap.Logger) registry.SourceRecord {
	if helpers.DomainMatches(rec.Domain, r.opts.DisallowDomains) {
		return r.update(sess, rec, func(x *registry.SourceRecord) error {
			return x.SetFetchError("Error fetching URL: domain "+x.Domain+" is disallowed", time.Now().UTC())
		}, log)
	}
	t0 := time.Now()
	page, err := retry.Do(ctx, retry.ComponentFetch, r.opts.FetchPolicy, func(ctx context.Context) (models.Page, error) {
		return r.fetcher.Fetch(ctx, rec.URL)
	}, retry.WithLogger(log))
	metrics.FetchLatency.Observe(time.Since(t0).Seconds())

	if err != nil {
		msg := "Error fetching URL: " + cause(err)
		log.Info("fetch failed", zap.String("url", rec.URL), zap.Error(err))
		return r.update(sess, rec, func(x *registry.SourceRecord) error { return x.SetFetchError(msg, time.Now().UTC()) }, log)
	}

	base := page.FinalURL
	if base == "" {
		base = rec.URL
	}
	text := extract.HTML(page.HTML, base, r.opts.MaxChars).Text
	log.Debug("page fetched", zap.String("url", base), zap.Int("chars", len(text)), zap.String("html_hash", web_fetch.HashHTML(page.HTML)))
	return r.update(sess, rec, func(x *registry.SourceRecord) error { return x.SetFetched(text, time.Now().UTC()) }, log)
}

// maybeRefine runs the refiner at most once per record: the attempt is
// claimed under the session lock before the refiner is called.
func (r *Retriever) maybeRefine(ctx context.Context, sess *registry.Session, rec registry.SourceRecord, log *zap.Logger) registry.SourceRecord {
	if !r.refiner.Enabled() || rec.State != registry.Fetched || rec.RefineAttempted {
		return rec
	}
	if utf8.RuneCountInString(rec.Content()) < r.opts.RefineMinChars {
		return rec
	}
	claimed, err := sess.Update(rec.CitationID, func(x *registry.SourceRecord) error {
		if x.RefineAttempted || x.State != registry.Fetched {
			return errRefineClaimed
		}
		x.RefineAttempted = true
		return nil
	})
	if err != nil {
		return claimed
	}

	refined, err := r.refiner.Refine(ctx, claimed.Content())
	if err != nil {
		metrics.Refinements.WithLabelValues("failed").Inc()
		log.Debug("refinement failed, keeping fetched text", zap.Error(err))
		return claimed
	}
	metrics.Refinements.WithLabelValues("refined").Inc()
	return r.update(sess, claimed, func(x *registry.SourceRecord) error { return x.SetRefined(refined) }, log)
}

func (r *Retriever) update(sess *registry.Session, fallback registry.SourceRecord, fn func(*registry.SourceRecord) error, log *zap.Logger) registry.SourceRecord {
	rec, err := sess.Update(fallback.CitationID, fn)
	if err != nil {
		// Another request moved the record on first; report its state.
		log.Debug("record update skipped", zap.Error(err))
		if cur, ok := sess.Record(fallback.CitationID); ok {
			return cur
		}
		return fallback
	}
	return rec
}

// cause strips the retry wrapper so the message names what actually failed.
func cause(err error) string {
	var rerr *retry.Error
	if errors.As(err, &rerr) && rerr.Err != nil {
		return rerr.Err.Error()
	}
	return fmt.Sprint(err)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

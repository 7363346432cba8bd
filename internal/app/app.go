// Package app wires the citation registry from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/citebank/config"
	"github.com/mohammad-safakhou/citebank/internal/aggregator"
	"github.com/mohammad-safakhou/citebank/internal/events"
	"github.com/mohammad-safakhou/citebank/internal/httpx"
	"github.com/mohammad-safakhou/citebank/internal/registry"
	"github.com/mohammad-safakhou/citebank/internal/registry/inmemory"
	"github.com/mohammad-safakhou/citebank/internal/registry/redisstore"
	"github.com/mohammad-safakhou/citebank/internal/retriever"
	"github.com/mohammad-safakhou/citebank/internal/retry"
	"github.com/mohammad-safakhou/citebank/internal/toolkit"
	"github.com/mohammad-safakhou/citebank/provider"
	"github.com/mohammad-safakhou/citebank/repository/redis_repository"
	"github.com/mohammad-safakhou/citebank/tools/refine"
	"github.com/mohammad-safakhou/citebank/tools/validate"
	"github.com/mohammad-safakhou/citebank/tools/web_fetch"
	"github.com/mohammad-safakhou/citebank/tools/web_search"
)

// App holds the wired components and whatever must be closed on exit.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Toolkit    *toolkit.Toolkit
	Store      registry.Store
	Subscriber events.Subscriber // nil when events are disabled

	redis *redis.Client
}

// New builds every component. The logger is owned by the caller.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	if cfg.Registry.Store == config.StoreRedis || cfg.Events.Enabled {
		client, err := redis_repository.Conn(ctx, cfg.Storage.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = client
	}

	switch cfg.Registry.Store {
	case config.StoreRedis:
		a.Store = redisstore.NewRedisSessionStore(a.redis, cfg.Registry.TTL, logger)
	default:
		a.Store = inmemory.NewInMemorySessionStore()
	}

	var pub events.Publisher = events.Noop{}
	if cfg.Events.Enabled {
		rp := events.NewRedisPublisher(a.redis, logger)
		pub, a.Subscriber = rp, rp
	}

	searchClient := httpx.New(cfg.Search.Timeout, httpx.WithRateLimit(cfg.Search.RatePerSecond, 1))
	searcher, err := web_search.NewWebSearcher(cfg.Search, searchClient)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := searcher.Ready(); err != nil {
		logger.Warn("search provider not ready; searches will report it in-band",
			zap.String("provider", searcher.Name()), zap.Error(err))
	}

	fetcher, err := web_fetch.NewWebFetcher(cfg.Fetch)
	if err != nil {
		a.Close()
		return nil, err
	}

	refiner := refine.Noop()
	if cfg.Refine.Enabled {
		completer, err := provider.NewCompleter(ctx, cfg.LLM, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("llm: %w", err)
		}
		refiner = refine.New(completer)
	}

	agg := aggregator.New(searcher, a.Store, pub, aggregator.Options{
		DefaultMaxResults: cfg.Search.DefaultMaxResults,
		MaxConcurrency:    cfg.Search.MaxConcurrency,
		IncludeDomains:    cfg.Search.IncludeDomains,
		ExcludeDomains:    cfg.Search.ExcludeDomains,
		TrustedDomains:    cfg.Search.TrustedDomains,
		Policy: retry.Policy{
			MaxRetries:     cfg.Search.MaxRetries,
			BaseDelay:      cfg.Search.BackoffBase,
			AttemptTimeout: cfg.Search.Timeout,
		},
	}, logger)

	ret := retriever.New(fetcher, refiner, a.Store, pub, retriever.Options{
		InlineMinChars:    cfg.Fetch.InlineMinChars,
		MaxChars:          cfg.Fetch.MaxChars,
		RefineMinChars:    cfg.Refine.MinChars,
		MaxConcurrency:    cfg.Search.MaxConcurrency,
		RequireSessionKey: cfg.Registry.RequireSessionKey,
		DisallowDomains:   cfg.Fetch.DisallowDomains,
		ResolveTimeout:    cfg.Server.ToolTimeout,
		FetchPolicy: retry.Policy{
			MaxRetries:     cfg.Fetch.MaxRetries,
			BaseDelay:      cfg.Fetch.BackoffBase,
			AttemptTimeout: cfg.Fetch.Timeout,
		},
	}, logger)

	val := validate.New(cfg.Validator, logger)

	a.Toolkit = toolkit.New(agg, ret, a.Store, val, pub, toolkit.Options{
		RequireSessionKey: cfg.Registry.RequireSessionKey,
		ToolTimeout:       cfg.Server.ToolTimeout,
	}, logger)

	logger.Info("citebank ready",
		zap.String("search_provider", searcher.Name()),
		zap.String("fetch_mode", cfg.Fetch.Mode),
		zap.String("store", cfg.Registry.Store),
		zap.Bool("refine", refiner.Enabled()),
		zap.Bool("events", cfg.Events.Enabled))
	return a, nil
}

// Close releases the Redis connection, if any.
func (a *App) Close() error {
	if a.redis == nil {
		return nil
	}
	err := a.redis.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}

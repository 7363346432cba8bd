// Package redisstore keeps session snapshots in Redis so they survive process
// restarts and can be shared between replicas.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/citebank/internal/metrics"
	"github.com/mohammad-safakhou/citebank/internal/registry"
)

const (
	sessionKeyPrefix = "citebank:session:"
	latestKey        = "citebank:sessions:latest"
)

type entry struct {
	sess    *registry.Session
	expires time.Time
}

// Store persists JSON snapshots with a TTL. Sessions loaded by this process
// stay cached locally so concurrent detail requests mutate one object.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	local map[string]entry
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{client: client, ttl: ttl, logger: logger.Named("redisstore"), local: make(map[string]entry)}
}

func sessionKey(key string) string { return sessionKeyPrefix + key }

func (store *Store) Get(ctx context.Context, key string) (*registry.Session, error) {
	val, err := store.client.Get(ctx, sessionKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		store.forget(key)
		return nil, registry.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if e, ok := store.local[key]; ok {
		return e.sess, nil
	}
	var snap registry.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	sess, err := registry.Restore(snap)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", key, err)
	}
	store.local[key] = entry{sess: sess, expires: time.Now().Add(store.ttl)}
	return sess, nil
}

func (store *Store) Latest(ctx context.Context) (*registry.Session, error) {
	key, err := store.client.Get(ctx, latestKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, registry.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get latest: %w", err)
	}
	return store.Get(ctx, key)
}

func (store *Store) Save(ctx context.Context, s *registry.Session) error {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.Key(), err)
	}

	store.mu.Lock()
	store.pruneLocked(time.Now())
	store.local[s.Key()] = entry{sess: s, expires: time.Now().Add(store.ttl)}
	store.mu.Unlock()

	// EXISTS runs inside the transaction, so exactly one writer sees a new key
	// even across processes.
	pipe := store.client.TxPipeline()
	existed := pipe.Exists(ctx, sessionKey(s.Key()))
	pipe.Set(ctx, sessionKey(s.Key()), data, store.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	if existed.Val() == 0 {
		if err := store.client.Set(ctx, latestKey, s.Key(), store.ttl).Err(); err != nil {
			return fmt.Errorf("redis set latest: %w", err)
		}
		metrics.SessionsActive.Inc()
	}
	store.logger.Debug("session saved", zap.String("session_key", s.Key()), zap.Int("bytes", len(data)))
	return nil
}

func (store *Store) Delete(ctx context.Context, key string) error {
	n, err := store.client.Del(ctx, sessionKey(key)).Result()
	if err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	store.forget(key)
	if n == 0 {
		return registry.ErrSessionNotFound
	}
	if latest, err := store.client.Get(ctx, latestKey).Result(); err == nil && latest == key {
		_ = store.client.Del(ctx, latestKey).Err()
	}
	metrics.SessionsActive.Dec()
	return nil
}

func (store *Store) forget(key string) {
	store.mu.Lock()
	delete(store.local, key)
	store.mu.Unlock()
}

func (store *Store) pruneLocked(now time.Time) {
	for k, e := range store.local {
		if now.After(e.expires) {
			delete(store.local, k)
		}
	}
}

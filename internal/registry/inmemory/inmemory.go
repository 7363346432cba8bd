package inmemory

import (
	"context"
	"sync"

	"github.com/mohammad-safakhou/citebank/internal/metrics"
	"github.com/mohammad-safakhou/citebank/internal/registry"
)

// Store keeps sessions in process memory until they are deleted.
type Store struct {
	sessions map[string]*registry.Session
	order    []string // creation order, newest last
	mu       sync.RWMutex
}

func NewInMemorySessionStore() *Store {
	return &Store{sessions: make(map[string]*registry.Session)}
}

func (store *Store) Get(_ context.Context, key string) (*registry.Session, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	sess, ok := store.sessions[key]
	if !ok {
		return nil, registry.ErrSessionNotFound
	}
	return sess, nil
}

func (store *Store) Latest(_ context.Context) (*registry.Session, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	if len(store.order) == 0 {
		return nil, registry.ErrSessionNotFound
	}
	return store.sessions[store.order[len(store.order)-1]], nil
}

func (store *Store) Save(_ context.Context, s *registry.Session) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.sessions[s.Key()]; !ok {
		store.order = append(store.order, s.Key())
		metrics.SessionsActive.Inc()
	}
	store.sessions[s.Key()] = s
	return nil
}

func (store *Store) Delete(_ context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.sessions[key]; !ok {
		return registry.ErrSessionNotFound
	}
	delete(store.sessions, key)
	for i, k := range store.order {
		if k == key {
			store.order = append(store.order[:i], store.order[i+1:]...)
			break
		}
	}
	metrics.SessionsActive.Dec()
	return nil
}

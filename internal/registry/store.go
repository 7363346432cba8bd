package registry

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionKeyRequired = errors.New("session key required")
)

// Store owns search sessions for their lifetime. Get and Latest return the
// live session; mutations become durable on Save.
type Store interface {
	Get(ctx context.Context, key string) (*Session, error)
	// Latest returns the most recently created session.
	Latest(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, key string) error
}

// Resolve finds the session a request refers to. An empty key falls back to
// the latest session unless requireKey is set.
func Resolve(ctx context.Context, store Store, key string, requireKey bool) (*Session, error) {
	key = strings.TrimSpace(key)
	if key != "" {
		return store.Get(ctx, key)
	}
	if requireKey {
		return nil, ErrSessionKeyRequired
	}
	return store.Latest(ctx)
}

// Package events announces session activity so dashboards and agents can
// follow a research session as it happens.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher emits session events. Publishing is best effort: callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, sessionKey, eventType string, payload any) error
}

// Subscriber streams the events of one session until ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionKey string) (<-chan Envelope, error)
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, string, string, any) error { return nil }

// RedisPublisher publishes envelopes over Redis pub/sub.
type RedisPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisPublisher(client *redis.Client, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, logger: logger.Named("events")}
}

func (p *RedisPublisher) Publish(ctx context.Context, sessionKey, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	env := Envelope{
		EventID:    uuid.NewString(),
		Type:       eventType,
		SessionKey: sessionKey,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	if err := env.ValidateBasic(); err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, Channel(sessionKey), raw).Err(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	p.logger.Debug("event published", zap.String("type", eventType), zap.String("session_key", sessionKey))
	return nil
}

// Subscribe relays the session channel. The returned channel closes when ctx
// is done or the connection drops; malformed messages are skipped.
func (p *RedisPublisher) Subscribe(ctx context.Context, sessionKey string) (<-chan Envelope, error) {
	sub := p.client.Subscribe(ctx, Channel(sessionKey))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	out := make(chan Envelope)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				env, err := UnmarshalEnvelope([]byte(msg.Payload))
				if err != nil {
					p.logger.Warn("dropping malformed event", zap.Error(err))
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

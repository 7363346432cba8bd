package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribeRoundTrip(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p := NewRedisPublisher(client, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := p.Subscribe(ctx, "abc123def456")
	require.NoError(t, err)

	require.NoError(t, p.Publish(ctx, "abc123def456", TypeSearchComplete, map[string]int{"sources": 6}))

	select {
	case env := <-ch:
		require.Equal(t, TypeSearchComplete, env.Type)
		require.Equal(t, "abc123def456", env.SessionKey)
		require.NotEmpty(t, env.EventID)
		var data map[string]int
		require.NoError(t, json.Unmarshal(env.Data, &data))
		require.Equal(t, 6, data["sources"])
	case <-ctx.Done():
		t.Fatalf("no event received")
	}

	cancel()
	for range ch {
	}
}

func TestPublishUsesSessionChannel(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sub := mr.NewSubscriber()
	defer sub.Close()
	sub.Subscribe(Channel("k1"))

	require.NoError(t, NewRedisPublisher(client, nil).Publish(context.Background(), "k1", TypeSessionDisposed, nil))
	select {
	case msg := <-sub.Messages():
		require.Equal(t, "session_k1", msg.Channel)
		env, err := UnmarshalEnvelope([]byte(msg.Message))
		require.NoError(t, err)
		require.Equal(t, TypeSessionDisposed, env.Type)
	case <-time.After(2 * time.Second):
		t.Fatalf("no message on session channel")
	}
}

func TestUnmarshalEnvelopeRejectsMissingFields(t *testing.T) {
	t.Parallel()
	_, err := UnmarshalEnvelope([]byte(`{"type":"x","session_key":"k"}`))
	require.Error(t, err)
	_, err = UnmarshalEnvelope([]byte(`nope`))
	require.Error(t, err)
}

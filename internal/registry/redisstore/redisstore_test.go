package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/citebank/internal/metrics"
	"github.com/mohammad-safakhou/citebank/internal/registry"
)

func newMini(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func populated(t *testing.T, queries ...string) *registry.Session {
	t.Helper()
	s := registry.NewSession(queries, 3)
	recs := []registry.SourceRecord{registry.NewSourceRecord("src_1", "https://www.legislation.gov.uk/ukpga/2018/12", "Data Protection Act 2018", "excerpt", queries[0], true)}
	require.NoError(t, s.SetQueryResult(0, registry.QueryResult{Query: queries[0], CitationIDs: []string{"src_1"}}, recs))
	s.SetSummary("SEARCH_COMPLETE [ID: " + s.Key() + "]")
	return s
}

func TestSaveAndReloadAcrossStores(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, client := newMini(t)
	writer := NewRedisSessionStore(client, time.Hour, nil)

	s := populated(t, "data protection act")
	require.NoError(t, writer.Save(ctx, s))
	_, err := s.Update("src_1", func(r *registry.SourceRecord) error { return r.SetFetched("full text", time.Now()) })
	require.NoError(t, err)
	require.NoError(t, writer.Save(ctx, s))

	reader := NewRedisSessionStore(client, time.Hour, nil)
	got, err := reader.Get(ctx, s.Key())
	require.NoError(t, err)
	require.NotSame(t, s, got)
	require.Equal(t, s.Summary(), got.Summary())
	rec, ok := got.Record("src_1")
	require.True(t, ok)
	require.Equal(t, registry.Fetched, rec.State)
	require.Equal(t, "full text", rec.Content())

	again, err := reader.Get(ctx, s.Key())
	require.NoError(t, err)
	require.Same(t, got, again, "loaded sessions are cached locally")

	latest, err := reader.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, s.Key(), latest.Key())
}

func TestLatestTracksCreationNotSaves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, client := newMini(t)
	store := NewRedisSessionStore(client, time.Hour, nil)

	first := populated(t, "first")
	second := populated(t, "second")
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))
	require.NoError(t, store.Save(ctx, first))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, second.Key(), latest.Key())
}

func TestLatestSurvivesResaveFromAnotherStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, client := newMini(t)
	before := NewRedisSessionStore(client, time.Hour, nil)

	first := populated(t, "first")
	second := populated(t, "second")
	require.NoError(t, before.Save(ctx, first))
	require.NoError(t, before.Save(ctx, second))

	// A restarted process has an empty local cache.
	after := NewRedisSessionStore(client, time.Hour, nil)
	loaded, err := after.Get(ctx, first.Key())
	require.NoError(t, err)
	require.NoError(t, after.Save(ctx, loaded))

	latest, err := after.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, second.Key(), latest.Key())
}

// Not parallel: SessionsActive is process wide.
func TestSessionsActiveCountsNewKeysOnly(t *testing.T) {
	ctx := context.Background()
	_, client := newMini(t)
	start := testutil.ToFloat64(metrics.SessionsActive)

	s := populated(t, "gauge")
	require.NoError(t, NewRedisSessionStore(client, time.Hour, nil).Save(ctx, s))
	require.NoError(t, NewRedisSessionStore(client, time.Hour, nil).Save(ctx, s))
	if got := testutil.ToFloat64(metrics.SessionsActive) - start; got != 1 {
		t.Fatalf("gauge moved by %v after two saves, want 1", got)
	}

	require.NoError(t, NewRedisSessionStore(client, time.Hour, nil).Delete(ctx, s.Key()))
	require.Equal(t, start, testutil.ToFloat64(metrics.SessionsActive))
}

func TestTTLExpiresSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, client := newMini(t)
	store := NewRedisSessionStore(client, time.Minute, nil)

	s := populated(t, "expiring")
	require.NoError(t, store.Save(ctx, s))
	require.True(t, mr.Exists(sessionKey(s.Key())))
	require.Equal(t, time.Minute, mr.TTL(sessionKey(s.Key())))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, s.Key())
	require.ErrorIs(t, err, registry.ErrSessionNotFound)
	_, err = store.Latest(ctx)
	require.ErrorIs(t, err, registry.ErrSessionNotFound)
}

func TestDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, client := newMini(t)
	store := NewRedisSessionStore(client, time.Hour, nil)

	s := populated(t, "to delete")
	require.NoError(t, store.Save(ctx, s))
	require.NoError(t, store.Delete(ctx, s.Key()))
	require.False(t, mr.Exists(sessionKey(s.Key())))
	require.False(t, mr.Exists(latestKey))
	require.ErrorIs(t, store.Delete(ctx, s.Key()), registry.ErrSessionNotFound)

	_, err := store.Get(ctx, s.Key())
	require.ErrorIs(t, err, registry.ErrSessionNotFound)
}

func TestCorruptSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, client := newMini(t)
	require.NoError(t, mr.Set(sessionKey("abc"), "{not json"))

	_, err := NewRedisSessionStore(client, time.Hour, nil).Get(ctx, "abc")
	require.Error(t, err)
	require.NotErrorIs(t, err, registry.ErrSessionNotFound)
}

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kursio/weft/pkg/adapters/redis"
	"github.com/kursio/weft/pkg/domain"
	"github.com/kursio/weft/pkg/ports"
)

func newTestClient(t *testing.T) *backend.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestStoreContract(t *testing.T) {
	ports.RunStateStoreContract(t, redis.NewFromClient(newTestClient(t)))
}

func TestStoreTTLExpiration(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	st := domain.NewState("sess-ttl")
	st.CurrentNodeID = "p1"
	require.NoError(t, store.Save(ctx, "sess-ttl", st))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, "sess-ttl")

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "sess-ttl")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestStorePrefixIsolation(t *testing.T) {
	client := newTestClient(t)
	a := redis.NewFromClient(client, redis.WithPrefix("a:"))
	b := redis.NewFromClient(client, redis.WithPrefix("b:"))
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, "sess-1", domain.NewState("sess-1")))

	_, err := b.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	sessions, err := b.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestLockerMutualExclusion(t *testing.T) {
	client := newTestClient(t)
	locker := redis.NewLocker(client, "")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "sess-1", 30*time.Second)
	require.NoError(t, err)

	// A second holder cannot acquire the same lock before it is released.
	shortCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(shortCtx, "sess-1", 30*time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, "sess-1", 30*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

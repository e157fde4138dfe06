package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sony/gobreaker"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
)

func newTestStore(t *testing.T) (*RedisRevocationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	return NewRedisRevocationStore(client), mr
}

func TestIsRevoked(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	// The login service blacklists the hash with the token's remaining lifetime.
	require.NoError(t, mr.Set(blacklistPrefix+TokenHash("token-a"), "1"))
	mr.SetTTL(blacklistPrefix+TokenHash("token-a"), time.Minute)

	revoked, err = store.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked, "blacklist entries expire with the credential")
}

func TestIsRevoked_FailsClosed(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, err := store.IsRevoked(context.Background(), "token-a")
	assert.ErrorIs(t, err, domain.ErrDatastoreUnavailable)
}

type canceledClient struct{ calls int }

func (c *canceledClient) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	c.calls++
	return redis.NewIntResult(0, context.Canceled)
}

func TestIsRevoked_AbandonedRequestsKeepBreakerClosed(t *testing.T) {
	client := &canceledClient{}
	store := NewRedisRevocationStore(client)

	for i := 0; i < 5; i++ {
		_, err := store.IsRevoked(context.Background(), "token-a")
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, domain.ErrDatastoreUnavailable)
	}
	assert.Equal(t, 5, client.calls)
	assert.Equal(t, gobreaker.StateClosed, store.cb.State())
}

func TestTokenHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", TokenHash(""))
	assert.Len(t, TokenHash("abc"), 64)
	assert.NotEqual(t, TokenHash("abc"), TokenHash("abd"))
}

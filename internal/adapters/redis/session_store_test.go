package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisadapter "github.com/filegate/filegate/internal/adapters/redis"
	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/ports"
	"github.com/filegate/filegate/internal/testutil"
)

func testSession(id string, ttl time.Duration) domainauth.Session {
	return domainauth.Session{
		ID: id,
		Identity: domainauth.Identity{
			LoggedIn: true,
			UserID:   "u-1",
			Roles:    []string{"editor"},
		},
		ExpiresAt: time.Now().Add(ttl),
	}
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := redisadapter.NewSessionStore(client)
	ctx := context.Background()

	sess := testSession("sess-1", time.Hour)
	sess.Gate.MarkVerified(domainauth.ScopeGlobal, time.Now())
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.Identity, got.Identity)
	assert.True(t, got.Gate.Verified(domainauth.ScopeGlobal))
	assert.False(t, got.Gate.Verified(domainauth.ScopeDirectory))
}

func TestSessionStore_GetMissing(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := redisadapter.NewSessionStore(client)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestSessionStore_SaveRejectsEmptyIDAndExpired(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := redisadapter.NewSessionStore(client)
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, testSession("", time.Hour)))
	assert.Error(t, store.Save(ctx, testSession("sess-dead", -time.Minute)))
}

func TestSessionStore_Delete(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := redisadapter.NewSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("sess-2", time.Hour)))
	require.NoError(t, store.Delete(ctx, "sess-2"))

	_, err := store.Get(ctx, "sess-2")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete(ctx, "sess-2"))
}

func TestSessionStore_TTLTracksExpiry(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := redisadapter.NewSessionStoreWithPrefix(client, "gate-session:")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("sess-3", time.Hour)))

	ttl, err := client.TTL(ctx, "gate-session:sess-3").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 55*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}

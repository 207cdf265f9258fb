package badgerkv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filegate/filegate/internal/ports"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestOpen_RequiresDirOrInMemory(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v1")))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, store.Set(ctx, "k", []byte("v2")))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrSettingNotFound)
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ports.ErrSettingNotFound)

	// Deleting a missing key is a no-op.
	require.NoError(t, store.Delete(ctx, "k"))
}

func TestStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "k", []byte("survives")))
	require.NoError(t, store.Close())

	reopened, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, reopened.Close())
	}()

	got, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("survives"), got)
}

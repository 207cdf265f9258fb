package policystore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filegate/filegate/internal/adapters/memkv"
	"github.com/filegate/filegate/internal/data"
	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/domain/policy"
	"github.com/filegate/filegate/internal/ports"
)

func newTestStore(t *testing.T) (*Store, *data.FixedTimeProvider) {
	t.Helper()
	clock := data.NewFixedTimeProvider(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store, err := New(Options{Settings: memkv.New(), Clock: clock})
	require.NoError(t, err)
	return store, clock
}

func TestNew_RequiresSettings(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestGlobal_DefaultWhenUnset(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.Global(context.Background())
	require.NoError(t, err)
	assert.Equal(t, policy.DefaultGlobal(), got)

	lc, err := store.LastChanged(context.Background())
	require.NoError(t, err)
	assert.True(t, lc.IsZero())
}

func TestSetGlobal_BumpsWatermark(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetGlobal(ctx, policy.Policy{
		Methods:      []policy.Method{policy.MethodLoggedIn},
		AllowedRoles: []string{"administrator", "editor"},
	}))

	lc1, err := store.LastChanged(ctx)
	require.NoError(t, err)
	assert.False(t, lc1.IsZero())

	clock.AddTime(time.Second)
	require.NoError(t, store.SetGlobal(ctx, policy.DefaultGlobal()))

	lc2, err := store.LastChanged(ctx)
	require.NoError(t, err)
	assert.True(t, lc2.After(lc1))
}

func TestSetGlobal_RetainsPasswordCiphertext(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetGlobal(ctx, policy.Policy{
		Methods:            []policy.Method{policy.MethodSimplePassword},
		PasswordCiphertext: "v1:stored",
	}))

	// Updating without a password keeps the previous ciphertext.
	require.NoError(t, store.SetGlobal(ctx, policy.Policy{
		Methods:      []policy.Method{policy.MethodSimplePassword, policy.MethodLoggedIn},
		AllowedRoles: []string{"administrator"},
	}))

	got, err := store.Global(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1:stored", got.PasswordCiphertext)
}

func TestSetDirectory_Validation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.SetDirectory(ctx, "secrets", policy.Policy{})
	assert.ErrorIs(t, err, policy.ErrValidation)

	err = store.SetDirectory(ctx, "secrets", policy.Policy{
		Methods: []policy.Method{policy.MethodSimplePassword},
	})
	assert.ErrorIs(t, err, policy.ErrValidation)

	// Once a ciphertext is stored, later upserts may omit the password.
	require.NoError(t, store.SetDirectory(ctx, "secrets", policy.Policy{
		Methods:            []policy.Method{policy.MethodSimplePassword},
		PasswordCiphertext: "v1:stored",
	}))
	require.NoError(t, store.SetDirectory(ctx, "secrets", policy.Policy{
		Methods: []policy.Method{policy.MethodSimplePassword},
	}))

	got, ok, err := store.Directory(ctx, "secrets")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1:stored", got.PasswordCiphertext)
}

func TestSetDirectory_NormalizesKey(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetDirectory(ctx, "/docs/reports/", policy.Policy{
		Methods:      []policy.Method{policy.MethodLoggedIn},
		AllowedRoles: []string{"editor"},
	}))

	_, ok, err := store.Directory(ctx, "docs/reports")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemoveDirectory_BumpsOnlyWhenPresent(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetDirectory(ctx, "secrets", policy.Policy{
		Methods:            []policy.Method{policy.MethodSimplePassword},
		PasswordCiphertext: "v1:stored",
	}))
	lc1, err := store.LastChanged(ctx)
	require.NoError(t, err)

	clock.AddTime(time.Second)
	require.NoError(t, store.RemoveDirectory(ctx, "nonexistent"))
	lc2, err := store.LastChanged(ctx)
	require.NoError(t, err)
	assert.Equal(t, lc1, lc2, "removing a missing key must not bump the watermark")

	require.NoError(t, store.RemoveDirectory(ctx, "secrets"))
	lc3, err := store.LastChanged(ctx)
	require.NoError(t, err)
	assert.True(t, lc3.After(lc2))

	_, ok, err := store.Directory(ctx, "secrets")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEffective_ExactKeyOnly(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	dirPolicy := policy.Policy{
		Methods:            []policy.Method{policy.MethodSimplePassword},
		PasswordCiphertext: "v1:stored",
	}
	require.NoError(t, store.SetDirectory(ctx, "a", dirPolicy))

	got, scope, err := store.Effective(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domainauth.ScopeDirectory, scope)
	assert.Equal(t, dirPolicy, got)

	// No inheritance: "a/b" falls back to the global policy.
	got, scope, err = store.Effective(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, domainauth.ScopeGlobal, scope)
	assert.Equal(t, policy.DefaultGlobal(), got)

	got, scope, err = store.Effective(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, domainauth.ScopeGlobal, scope)
	assert.Equal(t, policy.DefaultGlobal(), got)
}

func TestWatermark_MonotonicAgainstClockStall(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// Clock does not advance between writes; the watermark still must.
	require.NoError(t, store.SetGlobal(ctx, policy.DefaultGlobal()))
	lc1, err := store.LastChanged(ctx)
	require.NoError(t, err)

	require.NoError(t, store.SetGlobal(ctx, policy.DefaultGlobal()))
	lc2, err := store.LastChanged(ctx)
	require.NoError(t, err)
	assert.True(t, lc2.After(lc1))
}

type failingSettings struct{ err error }

func (f failingSettings) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingSettings) Set(context.Context, string, []byte) error   { return f.err }
func (f failingSettings) Delete(context.Context, string) error        { return f.err }

func TestStore_SurfacesBackendErrors(t *testing.T) {
	backendErr := errors.New("kv unreachable")
	store, err := New(Options{Settings: failingSettings{err: backendErr}})
	require.NoError(t, err)

	_, _, err = store.Effective(context.Background(), "docs")
	assert.ErrorIs(t, err, backendErr)
}

func TestStore_CorruptStateIsAnError(t *testing.T) {
	settings := memkv.New()
	require.NoError(t, settings.Set(context.Background(), DefaultSettingsKey, []byte("{not json")))
	store, err := New(Options{Settings: settings})
	require.NoError(t, err)

	_, err = store.Global(context.Background())
	assert.Error(t, err)
}

var _ ports.SettingsStore = failingSettings{}

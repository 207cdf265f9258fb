package data_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filegate/filegate/internal/data"
	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/domain/policy"
	"github.com/filegate/filegate/internal/testutil"
)

func TestPolicyRepo_GlobalDefaultWhenUnset(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	repo := data.NewPolicyRepo(db)
	ctx := context.Background()

	got, err := repo.Global(ctx)
	require.NoError(t, err)
	assert.Equal(t, policy.DefaultGlobal(), got)

	last, err := repo.LastChanged(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}

func TestPolicyRepo_SetGlobalRoundTrip(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	repo := data.NewPolicyRepo(db)
	ctx := context.Background()

	in := policy.Policy{
		Methods:      []policy.Method{policy.MethodLoggedIn},
		AllowedRoles: []string{"administrator", "editor"},
	}
	require.NoError(t, repo.SetGlobal(ctx, in))

	got, err := repo.Global(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.Methods, got.Methods)
	assert.Equal(t, in.AllowedRoles, got.AllowedRoles)
	assert.Empty(t, got.PasswordCiphertext)

	last, err := repo.LastChanged(ctx)
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestPolicyRepo_DirectoryOverride(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	repo := data.NewPolicyRepo(db)
	ctx := context.Background()

	override := policy.Policy{
		Methods:            []policy.Method{policy.MethodSimplePassword},
		PasswordCiphertext: "v1:ZmFrZQ==",
	}
	require.NoError(t, repo.SetDirectory(ctx, "reports/2024", override))

	got, ok, err := repo.Directory(ctx, "reports/2024")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, override.Methods, got.Methods)
	assert.Equal(t, "v1:ZmFrZQ==", got.PasswordCiphertext)

	// Effective picks the exact key only; the parent stays on global.
	_, scope, err := repo.Effective(ctx, "reports/2024")
	require.NoError(t, err)
	assert.Equal(t, domainauth.ScopeDirectory, scope)

	_, scope, err = repo.Effective(ctx, "reports")
	require.NoError(t, err)
	assert.Equal(t, domainauth.ScopeGlobal, scope)
}

func TestPolicyRepo_SetDirectoryNormalizesKey(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	repo := data.NewPolicyRepo(db)
	ctx := context.Background()

	p := policy.Policy{Methods: []policy.Method{policy.MethodLoggedIn}}
	require.NoError(t, repo.SetDirectory(ctx, `docs\reports/`, p))

	_, ok, err := repo.Directory(ctx, "docs/reports")
	require.NoError(t, err)
	assert.True(t, ok)

	dirs, err := repo.Directories(ctx)
	require.NoError(t, err)
	assert.Contains(t, dirs, "docs/reports")
}

func TestPolicyRepo_SetDirectoryValidation(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	repo := data.NewPolicyRepo(db)
	ctx := context.Background()

	err := repo.SetDirectory(ctx, "docs", policy.Policy{})
	require.Error(t, err)
	assert.ErrorIs(t, err, policy.ErrValidation)

	// Rejected writes must not bump the watermark.
	last, err := repo.LastChanged(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}

func TestPolicyRepo_UpdateRetainsPassword(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	repo := data.NewPolicyRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SetDirectory(ctx, "docs", policy.Policy{
		Methods:            []policy.Method{policy.MethodSimplePassword},
		PasswordCiphertext: "v1:b2xk",
	}))

	// Update without a new password keeps the stored ciphertext.
	require.NoError(t, repo.SetDirectory(ctx, "docs", policy.Policy{
		Methods:      []policy.Method{policy.MethodSimplePassword, policy.MethodLoggedIn},
		AllowedRoles: []string{"editor"},
	}))

	got, ok, err := repo.Directory(ctx, "docs")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1:b2xk", got.PasswordCiphertext)
	assert.Len(t, got.Methods, 2)
}

func TestPolicyRepo_WatermarkMonotonic(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	repo := data.NewPolicyRepo(db)
	ctx := context.Background()

	p := policy.Policy{Methods: []policy.Method{policy.MethodLoggedIn}}
	var prev time.Time
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.SetDirectory(ctx, "docs", p))
		last, err := repo.LastChanged(ctx)
		require.NoError(t, err)
		assert.True(t, last.After(prev), "watermark must advance on every write")
		prev = last
	}
}

func TestPolicyRepo_RemoveDirectory(t *testing.T) {
	db := testutil.SetupAutoDB(t)
	repo := data.NewPolicyRepo(db)
	ctx := context.Background()

	p := policy.Policy{Methods: []policy.Method{policy.MethodLoggedIn}}
	require.NoError(t, repo.SetDirectory(ctx, "docs", p))
	afterSet, err := repo.LastChanged(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.RemoveDirectory(ctx, "docs"))
	_, ok, err := repo.Directory(ctx, "docs")
	require.NoError(t, err)
	assert.False(t, ok)

	afterRemove, err := repo.LastChanged(ctx)
	require.NoError(t, err)
	assert.True(t, afterRemove.After(afterSet))

	// Removing a missing override is a no-op and leaves the watermark alone.
	require.NoError(t, repo.RemoveDirectory(ctx, "docs"))
	afterNoop, err := repo.LastChanged(ctx)
	require.NoError(t, err)
	assert.Equal(t, afterRemove, afterNoop)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filegate/filegate/internal/adapters/memkv"
	"github.com/filegate/filegate/internal/data"
	"github.com/filegate/filegate/internal/data/cryptoutil"
	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/domain/policy"
	"github.com/filegate/filegate/internal/policystore"
)

type policyFixture struct {
	svc   *PolicyService
	gate  *GateService
	clock *data.FixedTimeProvider
}

func newPolicyFixture(t *testing.T) *policyFixture {
	t.Helper()
	clock := data.NewFixedTimeProvider(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store, err := policystore.New(policystore.Options{Settings: memkv.New(), Clock: clock})
	require.NoError(t, err)

	key, err := cryptoutil.DeriveKey([]string{"test-secret"})
	require.NoError(t, err)
	cipher, err := cryptoutil.NewAESGCMEncryptor(key)
	require.NoError(t, err)

	svc, err := NewPolicyService(PolicyServiceOptions{Store: store, Cipher: cipher})
	require.NoError(t, err)
	gate, err := NewGateService(GateServiceOptions{Policies: store, Cipher: cipher, Clock: clock})
	require.NoError(t, err)
	return &policyFixture{svc: svc, gate: gate, clock: clock}
}

func TestNewPolicyService_RequiredDeps(t *testing.T) {
	_, err := NewPolicyService(PolicyServiceOptions{})
	assert.Error(t, err)
}

func TestPolicyService_PasswordNeverStoredInPlaintext(t *testing.T) {
	f := newPolicyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SetDirectory(ctx, "secrets", PolicyInput{
		Methods:  []policy.Method{policy.MethodSimplePassword},
		Password: "hunter2",
	}))

	view, ok, err := f.svc.Directory(ctx, "secrets")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, view.HasPassword)

	// The password round-trips through the cipher: the gate accepts it.
	got := f.gate.Decide(ctx, DecideInput{
		Directory:         "secrets",
		Session:           &domainauth.GateSession{},
		SubmittedPassword: "hunter2",
	})
	assert.Equal(t, domainauth.DecisionAllow, got)
}

func TestPolicyService_SetDirectoryValidation(t *testing.T) {
	f := newPolicyFixture(t)
	ctx := context.Background()

	err := f.svc.SetDirectory(ctx, "secrets", PolicyInput{})
	assert.ErrorIs(t, err, policy.ErrValidation)

	err = f.svc.SetDirectory(ctx, "secrets", PolicyInput{
		Methods: []policy.Method{policy.MethodSimplePassword},
	})
	assert.ErrorIs(t, err, policy.ErrValidation)
}

func TestPolicyService_UpdateKeepsPassword(t *testing.T) {
	f := newPolicyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SetDirectory(ctx, "secrets", PolicyInput{
		Methods:  []policy.Method{policy.MethodSimplePassword},
		Password: "hunter2",
	}))

	// Update with no password: the stored one is retained.
	require.NoError(t, f.svc.SetDirectory(ctx, "secrets", PolicyInput{
		Methods:      []policy.Method{policy.MethodSimplePassword, policy.MethodLoggedIn},
		AllowedRoles: []string{"administrator"},
	}))

	got := f.gate.Decide(ctx, DecideInput{
		Directory:         "secrets",
		Session:           &domainauth.GateSession{},
		SubmittedPassword: "hunter2",
	})
	assert.Equal(t, domainauth.DecisionAllow, got)
}

func TestPolicyService_GlobalRoundTrip(t *testing.T) {
	f := newPolicyFixture(t)
	ctx := context.Background()

	view, err := f.svc.Global(ctx)
	require.NoError(t, err)
	assert.Equal(t, []policy.Method{policy.MethodLoggedIn}, view.Methods)
	assert.False(t, view.HasPassword)

	require.NoError(t, f.svc.SetGlobal(ctx, PolicyInput{
		Methods:      []policy.Method{policy.MethodLoggedIn, policy.MethodSimplePassword},
		AllowedRoles: []string{"administrator", "editor"},
		Password:     "hunter2",
	}))

	view, err = f.svc.Global(ctx)
	require.NoError(t, err)
	assert.True(t, view.HasPassword)
	assert.Equal(t, []string{"administrator", "editor"}, view.AllowedRoles)
}

func TestPolicyService_Directories(t *testing.T) {
	f := newPolicyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SetDirectory(ctx, "/a/", PolicyInput{
		Methods:  []policy.Method{policy.MethodSimplePassword},
		Password: "pw-a",
	}))
	require.NoError(t, f.svc.SetDirectory(ctx, "b/c", PolicyInput{
		Methods:      []policy.Method{policy.MethodLoggedIn},
		AllowedRoles: []string{"editor"},
	}))

	all, err := f.svc.Directories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Contains(t, all, "a")
	assert.Contains(t, all, "b/c")
}

func TestPolicyService_RemoveDirectoryInvalidatesSessions(t *testing.T) {
	f := newPolicyFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SetDirectory(ctx, "secrets", PolicyInput{
		Methods:  []policy.Method{policy.MethodSimplePassword},
		Password: "hunter2",
	}))

	sess := &domainauth.GateSession{}
	require.Equal(t, domainauth.DecisionAllow, f.gate.Decide(ctx, DecideInput{
		Directory:         "secrets",
		Session:           sess,
		SubmittedPassword: "hunter2",
	}))

	f.clock.AddTime(time.Second)
	require.NoError(t, f.svc.RemoveDirectory(ctx, "secrets"))

	// The override is gone and the watermark bump cleared the session, so
	// the directory falls back to the global logged-in policy.
	got := f.gate.Decide(ctx, DecideInput{Directory: "secrets", Session: sess})
	assert.Equal(t, domainauth.DecisionChallenge, got)
}

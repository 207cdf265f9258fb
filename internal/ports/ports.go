package ports

// Package ports defines interfaces (hexagonal ports) for the gate's
// storage and host-auth collaborators. Implementations live in
// internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/domain/policy"
)

// ErrSettingNotFound is returned by SettingsStore.Get for missing keys.
var ErrSettingNotFound = errors.New("setting not found")

// ErrSessionNotFound is returned by SessionStore.Get for unknown IDs.
var ErrSessionNotFound = errors.New("session not found")

// SettingsStore is the injected key-value backend policy state persists
// in. Implementations must be safe for concurrent use; atomicity of
// read-modify-write cycles is the policy store's job, not the backend's.
type SettingsStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// PolicyStore holds the global policy, per-directory overrides, and the
// last-changed watermark. Mutations bump the watermark atomically with the
// change: a reader never observes new policy with an old watermark.
type PolicyStore interface {
	// Global returns the stored global policy, or the default when unset.
	Global(ctx context.Context) (policy.Policy, error)
	// SetGlobal replaces the global policy and bumps the watermark.
	SetGlobal(ctx context.Context, p policy.Policy) error
	// Directory returns the override for the exact normalized path, if any.
	Directory(ctx context.Context, dir string) (policy.Policy, bool, error)
	// SetDirectory upserts an override. It fails with policy.ErrValidation
	// when methods are empty, or when simple_password is selected without
	// a password and none was previously stored.
	SetDirectory(ctx context.Context, dir string, p policy.Policy) error
	// Directories returns all overrides keyed by normalized path.
	Directories(ctx context.Context) (map[string]policy.Policy, error)
	// RemoveDirectory deletes an override; the watermark is bumped only if
	// an entry was actually removed.
	RemoveDirectory(ctx context.Context, dir string) error
	// Effective returns the directory override when one exists for the
	// exact path, else the global policy. No ancestor inheritance.
	Effective(ctx context.Context, dir string) (policy.Policy, domainauth.Scope, error)
	// LastChanged returns the watermark.
	LastChanged(ctx context.Context) (time.Time, error)
}

// SessionStore persists and retrieves client sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// BeginInput carries inputs for initiating a host login flow.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// Claims is the raw identity asserted by a login provider before group
// names are mapped to gate roles.
type Claims struct {
	UserID    string
	Email     string
	Groups    []string
	ExpiresAt time.Time
}

// LoginProvider initiates and completes a login flow against the host's
// identity provider. The gate core never calls this; it exists so the
// service surface can establish the Identity the core authorizes against.
type LoginProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an
	// opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and
	// returns the authenticated claims.
	Exchange(ctx context.Context, in ExchangeInput) (Claims, error)
}

// RoleMapper maps provider group names to gate role identifiers.
type RoleMapper interface {
	Map(groups []string) []string
}

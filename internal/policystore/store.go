// Package policystore implements the versioned policy store on top of an
// injected key-value settings backend. All state lives in one JSON blob so
// the (policy, last_changed) pair is written atomically; a single mutex
// serializes read-modify-write cycles within the process.
package policystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/filegate/filegate/internal/data"
	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/domain/policy"
	"github.com/filegate/filegate/internal/ports"
)

// DefaultSettingsKey is the key the policy snapshot persists under.
const DefaultSettingsKey = "filegate:policies"

// Options groups dependencies for Store.
type Options struct {
	Settings ports.SettingsStore // Required: backing key-value store
	Clock    data.TimeProvider   // Optional: defaults to real time
	Key      string              // Optional: settings key, defaults to DefaultSettingsKey
	Logger   *slog.Logger        // Optional: structured logger
}

// Store implements ports.PolicyStore over a SettingsStore.
type Store struct {
	mu       sync.Mutex
	settings ports.SettingsStore
	clock    data.TimeProvider
	key      string
	logger   *slog.Logger
}

var _ ports.PolicyStore = (*Store)(nil)

// New constructs a Store.
func New(opts Options) (*Store, error) {
	if opts.Settings == nil {
		return nil, errors.New("SettingsStore is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}
	key := opts.Key
	if key == "" {
		key = DefaultSettingsKey
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "policy_store")
	}
	return &Store{settings: opts.Settings, clock: clock, key: key, logger: logger}, nil
}

// Global returns the stored global policy, or the default when unset.
func (s *Store) Global(ctx context.Context) (policy.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.load(ctx)
	if err != nil {
		return policy.Policy{}, err
	}
	return snap.Global, nil
}

// SetGlobal replaces the global policy and bumps the watermark. An empty
// password with simple_password selected retains the previously stored
// ciphertext rather than clearing it.
func (s *Store) SetGlobal(ctx context.Context, p policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	p.Methods = policy.NormalizeMethods(p.Methods)
	if p.HasMethod(policy.MethodSimplePassword) && p.PasswordCiphertext == "" {
		p.PasswordCiphertext = snap.Global.PasswordCiphertext
	}
	snap.Global = p
	return s.bumpAndSave(ctx, snap)
}

// Directory returns the override for the exact normalized path, if any.
func (s *Store) Directory(ctx context.Context, dir string) (policy.Policy, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.load(ctx)
	if err != nil {
		return policy.Policy{}, false, err
	}
	p, ok := snap.Directories[policy.NormalizeDirKey(dir)]
	return p, ok, nil
}

// SetDirectory upserts a directory override after validation.
func (s *Store) SetDirectory(ctx context.Context, dir string, p policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	key := policy.NormalizeDirKey(dir)
	validated, err := policy.ValidateUpsert(p, snap.Directories[key].PasswordCiphertext)
	if err != nil {
		return err
	}
	snap.Directories[key] = validated
	return s.bumpAndSave(ctx, snap)
}

// Directories returns a copy of all overrides keyed by normalized path.
func (s *Store) Directories(ctx context.Context) (map[string]policy.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]policy.Policy, len(snap.Directories))
	for dir, p := range snap.Directories {
		out[dir] = p
	}
	return out, nil
}

// RemoveDirectory deletes an override. Removing a missing key is a no-op
// and does not bump the watermark.
func (s *Store) RemoveDirectory(ctx context.Context, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	key := policy.NormalizeDirKey(dir)
	if _, ok := snap.Directories[key]; !ok {
		return nil
	}
	delete(snap.Directories, key)
	return s.bumpAndSave(ctx, snap)
}

// Effective returns the directory override for the exact path when one
// exists, else the global policy. There is no walk up ancestor
// directories: an override on "a" does not apply to "a/b".
func (s *Store) Effective(ctx context.Context, dir string) (policy.Policy, domainauth.Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.load(ctx)
	if err != nil {
		return policy.Policy{}, domainauth.ScopeGlobal, err
	}
	if p, ok := snap.Directories[policy.NormalizeDirKey(dir)]; ok {
		return p, domainauth.ScopeDirectory, nil
	}
	return snap.Global, domainauth.ScopeGlobal, nil
}

// LastChanged returns the watermark timestamp.
func (s *Store) LastChanged(ctx context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.load(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return snap.LastChanged, nil
}

func (s *Store) load(ctx context.Context) (policy.Snapshot, error) {
	raw, err := s.settings.Get(ctx, s.key)
	if errors.Is(err, ports.ErrSettingNotFound) {
		return policy.Snapshot{
			Global:      policy.DefaultGlobal(),
			Directories: map[string]policy.Policy{},
		}, nil
	}
	if err != nil {
		return policy.Snapshot{}, fmt.Errorf("load policies: %w", err)
	}
	var snap policy.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// Corrupt state never degrades to open access; callers map this
		// error to Deny.
		return policy.Snapshot{}, fmt.Errorf("decode policies: %w", err)
	}
	if snap.Directories == nil {
		snap.Directories = map[string]policy.Policy{}
	}
	return snap, nil
}

// bumpAndSave advances the watermark and persists the snapshot. The
// watermark is strictly monotonic even against clock regression.
func (s *Store) bumpAndSave(ctx context.Context, snap policy.Snapshot) error {
	now := s.clock.Now()
	if !now.After(snap.LastChanged) {
		now = snap.LastChanged.Add(time.Nanosecond)
	}
	snap.LastChanged = now

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode policies: %w", err)
	}
	if err := s.settings.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("save policies: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("policy state changed",
			"directories", len(snap.Directories),
			"last_changed", snap.LastChanged)
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/filegate/filegate/internal/data"
	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/ports"
)

// DefaultSessionLifetime bounds how long a client session record lives in
// the store, independent of the gate's verification timeout.
const DefaultSessionLifetime = 12 * time.Hour

// ErrSessionExpired is returned when a stored session has outlived its
// lifetime.
var ErrSessionExpired = errors.New("session expired")

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Store    ports.SessionStore // Required: session store
	Clock    data.TimeProvider  // Optional: defaults to real time
	Lifetime time.Duration      // Optional: defaults to DefaultSessionLifetime
	Logger   *slog.Logger       // Optional: structured logger
}

// SessionService owns the lifecycle of client session records: creation
// with an opaque random ID, retrieval with expiry checking, persistence of
// gate-state mutations, and logout.
type SessionService struct {
	store    ports.SessionStore
	clock    data.TimeProvider
	lifetime time.Duration
	logger   *slog.Logger
}

// NewSessionService constructs a new SessionService.
func NewSessionService(opts SessionServiceOptions) (*SessionService, error) {
	if opts.Store == nil {
		return nil, errors.New("SessionStore is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}
	lifetime := opts.Lifetime
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "session_service")
	}
	return &SessionService{store: opts.Store, clock: clock, lifetime: lifetime, logger: logger}, nil
}

// Create issues a fresh session for the given identity with an empty gate
// state and persists it.
func (s *SessionService) Create(ctx context.Context, identity domainauth.Identity) (domainauth.Session, error) {
	sess := domainauth.Session{
		ID:        uuid.NewString(),
		Identity:  identity,
		ExpiresAt: s.clock.Now().Add(s.lifetime),
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Get retrieves a session by ID, deleting and rejecting expired records.
func (s *SessionService) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrSessionExpired
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("get session: %w", err)
	}
	if s.clock.Now().After(sess.ExpiresAt) {
		if delErr := s.store.Delete(ctx, id); delErr != nil {
			return domainauth.Session{}, errors.Join(ErrSessionExpired, fmt.Errorf("delete session: %w", delErr))
		}
		return domainauth.Session{}, ErrSessionExpired
	}
	return sess, nil
}

// Save persists a mutated session (e.g., after the gate marked it
// verified or cleared it).
func (s *SessionService) Save(ctx context.Context, sess domainauth.Session) error {
	if err := s.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Logout removes a session. Logging out an unknown or empty ID is a no-op.
func (s *SessionService) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "session logged out")
	}
	return nil
}

// Package memsession provides an in-process ports.SessionStore for
// single-node deployments. Sessions do not survive a restart; use the
// redis adapter when that matters.
package memsession

import (
	"context"
	"errors"
	"sync"
	"time"

	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/ports"
)

// Store keeps session records in a map guarded by a RWMutex. Expired
// records are dropped lazily on Get and swept opportunistically on Save.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]domainauth.Session
	// lastSweep throttles full-map sweeps to once per minute.
	lastSweep time.Time
	now       func() time.Time
}

var _ ports.SessionStore = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		sessions: make(map[string]domainauth.Session),
		now:      time.Now,
	}
}

// Save stores or replaces a session record.
func (s *Store) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.sessions[sess.ID] = sess
	return nil
}

// Get returns the session with the given ID. Expired sessions are removed
// and reported as not found.
func (s *Store) Get(_ context.Context, id string) (domainauth.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	if !sess.ExpiresAt.IsZero() && !sess.ExpiresAt.After(s.now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

// Delete removes a session. Deleting a missing session is a no-op.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len reports the number of live records, for diagnostics.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) sweepLocked() {
	now := s.now()
	if now.Sub(s.lastSweep) < time.Minute {
		return
	}
	s.lastSweep = now
	for id, sess := range s.sessions {
		if !sess.ExpiresAt.IsZero() && !sess.ExpiresAt.After(now) {
			delete(s.sessions, id)
		}
	}
}

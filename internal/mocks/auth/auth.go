// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SessionStore  = (*MemorySessionStore)(nil)
	_ ports.LoginProvider = (*MockLoginProvider)(nil)
)

// MemorySessionStore is a map-backed session store for tests and
// single-process development runs.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore returns an empty MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string]domainauth.Session{}}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports the number of stored sessions, for test assertions.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// MockLoginProvider simulates an identity provider with deterministic
// state/nonce values.
type MockLoginProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (ports.Claims, error)

	AuthURL       string
	DefaultClaims ports.Claims

	callCount int
}

// NewMockLoginProvider creates a MockLoginProvider with sensible defaults.
func NewMockLoginProvider() *MockLoginProvider {
	return &MockLoginProvider{
		AuthURL: "https://mock-idp/auth",
		DefaultClaims: ports.Claims{
			UserID: "mock-user-1",
			Email:  "mock.user@example.com",
			Groups: []string{"staff"},
		},
	}
}

func (m *MockLoginProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.callCount++
	return m.AuthURL, fmt.Sprintf("state-%d", m.callCount), fmt.Sprintf("nonce-%d", m.callCount), nil
}

func (m *MockLoginProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (ports.Claims, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	claims := m.DefaultClaims
	claims.ExpiresAt = time.Now().Add(time.Hour)
	return claims, nil
}

// Package devauth provides a config-driven login provider for local
// development. It short-circuits the OAuth flow by redirecting straight
// back to the callback with locally generated state.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/filegate/filegate/internal/ports"
)

// Config controls the dev login provider. All fields are required except
// Groups, which may be empty.
type Config struct {
	UserID          string
	Email           string
	Groups          []string
	SessionDuration time.Duration // default 8h when zero
}

// Provider implements ports.LoginProvider for local development.
// Exchange ignores the code and returns the configured claims.
type Provider struct {
	claims          ports.Claims
	sessionDuration time.Duration
}

var _ ports.LoginProvider = (*Provider)(nil)

// NewProvider constructs a dev login provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.UserID == "" {
		return nil, errors.New("dev auth: UserID is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}
	return &Provider{
		claims: ports.Claims{
			UserID: cfg.UserID,
			Email:  cfg.Email,
			Groups: append([]string(nil), cfg.Groups...),
		},
		sessionDuration: dur,
	}, nil
}

// Begin returns a local callback URL and cryptographically secure state
// and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	// The standard handler expects GET /auth/callback?code=...&state=...
	authURL := "/auth/callback?code=dev&state=" + state
	return authURL, state, nonce, nil
}

// Exchange ignores the provided code/state/nonce (the handler validates
// them) and returns the configured claims with a fresh expiry.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (ports.Claims, error) {
	claims := p.claims
	claims.ExpiresAt = time.Now().Add(p.sessionDuration)
	return claims, nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	bLen := (n*3 + 3) / 4
	b := make([]byte, bLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < n {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:n], nil
}

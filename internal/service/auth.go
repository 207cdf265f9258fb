package service

import (
	"context"
	"errors"
	"fmt"

	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/ports"
)

// LoginServiceOptions groups dependencies for LoginService.
type LoginServiceOptions struct {
	Provider ports.LoginProvider
	Roles    ports.RoleMapper
	Sessions *SessionService
}

// LoginService orchestrates host login flows: it drives the provider,
// maps provider groups to gate roles, and issues sessions.
type LoginService struct {
	provider ports.LoginProvider
	roles    ports.RoleMapper
	sessions *SessionService
}

// NewLoginService constructs a new LoginService.
func NewLoginService(opts LoginServiceOptions) (*LoginService, error) {
	if opts.Provider == nil {
		return nil, errors.New("LoginProvider is required")
	}
	if opts.Roles == nil {
		return nil, errors.New("RoleMapper is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("SessionService is required")
	}
	return &LoginService{
		provider: opts.Provider,
		roles:    opts.Roles,
		sessions: opts.Sessions,
	}, nil
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates a login flow and returns the provider auth URL
// with state and nonce.
func (s *LoginService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin login flow: %w", err)
	}

	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLogin exchanges the code for provider claims, maps groups to
// gate roles, and issues a session. The session never outlives the
// provider's claim expiry.
func (s *LoginService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (domainauth.Session, error) {
	if input.Code == "" {
		return domainauth.Session{}, errors.New("authorization code is required")
	}
	if input.State == "" {
		return domainauth.Session{}, errors.New("state parameter is required")
	}
	if input.Nonce == "" {
		return domainauth.Session{}, errors.New("nonce parameter is required")
	}

	claims, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	identity := domainauth.Identity{
		LoggedIn: true,
		UserID:   claims.UserID,
		Roles:    s.roles.Map(claims.Groups),
	}

	sess, err := s.sessions.Create(ctx, identity)
	if err != nil {
		return domainauth.Session{}, err
	}

	if !claims.ExpiresAt.IsZero() && claims.ExpiresAt.Before(sess.ExpiresAt) {
		sess.ExpiresAt = claims.ExpiresAt
		if saveErr := s.sessions.Save(ctx, sess); saveErr != nil {
			return domainauth.Session{}, saveErr
		}
	}

	return sess, nil
}

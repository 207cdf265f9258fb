package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/filegate/filegate/internal/data"
	"github.com/filegate/filegate/internal/data/cryptoutil"
	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/domain/policy"
	"github.com/filegate/filegate/internal/ports"
)

const (
	// DefaultSessionTimeout bounds how long a verified gate session stays
	// valid without re-authentication.
	DefaultSessionTimeout = 30 * time.Minute
	// MinSessionTimeout and MaxSessionTimeout clamp configured values.
	MinSessionTimeout = time.Minute
	MaxSessionTimeout = 24 * time.Hour
)

// GateServiceOptions groups dependencies for GateService.
type GateServiceOptions struct {
	Policies       ports.PolicyStore   // Required: policy store
	Cipher         cryptoutil.Encryptor // Required: credential cipher
	Clock          data.TimeProvider   // Optional: defaults to real time
	SessionTimeout time.Duration       // Optional: clamped into [1m, 24h]
	Logger         *slog.Logger        // Optional: structured logger
}

// GateService is the access-control decision engine: given a directory's
// effective policy, the caller's identity, and an optional submitted
// password, it decides Allow, Deny, Challenge, or DenyWithError.
//
// Every branch is total. Malformed or unavailable policy data degrades to
// Deny, never Allow.
type GateService struct {
	policies ports.PolicyStore
	cipher   cryptoutil.Encryptor
	clock    data.TimeProvider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewGateService constructs a new GateService.
func NewGateService(opts GateServiceOptions) (*GateService, error) {
	if opts.Policies == nil {
		return nil, errors.New("PolicyStore is required")
	}
	if opts.Cipher == nil {
		return nil, errors.New("Encryptor is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}
	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "gate_service")
	}
	return &GateService{
		policies: opts.Policies,
		cipher:   opts.Cipher,
		clock:    clock,
		timeout:  ClampSessionTimeout(opts.SessionTimeout),
		logger:   logger,
	}, nil
}

// ClampSessionTimeout maps zero to the default and clamps everything else
// into [MinSessionTimeout, MaxSessionTimeout].
func ClampSessionTimeout(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultSessionTimeout
	case d < MinSessionTimeout:
		return MinSessionTimeout
	case d > MaxSessionTimeout:
		return MaxSessionTimeout
	default:
		return d
	}
}

// DecideInput groups the per-request inputs to Decide.
type DecideInput struct {
	// Directory is the normalized relative directory key ("" for root).
	Directory string
	// Identity is the caller as asserted by the host auth layer.
	Identity domainauth.Identity
	// Session is the caller's cached gate state; Decide mutates it on
	// success and clears it when found stale. May be nil.
	Session *domainauth.GateSession
	// SubmittedPassword is the simple-auth password from the request, if
	// one was submitted.
	SubmittedPassword string
}

// Decide evaluates one access request. Methods are tried in order
// (logged_in, then simple_password); the first success wins, and both can
// independently grant access. A session that already verified the
// relevant scope short-circuits re-evaluation until it goes stale.
func (g *GateService) Decide(ctx context.Context, in DecideInput) domainauth.Decision {
	pol, scope, err := g.policies.Effective(ctx, in.Directory)
	if err != nil {
		g.warn("policy lookup failed, denying", "directory", in.Directory, "error", err)
		return domainauth.DecisionDeny
	}

	methods := policy.NormalizeMethods(pol.Methods)
	if len(methods) == 0 {
		return domainauth.DecisionDeny
	}

	sess := in.Session
	if sess == nil {
		sess = &domainauth.GateSession{}
	}

	if sess.Verified(scope) && !g.sessionStale(ctx, sess) {
		return domainauth.DecisionAllow
	}

	now := g.clock.Now()
	if pol.HasMethod(policy.MethodLoggedIn) &&
		in.Identity.LoggedIn && pol.AllowsRole(in.Identity.Roles) {
		sess.MarkVerified(scope, now)
		return domainauth.DecisionAllow
	}
	if pol.HasMethod(policy.MethodSimplePassword) &&
		in.SubmittedPassword != "" && g.passwordMatches(pol, in.SubmittedPassword) {
		sess.MarkVerified(scope, now)
		return domainauth.DecisionAllow
	}

	if in.SubmittedPassword != "" {
		return domainauth.DecisionDenyWithError
	}
	if pol.HasMethod(policy.MethodSimplePassword) {
		return domainauth.DecisionChallenge
	}
	if pol.HasMethod(policy.MethodLoggedIn) && !in.Identity.LoggedIn {
		return domainauth.DecisionChallenge
	}
	// Logged in but role not allowed: nothing useful to prompt for.
	return domainauth.DecisionDeny
}

// sessionStale reports whether the cached verification can no longer be
// trusted, clearing the session when it cannot. A session is stale when it
// was never issued, when any policy anywhere changed after it was issued
// (global invalidation via the watermark), or when the configured timeout
// has elapsed.
func (g *GateService) sessionStale(ctx context.Context,
	sess *domainauth.GateSession,
) bool {
	if sess.IssuedAt.IsZero() {
		return true
	}
	lastChanged, err := g.policies.LastChanged(ctx)
	if err != nil {
		g.warn("watermark lookup failed, treating session as stale", "error", err)
		sess.Clear()
		return true
	}
	if lastChanged.After(sess.IssuedAt) {
		sess.Clear()
		return true
	}
	if g.clock.Now().Sub(sess.IssuedAt) > g.timeout {
		sess.Clear()
		return true
	}
	return false
}

// passwordMatches decrypts the stored ciphertext and compares in constant
// time. A policy with no stored password never matches, even with
// simple_password selected.
func (g *GateService) passwordMatches(pol policy.Policy, submitted string) bool {
	if pol.PasswordCiphertext == "" {
		return false
	}
	stored, err := g.cipher.Decrypt(pol.PasswordCiphertext)
	if err != nil {
		g.warn("stored password undecryptable, denying", "error", err)
		return false
	}
	// Hash both sides so the comparison leaks neither content nor length.
	storedSum := sha256.Sum256(stored)
	submittedSum := sha256.Sum256([]byte(submitted))
	return subtle.ConstantTimeCompare(storedSum[:], submittedSum[:]) == 1
}

func (g *GateService) warn(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}

// Package auth contains domain-level types for identities, gate sessions,
// and access decisions. It is pure and free of framework/adapter concerns.
package auth

import "time"

// Identity is the caller as asserted by the host's own authentication
// layer (OIDC, trusted proxy headers, dev stub). The gate never
// authenticates users itself; it only evaluates role membership.
type Identity struct {
	LoggedIn bool     `json:"logged_in"`
	UserID   string   `json:"user_id,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// Scope distinguishes which policy satisfied a verification: the global
// policy or a directory-specific override.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeDirectory
)

// GateSession is the per-client cached authentication outcome. It is owned
// by the request/session layer; the decision engine reads and mutates it
// only through the methods below. Invalidation is lazy: staleness is
// detected on the next Decide call, never swept proactively.
type GateSession struct {
	VerifiedGlobal    bool      `json:"verified_global"`
	VerifiedDirectory bool      `json:"verified_directory"`
	IssuedAt          time.Time `json:"issued_at,omitzero"`
}

// MarkVerified records a successful verification for the given scope and
// stamps IssuedAt on the first success in this session.
func (s *GateSession) MarkVerified(scope Scope, now time.Time) {
	switch scope {
	case ScopeGlobal:
		s.VerifiedGlobal = true
	case ScopeDirectory:
		s.VerifiedDirectory = true
	}
	if s.IssuedAt.IsZero() {
		s.IssuedAt = now
	}
}

// Verified reports whether the given scope has a cached verification.
func (s *GateSession) Verified(scope Scope) bool {
	if scope == ScopeDirectory {
		return s.VerifiedDirectory
	}
	return s.VerifiedGlobal
}

// Clear resets all flags and the issue timestamp. Called on logout, on
// policy reset, and when the engine detects a stale session.
func (s *GateSession) Clear() {
	*s = GateSession{}
}

// IsAnyVerified reports whether any method has succeeded in this session.
func (s *GateSession) IsAnyVerified() bool {
	return s.VerifiedGlobal || s.VerifiedDirectory
}

// Session is the server-side record persisted per client between requests.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID        string      `json:"id"`
	Identity  Identity    `json:"identity"`
	Gate      GateSession `json:"gate"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Decision is the terminal outcome of one access evaluation.
type Decision int

const (
	// DecisionDeny refuses access with nothing useful to prompt for.
	DecisionDeny Decision = iota
	// DecisionAllow grants access.
	DecisionAllow
	// DecisionChallenge asks the caller to render a fresh login or
	// password prompt, with no error indicator.
	DecisionChallenge
	// DecisionDenyWithError refuses access after a submitted password
	// failed; the caller renders the prompt with an error indicator.
	DecisionDenyWithError
)

// String implements fmt.Stringer for log output.
func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionChallenge:
		return "challenge"
	case DecisionDenyWithError:
		return "deny_with_error"
	default:
		return "deny"
	}
}

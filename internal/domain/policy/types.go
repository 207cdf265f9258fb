package policy

// Package policy contains domain-level types for access policies.
// It is pure and free of storage/adapter concerns.

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// Method is an authentication method a policy may accept.
// Keep string form for easy persistence.
type Method string

const (
	// MethodLoggedIn grants access to logged-in identities whose roles
	// intersect the policy's allowed roles.
	MethodLoggedIn Method = "logged_in"
	// MethodSimplePassword grants access on presentation of the shared
	// directory password, independent of user accounts.
	MethodSimplePassword Method = "simple_password"
)

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	return m == MethodLoggedIn || m == MethodSimplePassword
}

// NormalizeMethods returns methods with unknown values dropped and
// duplicates removed, preserving first-seen order.
func NormalizeMethods(methods []Method) []Method {
	out := make([]Method, 0, len(methods))
	seen := make(map[Method]struct{}, len(methods))
	for _, m := range methods {
		if !m.Valid() {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Policy describes how access to a directory is authorized.
// PasswordCiphertext is opaque to the domain; the cipher layer owns its format.
type Policy struct {
	Methods            []Method `json:"methods"`
	AllowedRoles       []string `json:"allowed_roles"`
	PasswordCiphertext string   `json:"password_ciphertext,omitempty"`
}

// HasMethod reports whether the policy accepts the given method.
func (p Policy) HasMethod(m Method) bool {
	for _, have := range p.Methods {
		if have == m {
			return true
		}
	}
	return false
}

// AllowsRole reports whether any of the given roles is allowed.
// An empty allowed-role list never matches: no role qualifies.
func (p Policy) AllowsRole(roles []string) bool {
	if len(p.AllowedRoles) == 0 {
		return false
	}
	allowed := make(map[string]struct{}, len(p.AllowedRoles))
	for _, r := range p.AllowedRoles {
		allowed[r] = struct{}{}
	}
	for _, r := range roles {
		if _, ok := allowed[r]; ok {
			return true
		}
	}
	return false
}

// DefaultGlobal returns the global policy used when none has been stored:
// logged-in administrators only, no shared password.
func DefaultGlobal() Policy {
	return Policy{
		Methods:      []Method{MethodLoggedIn},
		AllowedRoles: []string{"administrator"},
	}
}

// NormalizeDirKey canonicalizes a relative directory path into the exact
// form directory policies are keyed by: forward slashes, no dot segments,
// no leading or trailing separator. The root directory is the empty string.
//
// Directory policies are keyed by this exact path and do not apply to
// subdirectories; there is no inheritance walk.
func NormalizeDirKey(dir string) string {
	dir = strings.ReplaceAll(dir, "\\", "/")
	dir = path.Clean("/" + dir)
	dir = strings.TrimPrefix(dir, "/")
	if dir == "." {
		return ""
	}
	return dir
}

// ErrValidation is returned when a policy upsert fails its invariants.
var ErrValidation = errors.New("policy validation failed")

// ValidateUpsert checks a directory policy before it is stored and returns
// the policy that should actually be persisted. Methods must be non-empty
// after normalization. When simple_password is selected the policy must
// carry a ciphertext, except that an empty ciphertext retains prev (the
// previously stored ciphertext) rather than clearing it.
func ValidateUpsert(next Policy, prev string) (Policy, error) {
	next.Methods = NormalizeMethods(next.Methods)
	if len(next.Methods) == 0 {
		return Policy{}, fmt.Errorf("%w: at least one method is required", ErrValidation)
	}
	if next.HasMethod(MethodSimplePassword) && next.PasswordCiphertext == "" {
		if prev == "" {
			return Policy{}, fmt.Errorf("%w: simple_password requires a password", ErrValidation)
		}
		next.PasswordCiphertext = prev
	}
	return next, nil
}

// Snapshot is the full policy state held by a store: the global policy,
// per-directory overrides keyed by normalized relative path, and the
// last-changed watermark used to invalidate issued sessions.
type Snapshot struct {
	Global      Policy            `json:"global"`
	Directories map[string]Policy `json:"directories"`
	LastChanged time.Time         `json:"last_changed"`
}

package auth

import (
	"testing"
	"time"
)

func TestGateSession_MarkVerifiedScopes(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	var s GateSession
	s.MarkVerified(ScopeGlobal, now)
	if !s.VerifiedGlobal || s.VerifiedDirectory {
		t.Fatalf("global mark set wrong flags: %+v", s)
	}
	if !s.Verified(ScopeGlobal) || s.Verified(ScopeDirectory) {
		t.Fatalf("Verified disagrees with flags: %+v", s)
	}

	var d GateSession
	d.MarkVerified(ScopeDirectory, now)
	if d.VerifiedGlobal || !d.VerifiedDirectory {
		t.Fatalf("directory mark set wrong flags: %+v", d)
	}
}

func TestGateSession_IssuedAtStampedOnFirstSuccessOnly(t *testing.T) {
	first := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	later := first.Add(15 * time.Minute)

	var s GateSession
	s.MarkVerified(ScopeGlobal, first)
	if !s.IssuedAt.Equal(first) {
		t.Fatalf("IssuedAt = %v, want %v", s.IssuedAt, first)
	}

	// A second success in the same session must not refresh the stamp,
	// or the timeout window would slide forever.
	s.MarkVerified(ScopeDirectory, later)
	if !s.IssuedAt.Equal(first) {
		t.Fatalf("IssuedAt moved to %v after second mark", s.IssuedAt)
	}
}

func TestGateSession_Clear(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	var s GateSession
	s.MarkVerified(ScopeGlobal, now)
	s.MarkVerified(ScopeDirectory, now)
	if !s.IsAnyVerified() {
		t.Fatalf("expected verified session before Clear")
	}

	s.Clear()
	if s.IsAnyVerified() || !s.IssuedAt.IsZero() {
		t.Fatalf("Clear left state behind: %+v", s)
	}
}

func TestGateSession_IsAnyVerified(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	var s GateSession
	if s.IsAnyVerified() {
		t.Fatalf("fresh session must not be verified")
	}
	s.MarkVerified(ScopeDirectory, now)
	if !s.IsAnyVerified() {
		t.Fatalf("directory verification must count")
	}
}

func TestDecision_String(t *testing.T) {
	cases := map[Decision]string{
		DecisionDeny:          "deny",
		DecisionAllow:         "allow",
		DecisionChallenge:     "challenge",
		DecisionDenyWithError: "deny_with_error",
		Decision(99):          "deny",
	}
	for d, want := range cases {
		if got := d.String(); got != want {
			t.Errorf("Decision(%d).String() = %q, want %q", int(d), got, want)
		}
	}
}

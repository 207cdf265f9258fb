package httpx

import (
	"context"

	domainauth "github.com/filegate/filegate/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions.
type sessionKey struct{}

// SetSessionInContext stores the session in the request context.
func SetSessionInContext(ctx context.Context, sess *domainauth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the session stored by the session middleware,
// or nil when the request carries no valid session.
func SessionFromContext(ctx context.Context) *domainauth.Session {
	sess, _ := ctx.Value(sessionKey{}).(*domainauth.Session)
	return sess
}

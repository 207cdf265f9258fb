package httpx

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/filegate/filegate/internal/adapters/hostauth"
	domainauth "github.com/filegate/filegate/internal/domain/auth"
	"github.com/filegate/filegate/internal/pathsafe"
	"github.com/filegate/filegate/internal/service"
)

// FileHandlers serves gated files from the hidden root. Every request is
// resolved against the root, authorized by the gate, and either served,
// challenged, or answered with 404. Deny and nonexistent paths are
// indistinguishable to the client.
type FileHandlers struct {
	Gate         *service.GateService
	Sessions     *service.SessionService
	Resolver     *pathsafe.Resolver
	HostIdentity *hostauth.HeaderIdentity // optional
	Logger       *slog.Logger
}

// identityFor returns the effective identity for a request: the session's
// identity when logged in, else the proxy-asserted header identity, else
// anonymous.
func identityFor(r *http.Request, host *hostauth.HeaderIdentity) domainauth.Identity {
	if sess := SessionFromContext(r.Context()); sess != nil && sess.Identity.LoggedIn {
		return sess.Identity
	}
	if host != nil {
		return host.Identify(r)
	}
	return domainauth.Identity{}
}

// resolveGateTarget maps a request path to the file to serve and the
// directory key its policy lives under. ok is false when the path cannot
// be safely resolved to an existing regular file.
func resolveGateTarget(resolver *pathsafe.Resolver, rel string) (file, dirKey string, ok bool) {
	abs := resolver.Resolve(rel)

	// Resolve is fail-closed: suspicious input collapses to the root.
	// A non-root request that lands on the root was rejected.
	if abs == resolver.Root() && strings.Trim(rel, "/") != "" {
		return "", "", false
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		// Directories are never listed or served.
		return "", "", false
	}

	dir := filepath.Dir(abs)
	if !resolver.IsWithinRoot(dir) {
		return "", "", false
	}
	key, inRoot := resolver.RelativeDir(dir)
	if !inRoot {
		return "", "", false
	}
	return abs, key, true
}

// Serve handles GET /files/{path...}.
func (h *FileHandlers) Serve(w http.ResponseWriter, r *http.Request) {
	rel := r.PathValue("path")

	file, dirKey, ok := resolveGateTarget(h.Resolver, rel)
	if !ok {
		http.NotFound(w, r)
		return
	}

	sess := SessionFromContext(r.Context())
	gate := &domainauth.GateSession{}
	if sess != nil {
		gate = &sess.Gate
	}

	decision := h.Gate.Decide(r.Context(), service.DecideInput{
		Directory: dirKey,
		Identity:  identityFor(r, h.HostIdentity),
		Session:   gate,
	})

	// Decide may have marked or cleared gate state; keep the store in sync.
	if sess != nil {
		if err := h.Sessions.Save(r.Context(), *sess); err != nil && h.Logger != nil {
			h.Logger.WarnContext(r.Context(), "persist gate state failed", "error", err)
		}
	}

	switch decision {
	case domainauth.DecisionAllow:
		http.ServeFile(w, r, file)
	case domainauth.DecisionChallenge:
		writeChallenge(w, r, challengeData{Path: rel})
	default:
		http.NotFound(w, r)
	}
}

// acceptsHTML reports whether the client prefers an HTML response.
func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

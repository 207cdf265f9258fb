package httpx

import (
	"log/slog"
	"net/http"

	"github.com/filegate/filegate/internal/adapters/hostauth"
	"github.com/filegate/filegate/internal/pathsafe"
	"github.com/filegate/filegate/internal/service"
)

// RouterServices holds the services needed by the HTTP router.
type RouterServices struct {
	Gate     *service.GateService
	Policies *service.PolicyService
	Sessions *service.SessionService
	Resolver *pathsafe.Resolver

	// Login is optional; when nil the OIDC login routes are not mounted
	// and identity comes only from host headers or existing sessions.
	Login *service.LoginService

	// HostIdentity is optional trusted-header identity resolution.
	HostIdentity *hostauth.HeaderIdentity

	// AdminRoles guards the policy API. Empty defaults to administrator.
	AdminRoles []string

	CookieDomain string
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	fileHandlers := &FileHandlers{
		Gate:         services.Gate,
		Sessions:     services.Sessions,
		Resolver:     services.Resolver,
		HostIdentity: services.HostIdentity,
		Logger:       services.Logger,
	}
	authHandlers := &AuthHandlers{
		Login:        services.Login,
		Sessions:     services.Sessions,
		Gate:         services.Gate,
		Resolver:     services.Resolver,
		HostIdentity: services.HostIdentity,
		CookieDomain: services.CookieDomain,
		Logger:       services.Logger,
	}
	policyHandlers := NewPolicyHandlers(services.Policies)

	adminRoles := services.AdminRoles
	if len(adminRoles) == 0 {
		adminRoles = []string{"administrator"}
	}
	admin := RequireRole(adminRoles)

	mux.HandleFunc("GET /files/{path...}", fileHandlers.Serve)

	mux.HandleFunc("POST /auth/password", authHandlers.SubmitPassword)
	mux.HandleFunc("POST /auth/logout", authHandlers.Logout)
	mux.HandleFunc("GET /auth/status", authHandlers.Status)
	if services.Login != nil {
		mux.HandleFunc("GET /auth/login", authHandlers.BeginLogin)
		mux.HandleFunc("GET /auth/callback", authHandlers.Callback)
	}

	mux.Handle("GET /api/policies/global", admin(http.HandlerFunc(policyHandlers.GetGlobal)))
	mux.Handle("PUT /api/policies/global", admin(http.HandlerFunc(policyHandlers.PutGlobal)))
	mux.Handle("GET /api/policies/directories", admin(http.HandlerFunc(policyHandlers.ListDirectories)))
	mux.Handle("GET /api/policies/directories/{path...}", admin(http.HandlerFunc(policyHandlers.GetDirectory)))
	mux.Handle("PUT /api/policies/directories/{path...}", admin(http.HandlerFunc(policyHandlers.PutDirectory)))
	mux.Handle("DELETE /api/policies/directories/{path...}", admin(http.HandlerFunc(policyHandlers.DeleteDirectory)))

	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)

	// Session resolution wraps everything so handlers and guards share one
	// lookup per request.
	return WithSession(services.Sessions)(mux)
}

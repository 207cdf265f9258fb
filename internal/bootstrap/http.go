package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/filegate/filegate/config"
	httpx "github.com/filegate/filegate/internal/http"
)

// NewHTTPServer builds the HTTP server with the full middleware chain.
// Order: Recover -> Logging -> session resolution -> router.
func NewHTTPServer(cfg *config.AppConfig, services *ServiceContainer, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := httpx.NewRouter(httpx.RouterServices{
		Gate:         services.Gate,
		Policies:     services.Policies,
		Sessions:     services.Sessions,
		Resolver:     services.Resolver,
		Login:        services.Identity.Login,
		HostIdentity: services.Identity.HostIdentity,
		AdminRoles:   cfg.Auth.AdminRoles,
		CookieDomain: cfg.HTTP.CookieDomain,
		Logger:       logger,
	})

	var handler http.Handler = router
	handler = httpx.Logging(logger)(handler)
	handler = httpx.Recover(logger)(handler)

	addr := cfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	if server == nil {
		return nil
	}
	if logger != nil {
		logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("HTTP server stopped")
	}
	return nil
}

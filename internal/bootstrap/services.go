package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/filegate/filegate/config"
	"github.com/filegate/filegate/internal/pathsafe"
	"github.com/filegate/filegate/internal/service"
	"golang.org/x/sync/errgroup"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Gate     *service.GateService
	Policies *service.PolicyService
	Sessions *service.SessionService
	Resolver *pathsafe.Resolver
	Identity Identity
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config  *config.AppConfig
	Storage *StorageDeps
	Logger  *slog.Logger
}

// NewServices builds the service graph: storage backends, the credential
// cipher, the decision engine, and the identity surfaces.
func NewServices(ctx context.Context, deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service deps are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	storage := deps.Storage
	if storage == nil {
		storage = &StorageDeps{Config: deps.Config, Logger: logger}
	}

	cipher := CreateCipher(deps.Config.ServerSecrets, logger)

	policies, err := BuildPolicyStore(ctx, storage)
	if err != nil {
		return nil, fmt.Errorf("build policy store: %w", err)
	}

	sessionStore, err := BuildSessionStore(storage)
	if err != nil {
		return nil, fmt.Errorf("build session store: %w", err)
	}

	sessions, err := service.NewSessionService(service.SessionServiceOptions{
		Store:  sessionStore,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create session service: %w", err)
	}

	gate, err := service.NewGateService(service.GateServiceOptions{
		Policies:       policies,
		Cipher:         cipher,
		SessionTimeout: deps.Config.GateSessionTimeout,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create gate service: %w", err)
	}

	policySvc, err := service.NewPolicyService(service.PolicyServiceOptions{
		Store:  policies,
		Cipher: cipher,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create policy service: %w", err)
	}

	identity, err := BuildIdentity(deps.Config, sessions, logger)
	if err != nil {
		return nil, err
	}

	return &ServiceContainer{
		Gate:     gate,
		Policies: policySvc,
		Sessions: sessions,
		Resolver: pathsafe.NewResolver(deps.Config.FilesRoot),
		Identity: identity,
	}, nil
}

// Run starts the HTTP server and blocks until a shutdown signal arrives
// or the server fails.
func Run(ctx context.Context, cfg *config.AppConfig, services *ServiceContainer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewHTTPServer(cfg, services, logger)

	g, gctx := errgroup.WithContext(signalCtx)
	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return ShutdownHTTPServer(context.Background(), server, logger)
	})

	return g.Wait()
}

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/filegate/filegate/config"
	"github.com/filegate/filegate/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logStartupInfo(ctx, logger, &cfg)

	storage := &bootstrap.StorageDeps{Config: &cfg, Logger: logger}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close storage failed", "error", cerr)
		}
	}()

	services, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config:  &cfg,
		Storage: storage,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.Run(ctx, &cfg, services, logger)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting filegate",
		"files_root", cfg.FilesRoot,
		"policy_backend", cfg.Storage.Policies,
		"auth_mode", cfg.Auth.Mode,
		"addr", cfg.HTTP.Addr)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/target/mmk-prompt-jobs/config"
	"github.com/target/mmk-prompt-jobs/internal/bootstrap"
	"github.com/target/mmk-prompt-jobs/internal/devseed"
)

func main() {
	ctx := context.Background()
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.ErrorContext(ctx, "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}

	logger := bootstrap.InitLogger(cfg.LogLevel, cfg.IsDev)
	if err := run(ctx, &cfg, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	logStartupInfo(ctx, logger, cfg)

	if err := bootstrap.ValidateServiceConfig(cfg); err != nil {
		return err
	}

	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close job store failed", "error", cerr)
		}
	}()

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config: cfg,
		Repo:   store.Jobs,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	orch := &bootstrap.ServiceOrchestrationConfig{
		Config:   cfg,
		Services: services,
		Logger:   logger,
	}
	if cfg.IsDev && cfg.DevSeed && services.Jobs != nil {
		// Seeded jobs report back over HTTP, so wait for the listener.
		orch.OnHTTPReady = func(ctx context.Context) {
			if _, seedErr := devseed.Run(ctx, services.Jobs, nil, logger); seedErr != nil {
				logger.WarnContext(ctx, "dev seed incomplete", "error", seedErr)
			}
		}
	}

	return bootstrap.RunServicesWithShutdown(orch)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting prompt job service",
		"store", cfg.Store.Kind,
		"backend", cfg.Backend.Kind,
		"http_addr", cfg.HTTP.Addr,
		"dev", cfg.IsDev,
		"enabled_services", bootstrap.GetEnabledServices(cfg))
}

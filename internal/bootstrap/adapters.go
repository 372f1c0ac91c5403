package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/mmk-prompt-jobs/config"
	"github.com/target/mmk-prompt-jobs/internal/adapters/backend"
	"github.com/target/mmk-prompt-jobs/internal/adapters/callback"
	"github.com/target/mmk-prompt-jobs/internal/adapters/statsreporter"
	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/observability/statsd"
	"github.com/target/mmk-prompt-jobs/internal/service"
)

// NewProcessingBackend builds the backend selected by BACKEND_KIND.
//
//nolint:ireturn // the backend kind is chosen at runtime.
func NewProcessingBackend(cfg config.BackendConfig, logger *slog.Logger) (core.ProcessingBackend, error) {
	if cfg.Kind != config.BackendRemote {
		return backend.NewSimulated(backend.SimulatedConfig{
			BaseDelay:     cfg.BaseDelay,
			Jitter:        cfg.Jitter,
			FailureRate:   cfg.FailureRate,
			PricePerToken: cfg.PricePerToken,
			Template:      cfg.Template,
		}), nil
	}

	rc := backend.RemoteConfig{
		URL:        cfg.Remote.URL,
		ResultPath: cfg.Remote.ResultPath,
		UsagePath:  cfg.Remote.UsagePath,
		Timeout:    cfg.Remote.Timeout,
		Logger:     logger,
	}
	if o := cfg.Remote.OAuth2; o.Enabled() {
		rc.OAuth2 = &backend.OAuth2Config{
			TokenURL:     o.TokenURL,
			ClientID:     o.ClientID,
			ClientSecret: o.ClientSecret,
			Scopes:       o.Scopes,
		}
	}
	remote, err := backend.NewRemote(rc)
	if err != nil {
		return nil, fmt.Errorf("create remote backend: %w", err)
	}
	return remote, nil
}

// NewReportDeliverer builds the HTTP deliverer that posts completion reports.
func NewReportDeliverer(cfg config.CallbackConfig, logger *slog.Logger) (*callback.HTTPDeliverer, error) {
	d, err := callback.NewHTTPDeliverer(callback.Options{
		URL:     cfg.URL,
		Secret:  cfg.Secret,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create report deliverer: %w", err)
	}
	return d, nil
}

// StatsReporterConfig contains configuration for the stats reporter.
type StatsReporterConfig struct {
	Repo     service.JobCounter
	InFlight core.InFlightReporter
	Logger   *slog.Logger
	Config   config.StatsReporterConfig
	Metrics  statsd.Sink
}

// RunStatsReporter starts the stats reporter and blocks until ctx is cancelled.
func RunStatsReporter(ctx context.Context, cfg StatsReporterConfig) error {
	runner, err := statsreporter.NewRunner(statsreporter.RunnerOptions{
		Repo:     cfg.Repo,
		Config:   cfg.Config,
		Logger:   cfg.Logger,
		InFlight: cfg.InFlight,
		Metrics:  cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create stats reporter runner: %w", err)
	}
	return runner.Run(ctx)
}

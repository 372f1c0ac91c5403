package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/mmk-prompt-jobs/config"
	"github.com/target/mmk-prompt-jobs/internal/adapters/jobqueue"
	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/observability/statsd"
	"github.com/target/mmk-prompt-jobs/internal/service"
)

const defaultShutdownTimeout = 15 * time.Second

// ServiceContainer holds all application services.
// Jobs, Callbacks and Queue are nil unless the http service is enabled.
type ServiceContainer struct {
	Jobs      *service.JobService
	Callbacks *service.CallbackService
	Queue     *jobqueue.Queue
	Repo      core.JobRepository
	Metrics   *statsd.Client
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	Repo   core.JobRepository
	Logger *slog.Logger
}

// buildMetrics configures the StatsD sink. A failed dial disables metrics instead of aborting startup.
func buildMetrics(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// NewServices wires the queue and the lifecycle services over the job store.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.Repo == nil {
		return ServiceContainer{}, errors.New("config and job repository are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	container := ServiceContainer{
		Repo:    deps.Repo,
		Metrics: buildMetrics(logger, cfg.Observability.Metrics),
	}
	var sink statsd.Sink
	if container.Metrics != nil {
		sink = container.Metrics
	}

	if !cfg.IsHTTPServerEnabled() {
		return container, nil
	}

	processing, err := NewProcessingBackend(cfg.Backend, logger)
	if err != nil {
		return ServiceContainer{}, err
	}
	deliverer, err := NewReportDeliverer(cfg.Callback, logger)
	if err != nil {
		return ServiceContainer{}, err
	}
	queue, err := jobqueue.New(jobqueue.Options{
		Prompts:   service.NewPromptLookup(deps.Repo),
		Backend:   processing,
		Deliverer: deliverer,
		Logger:    logger,
		Metrics:   sink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job queue: %w", err)
	}
	container.Queue = queue

	container.Jobs, err = service.NewJobService(service.JobServiceOptions{
		Repo:    deps.Repo,
		Queue:   queue,
		Logger:  logger,
		Metrics: sink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job service: %w", err)
	}
	container.Callbacks, err = service.NewCallbackService(service.CallbackServiceOptions{
		Repo:    deps.Repo,
		Logger:  logger,
		Metrics: sink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create callback service: %w", err)
	}

	logger.Info("job services initialized",
		"backend", cfg.Backend.Kind,
		"callback_url", cfg.Callback.URL)
	return container, nil
}

// ServiceOrchestrationConfig contains everything needed to run the enabled services.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger

	// Listener overrides the HTTP listener; nil listens on HTTP_ADDR.
	Listener net.Listener

	// OnHTTPReady runs in the background once the HTTP listener is bound, so
	// work started from it can already reach the callback endpoint.
	OnHTTPReady func(ctx context.Context)
}

// RunServicesWithShutdown starts all enabled services and blocks until SIGINT/SIGTERM
// or until a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunServices(ctx, cfg)
}

// RunServices runs the enabled services until ctx is cancelled or one of them fails.
// Shutdown drains the HTTP server first and then stops the queue from accepting work;
// running queue tasks are not awaited.
func RunServices(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if enabled[config.ServiceModeHTTP] {
		if err := startHTTP(gctx, g, cfg, logger); err != nil {
			return err
		}
	}

	if enabled[config.ServiceModeStatsReporter] {
		var inFlight core.InFlightReporter
		if cfg.Services.Queue != nil {
			inFlight = cfg.Services.Queue
		}
		var sink statsd.Sink
		if cfg.Services.Metrics != nil {
			sink = cfg.Services.Metrics
		}
		g.Go(func() error {
			logger.InfoContext(gctx, "background service started", "service", config.ServiceModeStatsReporter)
			if err := RunStatsReporter(gctx, StatsReporterConfig{
				Repo:     cfg.Services.Repo,
				InFlight: inFlight,
				Logger:   logger,
				Config:   cfg.Config.StatsReporter,
				Metrics:  sink,
			}); err != nil {
				return fmt.Errorf("stats reporter failed: %w", err)
			}
			logger.Info("stats reporter stopped")
			return nil
		})
	}

	err = g.Wait()
	if cfg.Services.Metrics != nil {
		if cerr := cfg.Services.Metrics.Close(); cerr != nil {
			logger.Warn("close statsd client failed", "error", cerr)
		}
	}
	return err
}

func startHTTP(ctx context.Context, g *errgroup.Group, cfg *ServiceOrchestrationConfig, logger *slog.Logger) error {
	if cfg.Services.Jobs == nil || cfg.Services.Callbacks == nil {
		return errors.New("http service enabled without job services")
	}

	ln := cfg.Listener
	if ln == nil {
		var err error
		if ln, err = Listen(ctx, cfg.Config.HTTP); err != nil {
			return err
		}
	}
	server := NewHTTPServer(&HTTPServerConfig{
		HTTP:     cfg.Config.HTTP,
		Callback: cfg.Config.Callback,
		Services: cfg.Services,
		Logger:   logger,
	})

	timeout := cfg.Config.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	g.Go(func() error { return serveHTTP(server, ln, logger) })
	if cfg.OnHTTPReady != nil {
		g.Go(func() error {
			cfg.OnHTTPReady(ctx)
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down services...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		err := ShutdownHTTPServer(ShutdownConfig{Context: shutdownCtx, Server: server, Logger: logger})
		cfg.Services.Jobs.Shutdown()
		return err
	})
	return nil
}

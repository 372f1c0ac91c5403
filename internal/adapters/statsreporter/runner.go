// Package statsreporter runs the periodic job count reporter as a background service.
package statsreporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/mmk-prompt-jobs/config"
	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/observability/statsd"
	"github.com/target/mmk-prompt-jobs/internal/service"
)

// Runner provides a simple adapter to run the stats reporter loop.
type Runner struct {
	reporter *service.StatsReporterService
	logger   *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Repo   service.JobCounter
	Config config.StatsReporterConfig
	Logger *slog.Logger

	// InFlight is set when the queue runs in the same process.
	InFlight core.InFlightReporter
	Metrics  statsd.Sink
}

// NewRunner creates a new stats reporter runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Repo == nil {
		return nil, errors.New("job repository is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	reporter, err := service.NewStatsReporterService(service.StatsReporterServiceOptions{
		Repo:     opts.Repo,
		Config:   opts.Config,
		InFlight: opts.InFlight,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire stats reporter service: %w", err)
	}

	return &Runner{reporter: reporter, logger: opts.Logger}, nil
}

// Run starts the reporter loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting stats reporter runner")
	return r.reporter.Run(ctx)
}

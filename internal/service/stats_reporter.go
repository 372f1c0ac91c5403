package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/mmk-prompt-jobs/config"
	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
	obserrors "github.com/target/mmk-prompt-jobs/internal/observability/errors"
	"github.com/target/mmk-prompt-jobs/internal/observability/metrics"
	"github.com/target/mmk-prompt-jobs/internal/observability/statsd"
)

// JobCounter is the read side the stats reporter needs.
type JobCounter interface {
	CountByStatus(ctx context.Context) (*model.JobStats, error)
}

// StatsReporterServiceOptions groups dependencies for StatsReporterService.
type StatsReporterServiceOptions struct {
	Repo     JobCounter                 // Required: source of per-status counts
	Config   config.StatsReporterConfig // Required: reporting interval
	InFlight core.InFlightReporter      // Optional: queue running in this process
	Logger   *slog.Logger               // Optional: structured logger
	Metrics  statsd.Sink                // Optional: metrics sink (StatsD-compatible)
}

// StatsReporterService periodically publishes job counts per status.
// It only reads; stuck PENDING jobs are reported, never repaired.
type StatsReporterService struct {
	repo     JobCounter
	config   config.StatsReporterConfig
	inFlight core.InFlightReporter
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewStatsReporterService constructs a new StatsReporterService.
func NewStatsReporterService(opts StatsReporterServiceOptions) (*StatsReporterService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobCounter is required")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("stats reporter interval must be positive")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "stats_reporter")
		logger.Debug("StatsReporterService initialized", "interval", opts.Config.Interval)
	}

	return &StatsReporterService{
		repo:     opts.Repo,
		config:   opts.Config,
		inFlight: opts.InFlight,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// Run reports immediately after a start jitter, then on every tick until ctx is done.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *StatsReporterService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting stats reporter", "interval", s.config.Interval)
	}

	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if _, err := s.ReportOnce(ctx); err != nil {
		s.logReportError(err)
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "stats reporter stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.ReportOnce(ctx); err != nil {
				s.logReportError(err)
			}
		}
	}
}

// ReportOnce reads the current counts and publishes them as gauges.
func (s *StatsReporterService) ReportOnce(ctx context.Context) (*model.JobStats, error) {
	start := time.Now()
	stats, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.emitRun(time.Since(start), err)
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}

	inFlight := 0
	if s.inFlight != nil {
		inFlight = s.inFlight.InFlightCount()
	}
	metrics.EmitJobCounts(s.metrics, *stats, inFlight)
	s.emitRun(time.Since(start), nil)

	if s.logger != nil {
		s.logger.DebugContext(ctx, "job counts",
			"pending", stats.Pending,
			"completed", stats.Completed,
			"failed", stats.Failed,
			"in_flight", inFlight,
		)
	}
	return stats, nil
}

// waitWithJitter adds a random delay up to 10% of the interval so replicas do not report in lockstep.
func (s *StatsReporterService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	t := time.NewTimer(jitter)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (s *StatsReporterService) emitRun(elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	tags := map[string]string{"result": metrics.ResultFor(err)}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	s.metrics.Count("stats_reporter.run", 1, tags)
	if elapsed > 0 {
		s.metrics.Timing("stats_reporter.duration", elapsed, tags)
	}
	if err == nil {
		s.metrics.Gauge("stats_reporter.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *StatsReporterService) logReportError(err error) {
	if err == nil || s.logger == nil {
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Debug("stats report cancelled by context", "error", err)
		return
	}
	s.logger.Error("stats report failed", "error", err)
}

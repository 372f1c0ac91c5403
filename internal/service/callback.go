package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
	apperrors "github.com/target/mmk-prompt-jobs/internal/errors"
	"github.com/target/mmk-prompt-jobs/internal/observability/metrics"
	"github.com/target/mmk-prompt-jobs/internal/observability/statsd"
)

// CallbackServiceOptions groups dependencies for CallbackService.
type CallbackServiceOptions struct {
	Repo    core.JobRepository // Required: job repository
	Logger  *slog.Logger       // Optional: structured logger
	Metrics statsd.Sink        // Optional: metrics sink (StatsD-compatible)
}

// CallbackService reconciles completion reports with stored jobs.
// The first terminal write wins; later reports return the stored job unchanged.
type CallbackService struct {
	repo    core.JobRepository
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewCallbackService constructs a new CallbackService.
func NewCallbackService(opts CallbackServiceOptions) (*CallbackService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "callback_service")
	}
	return &CallbackService{repo: opts.Repo, logger: logger, metrics: opts.Metrics}, nil
}

// Apply validates the report and finalizes the job if it is still PENDING.
func (s *CallbackService) Apply(ctx context.Context, report *model.CompletionReport) (*model.Job, error) {
	if err := report.Validate(); err != nil {
		return nil, apperrors.InvalidReport(strings.ReplaceAll(err.Error(), "\n", ": "))
	}

	start := time.Now()
	job, err := s.repo.GetByID(ctx, report.JobID)
	if err != nil {
		s.emit(start, "", err)
		return nil, storeError(err, report.JobID)
	}
	if job.Status != model.JobStatusPending {
		s.discard(ctx, job, start)
		return job, nil
	}

	updated, applied, err := s.repo.Finalize(ctx, report.FinalizeParams())
	if err != nil {
		s.emit(start, "", err)
		return nil, storeError(err, report.JobID)
	}
	if !applied {
		// Another writer finalized the job between the read and the write.
		winner, err := s.repo.GetByID(ctx, report.JobID)
		if err != nil {
			return nil, storeError(err, report.JobID)
		}
		s.discard(ctx, winner, start)
		return winner, nil
	}

	s.emit(start, updated.Status, nil)
	if s.logger != nil {
		s.logger.DebugContext(ctx, "job finalized", "id", updated.ID, "status", updated.Status)
	}
	return updated, nil
}

func (s *CallbackService) discard(ctx context.Context, job *model.Job, start time.Time) {
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: metrics.TransitionFinalized,
		Result:     metrics.ResultNoop,
		Status:     job.Status,
		Duration:   time.Since(start),
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "completion report discarded; job already terminal",
			"id", job.ID, "status", job.Status)
	}
}

func (s *CallbackService) emit(start time.Time, status model.JobStatus, err error) {
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: metrics.TransitionFinalized,
		Result:     metrics.ResultFor(err),
		Status:     status,
		Duration:   time.Since(start),
		Err:        err,
	})
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
	apperrors "github.com/target/mmk-prompt-jobs/internal/errors"
	"github.com/target/mmk-prompt-jobs/internal/observability/metrics"
	"github.com/target/mmk-prompt-jobs/internal/observability/statsd"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo    core.JobRepository // Required: job repository
	Queue   core.JobQueue      // Required: background execution
	Logger  *slog.Logger       // Optional: structured logger
	Metrics statsd.Sink        // Optional: metrics sink (StatsD-compatible)
}

// JobService orchestrates the job lifecycle: submission, reads, stats,
// the anomaly override and deletion. Completion is handled by CallbackService.
type JobService struct {
	repo    core.JobRepository
	queue   core.JobQueue
	logger  *slog.Logger
	metrics statsd.Sink

	stats singleflight.Group
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("JobQueue is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
		logger.Debug("JobService initialized")
	}

	return &JobService{
		repo:    opts.Repo,
		queue:   opts.Queue,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// CreateJob validates the prompt, stores a PENDING job and hands it to the queue.
// If the queue refuses the job the stored record stays PENDING and an internal error is returned.
func (s *JobService) CreateJob(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.ValidationField("prompt", err.Error())
	}

	start := time.Now()
	job, err := s.repo.Create(ctx, req)
	if err != nil {
		s.emit(metrics.TransitionCreated, "", start, err)
		return nil, storeError(err, "")
	}

	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "enqueue job failed; job left PENDING", "id", job.ID, "error", err)
		}
		s.emit(metrics.TransitionCreated, job.Status, start, err)
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to schedule job")
	}

	s.emit(metrics.TransitionCreated, job.Status, start, nil)
	if s.logger != nil {
		s.logger.DebugContext(ctx, "job created", "id", job.ID, "prompt_length", len([]rune(job.Prompt)))
	}
	return job, nil
}

// GetJob returns the job or a NotFound error.
func (s *JobService) GetJob(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, id)
	}
	return job, nil
}

// ListJobs returns jobs newest first, optionally filtered by status.
func (s *JobService) ListJobs(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	if opts != nil && opts.Status != nil && !opts.Status.Valid() {
		return nil, apperrors.ValidationField("status", fmt.Sprintf("invalid status %q", *opts.Status))
	}
	jobs, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, storeError(err, "")
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	return jobs, nil
}

// GetStats returns the number of jobs per status. Concurrent callers share one store query.
func (s *JobService) GetStats(ctx context.Context) (*model.JobStats, error) {
	// The shared query must not inherit the cancellation of whichever caller started it.
	ch := s.stats.DoChan("stats", func() (any, error) {
		return s.repo.CountByStatus(context.WithoutCancel(ctx))
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, storeError(ctx.Err(), "")
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, storeError(res.Err, "")
	}
	stats, ok := res.Val.(*model.JobStats)
	if !ok || stats == nil {
		return &model.JobStats{}, nil
	}
	out := *stats
	return &out, nil
}

// SimulateAnomaly forces the job to COMPLETED with a malformed result, whatever its status.
// Reports arriving afterwards are discarded because the job is no longer PENDING.
func (s *JobService) SimulateAnomaly(ctx context.Context, id string) (*model.Job, error) {
	start := time.Now()
	job, err := s.repo.ForceComplete(ctx, id, model.AnomalousResult(id))
	if err != nil {
		s.emit(metrics.TransitionForced, "", start, err)
		return nil, storeError(err, id)
	}
	s.emit(metrics.TransitionForced, job.Status, start, nil)
	if s.logger != nil {
		s.logger.WarnContext(ctx, "anomaly injected", "id", id)
	}
	return job, nil
}

// DeleteJob removes the job unconditionally and reports whether it existed.
// A job still in flight keeps running; its report then fails with NotFound.
func (s *JobService) DeleteJob(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	existed, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.emit(metrics.TransitionDeleted, "", start, err)
		return false, storeError(err, id)
	}
	if existed {
		s.emit(metrics.TransitionDeleted, "", start, nil)
	}
	return existed, nil
}

// Shutdown stops the queue from accepting new jobs.
func (s *JobService) Shutdown() {
	s.queue.Shutdown()
}

// NewPromptLookup adapts a repository to the queue's prompt lookup.
func NewPromptLookup(repo core.JobRepository) core.PromptLookup {
	return func(ctx context.Context, jobID string) (string, error) {
		job, err := repo.GetByID(ctx, jobID)
		if err != nil {
			return "", storeError(err, jobID)
		}
		return job.Prompt, nil
	}
}

func (s *JobService) emit(transition string, status model.JobStatus, start time.Time, err error) {
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: transition,
		Result:     metrics.ResultFor(err),
		Status:     status,
		Duration:   time.Since(start),
		Err:        err,
	})
}

// storeError converts repository failures into AppErrors.
func storeError(err error, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrJobNotFound) {
		if id == "" {
			return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "Job not found")
		}
		return apperrors.Wrapf(err, apperrors.ErrCodeNotFound, "job %s not found", id)
	}
	mapped := apperrors.MapDBError(err)
	if apperrors.GetCode(mapped) != "" {
		return mapped
	}
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Job store failure")
}

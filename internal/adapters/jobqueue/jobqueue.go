// Package jobqueue runs accepted jobs in the background and reports their outcome
// through the completion callback.
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
	"github.com/target/mmk-prompt-jobs/internal/observability/metrics"
	"github.com/target/mmk-prompt-jobs/internal/observability/statsd"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("job queue is shut down")

// Options configures the queue.
type Options struct {
	Prompts   core.PromptLookup
	Backend   core.ProcessingBackend
	Deliverer core.ReportDeliverer
	Logger    *slog.Logger
	Metrics   statsd.Sink
}

// Queue starts one goroutine per enqueued job. There is no worker pool, no
// retry and no persistence: a process restart leaves in-flight jobs PENDING.
type Queue struct {
	prompts   core.PromptLookup
	backend   core.ProcessingBackend
	deliverer core.ReportDeliverer
	logger    *slog.Logger
	metrics   statsd.Sink

	mu       sync.Mutex
	inFlight map[string]int
	closed   bool
}

var (
	_ core.JobQueue         = (*Queue)(nil)
	_ core.InFlightReporter = (*Queue)(nil)
)

// New constructs a Queue.
func New(opts Options) (*Queue, error) {
	switch {
	case opts.Prompts == nil:
		return nil, errors.New("prompt lookup is required")
	case opts.Backend == nil:
		return nil, errors.New("processing backend is required")
	case opts.Deliverer == nil:
		return nil, errors.New("report deliverer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		prompts:   opts.Prompts,
		backend:   opts.Backend,
		deliverer: opts.Deliverer,
		logger:    logger.With("component", "job_queue"),
		metrics:   opts.Metrics,
		inFlight:  make(map[string]int),
	}, nil
}

// Enqueue records jobID as in flight and starts processing it on a context
// detached from ctx, so the caller's cancellation never stops the task.
// The id is not checked for existence here; a missing job fails at lookup.
func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.inFlight[jobID]++
	q.mu.Unlock()

	go q.run(context.WithoutCancel(ctx), jobID)
	return nil
}

// Shutdown stops accepting work, logs what is still running and forgets it.
// Running tasks are neither awaited nor cancelled. Calling it again is a no-op.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	ids := slices.Sorted(maps.Keys(q.inFlight))
	clear(q.inFlight)
	q.mu.Unlock()

	if len(ids) > 0 {
		q.logger.Warn("job queue shut down with jobs in flight; they stay PENDING unless their tasks finish",
			"in_flight", len(ids), "job_ids", ids)
		return
	}
	q.logger.Info("job queue shut down")
}

// InFlight returns the ids currently being processed, sorted.
func (q *Queue) InFlight() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Sorted(maps.Keys(q.inFlight))
}

// InFlightCount returns how many distinct ids are being processed.
func (q *Queue) InFlightCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight)
}

func (q *Queue) release(jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n, ok := q.inFlight[jobID]
	switch {
	case !ok:
	case n <= 1:
		delete(q.inFlight, jobID)
	default:
		q.inFlight[jobID] = n - 1
	}
}

func (q *Queue) run(ctx context.Context, jobID string) {
	defer q.release(jobID)
	defer func() {
		if r := recover(); r != nil {
			q.logger.ErrorContext(ctx, "job task panicked", "job_id", jobID, "panic", r)
		}
	}()

	start := time.Now()
	emit := func(transition string, err error) {
		metrics.EmitJobLifecycle(q.metrics, metrics.JobMetric{
			Transition: transition,
			Result:     metrics.ResultFor(err),
			Duration:   time.Since(start),
			Err:        err,
		})
	}

	res, err := q.process(ctx, jobID)
	emit(metrics.TransitionProcessed, err)

	var report model.CompletionReport
	if err != nil {
		q.logger.WarnContext(ctx, "job processing failed", "job_id", jobID, "error", err)
		report = model.FailureReport(jobID, err)
	} else {
		report = model.SuccessReport(jobID, res)
	}

	deliverErr := q.deliverer.Deliver(ctx, report)
	if deliverErr != nil && report.Error == nil {
		q.logger.WarnContext(ctx, "delivering completion report failed; reporting failure instead",
			"job_id", jobID, "error", deliverErr)
		report = model.FailureReport(jobID, fmt.Errorf("deliver completion report: %w", deliverErr))
		deliverErr = q.deliverer.Deliver(ctx, report)
	}
	if deliverErr != nil {
		// Nothing else can record the outcome; the job stays PENDING.
		q.logger.ErrorContext(ctx, "delivering failure report failed", "job_id", jobID, "error", deliverErr)
	}
	emit(metrics.TransitionReported, deliverErr)
}

func (q *Queue) process(ctx context.Context, jobID string) (res *model.ProcessingResult, err error) {
	prompt, err := q.prompts(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("lookup prompt: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("processing backend panicked: %v", r)
		}
	}()
	res, err = q.backend.Process(ctx, jobID, prompt)
	if err == nil && res == nil {
		err = errors.New("processing backend returned no result")
	}
	return res, err
}

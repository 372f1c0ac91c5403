// Package core defines the ports of the prompt job lifecycle.
package core

import (
	"context"

	"github.com/target/mmk-prompt-jobs/internal/domain/model"
)

// This file contains the port definitions of the job lifecycle.
// Services depend on these interfaces; data and adapter packages implement them.

// JobRepository defines the interface for job persistence.
//
// Implementations assign ids, refresh UpdatedAt on every mutation and return
// model.ErrJobNotFound (possibly wrapped) when a record does not exist.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	// List returns jobs newest first (createdAt DESC, id DESC).
	List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error)
	// Finalize applies params only while the stored status is PENDING, in one atomic step.
	// The bool reports whether the write was applied; when false the returned job is nil.
	Finalize(ctx context.Context, params model.FinalizeJobParams) (*model.Job, bool, error)
	// ForceComplete overwrites the job as COMPLETED with result, clearing error and metadata.
	ForceComplete(ctx context.Context, id, result string) (*model.Job, error)
	// Delete removes the job and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
	CountByStatus(ctx context.Context) (*model.JobStats, error)
}

// ProcessingBackend turns a prompt into a result. Failures are returned as errors.
type ProcessingBackend interface {
	Process(ctx context.Context, jobID, prompt string) (*model.ProcessingResult, error)
}

// ProcessingBackendFunc adapts a plain function to ProcessingBackend.
type ProcessingBackendFunc func(ctx context.Context, jobID, prompt string) (*model.ProcessingResult, error)

// Process calls f.
func (f ProcessingBackendFunc) Process(ctx context.Context, jobID, prompt string) (*model.ProcessingResult, error) {
	return f(ctx, jobID, prompt)
}

// ReportDeliverer hands a completion report to the callback endpoint.
type ReportDeliverer interface {
	Deliver(ctx context.Context, report model.CompletionReport) error
}

// ReportDelivererFunc adapts a plain function to ReportDeliverer.
type ReportDelivererFunc func(ctx context.Context, report model.CompletionReport) error

// Deliver calls f.
func (f ReportDelivererFunc) Deliver(ctx context.Context, report model.CompletionReport) error {
	return f(ctx, report)
}

// PromptLookup resolves the prompt text for a job id.
type PromptLookup func(ctx context.Context, jobID string) (string, error)

// JobQueue schedules accepted jobs for background processing.
type JobQueue interface {
	// Enqueue starts processing jobID and returns without waiting for it.
	Enqueue(ctx context.Context, jobID string) error
	// Shutdown stops accepting work. It does not wait for running tasks.
	Shutdown()
}

// InFlightReporter exposes the ids a queue is currently processing.
type InFlightReporter interface {
	InFlightCount() int
}

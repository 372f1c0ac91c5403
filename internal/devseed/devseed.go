// Package devseed submits sample prompts so a development instance has jobs to look at.
package devseed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/mmk-prompt-jobs/internal/domain/model"
)

// JobCreator is the part of the job service the seeder needs.
type JobCreator interface {
	CreateJob(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
}

// DefaultPrompts are the prompts submitted by Run when none are given.
func DefaultPrompts() []string {
	return []string{
		"What is the capital of France?",
		"Summarize the plot of Hamlet in two sentences.",
		"Write a haiku about message queues.",
		"List three differences between TCP and UDP.",
	}
}

// Run submits each prompt as a new job through jobs, so seeded jobs go through
// the normal queue and callback path. It keeps going after a failure and
// reports how many prompts could not be submitted.
func Run(ctx context.Context, jobs JobCreator, prompts []string, logger *slog.Logger) ([]*model.Job, error) {
	if jobs == nil {
		return nil, errors.New("job service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(prompts) == 0 {
		prompts = DefaultPrompts()
	}

	created := make([]*model.Job, 0, len(prompts))
	failures := 0
	for _, p := range prompts {
		job, err := jobs.CreateJob(ctx, &model.CreateJobRequest{Prompt: p})
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed job", "prompt", p, "error", err)
			failures++
			continue
		}
		logger.InfoContext(ctx, "seeded job", "id", job.ID)
		created = append(created, job)
	}

	if failures > 0 {
		return created, fmt.Errorf("%d seed errors; check logs", failures)
	}
	return created, nil
}

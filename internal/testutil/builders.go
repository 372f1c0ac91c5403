// Package testutil provides testing utilities and helpers for the prompt job service.
package testutil

import (
	"strings"

	"github.com/target/mmk-prompt-jobs/internal/domain/model"
)

// JobBuilder provides a fluent interface for building Job fixtures.
type JobBuilder struct {
	job *model.Job
}

// NewJob creates a PENDING job fixture stamped at TestTime.
func NewJob(id string) *JobBuilder {
	return &JobBuilder{job: &model.Job{
		ID:        id,
		Prompt:    "What is the capital of France?",
		Status:    model.JobStatusPending,
		CreatedAt: TestTime(),
		UpdatedAt: TestTime(),
	}}
}

// WithPrompt sets the prompt.
func (b *JobBuilder) WithPrompt(prompt string) *JobBuilder {
	b.job.Prompt = prompt
	return b
}

// Completed marks the job COMPLETED with result.
func (b *JobBuilder) Completed(result string) *JobBuilder {
	b.job.Status = model.JobStatusCompleted
	b.job.Result = StringPtr(result)
	b.job.Error = nil
	return b
}

// Failed marks the job FAILED with msg.
func (b *JobBuilder) Failed(msg string) *JobBuilder {
	b.job.Status = model.JobStatusFailed
	b.job.Error = StringPtr(msg)
	b.job.Result = nil
	return b
}

// WithUsage attaches token usage.
func (b *JobBuilder) WithUsage(u model.Usage) *JobBuilder {
	b.job.Metadata = &u
	return b
}

// Build returns the job.
func (b *JobBuilder) Build() *model.Job {
	return b.job.Clone()
}

// PromptOfLength returns a prompt of exactly n characters.
func PromptOfLength(n int) string {
	return strings.Repeat("p", n)
}

// SuccessReport builds a completion report carrying result.
func SuccessReport(jobID, result string) model.CompletionReport {
	return model.CompletionReport{
		JobID:  jobID,
		Result: StringPtr(result),
		Metadata: &model.Usage{
			PromptTokens: 4, CompletionTokens: 6, TotalTokens: 10, EstimatedCost: 0.0002,
		},
	}
}

// FailureReport builds a completion report carrying msg as the error.
func FailureReport(jobID, msg string) model.CompletionReport {
	return model.CompletionReport{JobID: jobID, Error: StringPtr(msg)}
}

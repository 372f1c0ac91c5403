// Package model defines the core data types shared across the prompt job service.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// JobStatus represents the current status of a job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobStatus string

const (
	// JobStatusPending indicates a job was accepted and is waiting for its completion report.
	JobStatusPending JobStatus = "PENDING"
	// JobStatusCompleted indicates a job finished with a result.
	JobStatusCompleted JobStatus = "COMPLETED"
	// JobStatusFailed indicates a job finished with an error.
	JobStatusFailed JobStatus = "FAILED"
)

const (
	// MinPromptLength is the minimum prompt length in characters.
	MinPromptLength = 1
	// MaxPromptLength is the maximum prompt length in characters.
	MaxPromptLength = 10000
)

// ErrJobNotFound is returned by job stores when no record exists for an id.
var ErrJobNotFound = errors.New("job not found")

// AllJobStatuses returns every valid status in lifecycle order.
func AllJobStatuses() []JobStatus {
	return []JobStatus{JobStatusPending, JobStatusCompleted, JobStatusFailed}
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusCompleted || s == JobStatusFailed
}

// Terminal reports whether no further transition is allowed through the completion path.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// UnmarshalText accepts statuses case-insensitively so query strings like ?status=failed work.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := JobStatus(strings.ToUpper(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid job status: %q (must be one of: PENDING, COMPLETED, FAILED)", string(text))
	}
	*s = v
	return nil
}

// ParseJobStatus parses a status value, accepting any letter case.
func ParseJobStatus(raw string) (JobStatus, error) {
	var s JobStatus
	if err := s.UnmarshalText([]byte(raw)); err != nil {
		return "", err
	}
	return s, nil
}

// Usage carries token accounting for a processed prompt.
type Usage struct {
	PromptTokens     int     `json:"promptTokens"`
	CompletionTokens int     `json:"completionTokens"`
	TotalTokens      int     `json:"totalTokens"`
	EstimatedCost    float64 `json:"estimatedCost"`
}

// Job is a single submitted prompt tracked through its status lifecycle.
type Job struct {
	ID        string    `json:"id"                 db:"id"`
	Prompt    string    `json:"prompt"             db:"prompt"`
	Status    JobStatus `json:"status"             db:"status"`
	Result    *string   `json:"result"             db:"result"`
	Error     *string   `json:"error"              db:"error"`
	Metadata  *Usage    `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time `json:"createdAt"          db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt"          db:"updated_at"`
}

// Clone returns a deep copy so stores can hand out records without sharing pointers.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.Result != nil {
		r := *j.Result
		cp.Result = &r
	}
	if j.Error != nil {
		e := *j.Error
		cp.Error = &e
	}
	if j.Metadata != nil {
		m := *j.Metadata
		cp.Metadata = &m
	}
	return &cp
}

// CreateJobRequest represents a request to submit a new prompt.
type CreateJobRequest struct {
	Prompt string `json:"prompt"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if r == nil {
		return errors.New("create job request is required")
	}
	n := utf8.RuneCountInString(r.Prompt)
	if n < MinPromptLength {
		return errors.New("prompt is required and cannot be empty")
	}
	if n > MaxPromptLength {
		return fmt.Errorf("prompt cannot exceed %d characters (got %d)", MaxPromptLength, n)
	}
	return nil
}

// JobListOptions filters and pages a job listing. Results are newest first.
type JobListOptions struct {
	Status *JobStatus
	Limit  int
	Offset int
}

// FinalizeJobParams describes a terminal write applied only while the job is still PENDING.
type FinalizeJobParams struct {
	ID       string
	Status   JobStatus
	Result   *string
	Error    *string
	Metadata *Usage
}

// Validate checks that the params describe a legal PENDING -> terminal transition.
func (p FinalizeJobParams) Validate() error {
	if p.ID == "" {
		return errors.New("job id is required")
	}
	switch p.Status {
	case JobStatusCompleted:
		if p.Result == nil || p.Error != nil {
			return errors.New("completed transition requires a result and no error")
		}
	case JobStatusFailed:
		if p.Error == nil || p.Result != nil {
			return errors.New("failed transition requires an error and no result")
		}
	case JobStatusPending:
		return errors.New("finalize requires a terminal status")
	default:
		return fmt.Errorf("invalid job status: %s", p.Status)
	}
	return nil
}

// JobStats holds job counts per status. Missing statuses count as zero.
type JobStats struct {
	Pending   int `json:"PENDING"`
	Completed int `json:"COMPLETED"`
	Failed    int `json:"FAILED"`
}

// Total returns the number of jobs across all statuses.
func (s JobStats) Total() int {
	return s.Pending + s.Completed + s.Failed
}

// Add increments the counter for status by n. Unknown statuses are ignored.
func (s *JobStats) Add(status JobStatus, n int) {
	switch status {
	case JobStatusPending:
		s.Pending += n
	case JobStatusCompleted:
		s.Completed += n
	case JobStatusFailed:
		s.Failed += n
	}
}

// Count returns the counter for status.
func (s JobStats) Count(status JobStatus) int {
	switch status {
	case JobStatusPending:
		return s.Pending
	case JobStatusCompleted:
		return s.Completed
	case JobStatusFailed:
		return s.Failed
	default:
		return 0
	}
}

// AnomalousResult builds the deliberately malformed result written by anomaly simulation.
// The payload opens a JSON object that never closes and carries a fabricated claim.
func AnomalousResult(jobID string) string {
	return fmt.Sprintf(
		`{"jobId":"%s","answer":"The Eiffel Tower was moved to Berlin in 1999.","confidence":1.7,"sources":[{"title":`,
		jobID,
	)
}

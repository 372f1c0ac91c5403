package model

import (
	"errors"
	"strings"
	"time"
)

// CallbackSecretHeader carries the shared secret on completion callbacks.
const CallbackSecretHeader = "X-Callback-Secret"

// ErrInvalidReport is wrapped by CompletionReport.Validate failures.
var ErrInvalidReport = errors.New("invalid completion report")

// CompletionReport is the message a queue task posts back once processing ends.
// Exactly one of Result or Error is set.
type CompletionReport struct {
	JobID    string  `json:"jobId"`
	Result   *string `json:"result,omitempty"`
	Error    *string `json:"error,omitempty"`
	Metadata *Usage  `json:"metadata,omitempty"`
}

// Validate checks the report shape.
func (r *CompletionReport) Validate() error {
	if r == nil {
		return ErrInvalidReport
	}
	if strings.TrimSpace(r.JobID) == "" {
		return errors.Join(ErrInvalidReport, errors.New("jobId is required"))
	}
	if (r.Result == nil) == (r.Error == nil) {
		return errors.Join(ErrInvalidReport, errors.New("exactly one of result or error must be set"))
	}
	return nil
}

// Status returns the terminal status this report moves a job into.
func (r *CompletionReport) Status() JobStatus {
	if r.Error != nil {
		return JobStatusFailed
	}
	return JobStatusCompleted
}

// FinalizeParams converts the report into a conditional terminal write.
// Metadata is only kept for successful outcomes.
func (r *CompletionReport) FinalizeParams() FinalizeJobParams {
	p := FinalizeJobParams{
		ID:     r.JobID,
		Status: r.Status(),
		Result: r.Result,
		Error:  r.Error,
	}
	if p.Status == JobStatusCompleted {
		p.Metadata = r.Metadata
	}
	return p
}

// SuccessReport builds the report for a successful processing run.
func SuccessReport(jobID string, res *ProcessingResult) CompletionReport {
	out := res.Result
	return CompletionReport{JobID: jobID, Result: &out, Metadata: res.Metadata}
}

// FailureReport builds the report for a failed processing run.
func FailureReport(jobID string, cause error) CompletionReport {
	msg := "processing failed"
	if cause != nil && cause.Error() != "" {
		msg = cause.Error()
	}
	return CompletionReport{JobID: jobID, Error: &msg}
}

// ProcessingResult is what a processing backend returns on success.
type ProcessingResult struct {
	Result   string `json:"result"`
	Metadata *Usage `json:"metadata,omitempty"`
}

// CallbackAck is the minimal response returned to the callback caller.
type CallbackAck struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AckFor builds the callback acknowledgement for a stored job.
func AckFor(j *Job) CallbackAck {
	return CallbackAck{ID: j.ID, Status: j.Status, UpdatedAt: j.UpdatedAt}
}

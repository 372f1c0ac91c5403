// Package httpx provides the HTTP surface of the prompt job service.
package httpx

import (
	"net/http"

	"github.com/target/mmk-prompt-jobs/internal/data"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
	"github.com/target/mmk-prompt-jobs/internal/service"
)

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Svc *service.JobService
}

// CreateJob handles HTTP requests to submit a new prompt.
func (h *JobHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.CreateJob(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// ListJobs handles HTTP requests to list jobs, newest first.
func (h *JobHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, data.DefaultListLimit, data.MaxListLimit)
	jobs, err := h.Svc.ListJobs(r.Context(), &model.JobListOptions{
		Status: parseStatusQuery(r),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, jobs)
}

// Stats handles HTTP requests for per-status job counts.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.GetStats(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// GetJob handles HTTP requests for a single job record.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// SimulateAnomaly forces the job into COMPLETED with a malformed result.
func (h *JobHandlers) SimulateAnomaly(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.SimulateAnomaly(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// DeleteJob removes a job. Deleting an unknown id is not an error.
func (h *JobHandlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	existed, err := h.Svc.DeleteJob(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"existed": existed})
}

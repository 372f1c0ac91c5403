package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/target/mmk-prompt-jobs/internal/data/pgxutil"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
)

const (
	insertJobSQL = `
		INSERT INTO jobs (id, prompt, status, created_at, updated_at)
		VALUES ($1, $2, 'PENDING', $3, $3)
		RETURNING ` + jobColumns

	selectJobSQL = `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	// finalizeJobSQL only matches while the row is still PENDING, so concurrent
	// reports race on the row lock and exactly one wins.
	finalizeJobSQL = `
		UPDATE jobs
		SET status = $2, result = $3, error = $4, metadata = $5, updated_at = $6
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ` + jobColumns

	forceCompleteJobSQL = `
		UPDATE jobs
		SET status = 'COMPLETED', result = $2, error = NULL, metadata = NULL, updated_at = $3
		WHERE id = $1
		RETURNING ` + jobColumns

	countByStatusSQL = `
		SELECT
			count(*) FILTER (WHERE status = 'PENDING'),
			count(*) FILTER (WHERE status = 'COMPLETED'),
			count(*) FILTER (WHERE status = 'FAILED')
		FROM jobs`
)

// Create inserts a new PENDING job.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	job, err := pgxutil.QueryOne(ctx, r.DB, scanJob, insertJobSQL,
		r.cfg.IDGenerator(), req.Prompt, r.cfg.TimeProvider.Now())
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetByID returns the job or model.ErrJobNotFound.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	job, err := pgxutil.QueryOne(ctx, r.DB, scanJob, selectJobSQL, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs newest first with an optional status filter.
func (r *JobRepo) List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	p := normalizeListOptions(opts)

	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, 3)
	if p.status != nil {
		args = append(args, string(*p.status))
		query += ` WHERE status = $1`
	}
	args = append(args, p.limit, p.offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	jobs, err := pgxutil.QueryAll(ctx, r.DB, scanJob, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	return jobs, nil
}

// Finalize moves a PENDING job to a terminal status in a single conditional UPDATE.
// It reports false without error when the job is missing or already terminal.
func (r *JobRepo) Finalize(ctx context.Context, params model.FinalizeJobParams) (*model.Job, bool, error) {
	if err := params.Validate(); err != nil {
		return nil, false, err
	}
	meta, err := marshalUsage(params.Metadata)
	if err != nil {
		return nil, false, err
	}

	job, err := pgxutil.QueryOne(ctx, r.DB, scanJob, finalizeJobSQL,
		params.ID, string(params.Status), params.Result, params.Error, meta, r.cfg.TimeProvider.Now())
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("finalize job: %w", err)
	}
	return job, true, nil
}

// ForceComplete overwrites the job as COMPLETED regardless of its current status.
func (r *JobRepo) ForceComplete(ctx context.Context, id, result string) (*model.Job, error) {
	job, err := pgxutil.QueryOne(ctx, r.DB, scanJob, forceCompleteJobSQL, id, result, r.cfg.TimeProvider.Now())
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("force complete job: %w", err)
	}
	r.logger.WarnContext(ctx, "job force-completed", "job_id", id)
	return job, nil
}

// Delete removes a job and reports whether it existed.
func (r *JobRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete job rows affected: %w", err)
	}
	return n > 0, nil
}

// CountByStatus returns the number of jobs in each status.
func (r *JobRepo) CountByStatus(ctx context.Context) (*model.JobStats, error) {
	var stats model.JobStats
	err := r.DB.QueryRowContext(ctx, countByStatusSQL).Scan(&stats.Pending, &stats.Completed, &stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}
	return &stats, nil
}

func scanJob(row pgx.CollectableRow) (*model.Job, error) {
	var (
		job    model.Job
		status string
		meta   []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.Prompt,
		&status,
		&job.Result,
		&job.Error,
		&meta,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = model.JobStatus(status)

	if len(meta) > 0 {
		var u model.Usage
		if err := json.Unmarshal(meta, &u); err != nil {
			return nil, fmt.Errorf("decode job metadata: %w", err)
		}
		job.Metadata = &u
	}
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return &job, nil
}

func marshalUsage(u *model.Usage) ([]byte, error) {
	if u == nil {
		return nil, nil
	}
	b, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode job metadata: %w", err)
	}
	return b, nil
}

package data

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
)

var _ core.JobRepository = (*MemoryJobRepo)(nil)

// MemoryJobRepo is an in-process job store. Safe for concurrent access.
// Intended for development and tests; contents are lost on restart.
type MemoryJobRepo struct {
	mu     sync.RWMutex
	jobs   map[string]*model.Job
	cfg    RepoConfig
	logger *slog.Logger
}

// NewMemoryJobRepo returns an empty in-memory store.
func NewMemoryJobRepo(cfg RepoConfig) *MemoryJobRepo {
	cfg = cfg.withDefaults()
	return &MemoryJobRepo{
		jobs:   make(map[string]*model.Job),
		cfg:    cfg,
		logger: cfg.Logger.With("component", "job_repo", "store", "memory"),
	}
}

// Create stores a new PENDING job.
func (m *MemoryJobRepo) Create(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := m.cfg.TimeProvider.Now()
	job := &model.Job{
		ID:        m.cfg.IDGenerator(),
		Prompt:    req.Prompt,
		Status:    model.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return job.Clone(), nil
}

// GetByID returns a copy of the job or model.ErrJobNotFound.
func (m *MemoryJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	return job.Clone(), nil
}

// List returns copies of the matching jobs newest first.
func (m *MemoryJobRepo) List(_ context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	p := normalizeListOptions(opts)

	m.mu.RLock()
	matched := make([]*model.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if p.status != nil && j.Status != *p.status {
			continue
		}
		matched = append(matched, j.Clone())
	}
	m.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *model.Job) int {
		switch {
		case newer(a, b):
			return -1
		case newer(b, a):
			return 1
		default:
			return 0
		}
	})

	if p.offset >= len(matched) {
		return []*model.Job{}, nil
	}
	end := min(p.offset+p.limit, len(matched))
	return matched[p.offset:end], nil
}

// Finalize applies params while holding the write lock, only if the job is PENDING.
func (m *MemoryJobRepo) Finalize(_ context.Context, params model.FinalizeJobParams) (*model.Job, bool, error) {
	if err := params.Validate(); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[params.ID]
	if !ok || job.Status != model.JobStatusPending {
		return nil, false, nil
	}

	next := job.Clone()
	next.Status = params.Status
	next.Result = cloneString(params.Result)
	next.Error = cloneString(params.Error)
	next.Metadata = nil
	if params.Metadata != nil {
		u := *params.Metadata
		next.Metadata = &u
	}
	next.UpdatedAt = m.cfg.TimeProvider.Now()
	m.jobs[next.ID] = next
	return next.Clone(), true, nil
}

// ForceComplete overwrites the job as COMPLETED with result.
func (m *MemoryJobRepo) ForceComplete(ctx context.Context, id, result string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	job.Status = model.JobStatusCompleted
	job.Result = &result
	job.Error = nil
	job.Metadata = nil
	job.UpdatedAt = m.cfg.TimeProvider.Now()
	m.logger.WarnContext(ctx, "job force-completed", "job_id", id)
	return job.Clone(), nil
}

// Delete removes a job and reports whether it existed.
func (m *MemoryJobRepo) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jobs[id]
	delete(m.jobs, id)
	return ok, nil
}

// CountByStatus returns the number of jobs in each status.
func (m *MemoryJobRepo) CountByStatus(_ context.Context) (*model.JobStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats model.JobStats
	for _, j := range m.jobs {
		stats.Add(j.Status, 1)
	}
	return &stats, nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

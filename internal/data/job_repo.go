// Package data holds the job store implementations (Postgres, Redis and in-memory).
package data

import (
	"database/sql"
	"log/slog"

	"github.com/target/mmk-prompt-jobs/internal/domain/model"
)

const (
	// DefaultListLimit is used when a listing does not specify a limit.
	DefaultListLimit = 100
	// MaxListLimit caps the page size of a listing.
	MaxListLimit = 1000
)

// RepoConfig holds configuration options shared by the job stores.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
	// IDGenerator overrides id assignment. Defaults to uuid.NewString.
	IDGenerator func() string
}

func (c RepoConfig) withDefaults() RepoConfig {
	if c.TimeProvider == nil {
		c.TimeProvider = &RealTimeProvider{}
	}
	if c.IDGenerator == nil {
		c.IDGenerator = newJobID
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// JobRepo is the Postgres job store.
type JobRepo struct {
	DB     *sql.DB
	cfg    RepoConfig
	logger *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	cfg = cfg.withDefaults()
	return &JobRepo{
		DB:     db,
		cfg:    cfg,
		logger: cfg.Logger.With("component", "job_repo", "store", "postgres"),
	}
}

const jobColumns = `id, prompt, status, result, error, metadata, created_at, updated_at`

// listParams is the normalized form of JobListOptions shared by every store.
type listParams struct {
	status *model.JobStatus
	limit  int
	offset int
}

func normalizeListOptions(opts *model.JobListOptions) listParams {
	p := listParams{limit: DefaultListLimit}
	if opts == nil {
		return p
	}
	if opts.Status != nil && opts.Status.Valid() {
		s := *opts.Status
		p.status = &s
	}
	if opts.Limit > 0 {
		p.limit = min(opts.Limit, MaxListLimit)
	}
	p.offset = max(opts.Offset, 0)
	return p
}

// newer reports whether a sorts before b in listing order (createdAt DESC, id DESC).
func newer(a, b *model.Job) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

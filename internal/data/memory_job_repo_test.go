package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
	"github.com/target/mmk-prompt-jobs/internal/testutil"
)

func TestMemoryJobRepo_Contract(t *testing.T) {
	runJobRepositoryContract(t, func(_ *testing.T, tp *FixedTimeProvider) core.JobRepository {
		return NewMemoryJobRepo(RepoConfig{TimeProvider: tp})
	})
}

func TestMemoryJobRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJobRepo(RepoConfig{})
	job, err := repo.Create(ctx, &model.CreateJobRequest{Prompt: "p"})
	require.NoError(t, err)

	job.Status = model.JobStatusFailed
	job.Prompt = "mutated"

	stored, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, stored.Status)
	assert.Equal(t, "p", stored.Prompt)
}

func TestMemoryJobRepo_SameTimestampOrdersByIDDesc(t *testing.T) {
	ctx := context.Background()
	ids := []string{"a", "c", "b"}
	next := 0
	repo := NewMemoryJobRepo(RepoConfig{
		TimeProvider: NewFixedTimeProvider(testutil.TestTime()),
		IDGenerator: func() string {
			id := ids[next]
			next++
			return id
		},
	})
	for range ids {
		_, err := repo.Create(ctx, &model.CreateJobRequest{Prompt: "p"})
		require.NoError(t, err)
	}

	jobs, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{jobs[0].ID, jobs[1].ID, jobs[2].ID})
}

func TestNormalizeListOptions(t *testing.T) {
	failed := model.JobStatusFailed
	bogus := model.JobStatus("BOGUS")

	tests := []struct {
		name       string
		opts       *model.JobListOptions
		wantLimit  int
		wantOffset int
		wantStatus *model.JobStatus
	}{
		{name: "nil options", opts: nil, wantLimit: DefaultListLimit},
		{name: "zero limit uses default", opts: &model.JobListOptions{}, wantLimit: DefaultListLimit},
		{name: "limit clamped", opts: &model.JobListOptions{Limit: 5000}, wantLimit: MaxListLimit},
		{name: "negative offset", opts: &model.JobListOptions{Limit: 10, Offset: -3}, wantLimit: 10},
		{name: "status kept", opts: &model.JobListOptions{Status: &failed, Offset: 4}, wantLimit: DefaultListLimit, wantOffset: 4, wantStatus: &failed},
		{name: "invalid status dropped", opts: &model.JobListOptions{Status: &bogus}, wantLimit: DefaultListLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := normalizeListOptions(tt.opts)
			assert.Equal(t, tt.wantLimit, p.limit)
			assert.Equal(t, tt.wantOffset, p.offset)
			assert.Equal(t, tt.wantStatus, p.status)
		})
	}
}

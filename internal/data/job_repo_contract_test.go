package data

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
	"github.com/target/mmk-prompt-jobs/internal/testutil"
)

// repoFactory builds an empty store whose clock is tp.
type repoFactory func(t *testing.T, tp *FixedTimeProvider) core.JobRepository

// runJobRepositoryContract exercises the behavior every job store must share.
func runJobRepositoryContract(t *testing.T, newRepo repoFactory) {
	t.Helper()
	ctx := context.Background()

	t.Run("create assigns id and pending status", func(t *testing.T) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := newRepo(t, tp)

		job, err := repo.Create(ctx, &model.CreateJobRequest{Prompt: "Explain goroutines"})
		require.NoError(t, err)
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, "Explain goroutines", job.Prompt)
		assert.Equal(t, model.JobStatusPending, job.Status)
		assert.Nil(t, job.Result)
		assert.Nil(t, job.Error)
		assert.Nil(t, job.Metadata)
		assert.True(t, job.CreatedAt.Equal(testutil.TestTime()))
		assert.True(t, job.UpdatedAt.Equal(job.CreatedAt))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, job.Prompt, got.Prompt)
	})

	t.Run("create rejects invalid prompt", func(t *testing.T) {
		repo := newRepo(t, NewFixedTimeProvider(testutil.TestTime()))
		_, err := repo.Create(ctx, &model.CreateJobRequest{Prompt: ""})
		require.Error(t, err)
		_, err = repo.Create(ctx, &model.CreateJobRequest{Prompt: testutil.PromptOfLength(model.MaxPromptLength + 1)})
		require.Error(t, err)
	})

	t.Run("get missing job", func(t *testing.T) {
		repo := newRepo(t, NewFixedTimeProvider(testutil.TestTime()))
		_, err := repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
		require.ErrorIs(t, err, model.ErrJobNotFound)
	})

	t.Run("finalize completes pending job once", func(t *testing.T) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := newRepo(t, tp)
		job, err := repo.Create(ctx, &model.CreateJobRequest{Prompt: "p"})
		require.NoError(t, err)

		tp.AddTime(2 * time.Second)
		usage := &model.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3, EstimatedCost: 0.00006}
		done, applied, err := repo.Finalize(ctx, model.FinalizeJobParams{
			ID: job.ID, Status: model.JobStatusCompleted, Result: testutil.StringPtr("answer"), Metadata: usage,
		})
		require.NoError(t, err)
		require.True(t, applied)
		assert.Equal(t, model.JobStatusCompleted, done.Status)
		require.NotNil(t, done.Result)
		assert.Equal(t, "answer", *done.Result)
		assert.Nil(t, done.Error)
		require.NotNil(t, done.Metadata)
		assert.Equal(t, 3, done.Metadata.TotalTokens)
		assert.InDelta(t, 0.00006, done.Metadata.EstimatedCost, 1e-12)
		assert.True(t, done.UpdatedAt.After(done.CreatedAt))

		again, applied, err := repo.Finalize(ctx, model.FinalizeJobParams{
			ID: job.ID, Status: model.JobStatusFailed, Error: testutil.StringPtr("late"),
		})
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Nil(t, again)

		stored, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, stored.Status)
		assert.Equal(t, "answer", *stored.Result)
		assert.Nil(t, stored.Error)
	})

	t.Run("finalize failure keeps result empty", func(t *testing.T) {
		repo := newRepo(t, NewFixedTimeProvider(testutil.TestTime()))
		job, err := repo.Create(ctx, &model.CreateJobRequest{Prompt: "p"})
		require.NoError(t, err)

		failed, applied, err := repo.Finalize(ctx, model.FinalizeJobParams{
			ID: job.ID, Status: model.JobStatusFailed, Error: testutil.StringPtr("backend timeout"),
		})
		require.NoError(t, err)
		require.True(t, applied)
		assert.Equal(t, model.JobStatusFailed, failed.Status)
		assert.Nil(t, failed.Result)
		require.NotNil(t, failed.Error)
		assert.Equal(t, "backend timeout", *failed.Error)
	})

	t.Run("finalize missing job is not applied", func(t *testing.T) {
		repo := newRepo(t, NewFixedTimeProvider(testutil.TestTime()))
		job, applied, err := repo.Finalize(ctx, model.FinalizeJobParams{
			ID: "missing", Status: model.JobStatusCompleted, Result: testutil.StringPtr("x"),
		})
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Nil(t, job)
	})

	t.Run("concurrent finalize has a single winner", func(t *testing.T) {
		repo := newRepo(t, NewFixedTimeProvider(testutil.TestTime()))
		job, err := repo.Create(ctx, &model.CreateJobRequest{Prompt: "p"})
		require.NoError(t, err)

		const n = 8
		applied := make([]bool, n)
		funcs := make([]func() error, n)
		for i := range n {
			funcs[i] = func() error {
				params := model.FinalizeJobParams{ID: job.ID, Status: model.JobStatusCompleted, Result: testutil.StringPtr(fmt.Sprintf("r%d", i))}
				if i%2 == 1 {
					params = model.FinalizeJobParams{ID: job.ID, Status: model.JobStatusFailed, Error: testutil.StringPtr(fmt.Sprintf("e%d", i))}
				}
				_, ok, ferr := repo.Finalize(ctx, params)
				applied[i] = ok
				return ferr
			}
		}
		runner := testutil.NewConcurrentTestRunner(t)
		runner.AssertNoErrors(runner.RunConcurrent(funcs...))

		wins := 0
		for _, ok := range applied {
			if ok {
				wins++
			}
		}
		assert.Equal(t, 1, wins)

		stored, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.True(t, stored.Status.Terminal())
		assert.True(t, (stored.Result == nil) != (stored.Error == nil))
	})

	t.Run("force complete overrides any status", func(t *testing.T) {
		repo := newRepo(t, NewFixedTimeProvider(testutil.TestTime()))
		job, err := repo.Create(ctx, &model.CreateJobRequest{Prompt: "p"})
		require.NoError(t, err)
		_, _, err = repo.Finalize(ctx, model.FinalizeJobParams{
			ID: job.ID, Status: model.JobStatusFailed, Error: testutil.StringPtr("boom"),
		})
		require.NoError(t, err)

		forced, err := repo.ForceComplete(ctx, job.ID, model.AnomalousResult(job.ID))
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, forced.Status)
		require.NotNil(t, forced.Result)
		assert.Equal(t, model.AnomalousResult(job.ID), *forced.Result)
		assert.Nil(t, forced.Error)
		assert.Nil(t, forced.Metadata)

		stats, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.JobStats{Completed: 1}, *stats)

		_, err = repo.ForceComplete(ctx, "missing", "x")
		require.ErrorIs(t, err, model.ErrJobNotFound)
	})

	t.Run("list orders newest first and filters by status", func(t *testing.T) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := newRepo(t, tp)

		ids := make([]string, 0, 5)
		for i := range 5 {
			tp.AddTime(time.Second)
			job, err := repo.Create(ctx, &model.CreateJobRequest{Prompt: fmt.Sprintf("prompt %d", i)})
			require.NoError(t, err)
			ids = append(ids, job.ID)
		}
		_, applied, err := repo.Finalize(ctx, model.FinalizeJobParams{
			ID: ids[1], Status: model.JobStatusFailed, Error: testutil.StringPtr("x"),
		})
		require.NoError(t, err)
		require.True(t, applied)

		all, err := repo.List(ctx, &model.JobListOptions{})
		require.NoError(t, err)
		require.Len(t, all, 5)
		for i, j := range all {
			assert.Equal(t, ids[4-i], j.ID)
		}

		page, err := repo.List(ctx, &model.JobListOptions{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, ids[3], page[0].ID)
		assert.Equal(t, ids[2], page[1].ID)

		failed := model.JobStatusFailed
		onlyFailed, err := repo.List(ctx, &model.JobListOptions{Status: &failed})
		require.NoError(t, err)
		require.Len(t, onlyFailed, 1)
		assert.Equal(t, ids[1], onlyFailed[0].ID)

		completed := model.JobStatusCompleted
		none, err := repo.List(ctx, &model.JobListOptions{Status: &completed})
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)

		beyond, err := repo.List(ctx, &model.JobListOptions{Offset: 50})
		require.NoError(t, err)
		assert.Empty(t, beyond)
	})

	t.Run("delete reports existence and is unconditional", func(t *testing.T) {
		repo := newRepo(t, NewFixedTimeProvider(testutil.TestTime()))
		job, err := repo.Create(ctx, &model.CreateJobRequest{Prompt: "p"})
		require.NoError(t, err)

		existed, err := repo.Delete(ctx, job.ID)
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = repo.Delete(ctx, job.ID)
		require.NoError(t, err)
		assert.False(t, existed)

		_, err = repo.GetByID(ctx, job.ID)
		require.ErrorIs(t, err, model.ErrJobNotFound)

		stats, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Total())
	})

	t.Run("count by status reports zeros", func(t *testing.T) {
		repo := newRepo(t, NewFixedTimeProvider(testutil.TestTime()))
		stats, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.JobStats{}, *stats)

		for range 3 {
			_, err = repo.Create(ctx, &model.CreateJobRequest{Prompt: "p"})
			require.NoError(t, err)
		}
		stats, err = repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.JobStats{Pending: 3}, *stats)
	})
}

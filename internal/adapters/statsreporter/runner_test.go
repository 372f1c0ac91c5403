package statsreporter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-prompt-jobs/config"
	"github.com/target/mmk-prompt-jobs/internal/data"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
	"github.com/target/mmk-prompt-jobs/internal/observability/statsd"
)

func TestNewRunnerRequiresRepo(t *testing.T) {
	_, err := NewRunner(RunnerOptions{Config: config.StatsReporterConfig{Interval: time.Second}})
	require.Error(t, err)
}

func TestRunnerReportsStoreCounts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := data.NewMemoryJobRepo(data.RepoConfig{})
	for _, p := range []string{"a", "b"} {
		_, err := repo.Create(ctx, &model.CreateJobRequest{Prompt: p})
		require.NoError(t, err)
	}

	rec := &statsd.Recorder{}
	r, err := NewRunner(RunnerOptions{
		Repo:    repo,
		Config:  config.StatsReporterConfig{Interval: 20 * time.Millisecond},
		Metrics: rec,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool {
		samples := rec.Find("job.count", map[string]string{"status": "PENDING"})
		return len(samples) > 0 && samples[0].Value == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

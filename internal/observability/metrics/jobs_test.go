package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
	"github.com/target/mmk-prompt-jobs/internal/observability/statsd"
)

func TestEmitJobLifecycle(t *testing.T) {
	rec := &statsd.Recorder{}

	EmitJobLifecycle(rec, JobMetric{
		Transition: TransitionProcessed,
		Result:     ResultError,
		Duration:   250 * time.Millisecond,
		Err:        errors.New("boom"),
	})

	counts := rec.Find("job.transition", map[string]string{"transition": "processed", "result": "error"})
	require.Len(t, counts, 1)
	assert.Equal(t, "errors_errorstring", counts[0].Tags["error_class"])

	timings := rec.Find("job.duration", nil)
	require.Len(t, timings, 1)
	assert.InDelta(t, 250.0, timings[0].Value, 0.001)
}

func TestEmitJobLifecycle_SuccessWithoutDuration(t *testing.T) {
	rec := &statsd.Recorder{}
	EmitJobLifecycle(rec, JobMetric{Transition: TransitionFinalized, Result: ResultSuccess, Status: model.JobStatusCompleted})

	counts := rec.Find("job.transition", map[string]string{"status": "COMPLETED"})
	require.Len(t, counts, 1)
	assert.NotContains(t, counts[0].Tags, "error_class")
	assert.Empty(t, rec.Find("job.duration", nil))

	EmitJobLifecycle(nil, JobMetric{})
}

func TestEmitJobCounts(t *testing.T) {
	rec := &statsd.Recorder{}
	EmitJobCounts(rec, model.JobStats{Pending: 2, Completed: 5}, 2)

	failed := rec.Find("job.count", map[string]string{"status": "FAILED"})
	require.Len(t, failed, 1)
	assert.Zero(t, failed[0].Value)

	total := rec.Find("job.count_total", nil)
	require.Len(t, total, 1)
	assert.InDelta(t, 7.0, total[0].Value, 0)

	inFlight := rec.Find("queue.in_flight", nil)
	require.Len(t, inFlight, 1)
	assert.InDelta(t, 2.0, inFlight[0].Value, 0)
}

func TestResultFor(t *testing.T) {
	assert.Equal(t, ResultSuccess, ResultFor(nil))
	assert.Equal(t, ResultError, ResultFor(errors.New("x")))
}

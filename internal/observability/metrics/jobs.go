// Package metrics emits the job lifecycle metrics shared by the queue, services and reporters.
package metrics

import (
	"maps"
	"time"

	"github.com/target/mmk-prompt-jobs/internal/domain/model"
	obserrors "github.com/target/mmk-prompt-jobs/internal/observability/errors"
	"github.com/target/mmk-prompt-jobs/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Transition names used with EmitJobLifecycle.
const (
	TransitionCreated   = "created"
	TransitionProcessed = "processed"
	TransitionReported  = "reported"
	TransitionFinalized = "finalized"
	TransitionForced    = "forced"
	TransitionDeleted   = "deleted"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	Transition string
	Result     string
	// Status is the job status after the transition, when known.
	Status   model.JobStatus
	Duration time.Duration
	Err      error
}

// EmitJobLifecycle emits standardised job lifecycle metrics.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Status != "" {
		tags["status"] = string(in.Status)
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, maps.Clone(tags))
	}
}

// EmitJobCounts publishes one gauge per status plus the queue's in-flight count.
func EmitJobCounts(sink statsd.Sink, stats model.JobStats, inFlight int) {
	if sink == nil {
		return
	}
	for _, s := range model.AllJobStatuses() {
		sink.Gauge("job.count", float64(stats.Count(s)), map[string]string{"status": string(s)})
	}
	sink.Gauge("job.count_total", float64(stats.Total()), nil)
	sink.Gauge("queue.in_flight", float64(inFlight), nil)
}

// ResultFor maps an error to the success/error result tag.
func ResultFor(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

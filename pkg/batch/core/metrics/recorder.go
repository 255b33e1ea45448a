// Package metrics defines the observability ports used by the sweep use cases.
package metrics

import (
	"context"
	"time"
)

// MetricRecorder records session, launch and reconciliation metrics.
// Implementations must be safe for concurrent use; launches report from worker goroutines.
type MetricRecorder interface {
	// RecordLaunch records the outcome ("success" or "failure") of one job launch for a table.
	RecordLaunch(ctx context.Context, table string, outcome string, duration time.Duration)

	// RecordSession records a finished session fan-out.
	RecordSession(ctx context.Context, table string, selected, recorded int)

	// RecordReconcile records one reconciliation pass.
	RecordReconcile(ctx context.Context, reported, updated, unmapped, absent int)

	// RecordStatusChange records a job moving from one status to another.
	RecordStatusChange(ctx context.Context, from, to string)

	// RecordDuration records the execution time of a named operation.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

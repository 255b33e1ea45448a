// Package port defines the external collaborators the sweep use cases depend on.
package port

import (
	"context"
	"io"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
)

// LaunchRequest is one configuration row to be turned into a scheduled job.
type LaunchRequest struct {
	Row model.Configuration
	// OutputDir is the session run directory; the launcher creates one subdirectory per run.
	OutputDir string
	// Template is the path of the submission template.
	Template string
}

// LaunchResult is what a successful launch reports back.
type LaunchResult struct {
	ConfigID int64
	RunName  string
	JobID    string
}

// JobLauncher prepares a run directory for one row and submits it to the scheduler.
// Implementations must not touch the ConfigStore.
//
// Launch must stop submitting once ctx is done. The caller counts a launch that
// outlives its deadline as failed; a job submitted after that is never recorded
// and is only reported in the log.
type JobLauncher interface {
	Launch(ctx context.Context, req LaunchRequest) (LaunchResult, error)
}

// SchedulerJobState is one job as listed by the external scheduler.
type SchedulerJobState struct {
	// ID is the normalized scheduler identifier.
	ID string
	// Code is the scheduler's raw state code (e.g., "Q", "R").
	Code string
}

// SchedulerQuerier lists the jobs the external scheduler currently knows about.
type SchedulerQuerier interface {
	Query(ctx context.Context) ([]SchedulerJobState, error)
}

// Snapshotter persists the rows selected for a session before any job is launched.
type Snapshotter interface {
	// Snapshot writes table into dir and returns the written path.
	Snapshot(ctx context.Context, dir string, table *model.ConfigTable) (string, error)
}

// TableExporter writes a table in a named format.
type TableExporter interface {
	Format() string
	Export(table *model.ConfigTable, w io.Writer) error
}

// ObjectUploader stores a finished artifact on a named storage connection.
type ObjectUploader interface {
	Upload(ctx context.Context, connectionName, objectName string, data io.Reader, contentType string) error
}

package usecase

import (
	"context"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
)

// TableCatalog creates, lists, reads and exports configuration tables.
type TableCatalog interface {
	// Import reads a table in the snapshot format and stores it, replacing any table of the same name.
	Import(ctx context.Context, r io.Reader) (string, error)

	// Generate expands a parameter specification and stores the result.
	Generate(ctx context.Context, r io.Reader) (string, error)

	// List returns the names of all configuration tables.
	List(ctx context.Context) ([]string, error)

	// Rows returns the rows of a table that match filter.
	Rows(ctx context.Context, name string, filter model.Filter) (*model.ConfigTable, error)

	// Export writes a table in the named format ("csv" or "parquet").
	Export(ctx context.Context, name, format string, w io.Writer) error

	// ExportObject exports a table and uploads it to a named storage connection.
	ExportObject(ctx context.Context, name, format, storageRef, objectName string) error
}

// RunRequest describes one session run. Exactly one of Table, ImportFile and SpecFile
// names the configuration table; the files are imported or generated first.
type RunRequest struct {
	Table       string
	ImportFile  string
	SpecFile    string
	Filter      model.Filter
	OutputDir   string
	Template    string
	SessionName string
}

// RunResult reports a finished session fan-out.
type RunResult struct {
	Session *model.Session
	// RunDir is where the snapshot and run directories were written.
	RunDir       string
	SnapshotPath string
	Selected     int
	Recorded     int
	// LaunchErrors holds one error per failed launch; nil when every launch was recorded.
	LaunchErrors *multierror.Error
}

// Failed is the number of selected rows that did not end up as job records.
func (r *RunResult) Failed() int {
	return r.Selected - r.Recorded
}

// SessionManager starts sessions.
type SessionManager interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

// ReconcileResult reports one reconciliation pass.
type ReconcileResult struct {
	// Known is the number of distinct job identifiers in the store.
	Known int
	// Reported is the number of known jobs the scheduler listed.
	Reported int
	// Updated is the number of jobs whose status changed.
	Updated int
	// Unmapped is the number of reported jobs whose scheduler code has no mapping.
	Unmapped int
	// Absent is the number of known jobs the scheduler did not list.
	Absent int
}

// StatusReconciler brings stored job statuses in line with the scheduler.
type StatusReconciler interface {
	Reconcile(ctx context.Context) (*ReconcileResult, error)
}

// StatusShare is the portion of a session's jobs in one status.
type StatusShare struct {
	Status  string
	Count   int64
	Percent int
}

// SessionReport is the detailed status breakdown of one session.
type SessionReport struct {
	Session model.Session
	Total   int64
	Shares  []StatusShare
}

// SessionOverview is one session's status percentages in fixed columns.
type SessionOverview struct {
	Session model.Session
	Total   int64
	Queued  int
	Running int
	Done    int
	Other   int
}

// ReportAggregator summarizes job statuses.
type ReportAggregator interface {
	// Summarize reports every status of one session.
	Summarize(ctx context.Context, sessionID int64) (*SessionReport, error)

	// Overview reports every session that has jobs.
	Overview(ctx context.Context) ([]SessionOverview, error)
}

// JobOperator applies operator corrections and runtime signals to jobs and sessions.
type JobOperator interface {
	SetStatus(ctx context.Context, jobID, status string) error
	SetJobID(ctx context.Context, oldID, newID string) error
	LogEvent(ctx context.Context, event model.RuntimeEvent, jobID string) error
	DeleteSession(ctx context.Context, sessionID int64) error
	DeleteFinishedSessions(ctx context.Context) ([]int64, error)
}

// ReconcileScheduler runs reconciliation on a schedule until its context ends.
type ReconcileScheduler interface {
	Run(ctx context.Context) error
}

// Clock returns the current time.
type Clock func() time.Time

// Package repository defines the persistence port for configuration tables, sessions and jobs.
package repository

import (
	"context"
	"time"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
)

// ConfigStore is the durable store shared by every sweep component.
// Each method is a single atomic unit against the underlying database.
type ConfigStore interface {
	TableStore
	SessionStore
	JobStore

	// Close releases resources held by the store.
	Close() error
}

// TableStore manages named configuration tables.
type TableStore interface {
	// CreateTable replaces any table of the same name with the given rows.
	// The first column is kept as key when it is named id in any letter case, otherwise a
	// synthetic key is prepended. The key column is always stored as "id".
	CreateTable(ctx context.Context, table *model.ConfigTable) error
	// GetRows returns the table's columns (key first) and the rows matching filter, ordered by key.
	GetRows(ctx context.Context, name string, filter model.Filter) ([]string, [][]string, error)
	// ListTables returns the configuration table names, excluding reserved storage.
	ListTables(ctx context.Context) ([]string, error)
}

// SessionStore manages session records.
type SessionStore interface {
	NewSession(ctx context.Context, configGroup, name string, timestamp time.Time, filter model.Filter) (int64, error)
	GetSession(ctx context.Context, sessionID int64) (*model.Session, error)
	// DeleteSession removes the session and all its jobs.
	DeleteSession(ctx context.Context, sessionID int64) error
	// DeleteFinishedSessions removes every session with at least one job whose jobs are all done.
	DeleteFinishedSessions(ctx context.Context) ([]int64, error)
	// SessionSummary groups jobs by session and status. A nil sessionID covers every session.
	SessionSummary(ctx context.Context, sessionID *int64) ([]model.SummaryRow, error)
}

// JobStore manages job records. Job identifiers are normalized before lookup.
type JobStore interface {
	AddJob(ctx context.Context, sessionID, configID int64, jobID string) error
	ListJobs(ctx context.Context) ([]model.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error
	UpdateJobID(ctx context.Context, oldJobID, newJobID string) error
	StartJob(ctx context.Context, jobID string) error
	PauseJob(ctx context.Context, jobID string) error
	ResumeJob(ctx context.Context, jobID string) error
	EndJob(ctx context.Context, jobID string) error
}

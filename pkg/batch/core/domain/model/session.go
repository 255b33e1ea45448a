package model

import (
	"strings"
	"time"
)

// TimestampLayout is the storage format for session dates and job start marks.
const TimestampLayout = "2006-01-02 15:04:05"

// SessionNameLayout is the default session name format, used for run directories.
const SessionNameLayout = "2006-01-02_15.04.05"

// Session is one batch execution request against a configuration table.
type Session struct {
	ID          int64
	Name        string
	ConfigGroup string
	Filter      string
	Date        time.Time
}

// Job is one scheduler-submitted unit of work tied to a configuration row.
type Job struct {
	SessionID int64
	ConfigID  int64
	JobID     string
	Status    JobStatus
	// TimeLog marks when the job last started or resumed; nil while it is not accumulating runtime.
	TimeLog *time.Time
	// Runtime is the accumulated active time.
	Runtime time.Duration
}

// NormalizeJobID strips the scheduler host suffix from an identifier ("42.server1" becomes "42").
func NormalizeJobID(jobID string) string {
	id := strings.TrimSpace(jobID)
	if idx := strings.Index(id, "."); idx >= 0 {
		id = id[:idx]
	}
	return id
}

// SummaryRow is one (session, status) group with the number of jobs in it.
type SummaryRow struct {
	Session Session
	Status  JobStatus
	Count   int64
}

// RuntimeEvent is a job runtime signal.
type RuntimeEvent string

const (
	EventStart  RuntimeEvent = "start"
	EventPause  RuntimeEvent = "pause"
	EventResume RuntimeEvent = "resume"
	EventEnd    RuntimeEvent = "end"
)

// ParseRuntimeEvent converts a command word into a RuntimeEvent.
func ParseRuntimeEvent(s string) (RuntimeEvent, bool) {
	switch e := RuntimeEvent(strings.ToLower(strings.TrimSpace(s))); e {
	case EventStart, EventPause, EventResume, EventEnd:
		return e, true
	default:
		return "", false
	}
}

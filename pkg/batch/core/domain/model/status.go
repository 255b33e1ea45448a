package model

import (
	"strings"
)

// JobStatus is the lifecycle state of a scheduled job.
// The constants below form the closed vocabulary; any other non-empty value is an
// externally reported status that is kept verbatim and reported under StatusOther.
type JobStatus string

const (
	StatusSubmitted JobStatus = "submitted"
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusHeld      JobStatus = "held"
	StatusSuspended JobStatus = "suspended"
	StatusDone      JobStatus = "done"
)

// StatusOther is the reporting bucket for unrecognized statuses. It is never stored.
const StatusOther = "other"

var knownStatuses = map[JobStatus]struct{}{
	StatusSubmitted: {},
	StatusQueued:    {},
	StatusRunning:   {},
	StatusHeld:      {},
	StatusSuspended: {},
	StatusDone:      {},
}

// ParseJobStatus normalizes a status supplied by an operator or a scheduler mapping.
// Known statuses are matched case-insensitively; anything else is kept as the raw code.
func ParseJobStatus(raw string) (JobStatus, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if s := JobStatus(strings.ToLower(trimmed)); s.IsKnown() {
		return s, true
	}
	return JobStatus(trimmed), true
}

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsKnown reports whether s belongs to the closed vocabulary.
func (s JobStatus) IsKnown() bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsReconcilable reports whether the scheduler is allowed to move a job into s.
func (s JobStatus) IsReconcilable() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusHeld, StatusSuspended:
		return true
	default:
		return false
	}
}

// Category returns s for known statuses and StatusOther for raw external codes.
func (s JobStatus) Category() string {
	if s.IsKnown() {
		return string(s)
	}
	return StatusOther
}

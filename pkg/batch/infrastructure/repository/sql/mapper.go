package sql

import (
	"strconv"
	"time"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

func toDomainSession(e *sessionEntity) *model.Session {
	return &model.Session{
		ID:          e.ID,
		Name:        e.Name,
		ConfigGroup: e.ConfigGroup,
		Filter:      e.WhereClause,
		Date:        parseTimestamp(e.Date),
	}
}

func toDomainJob(e *jobEntity) model.Job {
	job := model.Job{
		SessionID: e.SessionID,
		ConfigID:  e.ConfigID,
		JobID:     e.JobID,
		Status:    model.JobStatus(e.Status),
		Runtime:   time.Duration(parseRuntime(e.Runtime)) * time.Second,
	}
	if e.TimeLog != nil && *e.TimeLog != "" {
		t := parseTimestamp(*e.TimeLog)
		job.TimeLog = &t
	}
	return job
}

func formatTimestamp(t time.Time) string {
	return t.Format(model.TimestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.ParseInLocation(model.TimestampLayout, s, time.UTC)
	if err != nil {
		logger.Warnf("ConfigStore: unparsable timestamp '%s': %v", s, err)
		return time.Time{}
	}
	return t
}

// parseRuntime reads the stored seconds; malformed values count as zero.
func parseRuntime(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			logger.Warnf("ConfigStore: unparsable runtime '%s', treating as 0", s)
			return 0
		}
		return int64(f)
	}
	return n
}

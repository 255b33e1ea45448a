package sql

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

// AddJob implements repository.JobStore. New jobs start as submitted with zero runtime.
func (s *GormConfigStore) AddJob(ctx context.Context, sessionID, configID int64, jobID string) error {
	id := model.NormalizeJobID(jobID)
	if id == "" {
		return exception.NewMalformedSpecError(moduleName, "job id must not be empty", nil)
	}
	conn, err := s.connection(ctx)
	if err != nil {
		return err
	}
	db := conn.GormDB(ctx)

	var count int64
	if err := db.Model(&sessionEntity{}).Where("id = ?", sessionID).Count(&count).Error; err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to look up session %d", sessionID, err)
	}
	if count == 0 {
		return exception.NewUnknownSessionError(moduleName, sessionID)
	}

	entity := &jobEntity{
		SessionID: sessionID,
		ConfigID:  configID,
		JobID:     id,
		Status:    string(model.StatusSubmitted),
		Runtime:   "0",
	}
	if err := db.Create(entity).Error; err != nil {
		if conn.IsDuplicateKeyError(err) {
			return exception.NewDuplicateJobError(moduleName, sessionID, id, err)
		}
		return exception.NewBatchErrorf(moduleName, "failed to record job '%s'", id, err)
	}
	return nil
}

// ListJobs implements repository.JobStore.
func (s *GormConfigStore) ListJobs(ctx context.Context) ([]model.Job, error) {
	conn, err := s.connection(ctx)
	if err != nil {
		return nil, err
	}
	var entities []jobEntity
	if err := conn.GormDB(ctx).Order("session_id, job_id").Find(&entities).Error; err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to list jobs", err)
	}
	jobs := make([]model.Job, len(entities))
	for i := range entities {
		jobs[i] = toDomainJob(&entities[i])
	}
	return jobs, nil
}

// UpdateJobStatus implements repository.JobStore.
func (s *GormConfigStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	if strings.TrimSpace(string(status)) == "" {
		return exception.NewInvalidStatusError(moduleName, string(status))
	}
	id := model.NormalizeJobID(jobID)
	conn, err := s.connection(ctx)
	if err != nil {
		return err
	}
	res := conn.GormDB(ctx).Model(&jobEntity{}).Where("job_id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return exception.NewBatchErrorf(moduleName, "failed to update status of job '%s'", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return exception.NewUnknownJobError(moduleName, id)
	}
	logger.Debugf("ConfigStore: job '%s' set to '%s'.", id, status)
	return nil
}

// UpdateJobID implements repository.JobStore.
func (s *GormConfigStore) UpdateJobID(ctx context.Context, oldID, newID string) error {
	from, to := model.NormalizeJobID(oldID), model.NormalizeJobID(newID)
	if to == "" {
		return exception.NewMalformedSpecError(moduleName, "job id must not be empty", nil)
	}
	conn, err := s.connection(ctx)
	if err != nil {
		return err
	}
	res := conn.GormDB(ctx).Model(&jobEntity{}).Where("job_id = ?", from).Update("job_id", to)
	if res.Error != nil {
		if conn.IsDuplicateKeyError(res.Error) {
			return exception.NewDuplicateJobError(moduleName, 0, to, res.Error)
		}
		return exception.NewBatchErrorf(moduleName, "failed to rename job '%s'", from, res.Error)
	}
	if res.RowsAffected == 0 {
		return exception.NewUnknownJobError(moduleName, from)
	}
	return nil
}

// StartJob implements repository.JobStore.
func (s *GormConfigStore) StartJob(ctx context.Context, jobID string) error {
	return s.markRunning(ctx, jobID)
}

// ResumeJob implements repository.JobStore.
func (s *GormConfigStore) ResumeJob(ctx context.Context, jobID string) error {
	return s.markRunning(ctx, jobID)
}

// PauseJob implements repository.JobStore.
func (s *GormConfigStore) PauseJob(ctx context.Context, jobID string) error {
	return s.foldRuntime(ctx, jobID)
}

// EndJob implements repository.JobStore.
func (s *GormConfigStore) EndJob(ctx context.Context, jobID string) error {
	return s.foldRuntime(ctx, jobID)
}

func (s *GormConfigStore) markRunning(ctx context.Context, jobID string) error {
	id := model.NormalizeJobID(jobID)
	conn, err := s.connection(ctx)
	if err != nil {
		return err
	}
	stamp := formatTimestamp(s.now())
	res := conn.GormDB(ctx).Model(&jobEntity{}).Where("job_id = ?", id).Update("time_log", stamp)
	if res.Error != nil {
		return exception.NewBatchErrorf(moduleName, "failed to mark job '%s'", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return exception.NewUnknownJobError(moduleName, id)
	}
	return nil
}

// foldRuntime adds the time since time_log to runtime and clears time_log.
// A job with no time_log contributes nothing.
func (s *GormConfigStore) foldRuntime(ctx context.Context, jobID string) error {
	id := model.NormalizeJobID(jobID)
	conn, err := s.connection(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	err = conn.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		var entities []jobEntity
		if err := tx.Where("job_id = ?", id).Find(&entities).Error; err != nil {
			return err
		}
		if len(entities) == 0 {
			return exception.NewUnknownJobError(moduleName, id)
		}
		for _, e := range entities {
			total := parseRuntime(e.Runtime)
			if e.TimeLog != nil && *e.TimeLog != "" {
				if elapsed := int64(now.Sub(parseTimestamp(*e.TimeLog)).Seconds()); elapsed > 0 {
					total += elapsed
				}
			}
			err := tx.Model(&jobEntity{}).
				Where("session_id = ? AND job_id = ?", e.SessionID, e.JobID).
				Updates(map[string]interface{}{
					"runtime":  strconv.FormatInt(total, 10),
					"time_log": nil,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var be *exception.BatchError
		if errors.As(err, &be) {
			return err
		}
		return exception.NewBatchErrorf(moduleName, "failed to record runtime of job '%s'", id, err)
	}
	return nil
}

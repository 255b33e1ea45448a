package sql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

// NewSession implements repository.SessionStore.
func (s *GormConfigStore) NewSession(ctx context.Context, configGroup, name string, timestamp time.Time, filter model.Filter) (int64, error) {
	if s.isReserved(configGroup) || !model.IsValidIdentifier(configGroup) {
		return 0, exception.NewUnknownTableError(moduleName, configGroup)
	}
	conn, err := s.connection(ctx)
	if err != nil {
		return 0, err
	}
	entity := &sessionEntity{
		Name:        name,
		ConfigGroup: configGroup,
		WhereClause: filter.String(),
		Date:        formatTimestamp(timestamp.UTC()),
	}
	if err := conn.GormDB(ctx).Create(entity).Error; err != nil {
		return 0, exception.NewBatchErrorf(moduleName, "failed to record session for '%s'", configGroup, err)
	}
	logger.Debugf("ConfigStore: session %d recorded for table '%s'.", entity.ID, configGroup)
	return entity.ID, nil
}

// GetSession implements repository.SessionStore.
func (s *GormConfigStore) GetSession(ctx context.Context, id int64) (*model.Session, error) {
	conn, err := s.connection(ctx)
	if err != nil {
		return nil, err
	}
	var entity sessionEntity
	if err := conn.GormDB(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, exception.NewUnknownSessionError(moduleName, id)
		}
		return nil, exception.NewBatchErrorf(moduleName, "failed to read session %d", id, err)
	}
	return toDomainSession(&entity), nil
}

// DeleteSession implements repository.SessionStore. The session and its jobs go in one transaction.
func (s *GormConfigStore) DeleteSession(ctx context.Context, id int64) error {
	conn, err := s.connection(ctx)
	if err != nil {
		return err
	}
	err = conn.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&jobEntity{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&sessionEntity{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return exception.NewUnknownSessionError(moduleName, id)
		}
		return nil
	})
	if err != nil {
		if exception.IsBatchError(err) {
			return err
		}
		return exception.NewBatchErrorf(moduleName, "failed to delete session %d", id, err)
	}
	logger.Infof("ConfigStore: session %d deleted.", id)
	return nil
}

// DeleteFinishedSessions implements repository.SessionStore. Sessions without jobs are kept.
func (s *GormConfigStore) DeleteFinishedSessions(ctx context.Context) ([]int64, error) {
	conn, err := s.connection(ctx)
	if err != nil {
		return nil, err
	}
	var ids []int64
	err = conn.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&sessionEntity{}).
			Where("EXISTS (SELECT 1 FROM jobs j WHERE j.session_id = sessions.id)").
			Where("NOT EXISTS (SELECT 1 FROM jobs j WHERE j.session_id = sessions.id AND j.status <> ?)", string(model.StatusDone)).
			Order("id").
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("session_id IN ?", ids).Delete(&jobEntity{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&sessionEntity{}).Error
	})
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to delete finished sessions", err)
	}
	logger.Infof("ConfigStore: %d finished sessions deleted.", len(ids))
	return ids, nil
}

// SessionSummary implements repository.SessionStore.
func (s *GormConfigStore) SessionSummary(ctx context.Context, sessionID *int64) ([]model.SummaryRow, error) {
	conn, err := s.connection(ctx)
	if err != nil {
		return nil, err
	}
	query := conn.GormDB(ctx).
		Table("sessions AS s").
		Select("s.id, s.name, s.config_group, s.where_clause, s.date, j.status, COUNT(*) AS job_count").
		Joins("JOIN jobs j ON j.session_id = s.id")
	if sessionID != nil {
		query = query.Where("s.id = ?", *sessionID)
	}
	var entities []summaryEntity
	err = query.
		Group("s.id, s.name, s.config_group, s.where_clause, s.date, j.status").
		Order("s.id, j.status").
		Scan(&entities).Error
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to summarize sessions", err)
	}

	rows := make([]model.SummaryRow, 0, len(entities))
	for i := range entities {
		e := &entities[i]
		rows = append(rows, model.SummaryRow{
			Session: *toDomainSession(&sessionEntity{
				ID:          e.ID,
				Name:        e.Name,
				ConfigGroup: e.ConfigGroup,
				WhereClause: e.WhereClause,
				Date:        e.Date,
			}),
			Status: model.JobStatus(e.Status),
			Count:  e.Count,
		})
	}
	return rows, nil
}

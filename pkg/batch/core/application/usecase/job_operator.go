package usecase

import (
	"context"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/sweep/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/sweep/pkg/batch/core/metrics"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

// DefaultJobOperator implements JobOperator.
type DefaultJobOperator struct {
	store    repository.ConfigStore
	recorder metrics.MetricRecorder
}

// NewDefaultJobOperator creates a new DefaultJobOperator.
func NewDefaultJobOperator(store repository.ConfigStore, recorder metrics.MetricRecorder) *DefaultJobOperator {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &DefaultJobOperator{store: store, recorder: recorder}
}

// SetStatus implements JobOperator. Known statuses are matched case-insensitively;
// any other non-empty value is stored verbatim.
func (o *DefaultJobOperator) SetStatus(ctx context.Context, jobID, status string) error {
	parsed, ok := model.ParseJobStatus(status)
	if !ok {
		return exception.NewInvalidStatusError("JobOperator", status)
	}
	if err := o.store.UpdateJobStatus(ctx, jobID, parsed); err != nil {
		return err
	}
	o.recorder.RecordStatusChange(ctx, "manual", parsed.Category())
	logger.Infof("JobOperator: job '%s' set to '%s'.", model.NormalizeJobID(jobID), parsed)
	return nil
}

// SetJobID implements JobOperator.
func (o *DefaultJobOperator) SetJobID(ctx context.Context, oldID, newID string) error {
	if err := o.store.UpdateJobID(ctx, oldID, newID); err != nil {
		return err
	}
	logger.Infof("JobOperator: job '%s' renamed to '%s'.", model.NormalizeJobID(oldID), model.NormalizeJobID(newID))
	return nil
}

// LogEvent implements JobOperator.
func (o *DefaultJobOperator) LogEvent(ctx context.Context, event model.RuntimeEvent, jobID string) error {
	switch event {
	case model.EventStart:
		return o.store.StartJob(ctx, jobID)
	case model.EventPause:
		return o.store.PauseJob(ctx, jobID)
	case model.EventResume:
		return o.store.ResumeJob(ctx, jobID)
	case model.EventEnd:
		return o.store.EndJob(ctx, jobID)
	default:
		return exception.NewBatchErrorf("JobOperator", "unknown runtime event '%s'", event)
	}
}

// DeleteSession implements JobOperator.
func (o *DefaultJobOperator) DeleteSession(ctx context.Context, sessionID int64) error {
	return o.store.DeleteSession(ctx, sessionID)
}

// DeleteFinishedSessions implements JobOperator.
func (o *DefaultJobOperator) DeleteFinishedSessions(ctx context.Context) ([]int64, error) {
	return o.store.DeleteFinishedSessions(ctx)
}

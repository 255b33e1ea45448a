package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/sweep/pkg/batch/core/application/usecase"
	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/test"
)

func TestJobOperator_SetStatus(t *testing.T) {
	store := new(test.MockConfigStore)
	store.On("UpdateJobStatus", mock.Anything, "42.server1", model.StatusDone).Return(nil)
	store.On("UpdateJobStatus", mock.Anything, "43", model.JobStatus("Exiting")).Return(nil)
	op := usecase.NewDefaultJobOperator(store, nil)

	require.NoError(t, op.SetStatus(context.Background(), "42.server1", "DONE"))
	require.NoError(t, op.SetStatus(context.Background(), "43", "Exiting"))

	err := op.SetStatus(context.Background(), "44", "  ")
	assert.True(t, errors.Is(err, exception.ErrInvalidStatus))
	store.AssertNumberOfCalls(t, "UpdateJobStatus", 2)
}

func TestJobOperator_LogEvent(t *testing.T) {
	store := new(test.MockConfigStore)
	store.On("StartJob", mock.Anything, "1").Return(nil)
	store.On("PauseJob", mock.Anything, "1").Return(nil)
	store.On("ResumeJob", mock.Anything, "1").Return(nil)
	store.On("EndJob", mock.Anything, "1").Return(exception.NewUnknownJobError("ConfigStore", "1"))
	op := usecase.NewDefaultJobOperator(store, nil)
	ctx := context.Background()

	assert.NoError(t, op.LogEvent(ctx, model.EventStart, "1"))
	assert.NoError(t, op.LogEvent(ctx, model.EventPause, "1"))
	assert.NoError(t, op.LogEvent(ctx, model.EventResume, "1"))
	assert.True(t, errors.Is(op.LogEvent(ctx, model.EventEnd, "1"), exception.ErrUnknownJob))
	assert.Error(t, op.LogEvent(ctx, model.RuntimeEvent("stop"), "1"))
	store.AssertExpectations(t)
}

func TestJobOperator_Sessions(t *testing.T) {
	store := new(test.MockConfigStore)
	store.On("UpdateJobID", mock.Anything, "1", "2").Return(nil)
	store.On("DeleteSession", mock.Anything, int64(3)).Return(nil)
	store.On("DeleteFinishedSessions", mock.Anything).Return([]int64{1, 2}, nil)
	op := usecase.NewDefaultJobOperator(store, nil)
	ctx := context.Background()

	require.NoError(t, op.SetJobID(ctx, "1", "2"))
	require.NoError(t, op.DeleteSession(ctx, 3))
	ids, err := op.DeleteFinishedSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

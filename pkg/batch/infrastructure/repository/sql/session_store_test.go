package sql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/test"
)

var fixedTime = time.Date(2016, 1, 20, 14, 5, 9, 0, time.UTC)

func TestNewSession_GetSession(t *testing.T) {
	store, _ := test.NewSQLiteStore(t)
	ctx := context.Background()

	filter, err := model.ParseFilter([]string{"width>2", "mode in a,b"})
	require.NoError(t, err)

	id, err := store.NewSession(ctx, "grid", "nightly", fixedTime, filter)
	require.NoError(t, err)

	session, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, session.ID)
	assert.Equal(t, "nightly", session.Name)
	assert.Equal(t, "grid", session.ConfigGroup)
	assert.Equal(t, "width>2 AND mode in a,b", session.Filter)
	assert.True(t, fixedTime.Equal(session.Date))

	_, err = store.GetSession(ctx, id+100)
	assert.True(t, errors.Is(err, exception.ErrUnknownSession))
}

func TestDeleteSession_RemovesJobs(t *testing.T) {
	store, _ := test.NewSQLiteStore(t)
	ctx := context.Background()

	keep, err := store.NewSession(ctx, "grid", "", fixedTime, model.Filter{})
	require.NoError(t, err)
	drop, err := store.NewSession(ctx, "grid", "", fixedTime, model.Filter{})
	require.NoError(t, err)
	require.NoError(t, store.AddJob(ctx, keep, 1, "100"))
	require.NoError(t, store.AddJob(ctx, drop, 1, "200"))
	require.NoError(t, store.AddJob(ctx, drop, 2, "201"))

	require.NoError(t, store.DeleteSession(ctx, drop))

	_, err = store.GetSession(ctx, drop)
	assert.True(t, errors.Is(err, exception.ErrUnknownSession))
	jobs, err := store.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "100", jobs[0].JobID)

	err = store.DeleteSession(ctx, drop)
	assert.True(t, errors.Is(err, exception.ErrUnknownSession))
}

func TestDeleteFinishedSessions(t *testing.T) {
	store, _ := test.NewSQLiteStore(t)
	ctx := context.Background()

	finished, _ := store.NewSession(ctx, "grid", "", fixedTime, model.Filter{})
	partial, _ := store.NewSession(ctx, "grid", "", fixedTime, model.Filter{})
	empty, _ := store.NewSession(ctx, "grid", "", fixedTime, model.Filter{})

	require.NoError(t, store.AddJob(ctx, finished, 1, "1"))
	require.NoError(t, store.AddJob(ctx, finished, 2, "2"))
	require.NoError(t, store.AddJob(ctx, partial, 1, "3"))
	require.NoError(t, store.AddJob(ctx, partial, 2, "4"))
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, store.UpdateJobStatus(ctx, id, model.StatusDone))
	}

	deleted, err := store.DeleteFinishedSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{finished}, deleted)

	_, err = store.GetSession(ctx, partial)
	assert.NoError(t, err)
	_, err = store.GetSession(ctx, empty)
	assert.NoError(t, err)

	jobs, err := store.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	deleted, err = store.DeleteFinishedSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestSessionSummary(t *testing.T) {
	store, _ := test.NewSQLiteStore(t)
	ctx := context.Background()

	first, _ := store.NewSession(ctx, "grid", "a", fixedTime, model.Filter{})
	second, _ := store.NewSession(ctx, "other", "b", fixedTime, model.Filter{})
	_, _ = store.NewSession(ctx, "grid", "no-jobs", fixedTime, model.Filter{})

	require.NoError(t, store.AddJob(ctx, first, 1, "11"))
	require.NoError(t, store.AddJob(ctx, first, 2, "12"))
	require.NoError(t, store.AddJob(ctx, first, 3, "13"))
	require.NoError(t, store.AddJob(ctx, second, 1, "21"))
	require.NoError(t, store.UpdateJobStatus(ctx, "13", model.StatusRunning))

	rows, err := store.SessionSummary(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, first, rows[0].Session.ID)
	assert.Equal(t, model.StatusRunning, rows[0].Status)
	assert.Equal(t, int64(1), rows[0].Count)
	assert.Equal(t, model.StatusSubmitted, rows[1].Status)
	assert.Equal(t, int64(2), rows[1].Count)
	assert.Equal(t, second, rows[2].Session.ID)
	assert.Equal(t, "other", rows[2].Session.ConfigGroup)

	rows, err = store.SessionSummary(ctx, &second)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Count)
}

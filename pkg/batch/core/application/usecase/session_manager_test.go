package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	"github.com/tigerroll/sweep/pkg/batch/core/application/usecase"
	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
	"github.com/tigerroll/sweep/pkg/batch/test"
)

var sessionTime = time.Date(2016, 1, 20, 14, 5, 9, 0, time.UTC)

func rowWithID(id int64) interface{} {
	return mock.MatchedBy(func(req port.LaunchRequest) bool { return req.Row.ID == id })
}

func newManager(store *test.MockConfigStore, launcher *test.MockJobLauncher, snap *test.MockSnapshotter, settings usecase.SessionSettings) *usecase.DefaultSessionManager {
	clock := &test.FixedClock{Now: sessionTime}
	settings.Clock = clock.Clock
	catalog := usecase.NewSimpleTableCatalog(store, nil, nil, nil)
	return usecase.NewDefaultSessionManager(store, catalog, launcher, snap, nil, nil, settings)
}

func TestSessionManager_RecordsOnlySuccessfulLaunches(t *testing.T) {
	ctx := context.Background()
	outDir := t.TempDir()
	store := new(test.MockConfigStore)
	launcher := new(test.MockJobLauncher)
	snap := new(test.MockSnapshotter)

	columns := []string{"id", "width"}
	rows := [][]string{{"1", "a"}, {"2", "b"}, {"3", "c"}, {"4", "d"}, {"5", "e"}}
	store.On("GetRows", mock.Anything, "grid", model.Filter{}).Return(columns, rows, nil)
	snap.On("Snapshot", mock.Anything, outDir, mock.Anything).Return(filepath.Join(outDir, "grid.csv"), nil)
	store.On("NewSession", mock.Anything, "grid", "", sessionTime, model.Filter{}).Return(int64(7), nil)

	for _, id := range []int64{1, 3, 5} {
		launcher.On("Launch", mock.Anything, rowWithID(id)).
			Return(port.LaunchResult{RunName: fmt.Sprint(id), JobID: fmt.Sprintf("10%d.host", id)}, nil)
	}
	launcher.On("Launch", mock.Anything, rowWithID(2)).Return(port.LaunchResult{}, errors.New("qsub: exit status 1"))
	launcher.On("Launch", mock.Anything, rowWithID(4)).Return(port.LaunchResult{}, errors.New("qsub: exit status 1"))

	store.On("AddJob", mock.Anything, int64(7), int64(1), "101.host").Return(nil)
	store.On("AddJob", mock.Anything, int64(7), int64(3), "103.host").Return(nil)
	store.On("AddJob", mock.Anything, int64(7), int64(5), "105.host").Return(nil)
	store.On("GetSession", mock.Anything, int64(7)).Return(&model.Session{ID: 7, ConfigGroup: "grid", Date: sessionTime}, nil)

	mgr := newManager(store, launcher, snap, usecase.SessionSettings{MaxConcurrency: 2})
	result, err := mgr.Run(ctx, usecase.RunRequest{Table: "grid", OutputDir: outDir})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Selected)
	assert.Equal(t, 3, result.Recorded)
	assert.Equal(t, 2, result.Failed())
	require.NotNil(t, result.LaunchErrors)
	assert.Len(t, result.LaunchErrors.Errors, 2)
	for _, e := range result.LaunchErrors.Errors {
		assert.True(t, errors.Is(e, exception.ErrLaunch))
	}
	assert.Equal(t, int64(7), result.Session.ID)
	assert.Equal(t, outDir, result.RunDir)

	store.AssertNumberOfCalls(t, "AddJob", 3)
	launcher.AssertNumberOfCalls(t, "Launch", 5)
	store.AssertExpectations(t)
}

func TestSessionManager_CreatesDirectoryStructure(t *testing.T) {
	outDir := t.TempDir()
	store := new(test.MockConfigStore)
	launcher := new(test.MockJobLauncher)
	snap := new(test.MockSnapshotter)

	wantDir := filepath.Join(outDir, "grid", "2016-01-20_14.05.09")
	store.On("GetRows", mock.Anything, "grid", model.Filter{}).Return([]string{"id"}, [][]string{}, nil)
	snap.On("Snapshot", mock.Anything, wantDir, mock.Anything).Return(filepath.Join(wantDir, "grid.csv"), nil)
	store.On("NewSession", mock.Anything, "grid", "", sessionTime, model.Filter{}).Return(int64(1), nil)
	store.On("GetSession", mock.Anything, int64(1)).Return(&model.Session{ID: 1}, nil)

	mgr := newManager(store, launcher, snap, usecase.SessionSettings{CreateDirStructure: true})
	result, err := mgr.Run(context.Background(), usecase.RunRequest{Table: "grid", OutputDir: outDir})
	require.NoError(t, err)

	assert.Equal(t, wantDir, result.RunDir)
	assert.Nil(t, result.LaunchErrors)
	info, err := os.Stat(wantDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	launcher.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything)
}

func TestSessionManager_LaunchTimeout(t *testing.T) {
	outDir := t.TempDir()
	store := new(test.MockConfigStore)
	launcher := new(test.MockJobLauncher)
	snap := new(test.MockSnapshotter)

	store.On("GetRows", mock.Anything, "grid", model.Filter{}).Return([]string{"id"}, [][]string{{"1"}}, nil)
	snap.On("Snapshot", mock.Anything, outDir, mock.Anything).Return("", nil)
	store.On("NewSession", mock.Anything, "grid", "late", sessionTime, model.Filter{}).Return(int64(3), nil)
	store.On("GetSession", mock.Anything, int64(3)).Return(&model.Session{ID: 3, Name: "late"}, nil)
	launcher.On("Launch", mock.Anything, rowWithID(1)).
		Run(func(mock.Arguments) { time.Sleep(300 * time.Millisecond) }).
		Return(port.LaunchResult{JobID: "1"}, nil)

	mgr := newManager(store, launcher, snap, usecase.SessionSettings{LaunchTimeout: 20 * time.Millisecond})
	result, err := mgr.Run(context.Background(), usecase.RunRequest{Table: "grid", OutputDir: outDir, SessionName: "late"})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Recorded)
	require.NotNil(t, result.LaunchErrors)
	assert.True(t, errors.Is(result.LaunchErrors.Errors[0], context.DeadlineExceeded))
	store.AssertNotCalled(t, "AddJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionManager_ImportsTableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.csv")
	require.NoError(t, os.WriteFile(path, []byte("grid\nwidth\n1\n2\n"), 0o644))

	store := new(test.MockConfigStore)
	launcher := new(test.MockJobLauncher)
	snap := new(test.MockSnapshotter)
	store.On("CreateTable", mock.Anything, mock.MatchedBy(func(tbl *model.ConfigTable) bool {
		return tbl.Name == "grid" && len(tbl.Rows) == 2
	})).Return(nil)
	store.On("GetRows", mock.Anything, "grid", model.Filter{}).Return([]string{"id", "width"}, [][]string{}, nil)
	snap.On("Snapshot", mock.Anything, dir, mock.Anything).Return("", nil)
	store.On("NewSession", mock.Anything, "grid", "", sessionTime, model.Filter{}).Return(int64(1), nil)
	store.On("GetSession", mock.Anything, int64(1)).Return(&model.Session{ID: 1}, nil)

	mgr := newManager(store, launcher, snap, usecase.SessionSettings{})
	_, err := mgr.Run(context.Background(), usecase.RunRequest{ImportFile: path, OutputDir: dir})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestSessionManager_RejectsBadRequests(t *testing.T) {
	store := new(test.MockConfigStore)
	mgr := newManager(store, new(test.MockJobLauncher), new(test.MockSnapshotter), usecase.SessionSettings{})

	_, err := mgr.Run(context.Background(), usecase.RunRequest{Table: "grid", SpecFile: "spec.txt"})
	assert.True(t, errors.Is(err, exception.ErrMalformedSpec))

	_, err = mgr.Run(context.Background(), usecase.RunRequest{})
	assert.True(t, errors.Is(err, exception.ErrMalformedSpec))

	_, err = mgr.Run(context.Background(), usecase.RunRequest{SpecFile: filepath.Join(t.TempDir(), "missing.txt")})
	assert.True(t, errors.Is(err, exception.ErrFilesystem))

	store.On("GetRows", mock.Anything, "nope", model.Filter{}).Return(nil, nil, exception.NewUnknownTableError("ConfigStore", "nope"))
	_, err = mgr.Run(context.Background(), usecase.RunRequest{Table: "nope"})
	assert.True(t, errors.Is(err, exception.ErrUnknownTable))
	store.AssertNotCalled(t, "NewSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// peakLauncher tracks how many launches run at the same time.
type peakLauncher struct {
	hold     time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
	mu       sync.Mutex
	starts   []time.Time
}

func (l *peakLauncher) Launch(ctx context.Context, req port.LaunchRequest) (port.LaunchResult, error) {
	l.mu.Lock()
	l.starts = append(l.starts, time.Now())
	l.mu.Unlock()

	l.calls.Add(1)
	n := l.inFlight.Add(1)
	defer l.inFlight.Add(-1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(l.hold)
	return port.LaunchResult{JobID: fmt.Sprintf("%d.server", req.Row.ID)}, nil
}

func gridStore(t *testing.T, n int) *test.MockConfigStore {
	t.Helper()
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{fmt.Sprint(i + 1)}
	}
	store := new(test.MockConfigStore)
	store.On("GetRows", mock.Anything, "grid", model.Filter{}).Return([]string{"id"}, rows, nil)
	store.On("NewSession", mock.Anything, "grid", "", sessionTime, model.Filter{}).Return(int64(9), nil)
	store.On("AddJob", mock.Anything, int64(9), mock.Anything, mock.Anything).Return(nil)
	store.On("GetSession", mock.Anything, int64(9)).Return(&model.Session{ID: 9}, nil)
	return store
}

func TestSessionManager_ConcurrencyCap(t *testing.T) {
	outDir := t.TempDir()
	store := gridStore(t, 12)
	snap := new(test.MockSnapshotter)
	snap.On("Snapshot", mock.Anything, outDir, mock.Anything).Return("", nil)

	launcher := &peakLauncher{hold: 30 * time.Millisecond}
	catalog := usecase.NewSimpleTableCatalog(store, nil, nil, nil)
	clock := &test.FixedClock{Now: sessionTime}
	mgr := usecase.NewDefaultSessionManager(store, catalog, launcher, snap, nil, nil,
		usecase.SessionSettings{MaxConcurrency: 3, Clock: clock.Clock})

	result, err := mgr.Run(context.Background(), usecase.RunRequest{Table: "grid", OutputDir: outDir})
	require.NoError(t, err)

	assert.Equal(t, 12, result.Recorded)
	assert.Equal(t, int32(12), launcher.calls.Load())
	assert.LessOrEqual(t, launcher.peak.Load(), int32(3))
	assert.Greater(t, launcher.peak.Load(), int32(1), "launches should overlap up to the cap")
	assert.Zero(t, launcher.inFlight.Load())
}

func TestSessionManager_SubmitRate(t *testing.T) {
	outDir := t.TempDir()
	store := gridStore(t, 5)
	snap := new(test.MockSnapshotter)
	snap.On("Snapshot", mock.Anything, outDir, mock.Anything).Return("", nil)

	launcher := &peakLauncher{}
	catalog := usecase.NewSimpleTableCatalog(store, nil, nil, nil)
	clock := &test.FixedClock{Now: sessionTime}
	mgr := usecase.NewDefaultSessionManager(store, catalog, launcher, snap, nil, nil,
		usecase.SessionSettings{MaxConcurrency: 5, SubmitRate: 20, SubmitBurst: 1, Clock: clock.Clock})

	result, err := mgr.Run(context.Background(), usecase.RunRequest{Table: "grid", OutputDir: outDir})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Recorded)

	launcher.mu.Lock()
	defer launcher.mu.Unlock()
	require.Len(t, launcher.starts, 5)
	first, last := launcher.starts[0], launcher.starts[0]
	for _, ts := range launcher.starts {
		if ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}
	// Burst 1 at 20/s spaces five submissions at least 4*50ms apart.
	assert.GreaterOrEqual(t, last.Sub(first), 150*time.Millisecond)
}

// syncBuffer is a bytes.Buffer safe for the logger's concurrent writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSessionManager_LogsLateSubmission(t *testing.T) {
	var out syncBuffer
	logger.SetOutput(&out)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	outDir := t.TempDir()
	store := new(test.MockConfigStore)
	launcher := new(test.MockJobLauncher)
	snap := new(test.MockSnapshotter)

	store.On("GetRows", mock.Anything, "grid", model.Filter{}).Return([]string{"id"}, [][]string{{"4"}}, nil)
	snap.On("Snapshot", mock.Anything, outDir, mock.Anything).Return("", nil)
	store.On("NewSession", mock.Anything, "grid", "", sessionTime, model.Filter{}).Return(int64(2), nil)
	store.On("GetSession", mock.Anything, int64(2)).Return(&model.Session{ID: 2}, nil)
	launcher.On("Launch", mock.Anything, rowWithID(4)).
		Run(func(mock.Arguments) { time.Sleep(80 * time.Millisecond) }).
		Return(port.LaunchResult{JobID: "777.server"}, nil)

	mgr := newManager(store, launcher, snap, usecase.SessionSettings{LaunchTimeout: 10 * time.Millisecond})
	result, err := mgr.Run(context.Background(), usecase.RunRequest{Table: "grid", OutputDir: outDir})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Recorded)

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "submitted job '777.server' after its launch timed out")
	}, 2*time.Second, 10*time.Millisecond)
	store.AssertNotCalled(t, "AddJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

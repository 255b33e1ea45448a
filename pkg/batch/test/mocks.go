package test

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/sweep/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/sweep/pkg/batch/core/metrics"
)

// MockConfigStore is a testify mock of repository.ConfigStore.
type MockConfigStore struct {
	mock.Mock
}

var _ repository.ConfigStore = (*MockConfigStore)(nil)

func (m *MockConfigStore) CreateTable(ctx context.Context, table *model.ConfigTable) error {
	return m.Called(ctx, table).Error(0)
}

func (m *MockConfigStore) GetRows(ctx context.Context, name string, filter model.Filter) ([]string, [][]string, error) {
	args := m.Called(ctx, name, filter)
	columns, _ := args.Get(0).([]string)
	rows, _ := args.Get(1).([][]string)
	return columns, rows, args.Error(2)
}

func (m *MockConfigStore) ListTables(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *MockConfigStore) NewSession(ctx context.Context, configGroup, name string, timestamp time.Time, filter model.Filter) (int64, error) {
	args := m.Called(ctx, configGroup, name, timestamp, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockConfigStore) GetSession(ctx context.Context, id int64) (*model.Session, error) {
	args := m.Called(ctx, id)
	session, _ := args.Get(0).(*model.Session)
	return session, args.Error(1)
}

func (m *MockConfigStore) DeleteSession(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockConfigStore) DeleteFinishedSessions(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *MockConfigStore) SessionSummary(ctx context.Context, sessionID *int64) ([]model.SummaryRow, error) {
	args := m.Called(ctx, sessionID)
	rows, _ := args.Get(0).([]model.SummaryRow)
	return rows, args.Error(1)
}

func (m *MockConfigStore) AddJob(ctx context.Context, sessionID, configID int64, jobID string) error {
	return m.Called(ctx, sessionID, configID, jobID).Error(0)
}

func (m *MockConfigStore) ListJobs(ctx context.Context) ([]model.Job, error) {
	args := m.Called(ctx)
	jobs, _ := args.Get(0).([]model.Job)
	return jobs, args.Error(1)
}

func (m *MockConfigStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	return m.Called(ctx, jobID, status).Error(0)
}

func (m *MockConfigStore) UpdateJobID(ctx context.Context, oldID, newID string) error {
	return m.Called(ctx, oldID, newID).Error(0)
}

func (m *MockConfigStore) StartJob(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *MockConfigStore) PauseJob(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *MockConfigStore) ResumeJob(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *MockConfigStore) EndJob(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *MockConfigStore) Close() error {
	return m.Called().Error(0)
}

// MockJobLauncher is a testify mock of port.JobLauncher.
type MockJobLauncher struct {
	mock.Mock
}

func (m *MockJobLauncher) Launch(ctx context.Context, req port.LaunchRequest) (port.LaunchResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(port.LaunchResult)
	return result, args.Error(1)
}

// MockSchedulerQuerier is a testify mock of port.SchedulerQuerier.
type MockSchedulerQuerier struct {
	mock.Mock
}

func (m *MockSchedulerQuerier) Query(ctx context.Context) ([]port.SchedulerJobState, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]port.SchedulerJobState)
	return states, args.Error(1)
}

// MockSnapshotter is a testify mock of port.Snapshotter.
type MockSnapshotter struct {
	mock.Mock
}

func (m *MockSnapshotter) Snapshot(ctx context.Context, dir string, table *model.ConfigTable) (string, error) {
	args := m.Called(ctx, dir, table)
	return args.String(0), args.Error(1)
}

// MockObjectUploader is a testify mock of port.ObjectUploader.
type MockObjectUploader struct {
	mock.Mock
}

func (m *MockObjectUploader) Upload(ctx context.Context, connectionName, objectName string, data io.Reader, contentType string) error {
	return m.Called(ctx, connectionName, objectName, data, contentType).Error(0)
}

// MockMetricRecorder is a testify mock of metrics.MetricRecorder.
// Tests that do not assert on metrics can use metrics.NewNoOpMetricRecorder instead.
type MockMetricRecorder struct {
	mock.Mock
}

var _ metrics.MetricRecorder = (*MockMetricRecorder)(nil)

func (m *MockMetricRecorder) RecordLaunch(ctx context.Context, table string, outcome string, duration time.Duration) {
	m.Called(ctx, table, outcome, duration)
}

func (m *MockMetricRecorder) RecordSession(ctx context.Context, table string, selected, recorded int) {
	m.Called(ctx, table, selected, recorded)
}

func (m *MockMetricRecorder) RecordReconcile(ctx context.Context, reported, updated, unmapped, absent int) {
	m.Called(ctx, reported, updated, unmapped, absent)
}

func (m *MockMetricRecorder) RecordStatusChange(ctx context.Context, from, to string) {
	m.Called(ctx, from, to)
}

func (m *MockMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	m.Called(ctx, name, duration, tags)
}

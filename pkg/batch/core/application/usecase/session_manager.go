package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/sweep/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/sweep/pkg/batch/core/metrics"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

const sessionModule = "SessionManager"

// SessionSettings tunes the launch fan-out.
type SessionSettings struct {
	// MaxConcurrency caps the number of launches in flight.
	MaxConcurrency int
	// LaunchTimeout bounds a single launch. Zero disables the bound.
	LaunchTimeout time.Duration
	// SubmitRate limits launches started per second. Zero or less means unlimited.
	SubmitRate  float64
	SubmitBurst int
	// CreateDirStructure places each session under <outdir>/<table>/<session name>.
	CreateDirStructure bool
	// DefaultTemplate is used when a request names no template.
	DefaultTemplate string
	Clock           Clock
}

// launchReport is what one launch worker hands back to the session owner.
type launchReport struct {
	row    model.Configuration
	result port.LaunchResult
	err    error
}

// DefaultSessionManager implements SessionManager.
// Launch workers never write to the store; every write happens on the calling goroutine.
type DefaultSessionManager struct {
	store       repository.ConfigStore
	catalog     TableCatalog
	launcher    port.JobLauncher
	snapshotter port.Snapshotter
	recorder    metrics.MetricRecorder
	tracer      metrics.Tracer
	settings    SessionSettings
}

// NewDefaultSessionManager creates a new DefaultSessionManager.
func NewDefaultSessionManager(
	store repository.ConfigStore,
	catalog TableCatalog,
	launcher port.JobLauncher,
	snapshotter port.Snapshotter,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
	settings SessionSettings,
) *DefaultSessionManager {
	if settings.MaxConcurrency < 1 {
		settings.MaxConcurrency = 1
	}
	if settings.SubmitBurst < 1 {
		settings.SubmitBurst = 1
	}
	if settings.Clock == nil {
		settings.Clock = time.Now
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &DefaultSessionManager{
		store:       store,
		catalog:     catalog,
		launcher:    launcher,
		snapshotter: snapshotter,
		recorder:    recorder,
		tracer:      tracer,
		settings:    settings,
	}
}

// Run implements SessionManager.
func (m *DefaultSessionManager) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	table, err := m.resolveTable(ctx, req)
	if err != nil {
		return nil, err
	}
	ctx, end := m.tracer.StartSpan(ctx, "session.run", map[string]interface{}{"table": table})
	defer end()

	columns, rows, err := m.store.GetRows(ctx, table, req.Filter)
	if err != nil {
		m.tracer.RecordError(ctx, sessionModule, err)
		return nil, err
	}
	configs := make([]model.Configuration, 0, len(rows))
	for _, row := range rows {
		cfg, err := model.NewConfiguration(columns, row)
		if err != nil {
			return nil, exception.NewMalformedSpecError(sessionModule, fmt.Sprintf("table '%s' has a non-integer key '%s'", table, row[0]), err)
		}
		configs = append(configs, cfg)
	}

	timestamp := m.settings.Clock()
	sessionName := req.SessionName
	if sessionName == "" {
		sessionName = timestamp.Format(model.SessionNameLayout)
	}
	runDir := req.OutputDir
	if runDir == "" {
		runDir = "."
	}
	if m.settings.CreateDirStructure {
		runDir = filepath.Join(runDir, table, sessionName)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, exception.NewFilesystemError(sessionModule, runDir, err)
	}

	snapshotPath, err := m.snapshotter.Snapshot(ctx, runDir, &model.ConfigTable{Name: table, Columns: columns, Rows: rows})
	if err != nil {
		m.tracer.RecordError(ctx, sessionModule, err)
		return nil, err
	}

	sessionID, err := m.store.NewSession(ctx, table, req.SessionName, timestamp, req.Filter)
	if err != nil {
		return nil, err
	}
	logger.Infof("%s: session %d started on table '%s' with %d rows in '%s'.", sessionModule, sessionID, table, len(configs), runDir)

	template := req.Template
	if template == "" {
		template = m.settings.DefaultTemplate
	}
	reports := m.launchAll(ctx, table, configs, runDir, template)

	result := &RunResult{RunDir: runDir, SnapshotPath: snapshotPath, Selected: len(configs)}
	for _, rep := range reports {
		if rep.err != nil {
			result.LaunchErrors = multierror.Append(result.LaunchErrors, rep.err)
			continue
		}
		if err := m.store.AddJob(ctx, sessionID, rep.result.ConfigID, rep.result.JobID); err != nil {
			logger.Errorf("%s: job '%s' for row %d could not be recorded: %v", sessionModule, rep.result.JobID, rep.row.ID, err)
			result.LaunchErrors = multierror.Append(result.LaunchErrors, err)
			continue
		}
		result.Recorded++
	}

	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result.Session = session
	m.recorder.RecordSession(ctx, table, result.Selected, result.Recorded)
	if result.Failed() > 0 {
		logger.Warnf("%s: session %d recorded %d of %d jobs; %d launches failed.", sessionModule, sessionID, result.Recorded, result.Selected, result.Failed())
	} else {
		logger.Infof("%s: session %d recorded all %d jobs.", sessionModule, sessionID, result.Recorded)
	}
	return result, nil
}

// resolveTable imports or generates the table when the request names a file.
func (m *DefaultSessionManager) resolveTable(ctx context.Context, req RunRequest) (string, error) {
	sources := 0
	for _, s := range []string{req.Table, req.ImportFile, req.SpecFile} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return "", exception.NewMalformedSpecError(sessionModule, "exactly one of a table name, an import file or a generation spec is required", nil)
	}
	if req.Table != "" {
		return req.Table, nil
	}

	path := req.ImportFile
	create := m.catalog.Import
	if req.SpecFile != "" {
		path = req.SpecFile
		create = m.catalog.Generate
	}
	f, err := os.Open(path)
	if err != nil {
		return "", exception.NewFilesystemError(sessionModule, path, err)
	}
	defer f.Close()
	return create(ctx, f)
}

// launchAll runs one launch per row on a bounded pool and blocks until every launch has reported.
func (m *DefaultSessionManager) launchAll(ctx context.Context, table string, configs []model.Configuration, runDir, template string) []launchReport {
	results := make(chan launchReport, len(configs))
	limit := rate.Limit(m.settings.SubmitRate)
	if m.settings.SubmitRate <= 0 || math.IsInf(m.settings.SubmitRate, 1) {
		limit = rate.Inf
	}
	limiter := rate.NewLimiter(limit, m.settings.SubmitBurst)

	var g errgroup.Group
	g.SetLimit(m.settings.MaxConcurrency)
	for _, cfg := range configs {
		g.Go(func() error {
			start := time.Now()
			rep := launchReport{row: cfg}
			if err := limiter.Wait(ctx); err != nil {
				rep.err = exception.NewLaunchError(sessionModule, fmt.Sprintf("row %d", cfg.ID), err)
			} else {
				rep.result, rep.err = m.launchOne(ctx, port.LaunchRequest{Row: cfg, OutputDir: runDir, Template: template})
			}

			outcome := metrics.OutcomeSuccess
			if rep.err != nil {
				outcome = metrics.OutcomeFailure
				if !errors.Is(rep.err, exception.ErrLaunch) {
					rep.err = exception.NewLaunchError(sessionModule, fmt.Sprintf("row %d", cfg.ID), rep.err)
				}
				logger.Errorf("%s: launch for row %d failed: %v", sessionModule, cfg.ID, rep.err)
			} else {
				rep.result.ConfigID = cfg.ID
			}
			m.recorder.RecordLaunch(ctx, table, outcome, time.Since(start))
			results <- rep
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	reports := make([]launchReport, 0, len(configs))
	for rep := range results {
		reports = append(reports, rep)
	}
	return reports
}

// launchOne bounds one launch by the configured timeout, even when the launcher ignores its context.
func (m *DefaultSessionManager) launchOne(ctx context.Context, req port.LaunchRequest) (port.LaunchResult, error) {
	if m.settings.LaunchTimeout <= 0 {
		return m.launcher.Launch(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, m.settings.LaunchTimeout)
	defer cancel()

	done := make(chan launchOutcome, 1)
	go func() {
		res, err := m.launcher.Launch(ctx, req)
		done <- launchOutcome{res, err}
	}()
	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		go reportLateLaunch(req.Row.ID, done)
		return port.LaunchResult{}, fmt.Errorf("launch timed out after %s: %w", m.settings.LaunchTimeout, ctx.Err())
	}
}

type launchOutcome struct {
	result port.LaunchResult
	err    error
}

// reportLateLaunch waits for a launcher that outlived its timeout. A job it submits
// after that point is not recorded in the session, so it is logged for manual correction.
func reportLateLaunch(rowID int64, done <-chan launchOutcome) {
	o := <-done
	if o.err != nil || o.result.JobID == "" {
		logger.Debugf("%s: timed-out launch for row %d finished without a job: %v", sessionModule, rowID, o.err)
		return
	}
	logger.Warnf("%s: row %d submitted job '%s' after its launch timed out; the job is not part of the session.",
		sessionModule, rowID, o.result.JobID)
}

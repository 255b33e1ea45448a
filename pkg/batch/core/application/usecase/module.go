package usecase

import (
	"time"

	"go.uber.org/fx"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	config "github.com/tigerroll/sweep/pkg/batch/core/config"
	repository "github.com/tigerroll/sweep/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/sweep/pkg/batch/core/metrics"
)

// TableExporterGroup is the fx value group collecting port.TableExporter implementations.
const TableExporterGroup = "table_exporters"

// CatalogParams defines the dependencies for NewTableCatalogProvider.
type CatalogParams struct {
	fx.In
	Store     repository.ConfigStore
	Exporters []port.TableExporter `group:"table_exporters"`
	Uploader  port.ObjectUploader  `optional:"true"`
	Recorder  metrics.MetricRecorder
}

// NewTableCatalogProvider provides the TableCatalog.
func NewTableCatalogProvider(p CatalogParams) TableCatalog {
	return NewSimpleTableCatalog(p.Store, p.Exporters, p.Uploader, p.Recorder)
}

// SessionParams defines the dependencies for NewSessionManagerProvider.
type SessionParams struct {
	fx.In
	Cfg         *config.Config
	Store       repository.ConfigStore
	Catalog     TableCatalog
	Launcher    port.JobLauncher
	Snapshotter port.Snapshotter
	Recorder    metrics.MetricRecorder
	Tracer      metrics.Tracer
}

// NewSessionManagerProvider provides the SessionManager configured from sweep.launch.
func NewSessionManagerProvider(p SessionParams) SessionManager {
	launch := p.Cfg.Sweep.Launch
	return NewDefaultSessionManager(p.Store, p.Catalog, p.Launcher, p.Snapshotter, p.Recorder, p.Tracer, SessionSettings{
		MaxConcurrency:     launch.MaxConcurrency,
		LaunchTimeout:      time.Duration(launch.TimeoutSeconds) * time.Second,
		SubmitRate:         launch.SubmitRatePerSecond,
		SubmitBurst:        launch.SubmitBurst,
		CreateDirStructure: launch.CreateDirStructure,
		DefaultTemplate:    launch.Template,
	})
}

// ReconcilerParams defines the dependencies for NewStatusReconcilerProvider.
type ReconcilerParams struct {
	fx.In
	Cfg      *config.Config
	Store    repository.ConfigStore
	Querier  port.SchedulerQuerier
	Recorder metrics.MetricRecorder
	Tracer   metrics.Tracer
}

// NewStatusReconcilerProvider provides the StatusReconciler configured from sweep.scheduler.status_map.
func NewStatusReconcilerProvider(p ReconcilerParams) (StatusReconciler, error) {
	return NewSimpleStatusReconciler(p.Store, p.Querier, p.Cfg.Sweep.Scheduler.StatusMap, p.Recorder, p.Tracer)
}

// Module is the Fx module for the sweep use cases.
var Module = fx.Options(
	fx.Provide(NewTableCatalogProvider),
	fx.Provide(NewSessionManagerProvider),
	fx.Provide(NewStatusReconcilerProvider),
	fx.Provide(fx.Annotate(
		NewSimpleReportAggregator,
		fx.As(new(ReportAggregator)),
	)),
	fx.Provide(fx.Annotate(
		NewDefaultJobOperator,
		fx.As(new(JobOperator)),
	)),
	fx.Provide(func(cfg *config.Config, reconciler StatusReconciler) ReconcileScheduler {
		return NewCronReconcileScheduler(reconciler, cfg.Sweep.Reconcile.Schedule)
	}),
)

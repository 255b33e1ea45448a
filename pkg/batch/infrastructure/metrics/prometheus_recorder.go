package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	metrics "github.com/tigerroll/sweep/pkg/batch/core/metrics"
	logger "github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// sweep runs as a short-lived CLI, so the registry is flushed to a node_exporter textfile instead of being scraped.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Launch Metrics
	launchCounter         *prometheus.CounterVec
	launchDurationSeconds *prometheus.HistogramVec

	// Session Metrics
	sessionCounter      *prometheus.CounterVec
	sessionSelectedRows *prometheus.CounterVec
	sessionRecordedJobs *prometheus.CounterVec

	// Reconcile Metrics
	reconcileCounter    prometheus.Counter
	reconcileJobs       *prometheus.CounterVec
	statusChangeCounter *prometheus.CounterVec

	operationDurationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		launchCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_launch_total",
			Help: "Total number of job launches by table and outcome.",
		}, []string{"table", "outcome"}),
		launchDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sweep_launch_duration_seconds",
			Help:    "Duration of single job launches.",
			Buckets: prometheus.DefBuckets,
		}, []string{"table", "outcome"}),
		sessionCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_session_total",
			Help: "Total number of sessions run by table.",
		}, []string{"table"}),
		sessionSelectedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_session_selected_rows_total",
			Help: "Total configuration rows selected by sessions.",
		}, []string{"table"}),
		sessionRecordedJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_session_recorded_jobs_total",
			Help: "Total jobs recorded by sessions.",
		}, []string{"table"}),
		reconcileCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sweep_reconcile_total",
			Help: "Total number of reconciliation passes.",
		}),
		reconcileJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_reconcile_jobs_total",
			Help: "Jobs seen by reconciliation passes, by result.",
		}, []string{"result"}), // result: reported, updated, unmapped, absent
		statusChangeCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_job_status_change_total",
			Help: "Total job status transitions.",
		}, []string{"from", "to"}),
		operationDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sweep_operation_duration_seconds",
			Help:    "Duration of named sweep operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "table"}),
	}

	registry.MustRegister(
		r.launchCounter,
		r.launchDurationSeconds,
		r.sessionCounter,
		r.sessionSelectedRows,
		r.sessionRecordedJobs,
		r.reconcileCounter,
		r.reconcileJobs,
		r.statusChangeCounter,
		r.operationDurationSeconds,
	)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the registry in the text exposition format, atomically replacing path.
func (r *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return err
	}
	logger.Debugf("Metrics: registry written to '%s'.", path)
	return nil
}

func (r *PrometheusRecorder) RecordLaunch(ctx context.Context, table string, outcome string, duration time.Duration) {
	r.launchCounter.WithLabelValues(table, outcome).Inc()
	r.launchDurationSeconds.WithLabelValues(table, outcome).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) RecordSession(ctx context.Context, table string, selected, recorded int) {
	r.sessionCounter.WithLabelValues(table).Inc()
	r.sessionSelectedRows.WithLabelValues(table).Add(float64(selected))
	r.sessionRecordedJobs.WithLabelValues(table).Add(float64(recorded))
	logger.Debugf("Metrics: Session on '%s' recorded %d of %d rows.", table, recorded, selected)
}

func (r *PrometheusRecorder) RecordReconcile(ctx context.Context, reported, updated, unmapped, absent int) {
	r.reconcileCounter.Inc()
	r.reconcileJobs.WithLabelValues("reported").Add(float64(reported))
	r.reconcileJobs.WithLabelValues("updated").Add(float64(updated))
	r.reconcileJobs.WithLabelValues("unmapped").Add(float64(unmapped))
	r.reconcileJobs.WithLabelValues("absent").Add(float64(absent))
}

func (r *PrometheusRecorder) RecordStatusChange(ctx context.Context, from, to string) {
	r.statusChangeCounter.WithLabelValues(from, to).Inc()
}

// RecordDuration records the execution time of a named operation. Only the "table" tag becomes a label.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationDurationSeconds.WithLabelValues(name, tags["table"]).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)

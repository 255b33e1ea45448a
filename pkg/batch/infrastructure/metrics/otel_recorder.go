package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	metrics "github.com/tigerroll/sweep/pkg/batch/core/metrics"
)

// OpenTelemetryRecorder records the same signals as PrometheusRecorder through an OTel meter.
type OpenTelemetryRecorder struct {
	launches      metric.Int64Counter
	launchSeconds metric.Float64Histogram
	sessionRows   metric.Int64Counter
	reconciled    metric.Int64Counter
	statusChanges metric.Int64Counter
	operations    metric.Float64Histogram
}

// NewOpenTelemetryRecorder creates the instruments on a meter from provider.
func NewOpenTelemetryRecorder(provider metric.MeterProvider) (*OpenTelemetryRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OpenTelemetryRecorder{}
	var err error
	if r.launches, err = meter.Int64Counter("sweep.launches", metric.WithDescription("Job launches by table and outcome.")); err != nil {
		return nil, err
	}
	if r.launchSeconds, err = meter.Float64Histogram("sweep.launch.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.sessionRows, err = meter.Int64Counter("sweep.session.rows", metric.WithDescription("Rows selected and recorded by sessions.")); err != nil {
		return nil, err
	}
	if r.reconciled, err = meter.Int64Counter("sweep.reconcile.jobs", metric.WithDescription("Jobs seen by reconciliation passes.")); err != nil {
		return nil, err
	}
	if r.statusChanges, err = meter.Int64Counter("sweep.job.status_changes"); err != nil {
		return nil, err
	}
	if r.operations, err = meter.Float64Histogram("sweep.operation.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *OpenTelemetryRecorder) RecordLaunch(ctx context.Context, table string, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("table", table), attribute.String("outcome", outcome))
	r.launches.Add(ctx, 1, attrs)
	r.launchSeconds.Record(ctx, duration.Seconds(), attrs)
}

func (r *OpenTelemetryRecorder) RecordSession(ctx context.Context, table string, selected, recorded int) {
	r.sessionRows.Add(ctx, int64(selected), metric.WithAttributes(attribute.String("table", table), attribute.String("kind", "selected")))
	r.sessionRows.Add(ctx, int64(recorded), metric.WithAttributes(attribute.String("table", table), attribute.String("kind", "recorded")))
}

func (r *OpenTelemetryRecorder) RecordReconcile(ctx context.Context, reported, updated, unmapped, absent int) {
	for result, n := range map[string]int{"reported": reported, "updated": updated, "unmapped": unmapped, "absent": absent} {
		r.reconciled.Add(ctx, int64(n), metric.WithAttributes(attribute.String("result", result)))
	}
}

func (r *OpenTelemetryRecorder) RecordStatusChange(ctx context.Context, from, to string) {
	r.statusChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("from", from), attribute.String("to", to)))
}

func (r *OpenTelemetryRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := []attribute.KeyValue{attribute.String("operation", name)}
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.operations.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

var _ metrics.MetricRecorder = (*OpenTelemetryRecorder)(nil)

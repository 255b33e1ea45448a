package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	coremetrics "github.com/tigerroll/sweep/pkg/batch/core/metrics"
	"github.com/tigerroll/sweep/pkg/batch/infrastructure/metrics"
)

func TestOpenTelemetryTracer_SpanLifecycle(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	tracer := metrics.NewOpenTelemetryTracer(provider)

	ctx, end := tracer.StartSpan(context.Background(), "session.run", map[string]interface{}{"table": "grid", "rows": 3})
	tracer.RecordEvent(ctx, "session.recorded", map[string]interface{}{"recorded": int64(3)})
	tracer.RecordError(ctx, "SessionManager", errors.New("launch failed"))
	end()

	ended := spans.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	assert.Equal(t, "session.run", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)

	var eventNames []string
	for _, e := range span.Events() {
		eventNames = append(eventNames, e.Name)
	}
	assert.Equal(t, []string{"session.recorded", "exception"}, eventNames)
}

func TestOpenTelemetryTracer_RecordErrorOutsideSpan(t *testing.T) {
	tracer := metrics.NewOpenTelemetryTracer(sdktrace.NewTracerProvider())
	assert.NotPanics(t, func() {
		tracer.RecordError(context.Background(), "StatusReconciler", errors.New("boom"))
	})
}

func TestOpenTelemetryRecorder_Collect(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	recorder, err := metrics.NewOpenTelemetryRecorder(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	recorder.RecordLaunch(ctx, "grid", coremetrics.OutcomeSuccess, time.Second)
	recorder.RecordLaunch(ctx, "grid", coremetrics.OutcomeSuccess, time.Second)
	recorder.RecordStatusChange(ctx, "queued", "done")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	found := make(map[string]metricdata.Aggregation)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		found[m.Name] = m.Data
	}
	launches, ok := found["sweep.launches"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, launches.DataPoints, 1)
	assert.Equal(t, int64(2), launches.DataPoints[0].Value)
	assert.Contains(t, found, "sweep.job.status_changes")
	assert.Contains(t, found, "sweep.launch.duration")
}

package metrics_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/tigerroll/sweep/pkg/batch/core/metrics"
	"github.com/tigerroll/sweep/pkg/batch/infrastructure/metrics"
)

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	ctx := context.Background()
	r := metrics.NewPrometheusRecorder()

	r.RecordLaunch(ctx, "grid", coremetrics.OutcomeSuccess, 200*time.Millisecond)
	r.RecordLaunch(ctx, "grid", coremetrics.OutcomeFailure, time.Second)
	r.RecordSession(ctx, "grid", 5, 3)
	r.RecordReconcile(ctx, 4, 2, 1, 1)
	r.RecordStatusChange(ctx, "queued", "running")
	r.RecordDuration(ctx, "table.generate", time.Second, map[string]string{"table": "grid"})

	path := filepath.Join(t.TempDir(), "sweep.prom")
	require.NoError(t, r.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, `sweep_launch_total{outcome="success",table="grid"} 1`)
	assert.Contains(t, text, `sweep_launch_total{outcome="failure",table="grid"} 1`)
	assert.Contains(t, text, `sweep_session_selected_rows_total{table="grid"} 5`)
	assert.Contains(t, text, `sweep_session_recorded_jobs_total{table="grid"} 3`)
	assert.Contains(t, text, `sweep_reconcile_total 1`)
	assert.Contains(t, text, `sweep_reconcile_jobs_total{result="unmapped"} 1`)
	assert.Contains(t, text, `sweep_job_status_change_total{from="queued",to="running"} 1`)
	assert.Contains(t, text, `sweep_operation_duration_seconds_count{operation="table.generate",table="grid"} 1`)
}

func TestPrometheusRecorder_GatherIncludesRuntimeCollectors(t *testing.T) {
	families, err := metrics.NewPrometheusRecorder().GetRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
}

package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/sweep/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/sweep/pkg/batch/core/metrics"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

const reconcilerModule = "StatusReconciler"

// SimpleStatusReconciler implements StatusReconciler.
// Only jobs the scheduler lists are touched; a job missing from the listing keeps its status.
type SimpleStatusReconciler struct {
	store     repository.ConfigStore
	querier   port.SchedulerQuerier
	statusMap map[string]model.JobStatus
	recorder  metrics.MetricRecorder
	tracer    metrics.Tracer
}

// NewSimpleStatusReconciler creates a reconciler. statusMap maps scheduler codes to
// queued, running, held or suspended; any other target is rejected.
func NewSimpleStatusReconciler(
	store repository.ConfigStore,
	querier port.SchedulerQuerier,
	statusMap map[string]string,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) (*SimpleStatusReconciler, error) {
	mapping := make(map[string]model.JobStatus, len(statusMap))
	for code, target := range statusMap {
		status, ok := model.ParseJobStatus(target)
		if !ok || !status.IsReconcilable() {
			return nil, exception.NewInvalidStatusError(reconcilerModule, target)
		}
		mapping[code] = status
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &SimpleStatusReconciler{store: store, querier: querier, statusMap: mapping, recorder: recorder, tracer: tracer}, nil
}

// Reconcile implements StatusReconciler.
func (r *SimpleStatusReconciler) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	ctx, end := r.tracer.StartSpan(ctx, "status.reconcile", nil)
	defer end()

	jobs, err := r.store.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	// One identifier can appear in several sessions; keep every current status.
	known := make(map[string][]model.JobStatus)
	for _, j := range jobs {
		id := model.NormalizeJobID(j.JobID)
		known[id] = append(known[id], j.Status)
	}
	result := &ReconcileResult{Known: len(known)}
	if len(known) == 0 {
		return result, nil
	}

	states, err := r.querier.Query(ctx)
	if err != nil {
		r.tracer.RecordError(ctx, reconcilerModule, err)
		return nil, exception.NewBatchError(reconcilerModule, "scheduler query failed", err)
	}

	var errs *multierror.Error
	seen := make(map[string]struct{}, len(states))
	for _, state := range states {
		id := model.NormalizeJobID(state.ID)
		current, ok := known[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		result.Reported++

		target, ok := r.statusMap[state.Code]
		if !ok {
			result.Unmapped++
			logger.Debugf("%s: job '%s' has unmapped scheduler code '%s'; status kept.", reconcilerModule, id, state.Code)
			continue
		}
		if allEqual(current, target) {
			continue
		}
		if err := r.store.UpdateJobStatus(ctx, id, target); err != nil {
			if errors.Is(err, exception.ErrUnknownJob) {
				logger.Warnf("%s: job '%s' disappeared during reconciliation.", reconcilerModule, id)
				continue
			}
			errs = multierror.Append(errs, fmt.Errorf("job %s: %w", id, err))
			continue
		}
		for _, from := range current {
			if from != target {
				r.recorder.RecordStatusChange(ctx, from.Category(), target.Category())
			}
		}
		result.Updated++
	}
	result.Absent = result.Known - result.Reported

	r.recorder.RecordReconcile(ctx, result.Reported, result.Updated, result.Unmapped, result.Absent)
	r.tracer.RecordEvent(ctx, "status.reconciled", map[string]interface{}{
		"reported": result.Reported,
		"updated":  result.Updated,
	})
	logger.Infof("%s: %d known, %d reported, %d updated, %d unmapped, %d absent.",
		reconcilerModule, result.Known, result.Reported, result.Updated, result.Unmapped, result.Absent)
	return result, errs.ErrorOrNil()
}

func allEqual(statuses []model.JobStatus, target model.JobStatus) bool {
	for _, s := range statuses {
		if s != target {
			return false
		}
	}
	return true
}

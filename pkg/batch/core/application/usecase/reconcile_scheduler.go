package usecase

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

// CronReconcileScheduler runs a StatusReconciler on a cron schedule.
type CronReconcileScheduler struct {
	reconciler StatusReconciler
	schedule   string
}

// NewCronReconcileScheduler creates a scheduler. schedule uses the standard five-field
// cron syntax or a descriptor such as "@every 1m".
func NewCronReconcileScheduler(reconciler StatusReconciler, schedule string) *CronReconcileScheduler {
	return &CronReconcileScheduler{reconciler: reconciler, schedule: schedule}
}

// Run reconciles once immediately, then on every tick until ctx is done.
// A tick that fires while the previous pass is still running is skipped.
func (s *CronReconcileScheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.schedule, func() { s.runOnce(ctx) }); err != nil {
		return exception.NewBatchErrorf("ReconcileScheduler", "invalid reconcile schedule '%s'", s.schedule, err)
	}

	s.runOnce(ctx)
	c.Start()
	logger.Infof("ReconcileScheduler: started with schedule '%s'.", s.schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Infof("ReconcileScheduler: stopped.")
	return nil
}

func (s *CronReconcileScheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.reconciler.Reconcile(ctx); err != nil {
		logger.Errorf("ReconcileScheduler: reconciliation failed: %v", err)
	}
}

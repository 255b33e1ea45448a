package remote

import (
	"time"

	"go.uber.org/fx"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	config "github.com/tigerroll/sweep/pkg/batch/core/config"
	logger "github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

// NewJobLauncher provides the qsub launcher, or the dry-run launcher when sweep.scheduler.enabled is false.
func NewJobLauncher(cfg *config.Config) (port.JobLauncher, error) {
	scheduler := cfg.Sweep.Scheduler
	settings := LauncherSettings{
		SubmitCommand:  scheduler.SubmitCommand,
		CommandTimeout: time.Duration(scheduler.CommandTimeoutSeconds) * time.Second,
		TagColumn:      cfg.Sweep.Launch.TagColumn,
		ConfigPreamble: cfg.Sweep.Launch.ConfigPreamble,
	}
	if !scheduler.Enabled {
		logger.Infof("%s: scheduler disabled, runs are prepared without submission.", launcherModule)
		return NewDryRunLauncher(settings), nil
	}
	return NewQsubLauncher(settings)
}

// NewSchedulerQuerier provides the qstat querier, or one that reports nothing when the scheduler is disabled.
func NewSchedulerQuerier(cfg *config.Config) (port.SchedulerQuerier, error) {
	scheduler := cfg.Sweep.Scheduler
	if !scheduler.Enabled {
		return idleQuerier{}, nil
	}
	return NewQstatQuerier(scheduler.QueryCommand, time.Duration(scheduler.CommandTimeoutSeconds)*time.Second)
}

// Module provides the scheduler-facing ports.
var Module = fx.Options(
	fx.Provide(NewJobLauncher),
	fx.Provide(NewSchedulerQuerier),
)

package main

import (
	"context"
	"time"

	"go.uber.org/fx"

	gormadapter "github.com/tigerroll/sweep/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/sweep/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/sweep/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/sweep/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/sweep/pkg/batch/adapter/storage"
	"github.com/tigerroll/sweep/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/sweep/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/sweep/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/sweep/pkg/batch/core/config"
	"github.com/tigerroll/sweep/pkg/batch/infrastructure/export"
	inframetrics "github.com/tigerroll/sweep/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/sweep/pkg/batch/infrastructure/remote"
	sqlrepo "github.com/tigerroll/sweep/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

// appOptions carries the global flags into every command.
type appOptions struct {
	envFilePath    string
	configFilePath string
	embeddedConfig []byte
}

// services are the use cases a command can call.
type services struct {
	fx.In
	Cfg        *config.Config
	Catalog    usecase.TableCatalog
	Sessions   usecase.SessionManager
	Reconciler usecase.StatusReconciler
	Reports    usecase.ReportAggregator
	Operator   usecase.JobOperator
	Scheduler  usecase.ReconcileScheduler
}

// getApplicationOptions builds the uber-fx options shared by every command.
func getApplicationOptions(opts appOptions, target *services) []fx.Option {
	var options []fx.Option

	options = append(options, fx.Supply(
		config.EmbeddedConfig(opts.embeddedConfig),
		fx.Annotate(opts.envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		fx.Annotate(opts.configFilePath, fx.ResultTags(`name:"configFilePath"`)),
	))
	options = append(options, logger.Module)
	options = append(options, config.Module)
	options = append(options, gormadapter.Module, sqlite.Module, mysql.Module, postgres.Module)
	options = append(options, storage.Module, local.Module, gcs.Module)
	options = append(options, sqlrepo.Module)
	options = append(options, inframetrics.Module)
	options = append(options, export.Module)
	options = append(options, remote.Module)
	options = append(options, usecase.Module)
	options = append(options, fx.Invoke(func(s services) { *target = s }))
	options = append(options, fx.StartTimeout(time.Minute), fx.StopTimeout(time.Minute))

	return options
}

// withServices starts an application, runs fn against its use cases and stops the application again.
// The stop always runs so metrics are flushed and connections closed even when fn fails.
func withServices(ctx context.Context, opts appOptions, fn func(ctx context.Context, s services) error) (err error) {
	var svc services
	app := fx.New(getApplicationOptions(opts, &svc)...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancelStart := context.WithTimeout(ctx, app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	defer func() {
		stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancelStop()
		if stopErr := app.Stop(stopCtx); stopErr != nil {
			logger.Warnf("Application did not stop cleanly: %v", stopErr)
		}
	}()

	return fn(ctx, svc)
}

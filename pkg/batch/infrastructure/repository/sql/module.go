package sql

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/sweep/pkg/batch/adapter/database"
	config "github.com/tigerroll/sweep/pkg/batch/core/config"
	repository "github.com/tigerroll/sweep/pkg/batch/core/domain/repository"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

// StoreParams defines the dependencies for NewConfigStoreProvider.
type StoreParams struct {
	fx.In
	Lifecycle  fx.Lifecycle
	Cfg        *config.Config
	DBResolver database.DBConnectionResolver
}

// NewConfigStoreProvider builds the store on the configured connection and migrates its schema on start.
func NewConfigStoreProvider(p StoreParams) repository.ConfigStore {
	storeCfg := p.Cfg.Sweep.Store
	store := NewGormConfigStore(p.DBResolver, storeCfg.DatabaseRef, WithMigrationsTable(storeCfg.MigrationsTable))
	migrator := NewSchemaMigrator(storeCfg.MigrationsTable)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			conn, err := p.DBResolver.ResolveDBConnection(ctx, storeCfg.DatabaseRef)
			if err != nil {
				return err
			}
			logger.Debugf("ConfigStore: migrating schema on '%s' (%s).", conn.Name(), conn.Type())
			return migrator.Up(ctx, conn)
		},
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return store
}

// Module provides the ConfigStore.
var Module = fx.Options(
	fx.Provide(NewConfigStoreProvider),
)

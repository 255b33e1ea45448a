package storage

import (
	"context"

	"go.uber.org/fx"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
)

// Module provides the storage resolver and the ObjectUploader. Backend packages contribute the providers.
var Module = fx.Options(
	fx.Provide(
		NewStorageConnectionResolver,
		func(r *DefaultStorageConnectionResolver) StorageConnectionResolver { return r },
		fx.Annotate(NewObjectUploader, fx.As(new(port.ObjectUploader))),
	),
	fx.Invoke(func(lc fx.Lifecycle, r *DefaultStorageConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error { return r.CloseAll() },
		})
	}),
)

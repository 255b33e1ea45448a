package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/sweep/pkg/batch/adapter/database"
)

// Module provides the connection resolver. Dialect packages contribute the providers.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGormDBConnectionResolver,
		fx.As(new(database.DBConnectionResolver)),
	)),
	fx.Invoke(func(lc fx.Lifecycle, resolver database.DBConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if closer, ok := resolver.(interface{ CloseAll() error }); ok {
					return closer.CloseAll()
				}
				return nil
			},
		})
	}),
)

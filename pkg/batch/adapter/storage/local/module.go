package local

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/sweep/pkg/batch/adapter/storage"
)

// Module contributes the local StorageProvider to the storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLocalProvider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"`+storageAdapter.StorageProviderGroup+`"`),
	)),
)

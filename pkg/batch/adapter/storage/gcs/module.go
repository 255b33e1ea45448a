package gcs

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/sweep/pkg/batch/adapter/storage"
)

// Module contributes the GCS StorageProvider to the storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGCSProvider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"`+storageAdapter.StorageProviderGroup+`"`),
	)),
)

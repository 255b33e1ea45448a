package storage_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "github.com/tigerroll/sweep/pkg/batch/adapter/storage"
	"github.com/tigerroll/sweep/pkg/batch/adapter/storage/local"
	coreConfig "github.com/tigerroll/sweep/pkg/batch/core/config"
)

func TestObjectUploader(t *testing.T) {
	base := t.TempDir()
	cfg := coreConfig.NewConfig()
	cfg.Sweep.Storage.Connections = map[string]interface{}{
		"archive": map[string]interface{}{"type": "local", "base_dir": base},
		"remote":  map[string]interface{}{"type": "gcs", "bucket_name": "sweep"},
	}
	resolver := storage.NewStorageConnectionResolver(storage.ResolverParams{
		Providers: []storage.StorageProvider{local.NewLocalProvider(cfg)},
		Cfg:       cfg,
	})
	uploader := storage.NewObjectUploader(resolver)
	ctx := context.Background()

	require.NoError(t, uploader.Upload(ctx, "archive", "snapshots/grid.csv", strings.NewReader("grid\n"), "text/csv"))
	assert.FileExists(t, filepath.Join(base, "snapshots", "grid.csv"))

	err := uploader.Upload(ctx, "remote", "grid.csv", strings.NewReader(""), "text/csv")
	assert.ErrorContains(t, err, "no storage provider for type 'gcs'")

	err = uploader.Upload(ctx, "nowhere", "grid.csv", strings.NewReader(""), "text/csv")
	assert.ErrorContains(t, err, "not found")
	assert.NoError(t, resolver.CloseAll())
}

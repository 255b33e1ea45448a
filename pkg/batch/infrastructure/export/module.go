package export

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	"github.com/tigerroll/sweep/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/sweep/pkg/batch/core/config"
)

// SnapshotterParams defines the dependencies for NewSnapshotterProvider.
type SnapshotterParams struct {
	fx.In
	Cfg      *config.Config
	Uploader port.ObjectUploader `optional:"true"`
}

// NewSnapshotterProvider builds the CSV snapshotter from sweep.storage.
func NewSnapshotterProvider(p SnapshotterParams) port.Snapshotter {
	storage := p.Cfg.Sweep.Storage
	return NewCSVSnapshotter(p.Uploader, storage.SnapshotRef, storage.SnapshotPrefix)
}

// Module provides the snapshotter and contributes the csv and parquet exporters.
var Module = fx.Options(
	fx.Provide(NewSnapshotterProvider),
	fx.Provide(
		fx.Annotate(NewCSVExporter, fx.As(new(port.TableExporter)), fx.ResultTags(`group:"`+usecase.TableExporterGroup+`"`)),
		fx.Annotate(NewParquetExporter, fx.As(new(port.TableExporter)), fx.ResultTags(`group:"`+usecase.TableExporterGroup+`"`)),
	),
)

package export

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
	"github.com/tigerroll/sweep/pkg/batch/support/util/tableio"
)

const snapshotModule = "Snapshotter"

// CSVSnapshotter writes <dir>/<table>.csv and optionally mirrors it to object storage
// under <prefix>/<table>/<run dir name>/<table>.csv.
type CSVSnapshotter struct {
	uploader port.ObjectUploader
	ref      string
	prefix   string
}

var _ port.Snapshotter = (*CSVSnapshotter)(nil)

// NewCSVSnapshotter creates a snapshotter. Mirroring is off when uploader is nil or ref is empty.
func NewCSVSnapshotter(uploader port.ObjectUploader, ref, prefix string) *CSVSnapshotter {
	return &CSVSnapshotter{uploader: uploader, ref: ref, prefix: prefix}
}

// Snapshot implements port.Snapshotter. A failed mirror is logged; the local file is the record.
func (s *CSVSnapshotter) Snapshot(ctx context.Context, dir string, table *model.ConfigTable) (string, error) {
	var buf bytes.Buffer
	if err := tableio.Write(&buf, table); err != nil {
		return "", exception.NewBatchErrorf(snapshotModule, "failed to render snapshot of '%s'", table.Name, err)
	}
	target := filepath.Join(dir, table.Name+".csv")
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return "", exception.NewFilesystemError(snapshotModule, target, err)
	}
	logger.Debugf("%s: %d rows of '%s' written to '%s'.", snapshotModule, len(table.Rows), table.Name, target)

	if s.uploader == nil || s.ref == "" {
		return target, nil
	}
	runDir, err := filepath.Abs(dir)
	if err != nil {
		runDir = dir
	}
	object := path.Join(s.prefix, table.Name, filepath.Base(runDir), table.Name+".csv")
	if err := s.uploader.Upload(ctx, s.ref, object, bytes.NewReader(buf.Bytes()), "text/csv"); err != nil {
		logger.Warnf("%s: failed to mirror '%s' to %s:%s: %v", snapshotModule, target, s.ref, object, err)
		return target, nil
	}
	logger.Infof("%s: snapshot mirrored to %s:%s.", snapshotModule, s.ref, object)
	return target, nil
}

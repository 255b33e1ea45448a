package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/sweep/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/sweep/pkg/batch/core/metrics"
	"github.com/tigerroll/sweep/pkg/batch/core/support/generator"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
	"github.com/tigerroll/sweep/pkg/batch/support/util/tableio"
)

var contentTypes = map[string]string{
	"csv":     "text/csv",
	"parquet": "application/vnd.apache.parquet",
}

// SimpleTableCatalog implements TableCatalog on a ConfigStore.
type SimpleTableCatalog struct {
	store     repository.ConfigStore
	exporters map[string]port.TableExporter
	uploader  port.ObjectUploader
	recorder  metrics.MetricRecorder
}

// NewSimpleTableCatalog creates a catalog. uploader may be nil when no storage is configured.
func NewSimpleTableCatalog(
	store repository.ConfigStore,
	exporters []port.TableExporter,
	uploader port.ObjectUploader,
	recorder metrics.MetricRecorder,
) *SimpleTableCatalog {
	byFormat := make(map[string]port.TableExporter, len(exporters))
	for _, e := range exporters {
		byFormat[strings.ToLower(e.Format())] = e
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &SimpleTableCatalog{store: store, exporters: byFormat, uploader: uploader, recorder: recorder}
}

// Import implements TableCatalog.
func (c *SimpleTableCatalog) Import(ctx context.Context, r io.Reader) (string, error) {
	table, err := tableio.Read(r)
	if err != nil {
		return "", err
	}
	return c.create(ctx, "import", table)
}

// Generate implements TableCatalog.
func (c *SimpleTableCatalog) Generate(ctx context.Context, r io.Reader) (string, error) {
	table, err := generator.Generate(r)
	if err != nil {
		return "", err
	}
	return c.create(ctx, "generate", table)
}

func (c *SimpleTableCatalog) create(ctx context.Context, source string, table *model.ConfigTable) (string, error) {
	start := time.Now()
	if err := c.store.CreateTable(ctx, table); err != nil {
		return "", err
	}
	c.recorder.RecordDuration(ctx, "table.create", time.Since(start), map[string]string{"source": source})
	logger.Infof("TableCatalog: table '%s' created from %s with %d rows.", table.Name, source, len(table.Rows))
	return table.Name, nil
}

// List implements TableCatalog.
func (c *SimpleTableCatalog) List(ctx context.Context) ([]string, error) {
	return c.store.ListTables(ctx)
}

// Rows implements TableCatalog.
func (c *SimpleTableCatalog) Rows(ctx context.Context, name string, filter model.Filter) (*model.ConfigTable, error) {
	columns, rows, err := c.store.GetRows(ctx, name, filter)
	if err != nil {
		return nil, err
	}
	return &model.ConfigTable{Name: name, Columns: columns, Rows: rows}, nil
}

// Formats returns the supported export formats.
func (c *SimpleTableCatalog) Formats() []string {
	formats := make([]string, 0, len(c.exporters))
	for f := range c.exporters {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

func (c *SimpleTableCatalog) exporter(format string) (port.TableExporter, error) {
	e, ok := c.exporters[strings.ToLower(format)]
	if !ok {
		return nil, exception.NewBatchErrorf("TableCatalog", "unsupported export format '%s' (available: %s)", format, strings.Join(c.Formats(), ", "))
	}
	return e, nil
}

// Export implements TableCatalog.
func (c *SimpleTableCatalog) Export(ctx context.Context, name, format string, w io.Writer) error {
	e, err := c.exporter(format)
	if err != nil {
		return err
	}
	table, err := c.Rows(ctx, name, model.Filter{})
	if err != nil {
		return err
	}
	if err := e.Export(table, w); err != nil {
		return exception.NewBatchErrorf("TableCatalog", "failed to export table '%s' as %s", name, format, err)
	}
	return nil
}

// ExportObject implements TableCatalog.
func (c *SimpleTableCatalog) ExportObject(ctx context.Context, name, format, storageRef, objectName string) error {
	if c.uploader == nil {
		return exception.NewBatchError("TableCatalog", "no storage uploader is configured", nil)
	}
	if objectName == "" {
		objectName = fmt.Sprintf("%s.%s", name, strings.ToLower(format))
	}
	var buf bytes.Buffer
	if err := c.Export(ctx, name, format, &buf); err != nil {
		return err
	}
	contentType, ok := contentTypes[strings.ToLower(format)]
	if !ok {
		contentType = "application/octet-stream"
	}
	if err := c.uploader.Upload(ctx, storageRef, objectName, &buf, contentType); err != nil {
		return exception.NewBatchErrorf("TableCatalog", "failed to upload '%s' to '%s'", objectName, storageRef, err)
	}
	logger.Infof("TableCatalog: table '%s' exported to %s:%s.", name, storageRef, objectName)
	return nil
}

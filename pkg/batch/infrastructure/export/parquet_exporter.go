package export

import (
	"fmt"
	"io"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

// ParquetExporter writes every column as an optional UTF8 byte array.
// Empty cells are written as nulls.
type ParquetExporter struct {
	compression parquet.CompressionCodec
}

var _ port.TableExporter = (*ParquetExporter)(nil)

// NewParquetExporter creates an exporter using SNAPPY compression.
func NewParquetExporter() *ParquetExporter {
	return &ParquetExporter{compression: parquet.CompressionCodec_SNAPPY}
}

func (e *ParquetExporter) Format() string { return "parquet" }

// Export writes table to w. The library panics on some internal failures; those are returned as errors.
func (e *ParquetExporter) Export(table *model.ConfigTable, w io.Writer) (err error) {
	schema := make([]string, len(table.Columns))
	for i, column := range table.Columns {
		schema[i] = fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", column)
	}
	pw, err := writer.NewCSVWriterFromWriter(schema, w, 4)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer for '%s': %w", table.Name, err)
	}
	pw.CompressionType = e.compression

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("ParquetExporter: recovered from panic while writing '%s': %v", table.Name, r)
			err = fmt.Errorf("parquet writer panicked for '%s': %v", table.Name, r)
		}
	}()

	for _, row := range table.Rows {
		record := make([]*string, len(table.Columns))
		for i := range record {
			if i < len(row) && row[i] != "" {
				v := row[i]
				record[i] = &v
			}
		}
		if err := pw.WriteString(record); err != nil {
			return fmt.Errorf("failed to write parquet row of '%s': %w", table.Name, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet output of '%s': %w", table.Name, err)
	}
	return nil
}

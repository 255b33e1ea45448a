// Package export writes configuration tables out of the store: the CSV snapshot taken before
// every session, and the csv/parquet formats offered by the export command.
package export

import (
	"io"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/tableio"
)

// CSVExporter writes the import format, so an export can be imported again unchanged.
type CSVExporter struct{}

var _ port.TableExporter = CSVExporter{}

// NewCSVExporter creates a new CSVExporter.
func NewCSVExporter() CSVExporter {
	return CSVExporter{}
}

func (CSVExporter) Format() string { return "csv" }

func (CSVExporter) Export(table *model.ConfigTable, w io.Writer) error {
	return tableio.Write(w, table)
}

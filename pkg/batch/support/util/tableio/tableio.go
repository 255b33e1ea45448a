// Package tableio reads and writes the configuration table text format:
// the table name on the first record, the column names on the second, then one record per row.
// Records before the name whose first field starts with '#' are comments.
//
// A table read back from the store always names its key column "id", so an imported
// header that spells it "ID" or "Id" is written back as "id". Every other column keeps
// the caller's spelling.
package tableio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
)

const moduleName = "TableIO"

// Read parses a table. Rows shorter than the header are padded with empty values.
func Read(r io.Reader) (*model.ConfigTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	next := func() ([]string, error) {
		record, err := reader.Read()
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, exception.NewMalformedSpecError(moduleName, "failed to read table records", err)
		}
		return record, err
	}

	var header []string
	for {
		record, err := next()
		if errors.Is(err, io.EOF) {
			return nil, exception.NewMalformedSpecError(moduleName, "input has no table name", nil)
		}
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(record[0], "#") {
			continue
		}
		header = record
		break
	}
	if len(header) != 1 || strings.TrimSpace(header[0]) == "" {
		return nil, exception.NewMalformedSpecError(moduleName,
			fmt.Sprintf("first record must be the table name alone, got %d fields", len(header)), nil)
	}
	table := &model.ConfigTable{Name: strings.TrimSpace(header[0])}

	columns, err := next()
	if errors.Is(err, io.EOF) {
		return nil, exception.NewMalformedSpecError(moduleName, fmt.Sprintf("table '%s' has no column header", table.Name), nil)
	}
	if err != nil {
		return nil, err
	}
	for i := range columns {
		columns[i] = strings.TrimSpace(columns[i])
	}
	table.Columns = columns

	for {
		record, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < len(columns) {
			record = append(record, make([]string, len(columns)-len(record))...)
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

// Write renders a table in the format accepted by Read.
func Write(w io.Writer, t *model.ConfigTable) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{t.Name}); err != nil {
		return err
	}
	if err := writer.Write(t.Columns); err != nil {
		return err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}

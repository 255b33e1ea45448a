// Package generator expands a parameter specification into a configuration table.
//
// A specification looks like:
//
//	# comments may appear anywhere
//	sweep_table
//	width  | 1-3
//	mode   | fast,slow
//	alpha  | 0.1-0.4:0.1
//
// Each column's tokens are expanded into a value list and the table holds the
// cartesian product of all lists, with the last declared column varying fastest.
package generator

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

const (
	moduleName = "ConfigGenerator"
	separator  = "|"
)

// ColumnSpec is one parameter line with its expanded values.
type ColumnSpec struct {
	Key    string
	Values []string
}

// Spec is a parsed generation specification.
type Spec struct {
	Name    string
	Columns []ColumnSpec
}

// ParseSpec reads a specification and expands every column's tokens.
func ParseSpec(r io.Reader) (*Spec, error) {
	scanner := bufio.NewScanner(r)
	spec := &Spec{}
	seen := make(map[string]struct{})
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if spec.Name == "" {
			if strings.ContainsAny(line, ", \t"+separator) {
				return nil, exception.NewMalformedSpecError(moduleName,
					fmt.Sprintf("line %d: the first line must be the table name alone, got '%s'", lineNo, line), nil)
			}
			spec.Name = line
			continue
		}

		parts := strings.Split(line, separator)
		if len(parts) != 2 {
			return nil, exception.NewMalformedSpecError(moduleName,
				fmt.Sprintf("line %d: expected 'key %s values', got '%s'", lineNo, separator, line), nil)
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			return nil, exception.NewMalformedSpecError(moduleName, fmt.Sprintf("line %d: empty key", lineNo), nil)
		}
		lower := strings.ToLower(key)
		if _, dup := seen[lower]; dup {
			return nil, exception.NewMalformedSpecError(moduleName, fmt.Sprintf("line %d: duplicate key '%s'", lineNo, key), nil)
		}
		seen[lower] = struct{}{}

		var values []string
		for _, token := range strings.Split(strings.TrimSpace(parts[1]), ",") {
			expanded, err := ExpandToken(strings.TrimSpace(token))
			if err != nil {
				return nil, exception.NewMalformedSpecError(moduleName, fmt.Sprintf("line %d: %v", lineNo, err), err)
			}
			values = append(values, expanded...)
			if len(values) > MaxColumnValues {
				return nil, exception.NewMalformedSpecError(moduleName,
					fmt.Sprintf("line %d: '%s' has more than %d values", lineNo, key, MaxColumnValues), nil)
			}
		}
		spec.Columns = append(spec.Columns, ColumnSpec{Key: key, Values: values})
	}
	if err := scanner.Err(); err != nil {
		return nil, exception.NewMalformedSpecError(moduleName, "failed to read specification", err)
	}
	if spec.Name == "" {
		return nil, exception.NewMalformedSpecError(moduleName, "specification has no table name", nil)
	}
	if len(spec.Columns) == 0 {
		return nil, exception.NewMalformedSpecError(moduleName, fmt.Sprintf("specification for '%s' has no columns", spec.Name), nil)
	}
	if _, ok := spec.RowCount(); !ok {
		return nil, exception.NewMalformedSpecError(moduleName,
			fmt.Sprintf("specification for '%s' expands to more than %d rows", spec.Name, MaxTableRows), nil)
	}
	return spec, nil
}

// Keys returns the column names in declaration order.
func (s *Spec) Keys() []string {
	keys := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		keys[i] = c.Key
	}
	return keys
}

// RowCount returns the size of the cartesian product.
// ok is false when the product exceeds MaxTableRows.
func (s *Spec) RowCount() (n int, ok bool) {
	n = 1
	for _, col := range s.Columns {
		if len(col.Values) == 0 {
			return 0, true
		}
		if n > MaxTableRows/len(col.Values) {
			return 0, false
		}
		n *= len(col.Values)
	}
	return n, true
}

// Rows returns the cartesian product of the column values.
func (s *Spec) Rows() [][]string {
	var rows [][]string
	for i, col := range s.Columns {
		if i == 0 {
			rows = make([][]string, 0, len(col.Values))
			for _, v := range col.Values {
				rows = append(rows, []string{v})
			}
			continue
		}
		next := make([][]string, 0, len(rows)*len(col.Values))
		for _, row := range rows {
			for _, v := range col.Values {
				combo := make([]string, len(row), len(row)+1)
				copy(combo, row)
				next = append(next, append(combo, v))
			}
		}
		rows = next
	}
	return rows
}

// ConfigTable builds the configuration table described by the spec.
func (s *Spec) ConfigTable() *model.ConfigTable {
	return &model.ConfigTable{Name: s.Name, Columns: s.Keys(), Rows: s.Rows()}
}

// Generate parses a specification and returns the generated table.
func Generate(r io.Reader) (*model.ConfigTable, error) {
	spec, err := ParseSpec(r)
	if err != nil {
		return nil, err
	}
	table := spec.ConfigTable()
	logger.Debugf("%s: generated %d rows for table '%s' from %d columns.", moduleName, len(table.Rows), table.Name, len(table.Columns))
	return table, nil
}

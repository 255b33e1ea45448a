package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// KeyColumn is the name of the synthesized primary key column.
const KeyColumn = "id"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsValidIdentifier reports whether name can be used as a table or column name.
func IsValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// ConfigTable is a named relation of text-valued configuration rows.
type ConfigTable struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// HasKeyColumn reports whether the first column is the caller-supplied id column.
func (t *ConfigTable) HasKeyColumn() bool {
	return len(t.Columns) > 0 && strings.EqualFold(t.Columns[0], KeyColumn)
}

// Configuration is one row of a configuration table.
type Configuration struct {
	ID      int64
	Columns []string
	Values  []string
}

// NewConfiguration builds a Configuration from a row whose first value is the key.
func NewConfiguration(columns, values []string) (Configuration, error) {
	if len(values) == 0 {
		return Configuration{}, fmt.Errorf("configuration row has no values")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(values[0]), 10, 64)
	if err != nil {
		return Configuration{}, err
	}
	return Configuration{ID: id, Columns: columns, Values: values}, nil
}

// Get returns the value of a column, matched case-insensitively.
func (c Configuration) Get(column string) (string, bool) {
	for i, name := range c.Columns {
		if strings.EqualFold(name, column) && i < len(c.Values) {
			return c.Values[i], true
		}
	}
	return "", false
}

// RunName is the deterministic run identifier: the row id, suffixed with the tag when present.
func (c Configuration) RunName(tagColumn string) string {
	name := strconv.FormatInt(c.ID, 10)
	if tagColumn == "" {
		return name
	}
	if tag, ok := c.Get(tagColumn); ok && strings.TrimSpace(tag) != "" {
		name += "_" + strings.TrimSpace(tag)
	}
	return name
}

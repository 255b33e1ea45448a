package test

import (
	"strconv"
	"time"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
)

// NewTestTable creates a table with the given columns and rows.
func NewTestTable(name string, columns []string, rows ...[]string) *model.ConfigTable {
	return &model.ConfigTable{Name: name, Columns: columns, Rows: rows}
}

// NewTestConfiguration creates a configuration row keyed by id; values pair up with columns after "id".
func NewTestConfiguration(id int64, columns []string, values ...string) model.Configuration {
	return model.Configuration{
		ID:      id,
		Columns: append([]string{model.KeyColumn}, columns...),
		Values:  append([]string{strconv.FormatInt(id, 10)}, values...),
	}
}

// FixedClock returns a clock that reports t until it is advanced.
type FixedClock struct {
	Now time.Time
}

// Clock returns the current fixed time.
func (c *FixedClock) Clock() time.Time {
	return c.Now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.Now = c.Now.Add(d)
}

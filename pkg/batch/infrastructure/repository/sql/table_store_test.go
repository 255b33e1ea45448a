package sql_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/support/util/tableio"
	"github.com/tigerroll/sweep/pkg/batch/test"
)

func TestCreateTable_SynthesizesKeyAndPadsRows(t *testing.T) {
	store, _ := test.NewSQLiteStore(t)
	ctx := context.Background()

	table := test.NewTestTable("grid", []string{"alpha", "mode"},
		[]string{"0.5", "fast"},
		[]string{"1.5"},
	)
	require.NoError(t, store.CreateTable(ctx, table))

	columns, rows, err := store.GetRows(ctx, "grid", model.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "alpha", "mode"}, columns)
	assert.Equal(t, [][]string{{"1", "0.5", "fast"}, {"2", "1.5", ""}}, rows)
}

func TestCreateTable_ReusesCallerKey(t *testing.T) {
	store, _ := test.NewSQLiteStore(t)
	ctx := context.Background()

	table := test.NewTestTable("runs", []string{"ID", "seed"},
		[]string{"10", "a"},
		[]string{"7", "b"},
	)
	require.NoError(t, store.CreateTable(ctx, table))

	columns, rows, err := store.GetRows(ctx, "runs", model.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "seed"}, columns)
	assert.Equal(t, [][]string{{"7", "b"}, {"10", "a"}}, rows)
}

func TestCreateTable_ImportExportNormalizesKeyHeader(t *testing.T) {
	store, _ := test.NewSQLiteStore(t)
	ctx := context.Background()

	imported, err := tableio.Read(strings.NewReader("runs\nID,Seed\n10,a\n"))
	require.NoError(t, err)
	require.NoError(t, store.CreateTable(ctx, imported))

	columns, rows, err := store.GetRows(ctx, "runs", model.Filter{})
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, tableio.Write(&out, &model.ConfigTable{Name: "runs", Columns: columns, Rows: rows}))
	assert.Equal(t, "runs\nid,Seed\n10,a\n", out.String())

	again, err := tableio.Read(&out)
	require.NoError(t, err)
	require.NoError(t, store.CreateTable(ctx, again))
	_, rowsAgain, err := store.GetRows(ctx, "runs", model.Filter{})
	require.NoError(t, err)
	assert.Equal(t, rows, rowsAgain)
}

func TestCreateTable_ReplacesExistingTable(t *testing.T) {
	store, _ := test.NewSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateTable(ctx, test.NewTestTable("grid", []string{"a"}, []string{"1"}, []string{"2"})))
	require.NoError(t, store.CreateTable(ctx, test.NewTestTable("grid", []string{"b", "c"}, []string{"x", "y"})))

	columns, rows, err := store.GetRows(ctx, "grid", model.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "b", "c"}, columns)
	assert.Equal(t, [][]string{{"1", "x", "y"}}, rows)

	tables, err := store.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"grid"}, tables)
}

func TestCreateTable_InvalidRowsKeepPriorTable(t *testing.T) {
	store, _ := test.NewSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateTable(ctx, test.NewTestTable("grid", []string{"a"}, []string{"1"})))

	err := store.CreateTable(ctx, test.NewTestTable("grid", []string{"id", "a"}, []string{"1", "x"}, []string{"nope", "y"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrMalformedSpec))

	_, rows, err := store.GetRows(ctx, "grid", model.Filter{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "1"}}, rows)
}

func TestCreateTable_RejectsReservedAndMalformedNames(t *testing.T) {
	store, _ := test.NewSQLiteStore(t)
	ctx := context.Background()

	for _, name := range []string{"sessions", "JOBS", "Sessions", test.TestMigrationsTable} {
		err := store.CreateTable(ctx, test.NewTestTable(name, []string{"a"}, []string{"1"}))
		assert.True(t, errors.Is(err, exception.ErrReservedName), "name %s: %v", name, err)
	}

	malformed := []*model.ConfigTable{
		test.NewTestTable("bad-name", []string{"a"}),
		test.NewTestTable("grid", []string{"a b"}),
		test.NewTestTable("grid", []string{"a", "A"}),
		test.NewTestTable("grid", nil),
		test.NewTestTable("grid", []string{"a"}, []string{"1", "2"}),
	}
	for _, table := range malformed {
		err := store.CreateTable(ctx, table)
		assert.True(t, errors.Is(err, exception.ErrMalformedSpec), "table %+v: %v", table, err)
	}

	// The reserved tables are still intact.
	id, err := store.NewSession(ctx, "anything", "", fixedTime, model.Filter{})
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestGetRows_Filters(t *testing.T) {
	store, _ := test.NewSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateTable(ctx, test.NewTestTable("grid", []string{"width", "mode"},
		[]string{"2", "fast"},
		[]string{"10", "slow"},
		[]string{"3", "fastest"},
		[]string{"20", "medium"},
	)))

	cases := []struct {
		name   string
		filter []string
		ids    []string
	}{
		{"numeric ordering", []string{"width>=3"}, []string{"2", "3", "4"}},
		{"equality", []string{"mode=slow"}, []string{"2"}},
		{"not equal", []string{"mode!=slow"}, []string{"1", "3", "4"}},
		{"in list", []string{"mode in fast,medium"}, []string{"1", "4"}},
		{"not in list", []string{"mode notin fast,medium"}, []string{"2", "3"}},
		{"like", []string{"mode like fast%"}, []string{"1", "3"}},
		{"conjunction", []string{"width<15 AND mode like fast%"}, []string{"1", "3"}},
		{"case-insensitive column", []string{"WIDTH=10"}, []string{"2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			filter, err := model.ParseFilter(tc.filter)
			require.NoError(t, err)
			_, rows, err := store.GetRows(ctx, "grid", filter)
			require.NoError(t, err)
			var ids []string
			for _, r := range rows {
				ids = append(ids, r[0])
			}
			assert.Equal(t, tc.ids, ids)
		})
	}
}

func TestGetRows_Errors(t *testing.T) {
	store, _ := test.NewSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateTable(ctx, test.NewTestTable("grid", []string{"a"}, []string{"1"})))

	_, _, err := store.GetRows(ctx, "missing", model.Filter{})
	assert.True(t, errors.Is(err, exception.ErrUnknownTable))

	_, _, err = store.GetRows(ctx, "sessions", model.Filter{})
	assert.True(t, errors.Is(err, exception.ErrUnknownTable))

	filter, err := model.ParseFilter([]string{"nope=1"})
	require.NoError(t, err)
	_, _, err = store.GetRows(ctx, "grid", filter)
	assert.True(t, errors.Is(err, exception.ErrInvalidFilter))
}

func TestListTables_ExcludesReservedTables(t *testing.T) {
	store, _ := test.NewSQLiteStore(t)
	ctx := context.Background()

	tables, err := store.ListTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)

	require.NoError(t, store.CreateTable(ctx, test.NewTestTable("zeta", []string{"a"})))
	require.NoError(t, store.CreateTable(ctx, test.NewTestTable("alpha", []string{"a"})))

	tables, err = store.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, tables)
}

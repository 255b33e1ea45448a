package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	"github.com/tigerroll/sweep/pkg/batch/core/application/usecase"
	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/test"
)

// lineExporter writes one line per row.
type lineExporter struct{}

func (lineExporter) Format() string { return "LINES" }

func (lineExporter) Export(table *model.ConfigTable, w io.Writer) error {
	for _, row := range table.Rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, " ")); err != nil {
			return err
		}
	}
	return nil
}

func TestTableCatalog_Generate(t *testing.T) {
	store := new(test.MockConfigStore)
	recorder := new(test.MockMetricRecorder)
	store.On("CreateTable", mock.Anything, mock.MatchedBy(func(tbl *model.ConfigTable) bool {
		return tbl.Name == "grid" && len(tbl.Rows) == 6 && assert.ObjectsAreEqual([]string{"W", "T"}, tbl.Columns)
	})).Return(nil)
	recorder.On("RecordDuration", mock.Anything, "table.create", mock.Anything, map[string]string{"source": "generate"}).Return()

	catalog := usecase.NewSimpleTableCatalog(store, nil, nil, recorder)
	name, err := catalog.Generate(context.Background(), strings.NewReader("grid\nW|1-3\nT|x,y\n"))
	require.NoError(t, err)
	assert.Equal(t, "grid", name)
	store.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestTableCatalog_GenerateMalformed(t *testing.T) {
	store := new(test.MockConfigStore)
	catalog := usecase.NewSimpleTableCatalog(store, nil, nil, nil)

	_, err := catalog.Generate(context.Background(), strings.NewReader("grid\nW 1-3\n"))
	assert.True(t, errors.Is(err, exception.ErrMalformedSpec))
	store.AssertNotCalled(t, "CreateTable", mock.Anything, mock.Anything)
}

func TestTableCatalog_Export(t *testing.T) {
	store := new(test.MockConfigStore)
	store.On("GetRows", mock.Anything, "grid", model.Filter{}).
		Return([]string{"id", "w"}, [][]string{{"1", "a"}, {"2", "b"}}, nil)
	catalog := usecase.NewSimpleTableCatalog(store, []port.TableExporter{lineExporter{}}, nil, nil)

	assert.Equal(t, []string{"lines"}, catalog.Formats())

	var buf bytes.Buffer
	require.NoError(t, catalog.Export(context.Background(), "grid", "lines", &buf))
	assert.Equal(t, "1 a\n2 b\n", buf.String())

	err := catalog.Export(context.Background(), "grid", "xml", &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: lines")
}

func TestTableCatalog_ExportObject(t *testing.T) {
	store := new(test.MockConfigStore)
	uploader := new(test.MockObjectUploader)
	store.On("GetRows", mock.Anything, "grid", model.Filter{}).Return([]string{"id"}, [][]string{{"1"}}, nil)
	uploader.On("Upload", mock.Anything, "archive", "grid.lines", mock.Anything, "application/octet-stream").Return(nil)

	catalog := usecase.NewSimpleTableCatalog(store, []port.TableExporter{lineExporter{}}, uploader, nil)
	require.NoError(t, catalog.ExportObject(context.Background(), "grid", "lines", "archive", ""))
	uploader.AssertExpectations(t)

	noStorage := usecase.NewSimpleTableCatalog(store, []port.TableExporter{lineExporter{}}, nil, nil)
	assert.Error(t, noStorage.ExportObject(context.Background(), "grid", "lines", "archive", ""))
}

func TestTableCatalog_ListAndRows(t *testing.T) {
	store := new(test.MockConfigStore)
	filter := model.Filter{Conditions: []model.Condition{{Column: "w", Operator: model.OpEq, Values: []string{"a"}}}}
	store.On("ListTables", mock.Anything).Return([]string{"grid", "sizes"}, nil)
	store.On("GetRows", mock.Anything, "grid", filter).Return([]string{"id", "w"}, [][]string{{"1", "a"}}, nil)
	catalog := usecase.NewSimpleTableCatalog(store, nil, nil, nil)

	names, err := catalog.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"grid", "sizes"}, names)

	table, err := catalog.Rows(context.Background(), "grid", filter)
	require.NoError(t, err)
	assert.Equal(t, test.NewTestTable("grid", []string{"id", "w"}, []string{"1", "a"}), table)
}

package tableio_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/support/util/tableio"
)

func TestRead_SkipsLeadingCommentsAndPadsRows(t *testing.T) {
	input := "# exported 2016-01-20\nsolver_runs\nalpha,beta,mode\n1,2,fast\n3\n"

	table, err := tableio.Read(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "solver_runs", table.Name)
	assert.Equal(t, []string{"alpha", "beta", "mode"}, table.Columns)
	assert.Equal(t, [][]string{{"1", "2", "fast"}, {"3", "", ""}}, table.Rows)
}

func TestRead_Malformed(t *testing.T) {
	for name, input := range map[string]string{
		"empty":          "",
		"only comments":  "# a\n# b\n",
		"two-field name": "a,b\nx,y\n",
		"no header":      "table\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tableio.Read(strings.NewReader(input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, exception.ErrMalformedSpec))
		})
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	original := &model.ConfigTable{
		Name:    "grid",
		Columns: []string{"id", "label", "note"},
		Rows: [][]string{
			{"1", "a,b", `quoted "value"`},
			{"2", "", "multi\nline"},
			{"3", "#hash", ""},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, tableio.Write(&buf, original))

	restored, err := tableio.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

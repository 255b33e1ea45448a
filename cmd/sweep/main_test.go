package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/sweep/pkg/batch/core/application/usecase"
	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
)

func TestParseArgs_FlagsAfterPositional(t *testing.T) {
	fs := newFlagSet("run")
	out := fs.String("o", ".", "")
	var filters filterList
	fs.Var(&filters, "filter", "")

	rest, err := parseArgs(fs, []string{"grid", "-o", "out", "--filter", "width>2", "--filter", "mode in a,b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"grid"}, rest)
	assert.Equal(t, "out", *out)
	assert.Equal(t, filterList{"width>2", "mode in a,b"}, filters)
}

func TestRun_UnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"frobnicate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frobnicate")
}

func TestRun_UsageErrorsBeforeStartingTheApplication(t *testing.T) {
	for _, args := range [][]string{
		{"import"},
		{"set-status", "42"},
		{"log", "stop", "42"},
		{"delete"},
		{"delete", "3", "--finished"},
		{"status", "abc"},
		{"export", "grid", "--storage", "archive"},
	} {
		assert.Error(t, run(context.Background(), args), "%v", args)
	}
}

func TestPrintOverview(t *testing.T) {
	var buf bytes.Buffer
	date := time.Date(2016, 1, 20, 14, 5, 9, 0, time.UTC)
	require.NoError(t, printOverview(&buf, []usecase.SessionOverview{
		{Session: model.Session{ID: 1, ConfigGroup: "grid", Date: date}, Total: 4, Queued: 25, Done: 50, Other: 25},
	}, time.UTC))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[1]), "2016-01-20 14:05:09")
	assert.Contains(t, string(lines[1]), "25%")
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTable(&buf, &model.ConfigTable{
		Name:    "grid",
		Columns: []string{"id", "width"},
		Rows:    [][]string{{"1", "3"}},
	}))
	assert.Equal(t, "id  width\n1   3\n", buf.String())
}

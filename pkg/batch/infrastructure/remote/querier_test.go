package remote_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	config "github.com/tigerroll/sweep/pkg/batch/core/config"
	"github.com/tigerroll/sweep/pkg/batch/infrastructure/remote"
	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
)

const qstatOutput = `Job id            Name             User              Time Use S Queue
----------------  ---------------- ----------------  -------- - -----
4242.server1      12_fast          alice             00:01:02 R batch
4243.server1      13_slow          alice                    0 Q batch
4244              14               alice             00:00:00 H long

short line
`

func TestParseQstat(t *testing.T) {
	states, err := remote.ParseQstat(strings.NewReader(qstatOutput))
	require.NoError(t, err)
	assert.Equal(t, []port.SchedulerJobState{
		{ID: "4242", Code: "R"},
		{ID: "4243", Code: "Q"},
		{ID: "4244", Code: "H"},
	}, states)
}

func TestQstatQuerier_Query(t *testing.T) {
	dir := t.TempDir()
	listing := filepath.Join(dir, "listing.txt")
	require.NoError(t, os.WriteFile(listing, []byte(qstatOutput), 0o644))

	querier, err := remote.NewQstatQuerier("cat "+listing, 5*time.Second)
	require.NoError(t, err)

	states, err := querier.Query(context.Background())
	require.NoError(t, err)
	assert.Len(t, states, 3)
}

func TestQstatQuerier_CommandFails(t *testing.T) {
	querier, err := remote.NewQstatQuerier("false", time.Second)
	require.NoError(t, err)

	_, err = querier.Query(context.Background())
	require.Error(t, err)
	assert.True(t, exception.IsBatchError(err))
}

func TestModule_SchedulerDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Sweep.Scheduler.Enabled = false

	launcher, err := remote.NewJobLauncher(cfg)
	require.NoError(t, err)
	assert.IsType(t, &remote.QsubLauncher{}, launcher)

	querier, err := remote.NewSchedulerQuerier(cfg)
	require.NoError(t, err)
	states, err := querier.Query(context.Background())
	require.NoError(t, err)
	assert.Empty(t, states)
}

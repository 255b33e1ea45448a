package remote

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	exception "github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

const querierModule = "QstatQuerier"

// QstatQuerier runs the scheduler's listing command and parses its table output.
type QstatQuerier struct {
	args    []string
	timeout time.Duration
}

// NewQstatQuerier creates a querier for queryCommand, split shell-style.
func NewQstatQuerier(queryCommand string, timeout time.Duration) (*QstatQuerier, error) {
	args, err := shellquote.Split(queryCommand)
	if err != nil {
		return nil, exception.NewBatchErrorf(querierModule, "invalid query command '%s'", queryCommand, err)
	}
	if len(args) == 0 {
		return nil, exception.NewBatchError(querierModule, "query command is empty", nil)
	}
	return &QstatQuerier{args: args, timeout: timeout}, nil
}

// Query implements port.SchedulerQuerier.
func (q *QstatQuerier) Query(ctx context.Context) ([]port.SchedulerJobState, error) {
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, q.args[0], q.args[1:]...)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, exception.NewBatchErrorf(querierModule, "%s failed: %s", q.args[0], strings.TrimSpace(stderr.String()), err)
	}

	states, err := ParseQstat(&stdout)
	if err != nil {
		return nil, exception.NewBatchErrorf(querierModule, "failed to read %s output", q.args[0], err)
	}
	logger.Debugf("%s: scheduler reported %d jobs.", querierModule, len(states))
	return states, nil
}

// ParseQstat reads qstat's default listing. Every line with at least three fields whose first field
// starts with a digit is a job: the id is the first field cut at the first '.', the code is the
// second-to-last field. Header and separator lines never start with a digit.
func ParseQstat(r io.Reader) ([]port.SchedulerJobState, error) {
	var states []port.SchedulerJobState
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		if c := fields[0][0]; c < '0' || c > '9' {
			continue
		}
		id, _, _ := strings.Cut(fields[0], ".")
		states = append(states, port.SchedulerJobState{ID: id, Code: fields[len(fields)-2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return states, nil
}

// idleQuerier reports no jobs. It stands in for the scheduler when submission is disabled.
type idleQuerier struct{}

func (idleQuerier) Query(ctx context.Context) ([]port.SchedulerJobState, error) {
	logger.Warnf("%s: scheduler is disabled; no job states reported.", querierModule)
	return nil, nil
}

var (
	_ port.SchedulerQuerier = (*QstatQuerier)(nil)
	_ port.SchedulerQuerier = idleQuerier{}
)

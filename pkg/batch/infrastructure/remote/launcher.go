package remote

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"

	port "github.com/tigerroll/sweep/pkg/batch/core/application/port"
	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	exception "github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

const launcherModule = "QsubLauncher"

// waitDelay bounds how long a killed command may hold its output pipes open.
const waitDelay = time.Second

// LauncherSettings holds the parts of sweep.launch and sweep.scheduler the launcher needs.
type LauncherSettings struct {
	// SubmitCommand is split shell-style; the script path is appended as the last argument.
	SubmitCommand  string
	CommandTimeout time.Duration
	TagColumn      string
	ConfigPreamble []string
}

// QsubLauncher materializes a run directory for one configuration row and submits its script.
type QsubLauncher struct {
	submitArgs []string
	settings   LauncherSettings
	dryRun     bool
}

// NewQsubLauncher creates a launcher that submits through settings.SubmitCommand.
func NewQsubLauncher(settings LauncherSettings) (*QsubLauncher, error) {
	args, err := shellquote.Split(settings.SubmitCommand)
	if err != nil {
		return nil, exception.NewBatchErrorf(launcherModule, "invalid submit command '%s'", settings.SubmitCommand, err)
	}
	if len(args) == 0 {
		return nil, exception.NewBatchError(launcherModule, "submit command is empty", nil)
	}
	return &QsubLauncher{submitArgs: args, settings: settings}, nil
}

// NewDryRunLauncher creates a launcher that writes every artifact but never submits.
// The rendered script is kept and the job id is "local-<uuid>".
func NewDryRunLauncher(settings LauncherSettings) *QsubLauncher {
	return &QsubLauncher{settings: settings, dryRun: true}
}

// Launch implements port.JobLauncher.
func (l *QsubLauncher) Launch(ctx context.Context, req port.LaunchRequest) (port.LaunchResult, error) {
	runName := req.Row.RunName(l.settings.TagColumn)
	result := port.LaunchResult{ConfigID: req.Row.ID, RunName: runName}

	outputDir, err := filepath.Abs(req.OutputDir)
	if err != nil {
		return result, exception.NewFilesystemError(launcherModule, req.OutputDir, err)
	}
	runDir := filepath.Join(outputDir, runName)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return result, exception.NewFilesystemError(launcherModule, runDir, err)
	}

	configFile := filepath.Join(runDir, runName+".cfg")
	values := l.substitutions(req.Row, runName, runDir, configFile)

	if err := l.writeConfigFile(configFile, req.Row, values); err != nil {
		return result, exception.NewLaunchError(launcherModule, runName, err)
	}

	if req.Template == "" {
		return result, exception.NewLaunchError(launcherModule, runName, fmt.Errorf("no submission template given"))
	}
	raw, err := os.ReadFile(req.Template)
	if err != nil {
		return result, exception.NewLaunchError(launcherModule, runName, err)
	}
	script, err := RenderTemplate(string(raw), values)
	if err != nil {
		return result, exception.NewLaunchError(launcherModule, runName, fmt.Errorf("%s: %w", req.Template, err))
	}
	scriptFile := filepath.Join(runDir, runName+".qsub")
	if err := os.WriteFile(scriptFile, []byte(script), 0o644); err != nil {
		return result, exception.NewLaunchError(launcherModule, runName, err)
	}

	if l.dryRun {
		result.JobID = "local-" + uuid.NewString()
		logger.Infof("%s: dry run, '%s' prepared as %s.", launcherModule, scriptFile, result.JobID)
		return result, nil
	}

	defer func() {
		if err := os.Remove(scriptFile); err != nil {
			logger.Warnf("%s: failed to remove '%s': %v", launcherModule, scriptFile, err)
		}
	}()

	jobID, err := l.submit(ctx, scriptFile)
	if err != nil {
		return result, exception.NewLaunchError(launcherModule, runName, err)
	}
	result.JobID = jobID
	logger.Debugf("%s: '%s' submitted as job '%s'.", launcherModule, runName, jobID)
	return result, nil
}

// substitutions returns the template values: every column, then the run-specific names.
func (l *QsubLauncher) substitutions(row model.Configuration, runName, runDir, configFile string) map[string]string {
	values := make(map[string]string, len(row.Columns)+4)
	for i, column := range row.Columns {
		if i < len(row.Values) {
			values[column] = row.Values[i]
		}
	}
	values["job_name"] = runName
	values["run_dir"] = runDir
	values["shell_out_file"] = filepath.Join(runDir, runName+".o")
	values["config_file"] = configFile
	return values
}

// writeConfigFile writes the preamble and one "key value" line per column except the key and tag columns.
func (l *QsubLauncher) writeConfigFile(path string, row model.Configuration, values map[string]string) error {
	var buf bytes.Buffer
	for _, line := range l.settings.ConfigPreamble {
		rendered, err := RenderTemplate(line, values)
		if err != nil {
			return fmt.Errorf("config preamble: %w", err)
		}
		buf.WriteString(rendered)
		buf.WriteByte('\n')
	}
	for i, column := range row.Columns {
		if strings.EqualFold(column, model.KeyColumn) || (l.settings.TagColumn != "" && strings.EqualFold(column, l.settings.TagColumn)) {
			continue
		}
		value := ""
		if i < len(row.Values) {
			value = row.Values[i]
		}
		fmt.Fprintf(&buf, "%s %s\n", column, value)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return nil
}

func (l *QsubLauncher) submit(ctx context.Context, scriptFile string) (string, error) {
	if l.settings.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.settings.CommandTimeout)
		defer cancel()
	}

	args := append(append([]string{}, l.submitArgs[1:]...), scriptFile)
	cmd := exec.CommandContext(ctx, l.submitArgs[0], args...)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s did not finish: %w", l.submitArgs[0], ctx.Err())
		}
		return "", fmt.Errorf("%s failed: %w: %s", l.submitArgs[0], err, strings.TrimSpace(stderr.String()))
	}
	jobID := strings.TrimSpace(stdout.String())
	if jobID == "" {
		return "", fmt.Errorf("%s returned no job id", l.submitArgs[0])
	}
	return jobID, nil
}

var _ port.JobLauncher = (*QsubLauncher)(nil)

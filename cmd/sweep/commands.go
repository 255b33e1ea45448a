package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tigerroll/sweep/pkg/batch/core/application/usecase"
	model "github.com/tigerroll/sweep/pkg/batch/core/domain/model"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

type command func(ctx context.Context, opts appOptions, args []string) error

var commands = map[string]command{
	"import":     runImport,
	"gen":        runGenerate,
	"tables":     runTables,
	"show":       runShow,
	"export":     runExport,
	"run":        runSession,
	"status":     runStatus,
	"set-status": runSetStatus,
	"set-id":     runSetID,
	"log":        runLog,
	"delete":     runDelete,
	"reconcile":  runReconcile,
	"watch":      runWatch,
}

var stdout io.Writer = os.Stdout

func printUsage() {
	fmt.Println("sweep: parameter-sweep sessions on a batch scheduler")
	fmt.Println()
	fmt.Println("Usage: sweep [--config file] [--env file] <command> [arguments]")
	fmt.Println()
	fmt.Println("Tables:")
	fmt.Println("  import <file>                      import a table from CSV")
	fmt.Println("  gen <spec>                         generate a table from a parameter spec")
	fmt.Println("  tables                             list configuration tables")
	fmt.Println("  show <table> [--filter c]...       print matching rows")
	fmt.Println("  export <table> [-o file] [--format csv|parquet] [--storage ref --object name]")
	fmt.Println()
	fmt.Println("Sessions:")
	fmt.Println("  run [table] [-f file | -g spec] [-o outdir] [-t template] [-n name] [--filter c]...")
	fmt.Println("  status [session]                   reconcile, then report job statuses")
	fmt.Println("  delete <session> | delete --finished")
	fmt.Println()
	fmt.Println("Jobs:")
	fmt.Println("  set-status <job> <status>          overwrite a job status")
	fmt.Println("  set-id <old> <new>                 correct a scheduler job id")
	fmt.Println("  log start|pause|resume|end <job>   record a runtime event")
	fmt.Println("  reconcile                          poll the scheduler once")
	fmt.Println("  watch                              poll the scheduler on reconcile.schedule")
}

// filterList collects repeated --filter flags.
type filterList []string

func (f *filterList) String() string { return strings.Join(*f, " AND ") }

func (f *filterList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

// parseArgs parses fs over args while allowing flags after positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(flag.CommandLine.Output())
	return fs
}

func exactArgs(name string, args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("usage: sweep %s %s", name, usage)
	}
	return nil
}

func runImport(ctx context.Context, opts appOptions, args []string) error {
	rest, err := parseArgs(newFlagSet("import"), args)
	if err != nil {
		return err
	}
	if err := exactArgs("import", rest, 1, "<file>"); err != nil {
		return err
	}
	return withServices(ctx, opts, func(ctx context.Context, s services) error {
		f, err := os.Open(rest[0])
		if err != nil {
			return err
		}
		defer f.Close()
		name, err := s.Catalog.Import(ctx, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Table '%s' imported from %s.\n", name, rest[0])
		return nil
	})
}

func runGenerate(ctx context.Context, opts appOptions, args []string) error {
	rest, err := parseArgs(newFlagSet("gen"), args)
	if err != nil {
		return err
	}
	if err := exactArgs("gen", rest, 1, "<spec>"); err != nil {
		return err
	}
	return withServices(ctx, opts, func(ctx context.Context, s services) error {
		f, err := os.Open(rest[0])
		if err != nil {
			return err
		}
		defer f.Close()
		name, err := s.Catalog.Generate(ctx, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Table '%s' generated from %s.\n", name, rest[0])
		return nil
	})
}

func runTables(ctx context.Context, opts appOptions, args []string) error {
	rest, err := parseArgs(newFlagSet("tables"), args)
	if err != nil {
		return err
	}
	if err := exactArgs("tables", rest, 0, ""); err != nil {
		return err
	}
	return withServices(ctx, opts, func(ctx context.Context, s services) error {
		names, err := s.Catalog.List(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(stdout, name)
		}
		return nil
	})
}

func runShow(ctx context.Context, opts appOptions, args []string) error {
	fs := newFlagSet("show")
	var filters filterList
	fs.Var(&filters, "filter", "row condition such as width>2 or mode in a,b (repeatable)")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := exactArgs("show", rest, 1, "<table> [--filter c]..."); err != nil {
		return err
	}
	filter, err := model.ParseFilter(filters)
	if err != nil {
		return err
	}
	return withServices(ctx, opts, func(ctx context.Context, s services) error {
		table, err := s.Catalog.Rows(ctx, rest[0], filter)
		if err != nil {
			return err
		}
		return printTable(stdout, table)
	})
}

func runExport(ctx context.Context, opts appOptions, args []string) error {
	fs := newFlagSet("export")
	output := fs.String("o", "", "output file (default standard output)")
	format := fs.String("format", "csv", "output format: csv or parquet")
	storageRef := fs.String("storage", "", "storage connection to upload to")
	object := fs.String("object", "", "object name in the storage connection")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := exactArgs("export", rest, 1, "<table> [-o file] [--format csv|parquet] [--storage ref --object name]"); err != nil {
		return err
	}
	if (*storageRef == "") != (*object == "") {
		return errors.New("--storage and --object must be given together")
	}
	if *storageRef != "" && *output != "" {
		return errors.New("-o cannot be combined with --storage")
	}
	return withServices(ctx, opts, func(ctx context.Context, s services) error {
		if *storageRef != "" {
			if err := s.Catalog.ExportObject(ctx, rest[0], *format, *storageRef, *object); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Table '%s' uploaded to %s:%s.\n", rest[0], *storageRef, *object)
			return nil
		}
		if *output == "" {
			return s.Catalog.Export(ctx, rest[0], *format, stdout)
		}
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		if err := s.Catalog.Export(ctx, rest[0], *format, f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

func runSession(ctx context.Context, opts appOptions, args []string) error {
	fs := newFlagSet("run")
	importFile := fs.String("f", "", "import this table file before running")
	specFile := fs.String("g", "", "generate the table from this spec before running")
	outputDir := fs.String("o", ".", "output directory")
	template := fs.String("t", "", "submission template (default launch.template)")
	name := fs.String("n", "", "session name (default the session timestamp)")
	var filters filterList
	fs.Var(&filters, "filter", "row condition (repeatable)")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(rest) > 1 {
		return errors.New("usage: sweep run [table] [-f file | -g spec] [-o outdir] [-t template] [-n name] [--filter c]...")
	}
	filter, err := model.ParseFilter(filters)
	if err != nil {
		return err
	}
	req := usecase.RunRequest{
		ImportFile:  *importFile,
		SpecFile:    *specFile,
		Filter:      filter,
		OutputDir:   *outputDir,
		Template:    *template,
		SessionName: *name,
	}
	if len(rest) == 1 {
		req.Table = rest[0]
	}

	return withServices(ctx, opts, func(ctx context.Context, s services) error {
		result, err := s.Sessions.Run(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Session %d started on '%s': %d of %d jobs submitted.\n",
			result.Session.ID, result.Session.ConfigGroup, result.Recorded, result.Selected)
		fmt.Fprintf(stdout, "Run directory: %s\n", result.RunDir)
		if result.LaunchErrors != nil {
			for _, launchErr := range result.LaunchErrors.Errors {
				logger.Warnf("Launch failed: %v", launchErr)
			}
			fmt.Fprintf(stdout, "%d launches failed.\n", result.Failed())
		}
		return nil
	})
}

func runStatus(ctx context.Context, opts appOptions, args []string) error {
	rest, err := parseArgs(newFlagSet("status"), args)
	if err != nil {
		return err
	}
	if len(rest) > 1 {
		return errors.New("usage: sweep status [session]")
	}
	var sessionID int64
	if len(rest) == 1 {
		if sessionID, err = parseSessionID(rest[0]); err != nil {
			return err
		}
	}

	return withServices(ctx, opts, func(ctx context.Context, s services) error {
		if s.Cfg.Sweep.Scheduler.Enabled {
			if _, err := s.Reconciler.Reconcile(ctx); err != nil {
				logger.Warnf("Reconciliation before status failed: %v", err)
			}
		}
		loc := displayLocation(s.Cfg.Sweep.System.Timezone)
		if len(rest) == 1 {
			report, err := s.Reports.Summarize(ctx, sessionID)
			if err != nil {
				return err
			}
			return printSessionReport(stdout, report, loc)
		}
		overview, err := s.Reports.Overview(ctx)
		if err != nil {
			return err
		}
		return printOverview(stdout, overview, loc)
	})
}

func runSetStatus(ctx context.Context, opts appOptions, args []string) error {
	rest, err := parseArgs(newFlagSet("set-status"), args)
	if err != nil {
		return err
	}
	if err := exactArgs("set-status", rest, 2, "<job> <status>"); err != nil {
		return err
	}
	return withServices(ctx, opts, func(ctx context.Context, s services) error {
		if err := s.Operator.SetStatus(ctx, rest[0], rest[1]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Job %s set to %s.\n", rest[0], rest[1])
		return nil
	})
}

func runSetID(ctx context.Context, opts appOptions, args []string) error {
	rest, err := parseArgs(newFlagSet("set-id"), args)
	if err != nil {
		return err
	}
	if err := exactArgs("set-id", rest, 2, "<old> <new>"); err != nil {
		return err
	}
	return withServices(ctx, opts, func(ctx context.Context, s services) error {
		if err := s.Operator.SetJobID(ctx, rest[0], rest[1]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Job %s renamed to %s.\n", rest[0], rest[1])
		return nil
	})
}

func runLog(ctx context.Context, opts appOptions, args []string) error {
	rest, err := parseArgs(newFlagSet("log"), args)
	if err != nil {
		return err
	}
	if err := exactArgs("log", rest, 2, "start|pause|resume|end <job>"); err != nil {
		return err
	}
	event, ok := model.ParseRuntimeEvent(rest[0])
	if !ok {
		return fmt.Errorf("unknown runtime event %q (expected start, pause, resume or end)", rest[0])
	}
	return withServices(ctx, opts, func(ctx context.Context, s services) error {
		return s.Operator.LogEvent(ctx, event, rest[1])
	})
}

func runDelete(ctx context.Context, opts appOptions, args []string) error {
	fs := newFlagSet("delete")
	finished := fs.Bool("finished", false, "delete every session whose jobs are all done")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if *finished == (len(rest) == 1) || len(rest) > 1 {
		return errors.New("usage: sweep delete <session> | sweep delete --finished")
	}

	return withServices(ctx, opts, func(ctx context.Context, s services) error {
		if *finished {
			ids, err := s.Operator.DeleteFinishedSessions(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%d finished sessions deleted.\n", len(ids))
			return nil
		}
		sessionID, err := parseSessionID(rest[0])
		if err != nil {
			return err
		}
		if err := s.Operator.DeleteSession(ctx, sessionID); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Session %d deleted.\n", sessionID)
		return nil
	})
}

func runReconcile(ctx context.Context, opts appOptions, args []string) error {
	rest, err := parseArgs(newFlagSet("reconcile"), args)
	if err != nil {
		return err
	}
	if err := exactArgs("reconcile", rest, 0, ""); err != nil {
		return err
	}
	return withServices(ctx, opts, func(ctx context.Context, s services) error {
		result, err := s.Reconciler.Reconcile(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%d known jobs: %d reported, %d updated, %d unmapped, %d absent.\n",
			result.Known, result.Reported, result.Updated, result.Unmapped, result.Absent)
		return nil
	})
}

func runWatch(ctx context.Context, opts appOptions, args []string) error {
	rest, err := parseArgs(newFlagSet("watch"), args)
	if err != nil {
		return err
	}
	if err := exactArgs("watch", rest, 0, ""); err != nil {
		return err
	}
	return withServices(ctx, opts, func(ctx context.Context, s services) error {
		logger.Infof("Watching scheduler on schedule '%s'. Press Ctrl+C to stop.", s.Cfg.Sweep.Reconcile.Schedule)
		return s.Scheduler.Run(ctx)
	})
}

func parseSessionID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id %q", raw)
	}
	return id, nil
}

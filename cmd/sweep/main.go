// Command sweep manages parameter-sweep sessions on a PBS-style batch scheduler.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	"github.com/tigerroll/sweep/pkg/batch/support/util/exception"
	"github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

// embeddedConfig holds the default application configuration.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		logger.Debugf("Command failed: %v", err)
		fmt.Fprintln(os.Stderr, "error:", exception.ExtractErrorMessage(err))
		stop()
		os.Exit(1)
	}
}

// run parses the global flags and dispatches to the named command.
func run(ctx context.Context, args []string) error {
	global := flag.NewFlagSet("sweep", flag.ContinueOnError)
	configPath := global.String("config", os.Getenv("SWEEP_CONFIG"), "configuration file (YAML, or TOML with a .toml extension)")
	envPath := global.String("env", os.Getenv("ENV_FILE_PATH"), "dotenv file loaded before the configuration")
	global.Usage = printUsage
	if err := global.Parse(args); err != nil {
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		printUsage()
		return nil
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		if rest[0] == "help" || rest[0] == "-h" || rest[0] == "--help" {
			printUsage()
			return nil
		}
		printUsage()
		return fmt.Errorf("unknown command %q", rest[0])
	}

	opts := appOptions{
		envFilePath:    *envPath,
		configFilePath: *configPath,
		embeddedConfig: embeddedConfig,
	}
	return cmd(ctx, opts, rest[1:])
}

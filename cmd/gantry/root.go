package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// logger is the operator-facing logger. Guest console output and bootstrap
// warnings bypass it: their formats are part of the runtime contract.
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "gantry",
})

// engineOptions holds the boot options swept from -E arguments by main.
var engineOptions []string

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

var rootCmd = &cobra.Command{
	Use:   "gantry",
	Short: "Run data-pipeline plugins in an embedded JavaScript runtime",
	Long: `gantry hosts its pipeline plugins and control scripts in a single,
process-wide embedded JavaScript runtime.

Engine tuning flags are passed through with -E, for example:

  gantry -E--dev run plugin/

Dependency resolution uses the bundle directory from -b/--bundle (or
GANTRY_BUNDLE_PATH) when present, and the GANTRY_PKG_HOME/GANTRY_PKG_PATH
default roots otherwise.`,
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. engineOpts are the boot options swept from -E
// arguments; args is the remaining command line.
func Execute(engineOpts, args []string) {
	engineOptions = engineOpts
	rootCmd.SetArgs(args)

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

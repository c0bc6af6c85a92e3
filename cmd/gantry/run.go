package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gantrydata/gantry"
	"github.com/gantrydata/gantry/internal/config"
	"github.com/gantrydata/gantry/internal/core"
	"github.com/spf13/cobra"
)

var bundleFlag string

var runCmd = &cobra.Command{
	Use:   "run <script|plugin-dir>",
	Short: "Evaluate a script or plugin in the configured runtime",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if bundleFlag != "" {
			// Launcher contract: the bundle selection reaches the runtime
			// through the environment, established before Setup runs.
			if err := os.Setenv("GANTRY_BUNDLE_PATH", bundleFlag); err != nil {
				return err
			}
			cfg.BundlePath = bundleFlag
		}

		source, err := gantry.BundleScript(args[0])
		if err != nil {
			return fmt.Errorf("preparing %s: %w", args[0], err)
		}

		logger.Debug("bootstrapping runtime",
			"bundled", cfg.BundlePath != "",
			"engine_options", len(engineOptions))

		ctx, err := gantry.SetupWithOptions(gantry.SetupOptions{
			EngineOptions: engineOptions,
			BundlePath:    cfg.BundlePath,
			Warn:          os.Stderr,
			Config:        core.EngineConfig{MemoryLimitMB: cfg.MemoryLimitMB},
			DataDir:       cfg.DataDir,
		})
		if err != nil {
			var cmdErr *gantry.CommandLineError
			if errors.As(err, &cmdErr) {
				// Broken packaging or unsupported environment: no safe default.
				logger.Error("bootstrap failed", "err", cmdErr.Message)
				return &ExitError{Code: 64, Err: err}
			}
			return err
		}

		if err := ctx.Eval(source); err != nil {
			return &ExitError{Code: 1, Err: fmt.Errorf("running %s: %w", args[0], err)}
		}
		ctx.Runtime().RunMicrotasks()
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&bundleFlag, "bundle", "b", "",
		"bundle directory for bundled dependency resolution (overrides GANTRY_BUNDLE_PATH)")
	rootCmd.AddCommand(runCmd)
}

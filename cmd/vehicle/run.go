package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/caffeineduck/vehicle/executor"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run an entry module",
	Long: `Run an entry module and everything it imports.

The process exits once the module has been evaluated and no timer, accept,
read or other async operation is pending. An uncaught exception or an
unhandled promise rejection stops the run with a non-zero exit status.
Ctrl+C cancels the run.`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runRun,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", 0, "Execution timeout (0 = none)")
	cmd.Flags().Int64("fs-max-file", 10*1024*1024, "Max file read size")
	cmd.Flags().Int64("fs-max-write", 10*1024*1024, "Max file write size")
	cmd.Flags().Int("fs-max-path", 4096, "Max path length")
}

func runRun(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		cmd.SetOut(cmd.ErrOrStderr())
		cmd.Usage()
		return errUsage
	}

	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	exec, err := newExecutor(cfg, log,
		executor.WithStdout(cmd.OutOrStdout()),
		executor.WithStderr(cmd.ErrOrStderr()),
	)
	if err != nil {
		return err
	}
	defer exec.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var opts []executor.Option
	if cfg.Timeout > 0 {
		opts = append(opts, executor.WithTimeout(time.Duration(cfg.Timeout)))
	}

	result := exec.RunFile(ctx, args[0], opts...)
	return result.Error
}

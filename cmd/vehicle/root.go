package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caffeineduck/vehicle/executor"
	"github.com/caffeineduck/vehicle/hostfunc"
	"github.com/caffeineduck/vehicle/internal/config"
	"github.com/caffeineduck/vehicle/internal/logging"
	"github.com/caffeineduck/vehicle/loader"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// errUsage signals that usage was already printed.
var errUsage = errors.New("usage")

var errorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#FF6B6B")).
	Bold(true)

var rootCmd = &cobra.Command{
	Use:   "vehicle [file]",
	Short: "Run JavaScript and TypeScript modules",
	Long: `vehicle - Run JavaScript and TypeScript modules with native file, timer
and TCP capabilities.

Modules are loaded from the local filesystem. TypeScript, JSX and TSX are
transpiled on the fly; JSON files can be imported as data. Scripts reach the
host through the global "vehicle" object.`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runRun,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errUsage) {
			printError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console, json")

	// The root command runs files like "run" does.
	addRunFlags(rootCmd)
}

// printError writes "error: ..." to w, styled when w is a terminal.
func printError(w io.Writer, err error) {
	msg := "error: " + err.Error()
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		msg = errorStyle.Render("error:") + " " + err.Error()
	}
	fmt.Fprintln(w, msg)
}

// settings resolves the config file and flag overrides.
func settings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.Log.Level = f.Value.String()
	}
	if f := cmd.Flags().Lookup("log-format"); f != nil && f.Changed {
		cfg.Log.Format = f.Value.String()
	}
	if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
		d, _ := cmd.Flags().GetDuration("timeout")
		cfg.Timeout = config.Duration(d)
	}
	if f := cmd.Flags().Lookup("fs-max-file"); f != nil && f.Changed {
		cfg.FS.MaxFileSize, _ = cmd.Flags().GetInt64("fs-max-file")
	}
	if f := cmd.Flags().Lookup("fs-max-write"); f != nil && f.Changed {
		cfg.FS.MaxWriteSize, _ = cmd.Flags().GetInt64("fs-max-write")
	}
	if f := cmd.Flags().Lookup("fs-max-path"); f != nil && f.Changed {
		cfg.FS.MaxPathLength, _ = cmd.Flags().GetInt("fs-max-path")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
}

// newExecutor builds an executor from cfg. Extra options come last so they
// win.
func newExecutor(cfg *config.Config, log *zap.Logger, opts ...executor.ExecutorOption) (*executor.Executor, error) {
	base := []executor.ExecutorOption{
		executor.WithLogger(log),
		executor.WithLoader(loader.New(loader.WithLogger(log.Named("loader")))),
		executor.WithOutputLimit(cfg.OutputLimit),
		executor.WithFSOptions(
			hostfunc.WithMaxFileSize(cfg.FS.MaxFileSize),
			hostfunc.WithMaxWriteSize(cfg.FS.MaxWriteSize),
			hostfunc.WithMaxPathLength(cfg.FS.MaxPathLength),
		),
	}
	return executor.New(hostfunc.DefaultRegistry(), append(base, opts...)...)
}

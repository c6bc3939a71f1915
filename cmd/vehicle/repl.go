package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/vehicle/executor"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive REPL with persistent state",
	Long: `Start an interactive REPL (Read-Eval-Print Loop) session.

Input is TypeScript. Declarations persist between lines, and async work a
line starts (timers, accepts, reads) runs to completion before the next
prompt. Modules can be loaded with import("./file.ts").

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)
  - Multi-line input (end line with \)

Type 'exit' or 'quit' to end the session, or press Ctrl+D.
When stdin is not a terminal, each input line is evaluated in turn.`,
	Args:          cobra.NoArgs,
	RunE:          runRepl,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	replCmd.Flags().String("history", "", "History file path (default: ~/.vehicle_history)")
	replCmd.Flags().Duration("timeout", 0, "Per-input timeout (0 = none)")
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	exec, err := newExecutor(cfg, log)
	if err != nil {
		return err
	}
	defer exec.Close()

	session, err := exec.NewSession(executor.WithSessionTimeout(cfg.Timeout.Std()))
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.Close()

	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		historyFile = cfg.REPL.HistoryFile
	}
	if historyFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			historyFile = filepath.Join(home, ".vehicle_history")
		}
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return interactive(cmd, session, historyFile)
	}
	return batch(cmd, session, in)
}

// evalLine runs one input and prints its output, value and error.
func evalLine(cmd *cobra.Command, session *executor.Session, line string) {
	result := session.Run(context.Background(), line)

	out := cmd.OutOrStdout()
	if result.Output != "" {
		fmt.Fprint(out, result.Output)
		if !strings.HasSuffix(result.Output, "\n") {
			fmt.Fprintln(out)
		}
	}
	if result.Value != "" {
		fmt.Fprintln(out, result.Value)
	}
	if result.Error != nil {
		printError(cmd.ErrOrStderr(), result.Error)
	}
}

func batch(cmd *cobra.Command, session *executor.Session, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var multiLine strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasSuffix(line, "\\") {
			multiLine.WriteString(strings.TrimSuffix(line, "\\"))
			multiLine.WriteString("\n")
			continue
		}
		if multiLine.Len() > 0 {
			multiLine.WriteString(line)
			line = multiLine.String()
			multiLine.Reset()
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		evalLine(cmd, session, line)
	}
	return scanner.Err()
}

func interactive(cmd *cobra.Command, session *executor.Session, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(cmd.ErrOrStderr(), "vehicle REPL (type 'exit' to quit, Ctrl+D to exit)")

	var multiLine strings.Builder
	inMultiLine := false

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if inMultiLine {
					multiLine.Reset()
					inMultiLine = false
					rl.SetPrompt("> ")
				}
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		// Handle multi-line input
		if strings.HasSuffix(line, "\\") {
			multiLine.WriteString(strings.TrimSuffix(line, "\\"))
			multiLine.WriteString("\n")
			inMultiLine = true
			rl.SetPrompt("... ")
			continue
		}

		if inMultiLine {
			multiLine.WriteString(line)
			line = multiLine.String()
			multiLine.Reset()
			inMultiLine = false
			rl.SetPrompt("> ")
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		evalLine(cmd, session, line)
	}
}

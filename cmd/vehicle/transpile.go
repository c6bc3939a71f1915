package main

import (
	"context"
	"fmt"

	"github.com/caffeineduck/vehicle/loader"
	"github.com/spf13/cobra"
)

var transpileCmd = &cobra.Command{
	Use:   "transpile <file>",
	Short: "Print a module as the loader prepares it",
	Long: `Load a module the way "run" would and print the resulting text.

The module's kind and media type are printed to stderr. TypeScript, JSX and
files without a known extension come out transpiled; JavaScript and JSON are
printed as read.`,
	Args:          cobra.ExactArgs(1),
	RunE:          runTranspile,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.AddCommand(transpileCmd)
}

func runTranspile(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	u, err := loader.ResolvePath(args[0])
	if err != nil {
		return err
	}

	src, err := loader.New(loader.WithLogger(log)).Load(context.Background(), u)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (%s, transpiled: %t)\n", src.Specifier, src.Kind, src.Media, src.Transpiled)
	fmt.Fprint(cmd.OutOrStdout(), src.Code)
	return nil
}

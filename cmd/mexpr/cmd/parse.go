package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	mdweval "github.com/msto63/mExpr/foundation/expr/eval"
	"github.com/msto63/mExpr/internal/repl"
)

var parseFormat string

var parseCmd = &cobra.Command{
	Use:   "parse [expression]",
	Short: "Print the syntax tree of an expression",
	Long: `Parses one expression and prints its syntax tree.

All arguments are joined into one expression. Without arguments every
non-blank line of stdin is parsed on its own.

Examples:
  mexpr parse "1 + 2 * 3"              # (1 + (2 * 3))
  mexpr parse -f tree "a = -(b + 1)"
  echo "x * (y - 1)" | mexpr parse -f json`,
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "", "output format: canonical, tree, json or yaml (default from config)")
}

func runParse(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	var inputs []string
	if len(args) > 0 {
		inputs = []string{strings.Join(args, " ")}
	} else {
		if cmd.InOrStdin() == os.Stdin && stdinIsTerminal() {
			return errors.New("no expression given")
		}
		if inputs, err = readInputs(nil, cmd.InOrStdin()); err != nil {
			return err
		}
	}

	return processAll(cmd, a, repl.ModeParse, parseFormat, inputs, nil)
}

// processAll runs inputs through one session and stops at the first
// rejected line
func processAll(cmd *cobra.Command, a *app, mode repl.Mode, format string, inputs []string, env *mdweval.Env) error {
	if format == "" {
		format = a.cfg.REPL.Output
	}
	f, err := repl.ParseFormat(format)
	if err != nil {
		return err
	}

	session, err := repl.NewSession(repl.Options{
		Engine: a.engine,
		Env:    env,
		Mode:   mode,
		Format: f,
		Logger: a.logger,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, input := range inputs {
		result := session.ProcessContext(cmd.Context(), input)
		if result.Failed() {
			fmt.Fprintln(cmd.ErrOrStderr(), result.Output)
			return errReported
		}
		if result.Output != "" {
			fmt.Fprintln(out, result.Output)
		}
	}
	return nil
}

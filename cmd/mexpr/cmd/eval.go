package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	mdwast "github.com/msto63/mExpr/foundation/expr/ast"
	mdweval "github.com/msto63/mExpr/foundation/expr/eval"
	"github.com/msto63/mExpr/internal/repl"
	"github.com/msto63/mExpr/pkg/core/logging"
)

var (
	evalFormat string
	evalVars   []string
	evalShow   bool
)

var evalCmd = &cobra.Command{
	Use:   "eval [expression...]",
	Short: "Evaluate expressions in one shared environment",
	Long: `Evaluates each argument as one expression. All expressions share one
variable environment, so earlier assignments are visible to later ones.
Without arguments every non-blank line of stdin is evaluated.

Examples:
  mexpr eval "1 + 2 * 3"                # 7
  mexpr eval "r = 2" "3 * r * r"        # 2, 12
  mexpr eval --set x=4 "x / 2"
  mexpr eval -f json "a = 10 / 4"`,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringVarP(&evalFormat, "format", "f", "", "output format: canonical, tree, json or yaml (default from config)")
	evalCmd.Flags().StringArrayVar(&evalVars, "set", nil, "predefine a variable as name=expression (repeatable)")
	evalCmd.Flags().BoolVar(&evalShow, "vars", false, "print the variables after the last expression")
}

func runEval(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	if len(args) == 0 && cmd.InOrStdin() == os.Stdin && stdinIsTerminal() {
		return errors.New("no expression given")
	}
	inputs, err := readInputs(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	env := mdweval.NewEnv()
	for _, assignment := range evalVars {
		name, value, ok := strings.Cut(assignment, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid --set %q, want name=expression", assignment)
		}
		if _, err := a.engine.Evaluate(assignment, env); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), repl.FormatError(err, assignment))
			return errReported
		}
		a.logger.Debug("variable predefined", logging.ToFields("name", strings.TrimSpace(name), "expression", strings.TrimSpace(value)))
	}

	if err := processAll(cmd, a, repl.ModeEval, evalFormat, inputs, env); err != nil {
		return err
	}

	if evalShow {
		out := cmd.OutOrStdout()
		for _, name := range env.Names() {
			value, _ := env.Get(name)
			fmt.Fprintf(out, "%-20s %s\n", name, mdwast.FormatNumber(value))
		}
	}
	return nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	mdwregistry "github.com/msto63/mExpr/foundation/expr/registry"
)

var (
	grammarFile   string
	grammarFormat string
)

var grammarCmd = &cobra.Command{
	Use:   "grammar",
	Short: "Show or check grammars",
	Long: `A grammar lists, per token kind, a prefix role (literal, identifier,
unary or group) and an infix role (binary) with precedence and
associativity. Grammar files are YAML (.yaml, .yml) or TOML (.toml).

Examples:
  mexpr grammar show
  mexpr grammar show --format yaml > grammar.yaml
  mexpr grammar check configs/grammar.yaml`,
}

var grammarShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active grammar",
	Args:  cobra.NoArgs,
	RunE:  runGrammarShow,
}

var grammarCheckCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate a grammar file",
	Args:  cobra.ExactArgs(1),
	RunE:  runGrammarCheck,
}

func init() {
	rootCmd.AddCommand(grammarCmd)
	grammarCmd.AddCommand(grammarShowCmd, grammarCheckCmd)

	grammarShowCmd.Flags().StringVar(&grammarFile, "file", "", "grammar file (default: parser.grammar_file or the built-in grammar)")
	grammarShowCmd.Flags().StringVarP(&grammarFormat, "format", "f", "table", "output format: table, yaml, toml or json")
}

func runGrammarShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	reg := a.engine.Registry()
	if grammarFile != "" {
		if reg, err = buildGrammar(grammarFile, a); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(grammarFormat) {
	case "table":
		fmt.Fprintf(out, "Grammar: %s\n\n", reg.Name())
		fmt.Fprintf(out, "%-12s %-8s %-8s %-10s %-8s %s\n", "KIND", "SYMBOL", "POSITION", "ROLE", "PREC", "ASSOC")
		fmt.Fprintln(out, strings.Repeat("-", 60))
		for _, e := range mdwregistry.Describe(reg) {
			fmt.Fprintf(out, "%-12s %-8s %-8s %-10s %-8d %s\n",
				e.Kind, e.Kind.Symbol(), e.Position, e.Role, e.Precedence, e.Assoc)
		}
		return nil
	case "json":
		data, err := json.MarshalIndent(mdwregistry.FromRegistry(reg), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	default:
		data, err := mdwregistry.FromRegistry(reg).Encode(grammarFormat)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
		return nil
	}
}

func runGrammarCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	reg, err := buildGrammar(args[0], a)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: grammar %q is valid (%d registrations)\n",
		args[0], reg.Name(), len(reg.Entries()))
	return nil
}

func buildGrammar(path string, a *app) (*mdwregistry.Registry, error) {
	grammar, err := mdwregistry.LoadGrammar(path)
	if err != nil {
		return nil, err
	}
	return grammar.Build(a.logger)
}

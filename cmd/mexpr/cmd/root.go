package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	"github.com/msto63/mExpr/foundation/expr"
	"github.com/msto63/mExpr/pkg/core/config"
	"github.com/msto63/mExpr/pkg/core/logging"
)

var (
	cfgFile string
	verbose bool
)

// errReported marks a failure whose message was already written
var errReported = errors.New("input rejected")

var rootCmd = &cobra.Command{
	Use:   "mexpr",
	Short: "mExpr - extensible expression parser",
	Long: `mExpr parses arithmetic expressions with a table driven Pratt parser.
The grammar is a registry of parselets that can be replaced by a YAML or
TOML grammar file.

Commands:
  parse    - print the syntax tree of an expression
  eval     - evaluate expressions in one shared environment
  repl     - interactive session (line based or --tui)
  serve    - websocket (and optional gRPC) expression service
  health   - query a running service over gRPC
  history  - inspect the recorded REPL history
  grammar  - show the active grammar`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errReported) {
		printError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $MEXPR_CONFIG or ./configs/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}

// app bundles what every command needs
type app struct {
	cfg    *config.Config
	logger *mdwlog.Logger
	engine *expr.Engine
}

// loadConfig resolves --config, then MEXPR_CONFIG and the default locations,
// then the built-in defaults
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.LoadFromEnv()
		if errors.Is(err, config.ErrNoConfig) {
			cfg, err = config.Default(), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.NewCLILogger("mexpr", cfg.General.LogLevel, cfg.General.LogFormat, verbose).
		WithOutput(cmd.ErrOrStderr())
	mdwlog.SetDefault(logger)

	engine, err := expr.New(expr.Options{
		Logger:         logger,
		GrammarFile:    cfg.Parser.GrammarFile,
		MaxDepth:       cfg.Parser.MaxDepth,
		MaxInputLength: cfg.Parser.MaxInputLength,
		AllowTrailing:  !*cfg.Parser.RequireFullInput,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded", logging.ToFields(
		"grammar", engine.Registry().Name(),
		"history", cfg.HistoryEnabled(),
	))

	return &app{cfg: cfg, logger: logger, engine: engine}, nil
}

// readInputs returns args, or the non-blank lines of in when there are none
func readInputs(args []string, in io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	var inputs []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if expr.IsBlank(line) {
			continue
		}
		inputs = append(inputs, strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if len(inputs) == 0 {
		return nil, errors.New("no expression given")
	}
	return inputs, nil
}

// stdinIsTerminal reports whether os.Stdin is interactive
func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

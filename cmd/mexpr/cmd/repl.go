package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/msto63/mExpr/internal/repl"
	"github.com/msto63/mExpr/internal/tui"
)

var (
	replTUI       bool
	replMode      string
	replFormat    string
	replNoHistory bool
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Long: `Starts an interactive expression session.

Every line is parsed (mode parse) or evaluated (mode eval). Lines starting
with ':' are commands:
  :mode parse|eval   switch mode
  :format FORMAT     canonical, tree, json or yaml
  :vars              list variables
  :reset             clear variables
  :grammar           list the registered parselets
  :help, :quit

With --tui the session runs in a terminal UI:
  Tab      - switch views (session, variables, grammar)
  Enter    - process the line
  Up/Down  - recall earlier input
  Ctrl+E   - toggle parse/eval
  Ctrl+F   - cycle output format
  Ctrl+L   - clear the transcript
  Esc      - quit`,
	Args: cobra.NoArgs,
	RunE: runREPL,
}

func init() {
	rootCmd.AddCommand(replCmd)
	replCmd.Flags().BoolVar(&replTUI, "tui", false, "start the terminal UI")
	replCmd.Flags().StringVarP(&replMode, "mode", "m", "", "initial mode: parse or eval (default from config)")
	replCmd.Flags().StringVarP(&replFormat, "format", "f", "", "initial output format (default from config)")
	replCmd.Flags().BoolVar(&replNoHistory, "no-history", false, "do not record lines in the history store")
}

func runREPL(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	mode := a.cfg.REPL.Mode
	if replMode != "" {
		mode = replMode
	}
	m, err := repl.ParseMode(mode)
	if err != nil {
		return err
	}
	format := a.cfg.REPL.Output
	if replFormat != "" {
		format = replFormat
	}
	f, err := repl.ParseFormat(format)
	if err != nil {
		return err
	}

	opts := repl.Options{
		Engine: a.engine,
		Mode:   m,
		Format: f,
		Logger: a.logger,
	}

	if a.cfg.HistoryEnabled() && !replNoHistory {
		history, err := openHistory(cmd.Context(), a)
		if err != nil {
			a.logger.WarnWithErr("history disabled", err)
		} else {
			defer history.Close()
			opts.Recorder = history
		}
	}

	session, err := repl.NewSession(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if replTUI {
		return tui.Run(ctx, session)
	}

	err = session.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), repl.RunOptions{
		Prompt: a.cfg.REPL.Prompt,
		Banner: true,
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

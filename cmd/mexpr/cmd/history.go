package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/mExpr/internal/history/store"
	"github.com/msto63/mExpr/pkg/core/logging"
)

var (
	historySession  string
	historyMode     string
	historyErrors   bool
	historyContains string
	historyLimit    int
	historySince    time.Duration

	pruneOlderThan time.Duration
	pruneVacuum    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the recorded REPL history",
	Long: `Inspects the SQLite history store. REPL and service sessions record
every processed line with its mode, output and error code.

Examples:
  mexpr history list --limit 50
  mexpr history list --errors --mode eval
  mexpr history sessions
  mexpr history stats
  mexpr history prune --older-than 168h`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded lines, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historySessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions",
	Args:  cobra.NoArgs,
	RunE:  runHistorySessions,
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show history statistics",
	Args:  cobra.NoArgs,
	RunE:  runHistoryStats,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old history entries",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historySessionsCmd, historyStatsCmd, historyPruneCmd)

	historyListCmd.Flags().StringVarP(&historySession, "session", "s", "", "only lines of this session")
	historyListCmd.Flags().StringVarP(&historyMode, "mode", "m", "", "only lines of this mode (parse or eval)")
	historyListCmd.Flags().BoolVarP(&historyErrors, "errors", "e", false, "only rejected lines")
	historyListCmd.Flags().StringVarP(&historyContains, "contains", "c", "", "only lines whose input contains this text")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of lines (0 = all)")
	historyListCmd.Flags().DurationVar(&historySince, "since", 0, "only lines newer than this duration")

	historyPruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "age limit (default: history.retention from config)")
	historyPruneCmd.Flags().BoolVar(&pruneVacuum, "vacuum", false, "compact the database afterwards")
}

// openHistory opens the configured SQLite store and applies the retention
func openHistory(ctx context.Context, a *app) (*store.SQLiteStore, error) {
	history, err := store.NewSQLiteStore(store.SQLiteConfig{Path: a.cfg.History.Path})
	if err != nil {
		return nil, err
	}

	if retention := a.cfg.History.Retention.Duration; retention > 0 {
		removed, err := history.Prune(ctx, retention)
		if err != nil {
			a.logger.WarnWithErr("failed to apply history retention", err)
		} else if removed > 0 {
			a.logger.Info("history pruned", logging.ToFields("removed", removed, "retention", retention.String()))
		}
	}

	a.logger.Debug("history store opened", logging.ToFields("path", a.cfg.History.Path))
	return history, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	history, err := openHistory(cmd.Context(), a)
	if err != nil {
		return err
	}
	defer history.Close()

	filter := store.Filter{
		SessionID:  historySession,
		Mode:       store.Mode(historyMode),
		ErrorsOnly: historyErrors,
		Contains:   historyContains,
		Limit:      historyLimit,
	}
	if historySince > 0 {
		filter.StartTime = time.Now().Add(-historySince)
	}

	entries, err := history.Query(cmd.Context(), filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history entries.")
		return nil
	}

	fmt.Fprintf(out, "%-19s  %-8s  %-5s  %-30s  %s\n", "TIME", "SESSION", "MODE", "INPUT", "RESULT")
	fmt.Fprintln(out, strings.Repeat("-", 90))
	for _, e := range entries {
		result := e.Output
		if e.Failed() {
			result = "error[" + e.ErrorCode + "]"
		}
		fmt.Fprintf(out, "%-19s  %-8s  %-5s  %-30s  %s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			shorten(e.SessionID, 8),
			e.Mode,
			shorten(e.Input, 30),
			shorten(firstLine(result), 40),
		)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Total: %d entries\n", len(entries))
	return nil
}

func runHistorySessions(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	history, err := openHistory(cmd.Context(), a)
	if err != nil {
		return err
	}
	defer history.Close()

	sessions, err := history.Sessions(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded.")
		return nil
	}

	fmt.Fprintf(out, "%-36s  %7s  %6s  %-19s  %-19s\n", "SESSION", "ENTRIES", "ERRORS", "FIRST", "LAST")
	fmt.Fprintln(out, strings.Repeat("-", 95))
	for _, s := range sessions {
		fmt.Fprintf(out, "%-36s  %7d  %6d  %-19s  %-19s\n",
			s.ID, s.Entries, s.Errors,
			s.First.Local().Format("2006-01-02 15:04:05"),
			s.Last.Local().Format("2006-01-02 15:04:05"),
		)
	}
	return nil
}

func runHistoryStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	history, err := openHistory(cmd.Context(), a)
	if err != nil {
		return err
	}
	defer history.Close()

	stats, err := history.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "History")
	fmt.Fprintln(out, "=======")
	fmt.Fprintf(out, "  Entries:  %d\n", stats.TotalEntries)
	fmt.Fprintf(out, "  Sessions: %d\n", stats.Sessions)
	printCounts(cmd, "By mode", stats.ByMode)
	printCounts(cmd, "By error code", stats.ByErrorCode)
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	olderThan := pruneOlderThan
	if olderThan == 0 {
		olderThan = a.cfg.History.Retention.Duration
	}
	if olderThan <= 0 {
		return fmt.Errorf("no age limit: pass --older-than or set history.retention")
	}

	history, err := store.NewSQLiteStore(store.SQLiteConfig{Path: a.cfg.History.Path})
	if err != nil {
		return err
	}
	defer history.Close()

	removed, err := history.Prune(cmd.Context(), olderThan)
	if err != nil {
		return err
	}
	if pruneVacuum {
		if err := history.Vacuum(cmd.Context()); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries older than %s\n", removed, olderThan)
	return nil
}

func printCounts(cmd *cobra.Command, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-32s %d\n", k, counts[k])
	}
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"

	mdwlog "github.com/msto63/mExpr/foundation/core/log"
)

// RunOptions configures the line loop
type RunOptions struct {
	Prompt string
	Banner bool
}

// Run reads lines from in until EOF, :quit or context cancellation and
// writes each result to out
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer, opts RunOptions) error {
	if opts.Prompt == "" {
		opts.Prompt = "> "
	}

	if opts.Banner {
		fmt.Fprintln(out, "mExpr REPL")
		fmt.Fprintln(out, "==========")
		fmt.Fprintf(out, "Session: %s  Mode: %s  Format: %s\n", s.ID(), s.Mode(), s.Format())
		fmt.Fprintln(out, "Type :help for commands, :quit to leave")
		fmt.Fprintln(out)
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	s.logger.Debug("session started")
	defer func() {
		s.logger.Debug("session ended", mdwlog.Fields{"lines": s.Lines()})
	}()

	for {
		fmt.Fprint(out, opts.Prompt)

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(out)
			select {
			case err := <-scanErr:
				return err
			default:
				return nil
			}
		}

		result := s.ProcessContext(ctx, line)
		if result.Output != "" {
			fmt.Fprintln(out, result.Output)
		}
		if result.Quit {
			return nil
		}
	}
}

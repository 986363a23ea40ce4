package repl

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	"github.com/msto63/mExpr/foundation/expr"
	mdwast "github.com/msto63/mExpr/foundation/expr/ast"
	mdweval "github.com/msto63/mExpr/foundation/expr/eval"
	"github.com/msto63/mExpr/internal/history/store"
	"github.com/msto63/mExpr/pkg/core/cache"
)

// Mode selects what a session does with an input line
type Mode string

const (
	ModeParse Mode = "parse"
	ModeEval  Mode = "eval"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeParse:
		return ModeParse, nil
	case ModeEval:
		return ModeEval, nil
	default:
		return "", mdwerror.Newf("unknown mode %q, expected parse or eval", s).
			WithCode(mdwerror.CodeInvalidInput).
			WithDetail("mode", s)
	}
}

// Recorder persists processed lines
type Recorder interface {
	Record(ctx context.Context, entry *store.Entry) error
}

// Options configures a Session
type Options struct {
	Engine   *expr.Engine
	Env      *mdweval.Env
	Mode     Mode
	Format   Format
	Recorder Recorder
	Cache    *cache.ParseCache // optional, may be shared between sessions
	Logger   *mdwlog.Logger
	ID       string // generated when empty
}

// Session is one interactive conversation: a parser, a variable environment
// and the current mode and output format. A Session is safe for concurrent
// use; lines are processed one at a time.
type Session struct {
	id       string
	engine   *expr.Engine
	env      *mdweval.Env
	recorder Recorder
	cache    *cache.ParseCache
	logger   *mdwlog.Logger

	mu     sync.Mutex
	mode   Mode
	format Format
	lines  int
}

// Result describes the outcome of one processed line
type Result struct {
	Input   string
	Mode    Mode
	Output  string
	Node    mdwast.Node
	Value   *float64
	Err     error
	Command bool // the line was a meta-command
	Quit    bool
}

// Failed reports whether the line was rejected
func (r Result) Failed() bool {
	return r.Err != nil
}

// ErrorCode returns the error code of a failed line, or an empty string
func (r Result) ErrorCode() string {
	if r.Err == nil {
		return ""
	}
	return string(mdwerror.GetCode(r.Err))
}

// NewSession creates a session. A nil engine selects the default grammar.
func NewSession(opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.Engine == nil {
		engine, err := expr.New(expr.Options{Logger: opts.Logger})
		if err != nil {
			return nil, err
		}
		opts.Engine = engine
	}
	if opts.Env == nil {
		opts.Env = mdweval.NewEnv()
	}
	if opts.Mode == "" {
		opts.Mode = ModeParse
	}
	if opts.Format == "" {
		opts.Format = FormatCanonical
	}
	if opts.ID == "" {
		opts.ID = uuid.New().String()
	}

	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, err
	}
	if _, err := ParseFormat(string(opts.Format)); err != nil {
		return nil, err
	}

	return &Session{
		id:       opts.ID,
		engine:   opts.Engine,
		env:      opts.Env,
		recorder: opts.Recorder,
		cache:    opts.Cache,
		logger:   opts.Logger.WithField("component", "repl").WithSession(opts.ID),
		mode:     opts.Mode,
		format:   opts.Format,
	}, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Env returns the session's variable environment
func (s *Session) Env() *mdweval.Env {
	return s.env
}

// Mode returns the current mode
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode changes the current mode
func (s *Session) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// Format returns the current output format
func (s *Session) Format() Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// SetFormat changes the current output format
func (s *Session) SetFormat(format Format) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.format = format
}

// Lines returns the number of expression lines processed so far
func (s *Session) Lines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines
}

// Reset clears all variables
func (s *Session) Reset() {
	s.env.Reset()
	s.logger.Debug("session environment reset")
}

// Process handles one input line
func (s *Session) Process(line string) Result {
	return s.ProcessContext(context.Background(), line)
}

// ProcessContext handles one input line. Bad input is reported in the
// Result; it never panics and never fails the session.
func (s *Session) ProcessContext(ctx context.Context, line string) (result Result) {
	input := strings.TrimSpace(line)

	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err := mdwerror.Newf("internal error while processing input: %v", r).
				WithCode(mdwerror.CodeInternal).
				WithDetail("input", input)
			s.logger.LogError("recovered from panic", err)
			result = Result{Input: input, Mode: s.mode, Err: err, Output: FormatError(err, input)}
		}
	}()

	if strings.HasPrefix(input, ":") {
		return s.command(input)
	}
	if expr.IsBlank(input) {
		return Result{Input: input, Mode: s.mode}
	}

	s.lines++
	result = s.evaluate(input)
	s.record(ctx, result)
	return result
}

func (s *Session) evaluate(input string) Result {
	result := Result{Input: input, Mode: s.mode}

	node, err := s.parse(input)
	if err != nil {
		result.Err = err
	} else {
		result.Node = node
		switch s.mode {
		case ModeEval:
			value, evalErr := mdweval.New(mdweval.Options{Logger: s.logger, Env: s.env}).Eval(node)
			if evalErr != nil {
				result.Err = evalErr
				break
			}
			result.Value = &value
			result.Output, result.Err = RenderValue(node, value, s.format)
		default:
			result.Output, result.Err = Render(node, s.format)
		}
	}

	if result.Err != nil {
		s.logger.LogError("input rejected", result.Err)
		result.Output = FormatError(result.Err, input)
	}
	return result
}

func (s *Session) parse(input string) (mdwast.Node, error) {
	if s.cache != nil {
		return s.cache.Parse(s.engine, input)
	}
	return s.engine.Parse(input)
}

func (s *Session) record(ctx context.Context, result Result) {
	if s.recorder == nil {
		return
	}

	entry := &store.Entry{
		SessionID: s.id,
		Input:     result.Input,
		Mode:      store.Mode(result.Mode),
		ErrorCode: result.ErrorCode(),
	}
	if !result.Failed() {
		entry.Output = result.Output
	}

	if err := s.recorder.Record(ctx, entry); err != nil {
		s.logger.WarnWithErr("failed to record history entry", err)
	}
}

// command handles a meta-command line. Called with s.mu held.
func (s *Session) command(input string) Result {
	result := Result{Input: input, Mode: s.mode, Command: true}
	fields := strings.Fields(input)
	name := strings.ToLower(fields[0])
	args := fields[1:]

	switch name {
	case ":quit", ":q", ":exit":
		result.Quit = true
		result.Output = "bye"

	case ":help", ":h", ":?":
		result.Output = HelpText

	case ":mode":
		if len(args) == 0 {
			result.Output = fmt.Sprintf("mode: %s", s.mode)
			break
		}
		mode, err := ParseMode(args[0])
		if err != nil {
			result.Err = err
			break
		}
		s.mode = mode
		result.Mode = mode
		result.Output = fmt.Sprintf("mode: %s", mode)

	case ":format":
		if len(args) == 0 {
			result.Output = fmt.Sprintf("format: %s", s.format)
			break
		}
		format, err := ParseFormat(args[0])
		if err != nil {
			result.Err = err
			break
		}
		s.format = format
		result.Output = fmt.Sprintf("format: %s", format)

	case ":vars":
		result.Output = formatVars(s.env.Snapshot())

	case ":reset":
		s.env.Reset()
		result.Output = "environment cleared"

	case ":grammar":
		var sb strings.Builder
		for _, entry := range s.engine.Registry().Entries() {
			fmt.Fprintf(&sb, "%-10s %-6s %-10s", entry.Kind, entry.Position, entry.Role)
			if entry.Precedence > 0 {
				fmt.Fprintf(&sb, " %2d", entry.Precedence)
			}
			if entry.Assoc != "" {
				fmt.Fprintf(&sb, " %s", entry.Assoc)
			}
			sb.WriteString("\n")
		}
		result.Output = strings.TrimRight(sb.String(), "\n")

	default:
		result.Err = mdwerror.Newf("unknown command %s, try :help", fields[0]).
			WithCode(mdwerror.CodeInvalidInput).
			WithDetail("command", fields[0])
	}

	if result.Err != nil {
		result.Output = FormatError(result.Err, "")
	}
	return result
}

func formatVars(vars map[string]float64) string {
	if len(vars) == 0 {
		return "no variables"
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s = %s", name, mdwast.FormatNumber(vars[name])))
	}
	return strings.Join(lines, "\n")
}

// HelpText lists the meta-commands
const HelpText = `Commands:
  :mode [parse|eval]                   show or switch the mode
  :format [canonical|tree|json|yaml]   show or switch the output format
  :vars                                list variables
  :reset                               clear all variables
  :grammar                             list the registered parselets
  :help                                show this help
  :quit                                leave the session

Anything else is parsed as an expression, e.g. a = 1 + 2 * 3`

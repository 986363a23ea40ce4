// File: engine.go
// Title: Expression Engine
// Description: High-level entry point that wires grammar, parser and
//              evaluator together from one set of options. The REPL, the
//              CLI and the websocket service all go through an Engine.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial engine implementation

package expr

import (
	"strings"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	mdwast "github.com/msto63/mExpr/foundation/expr/ast"
	mdweval "github.com/msto63/mExpr/foundation/expr/eval"
	mdwparser "github.com/msto63/mExpr/foundation/expr/parser"
	mdwregistry "github.com/msto63/mExpr/foundation/expr/registry"
)

// Options configures the engine
type Options struct {
	Logger         *mdwlog.Logger
	Registry       *mdwregistry.Registry // takes precedence over GrammarFile
	GrammarFile    string                // YAML or TOML grammar; empty selects the default grammar
	MaxDepth       int
	MaxInputLength int
	AllowTrailing  bool
}

// Engine parses and evaluates expressions with one grammar. It is safe for
// concurrent use; evaluation state lives in the Env passed by the caller.
type Engine struct {
	parser   *mdwparser.Parser
	registry *mdwregistry.Registry
	logger   *mdwlog.Logger
}

// Evaluation is the outcome of Evaluate
type Evaluation struct {
	Node  mdwast.Node
	Value float64
}

// New creates an engine
func New(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	logger := opts.Logger.WithField("component", "expr-engine")

	if opts.Registry == nil && opts.GrammarFile != "" {
		grammar, err := mdwregistry.LoadGrammar(opts.GrammarFile)
		if err != nil {
			return nil, err
		}
		reg, err := grammar.Build(opts.Logger)
		if err != nil {
			return nil, mdwerror.Wrap(err, "failed to build grammar").WithDetail("path", opts.GrammarFile)
		}
		opts.Registry = reg
	}

	p, err := mdwparser.New(mdwparser.Options{
		Logger:         opts.Logger,
		Registry:       opts.Registry,
		MaxDepth:       opts.MaxDepth,
		MaxInputLength: opts.MaxInputLength,
		AllowTrailing:  opts.AllowTrailing,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		parser:   p,
		registry: p.Registry(),
		logger:   logger,
	}

	logger.Debug("expression engine initialized", mdwlog.Fields{
		"grammar":        engine.registry.Name(),
		"maxDepth":       opts.MaxDepth,
		"maxInputLength": opts.MaxInputLength,
		"allowTrailing":  opts.AllowTrailing,
	})

	return engine, nil
}

// Parse parses one expression
func (e *Engine) Parse(input string) (mdwast.Node, error) {
	return e.parser.Parse(input)
}

// Validate reports whether input is a syntactically valid expression
func (e *Engine) Validate(input string) error {
	_, err := e.Parse(input)
	return err
}

// Evaluate parses input and evaluates it against env
func (e *Engine) Evaluate(input string, env *mdweval.Env) (*Evaluation, error) {
	node, err := e.Parse(input)
	if err != nil {
		return nil, err
	}
	value, err := mdweval.New(mdweval.Options{Logger: e.logger, Env: env}).Eval(node)
	if err != nil {
		return nil, err
	}
	return &Evaluation{Node: node, Value: value}, nil
}

// Registry returns the grammar of the engine
func (e *Engine) Registry() *mdwregistry.Registry {
	return e.registry
}

// Fingerprint identifies the grammar and limits of the engine. Cached parse
// results are only valid for engines with the same fingerprint.
func (e *Engine) Fingerprint() string {
	return e.parser.Fingerprint()
}

// Parser returns the underlying parser
func (e *Engine) Parser() *mdwparser.Parser {
	return e.parser
}

// IsBlank reports whether input contains only whitespace. Callers use it to
// skip empty REPL lines before parsing.
func IsBlank(input string) bool {
	return strings.TrimSpace(input) == ""
}

// File: parser.go
// Title: Pratt Expression Parser
// Description: Turns expression text into an AST with the precedence
//              climbing algorithm. All grammar knowledge lives in the
//              parselet registry; the parser only drives the loop, enforces
//              input limits and checks that the whole input was consumed.
//              A Parser is safe for concurrent use.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial parser implementation

package parser

import (
	"fmt"
	"sync"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	"github.com/msto63/mExpr/foundation/expr/ast"
	"github.com/msto63/mExpr/foundation/expr/registry"
	"github.com/msto63/mExpr/foundation/expr/token"
)

const (
	// DefaultMaxDepth bounds the recursion of ParseExpression
	DefaultMaxDepth = 256

	// DefaultMaxInputLength bounds the input size in bytes
	DefaultMaxInputLength = 4096
)

// Options configures parser behavior
type Options struct {
	Logger         *mdwlog.Logger
	Registry       *registry.Registry // nil selects registry.Default()
	MaxDepth       int                // 0 selects DefaultMaxDepth
	MaxInputLength int                // 0 selects DefaultMaxInputLength
	AllowTrailing  bool               // Parse returns the leading expression and ignores the rest
}

// Parser parses expressions against one registry
type Parser struct {
	registry *registry.Registry
	logger   *mdwlog.Logger
	options  Options
}

// New creates a parser. The registry is sealed; further registrations must
// go to a Clone.
func New(opts Options) (*Parser, error) {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.Registry == nil {
		opts.Registry = registry.Default()
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxInputLength == 0 {
		opts.MaxInputLength = DefaultMaxInputLength
	}
	if opts.MaxDepth < 0 || opts.MaxInputLength < 0 {
		return nil, mdwerror.Newf("invalid parser limits: max depth %d, max input length %d",
			opts.MaxDepth, opts.MaxInputLength).
			WithCode(mdwerror.CodeInvalidInput)
	}

	opts.Registry.Seal()

	return &Parser{
		registry: opts.Registry,
		logger:   opts.Logger.WithField("component", "expr-parser"),
		options:  opts,
	}, nil
}

// Registry returns the registry the parser dispatches on
func (p *Parser) Registry() *registry.Registry {
	return p.registry
}

// Fingerprint identifies the parse behavior: the registry table and the
// limits. Parsers with equal fingerprints produce equal results for any input.
func (p *Parser) Fingerprint() string {
	return fmt.Sprintf("%s/%d/%d/%t", p.registry.Fingerprint(),
		p.options.MaxDepth, p.options.MaxInputLength, p.options.AllowTrailing)
}

// Cursor creates the per-parse state for a token sequence. end is the byte
// offset reported when input runs out.
func (p *Parser) Cursor(tokens []token.Token, end int) *Cursor {
	return &Cursor{
		tokens:   tokens,
		end:      end,
		maxDepth: p.options.MaxDepth,
		registry: p.registry,
		logger:   p.logger,
	}
}

// Parse lexes and parses one expression. Unless AllowTrailing is set, any
// token left after the expression is an error.
func (p *Parser) Parse(input string) (ast.Node, error) {
	timer := p.logger.StartTimer("parse").WithLevel(mdwlog.LevelTrace).WithField("length", len(input))

	tokens, err := p.lex(input)
	if err != nil {
		timer.Cancel()
		p.logger.LogError("lexing failed", err)
		return nil, err
	}

	node, err := p.parseTokens(tokens, len(input))
	if err != nil {
		timer.Cancel()
		p.logger.LogError("parsing failed", err)
		return nil, err
	}

	timer.Stop()
	if p.logger.IsLevelEnabled(mdwlog.LevelDebug) {
		p.logger.Debug("expression parsed", mdwlog.Fields{
			"input": input,
			"nodes": ast.Count(node),
			"depth": ast.Depth(node),
		})
	}
	return node, nil
}

// ParseTokens parses an already lexed token sequence with the same rules as
// Parse
func (p *Parser) ParseTokens(tokens []token.Token) (ast.Node, error) {
	return p.parseTokens(tokens, endOffset(tokens))
}

// ParsePrefix parses the leading expression of input and returns the tokens
// after it without treating them as an error
func (p *Parser) ParsePrefix(input string) (ast.Node, []token.Token, error) {
	tokens, err := p.lex(input)
	if err != nil {
		return nil, nil, err
	}
	c := p.Cursor(tokens, len(input))
	node, err := c.ParseExpression(0)
	if err != nil {
		return nil, nil, err
	}
	return node, c.Remaining(), nil
}

func (p *Parser) lex(input string) ([]token.Token, error) {
	if len(input) > p.options.MaxInputLength {
		return nil, mdwerror.Newf("input exceeds maximum length: %d > %d", len(input), p.options.MaxInputLength).
			WithCode(mdwerror.CodeInputTooLong).
			WithDetail("length", len(input)).
			WithDetail("max_length", p.options.MaxInputLength)
	}
	return token.Tokenize(input)
}

func (p *Parser) parseTokens(tokens []token.Token, end int) (ast.Node, error) {
	c := p.Cursor(tokens, end)
	node, err := c.ParseExpression(0)
	if err != nil {
		return nil, err
	}
	if p.options.AllowTrailing {
		return node, nil
	}

	next, ok := c.Peek()
	if !ok {
		return node, nil
	}
	if next.Kind == token.RParen {
		return nil, mdwerror.Newf("unbalanced parentheses: ')' at offset %d has no matching '('", next.Offset).
			WithCode(mdwerror.CodeUnbalancedParens).
			WithDetail("token", next.Text).
			WithDetail("offset", next.Offset)
	}
	return nil, mdwerror.Newf("unexpected %s %q at offset %d after complete expression", next.Kind, next.Text, next.Offset).
		WithCode(mdwerror.CodeTrailingTokens).
		WithDetail("token", next.Text).
		WithDetail("kind", next.Kind.String()).
		WithDetail("offset", next.Offset).
		WithDetail("remaining", len(c.Remaining()))
}

func endOffset(tokens []token.Token) int {
	if len(tokens) == 0 {
		return 0
	}
	last := tokens[len(tokens)-1]
	return last.Offset + len(last.Text)
}

var (
	defaultOnce   sync.Once
	defaultParser *Parser
)

// Parse parses input with the default grammar and limits
func Parse(input string) (ast.Node, error) {
	defaultOnce.Do(func() {
		// Default options are always valid.
		defaultParser, _ = New(Options{Logger: mdwlog.Discard()})
	})
	return defaultParser.Parse(input)
}

// File: cursor.go
// Title: Precedence Climbing Cursor
// Description: Holds the state of one parse (token slice, position, nesting
//              depth) and implements the precedence climbing loop. Cursors
//              are not shared; every parse creates its own.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial implementation

package parser

import (
	mdwerror "github.com/msto63/mExpr/foundation/core/error"
	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	"github.com/msto63/mExpr/foundation/expr/ast"
	"github.com/msto63/mExpr/foundation/expr/registry"
	"github.com/msto63/mExpr/foundation/expr/token"
)

// Cursor walks a token sequence front to back against a registry
type Cursor struct {
	tokens   []token.Token
	pos      int
	end      int // byte offset reported for end of input
	depth    int
	maxDepth int
	registry *registry.Registry
	logger   *mdwlog.Logger
}

var _ registry.Parser = (*Cursor)(nil)

// ParseExpression parses the longest expression whose infix operators bind
// tighter than minPrecedence. Callers start with 0.
func (c *Cursor) ParseExpression(minPrecedence int) (ast.Node, error) {
	c.depth++
	defer func() { c.depth-- }()

	if c.maxDepth > 0 && c.depth > c.maxDepth {
		return nil, c.nestingTooDeep()
	}

	tok, ok := c.Next()
	if !ok {
		return nil, c.endOfInput("expression")
	}

	prefix, ok := c.registry.PrefixFor(tok.Kind)
	if !ok {
		return nil, mdwerror.Newf("%s %q cannot start an expression", tok.Kind, tok.Text).
			WithCode(mdwerror.CodeNoPrefixHandler).
			WithDetail("token", tok.Text).
			WithDetail("kind", tok.Kind.String()).
			WithDetail("offset", tok.Offset)
	}

	c.logger.Trace("prefix", mdwlog.Fields{"token": tok.Text, "depth": c.depth})
	left, err := prefix.Parse(c, tok)
	if err != nil {
		return nil, err
	}

	for {
		next, ok := c.Peek()
		if !ok {
			break
		}
		infix, precedence, ok := c.registry.InfixFor(next.Kind)
		if !ok || minPrecedence >= precedence {
			break
		}
		c.pos++

		c.logger.Trace("infix", mdwlog.Fields{"token": next.Text, "precedence": precedence, "depth": c.depth})
		left, err = infix.Parse(c, left, next)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// Consume pops the next token if it has the expected kind
func (c *Cursor) Consume(kind token.Kind) (token.Token, error) {
	tok, ok := c.Peek()
	if !ok {
		return token.Token{}, c.endOfInput(kind.String())
	}
	if tok.Kind != kind {
		return token.Token{}, mdwerror.Newf("expected %s, found %s %q at offset %d", kind, tok.Kind, tok.Text, tok.Offset).
			WithCode(mdwerror.CodeUnexpectedToken).
			WithDetail("expected", kind.String()).
			WithDetail("token", tok.Text).
			WithDetail("kind", tok.Kind.String()).
			WithDetail("offset", tok.Offset)
	}
	c.pos++
	return tok, nil
}

// Peek returns the next token without consuming it
func (c *Cursor) Peek() (token.Token, bool) {
	if c.pos >= len(c.tokens) {
		return token.Token{}, false
	}
	return c.tokens[c.pos], true
}

// Next pops the next token
func (c *Cursor) Next() (token.Token, bool) {
	tok, ok := c.Peek()
	if ok {
		c.pos++
	}
	return tok, ok
}

// Done reports whether all tokens have been consumed
func (c *Cursor) Done() bool {
	return c.pos >= len(c.tokens)
}

// Remaining returns the unconsumed tokens
func (c *Cursor) Remaining() []token.Token {
	if c.Done() {
		return nil
	}
	rest := make([]token.Token, len(c.tokens)-c.pos)
	copy(rest, c.tokens[c.pos:])
	return rest
}

func (c *Cursor) endOfInput(wanted string) error {
	return mdwerror.Newf("unexpected end of input, expected %s", wanted).
		WithCode(mdwerror.CodeUnexpectedEndOfInput).
		WithDetail("expected", wanted).
		WithDetail("offset", c.end)
}

func (c *Cursor) nestingTooDeep() error {
	offset := c.end
	if tok, ok := c.Peek(); ok {
		offset = tok.Offset
	}
	return mdwerror.Newf("expression nested deeper than %d levels", c.maxDepth).
		WithCode(mdwerror.CodeNestingTooDeep).
		WithDetail("max_depth", c.maxDepth).
		WithDetail("offset", offset)
}

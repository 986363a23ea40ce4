// File: interface.go
// Title: Parselet Interfaces
// Description: Defines the contract between the parser engine and the
//              parselets stored in the registry. Parselets see the parser
//              only through the Parser interface, which keeps the registry
//              independent of the engine implementation.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial interface definitions

package registry

import (
	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	"github.com/msto63/mExpr/foundation/expr/ast"
	"github.com/msto63/mExpr/foundation/expr/token"
)

// Options configures registry behavior
type Options struct {
	Logger *mdwlog.Logger
	Name   string // Grammar name used in log entries and descriptions
}

// Parser is the view of the parser engine that parselets work with
type Parser interface {
	// ParseExpression parses an expression whose infix operators bind
	// tighter than minPrecedence
	ParseExpression(minPrecedence int) (ast.Node, error)

	// Consume pops the next token and fails unless it has the given kind
	Consume(kind token.Kind) (token.Token, error)

	// Peek returns the next token without consuming it
	Peek() (token.Token, bool)
}

// PrefixParselet builds a node from a token that starts an expression
type PrefixParselet interface {
	Parse(p Parser, tok token.Token) (ast.Node, error)
}

// InfixParselet combines an already parsed left operand with the operator
// token that follows it
type InfixParselet interface {
	Parse(p Parser, left ast.Node, tok token.Token) (ast.Node, error)
}

// PrefixFunc adapts a function to the PrefixParselet interface
type PrefixFunc func(p Parser, tok token.Token) (ast.Node, error)

// Parse calls f(p, tok)
func (f PrefixFunc) Parse(p Parser, tok token.Token) (ast.Node, error) {
	return f(p, tok)
}

// InfixFunc adapts a function to the InfixParselet interface
type InfixFunc func(p Parser, left ast.Node, tok token.Token) (ast.Node, error)

// Parse calls f(p, left, tok)
func (f InfixFunc) Parse(p Parser, left ast.Node, tok token.Token) (ast.Node, error) {
	return f(p, left, tok)
}

// Describer is implemented by parselets that can name their role for
// grammar listings
type Describer interface {
	Role() string
}

// Entry describes one registration, as listed by Describe
type Entry struct {
	Kind       token.Kind `json:"kind" yaml:"kind"`
	Position   string     `json:"position" yaml:"position"` // "prefix" or "infix"
	Role       string     `json:"role" yaml:"role"`
	Precedence int        `json:"precedence" yaml:"precedence"`
	Assoc      string     `json:"assoc,omitempty" yaml:"assoc,omitempty"`
}

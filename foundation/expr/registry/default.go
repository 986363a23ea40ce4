// File: default.go
// Title: Default Grammar
// Description: The standard arithmetic and assignment grammar.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial default grammar

package registry

import (
	"sync"

	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	"github.com/msto63/mExpr/foundation/expr/token"
)

// Binding precedences of the default grammar. Higher binds tighter.
const (
	PrecedenceAssign   = 1
	PrecedenceSum      = 5
	PrecedenceProduct  = 7
	PrecedencePrefix   = 10
	DefaultGrammarName = "default"
)

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the shared, sealed default registry:
//
//	NUMBER       prefix literal
//	IDENTIFIER   prefix identifier
//	PLUS, MINUS  prefix unary (10), infix binary (5, left)
//	LPAREN       prefix group
//	STAR, SLASH  infix binary (7, left)
//	ASSIGN       infix binary (1, right)
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewDefault(Options{Logger: mdwlog.Discard()})
		defaultRegistry.Seal()
	})
	return defaultRegistry
}

// NewDefault builds a fresh, unsealed registry with the default grammar.
// Callers extend it with further registrations.
func NewDefault(opts Options) *Registry {
	if opts.Name == "" {
		opts.Name = DefaultGrammarName
	}
	r := New(opts)

	// Registrations on an empty registry with valid kinds cannot fail.
	mustRegister(r.RegisterPrefix(token.Number, LiteralParselet{}))
	mustRegister(r.RegisterPrefix(token.Identifier, IdentifierParselet{}))
	mustRegister(r.RegisterPrefix(token.Plus, Unary(PrecedencePrefix)))
	mustRegister(r.RegisterPrefix(token.Minus, Unary(PrecedencePrefix)))
	mustRegister(r.RegisterPrefix(token.LParen, GroupParselet{}))

	mustRegister(r.RegisterBinary(token.Assign, PrecedenceAssign, true))
	mustRegister(r.RegisterBinary(token.Plus, PrecedenceSum, false))
	mustRegister(r.RegisterBinary(token.Minus, PrecedenceSum, false))
	mustRegister(r.RegisterBinary(token.Star, PrecedenceProduct, false))
	mustRegister(r.RegisterBinary(token.Slash, PrecedenceProduct, false))

	return r
}

func mustRegister(err error) {
	if err != nil {
		panic(err)
	}
}

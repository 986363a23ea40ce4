// File: parselets.go
// Title: Built-in Parselets
// Description: Literal, identifier, unary, group and binary parselets. The
//              default grammar and grammar files are assembled from these.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial parselet set

package registry

import (
	"fmt"
	"math"
	"strconv"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
	"github.com/msto63/mExpr/foundation/expr/ast"
	"github.com/msto63/mExpr/foundation/expr/token"
)

// LiteralParselet turns a number token into a Literal
type LiteralParselet struct{}

// Parse implements PrefixParselet
func (LiteralParselet) Parse(_ Parser, tok token.Token) (ast.Node, error) {
	value, err := strconv.ParseFloat(tok.Text, 64)
	if err != nil || math.IsInf(value, 0) {
		return nil, mdwerror.Newf("number %q is out of range", tok.Text).
			WithCode(mdwerror.CodeInvalidInput).
			WithDetail("token", tok.Text).
			WithDetail("offset", tok.Offset)
	}
	return ast.NewLiteral(tok.Text, value, tok.Offset), nil
}

// Role implements Describer
func (LiteralParselet) Role() string { return "literal" }

// IdentifierParselet turns a name token into an Identifier
type IdentifierParselet struct{}

// Parse implements PrefixParselet
func (IdentifierParselet) Parse(_ Parser, tok token.Token) (ast.Node, error) {
	return ast.NewIdentifier(tok.Text, tok.Offset), nil
}

// Role implements Describer
func (IdentifierParselet) Role() string { return "identifier" }

// UnaryParselet parses a prefix operator whose operand binds at Precedence
type UnaryParselet struct {
	Precedence int
}

// Unary creates a unary prefix parselet
func Unary(precedence int) *UnaryParselet {
	return &UnaryParselet{Precedence: precedence}
}

// Parse implements PrefixParselet
func (u *UnaryParselet) Parse(p Parser, tok token.Token) (ast.Node, error) {
	operand, err := p.ParseExpression(u.Precedence)
	if err != nil {
		return nil, err
	}
	return ast.NewUnaryOp(tok.Text, operand, tok.Offset), nil
}

// Role implements Describer
func (u *UnaryParselet) Role() string { return "unary" }

// GroupParselet parses a parenthesized expression. The group itself leaves
// no node in the tree.
type GroupParselet struct{}

// Parse implements PrefixParselet
func (GroupParselet) Parse(p Parser, tok token.Token) (ast.Node, error) {
	inner, err := p.ParseExpression(0)
	if err != nil {
		return nil, err
	}

	if _, err := p.Consume(token.RParen); err != nil {
		code := mdwerror.GetCode(err)
		if code != mdwerror.CodeUnexpectedToken && code != mdwerror.CodeUnexpectedEndOfInput {
			return nil, err
		}
		wrapped := mdwerror.Wrap(err, fmt.Sprintf("unbalanced parentheses: '(' at offset %d is never closed", tok.Offset)).
			WithDetail("offset", tok.Offset)
		return nil, wrapped.WithCode(mdwerror.CodeUnbalancedParens)
	}
	return inner, nil
}

// Role implements Describer
func (GroupParselet) Role() string { return "group" }

// BinaryParselet parses an infix operator. Left-associative operators parse
// their right operand at their own precedence, right-associative ones one
// level lower so that the same operator is accepted again on the right.
type BinaryParselet struct {
	Precedence int
	RightAssoc bool
}

// Binary creates a binary infix parselet
func Binary(precedence int, rightAssoc bool) *BinaryParselet {
	return &BinaryParselet{Precedence: precedence, RightAssoc: rightAssoc}
}

// Parse implements InfixParselet
func (b *BinaryParselet) Parse(p Parser, left ast.Node, tok token.Token) (ast.Node, error) {
	minPrecedence := b.Precedence
	if b.RightAssoc {
		minPrecedence--
	}

	right, err := p.ParseExpression(minPrecedence)
	if err != nil {
		return nil, err
	}
	return ast.NewBinaryOp(tok.Text, left, right, tok.Offset), nil
}

// Role implements Describer
func (b *BinaryParselet) Role() string { return "binary" }

// Assoc returns "left" or "right"
func (b *BinaryParselet) Assoc() string {
	if b.RightAssoc {
		return "right"
	}
	return "left"
}

// File: nodes.go
// Title: Expression AST Node Definitions
// Description: Defines the four node variants produced by the parser:
//              literals, identifiers, unary and binary operations. Each node
//              owns its children; trees are acyclic and are not mutated
//              after the parser returns them.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial node definitions

package ast

import (
	"fmt"
	"strings"
)

// Node represents the base interface for all AST nodes
type Node interface {
	// String returns the structural rendering, e.g. BinaryOp(+, Literal(1), Identifier(a))
	String() string

	// Accept implements the visitor pattern
	Accept(visitor Visitor) interface{}

	// Position returns the source position of the node
	Position() Position

	// Validate performs basic validation of the node
	Validate() error

	node() // marker method
}

// Position represents a position in the source text
type Position struct {
	Offset int // Byte offset (0-based)
}

// Literal represents a numeric constant
type Literal struct {
	Raw   string   // Source text, e.g. "2.50"
	Value float64  // Parsed value
	Pos   Position // Source position
}

// Identifier represents a variable reference
type Identifier struct {
	Name string   // Variable name
	Pos  Position // Source position
}

// UnaryOp represents a prefix operator applied to one operand
type UnaryOp struct {
	Operator string   // Operator symbol, e.g. "-"
	Operand  Node     // Operand expression
	Pos      Position // Position of the operator
}

// BinaryOp represents an infix operator combining two subtrees
type BinaryOp struct {
	Operator string   // Operator symbol, e.g. "*"
	Left     Node     // Left operand
	Right    Node     // Right operand
	Pos      Position // Position of the operator
}

// NewLiteral creates a literal; the value is taken as given
func NewLiteral(raw string, value float64, offset int) *Literal {
	return &Literal{Raw: raw, Value: value, Pos: Position{Offset: offset}}
}

// NewIdentifier creates an identifier node
func NewIdentifier(name string, offset int) *Identifier {
	return &Identifier{Name: name, Pos: Position{Offset: offset}}
}

// NewUnaryOp creates a unary operation node
func NewUnaryOp(operator string, operand Node, offset int) *UnaryOp {
	return &UnaryOp{Operator: operator, Operand: operand, Pos: Position{Offset: offset}}
}

// NewBinaryOp creates a binary operation node
func NewBinaryOp(operator string, left, right Node, offset int) *BinaryOp {
	return &BinaryOp{Operator: operator, Left: left, Right: right, Pos: Position{Offset: offset}}
}

// Literal implementation

func (l *Literal) String() string {
	return fmt.Sprintf("Literal(%s)", l.text())
}

func (l *Literal) Accept(visitor Visitor) interface{} {
	return visitor.VisitLiteral(l)
}

func (l *Literal) Position() Position {
	return l.Pos
}

func (l *Literal) Validate() error {
	if strings.TrimSpace(l.text()) == "" {
		return fmt.Errorf("literal has no text")
	}
	return nil
}

func (l *Literal) node() {}

// text returns Raw, or a formatted Value for literals built without source
func (l *Literal) text() string {
	if l.Raw != "" {
		return l.Raw
	}
	return FormatNumber(l.Value)
}

// Identifier implementation

func (i *Identifier) String() string {
	return fmt.Sprintf("Identifier(%s)", i.Name)
}

func (i *Identifier) Accept(visitor Visitor) interface{} {
	return visitor.VisitIdentifier(i)
}

func (i *Identifier) Position() Position {
	return i.Pos
}

func (i *Identifier) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("identifier name is required")
	}
	return nil
}

func (i *Identifier) node() {}

// UnaryOp implementation

func (u *UnaryOp) String() string {
	return fmt.Sprintf("UnaryOp(%s, %s)", u.Operator, nodeString(u.Operand))
}

func (u *UnaryOp) Accept(visitor Visitor) interface{} {
	return visitor.VisitUnaryOp(u)
}

func (u *UnaryOp) Position() Position {
	return u.Pos
}

func (u *UnaryOp) Validate() error {
	if u.Operator == "" {
		return fmt.Errorf("unary operator is required")
	}
	if u.Operand == nil {
		return fmt.Errorf("unary %s has no operand", u.Operator)
	}
	return u.Operand.Validate()
}

func (u *UnaryOp) node() {}

// BinaryOp implementation

func (b *BinaryOp) String() string {
	return fmt.Sprintf("BinaryOp(%s, %s, %s)", b.Operator, nodeString(b.Left), nodeString(b.Right))
}

func (b *BinaryOp) Accept(visitor Visitor) interface{} {
	return visitor.VisitBinaryOp(b)
}

func (b *BinaryOp) Position() Position {
	return b.Pos
}

func (b *BinaryOp) Validate() error {
	if b.Operator == "" {
		return fmt.Errorf("binary operator is required")
	}
	if b.Left == nil || b.Right == nil {
		return fmt.Errorf("binary %s is missing an operand", b.Operator)
	}
	if err := b.Left.Validate(); err != nil {
		return err
	}
	return b.Right.Validate()
}

func (b *BinaryOp) node() {}

// IsAssignment reports whether the node is an assignment
func (b *BinaryOp) IsAssignment() bool {
	return b.Operator == "="
}

func nodeString(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}

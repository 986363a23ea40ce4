// File: visitor.go
// Title: Expression AST Visitor Pattern Implementation
// Description: Visitor interface, a traversal base visitor, Walk for
//              closure-based inspection and structural helpers (Equal,
//              Depth, Identifiers, Count).
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial visitor implementation

package ast

// Visitor interface for traversing AST nodes using the visitor pattern
type Visitor interface {
	VisitLiteral(node *Literal) interface{}
	VisitIdentifier(node *Identifier) interface{}
	VisitUnaryOp(node *UnaryOp) interface{}
	VisitBinaryOp(node *BinaryOp) interface{}
}

// BaseVisitor visits every child and returns nil.
// Embed it in concrete visitors to only override needed methods.
type BaseVisitor struct{}

func (bv *BaseVisitor) VisitLiteral(node *Literal) interface{} {
	return nil // Terminal node
}

func (bv *BaseVisitor) VisitIdentifier(node *Identifier) interface{} {
	return nil // Terminal node
}

func (bv *BaseVisitor) VisitUnaryOp(node *UnaryOp) interface{} {
	if node.Operand != nil {
		node.Operand.Accept(bv)
	}
	return nil
}

func (bv *BaseVisitor) VisitBinaryOp(node *BinaryOp) interface{} {
	if node.Left != nil {
		node.Left.Accept(bv)
	}
	if node.Right != nil {
		node.Right.Accept(bv)
	}
	return nil
}

// Walk traverses the tree in depth-first pre-order. If fn returns false the
// children of that node are skipped.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *UnaryOp:
		Walk(n.Operand, fn)
	case *BinaryOp:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	}
}

// Equal reports whether two trees have the same shape, operators, names and
// literal values. Positions and literal spelling are ignored.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Literal:
		y, ok := b.(*Literal)
		return ok && x.Value == y.Value
	case *Identifier:
		y, ok := b.(*Identifier)
		return ok && x.Name == y.Name
	case *UnaryOp:
		y, ok := b.(*UnaryOp)
		return ok && x.Operator == y.Operator && Equal(x.Operand, y.Operand)
	case *BinaryOp:
		y, ok := b.(*BinaryOp)
		return ok && x.Operator == y.Operator && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	default:
		return false
	}
}

// Depth returns the height of the tree; a leaf has depth 1
func Depth(node Node) int {
	switch n := node.(type) {
	case nil:
		return 0
	case *UnaryOp:
		return 1 + Depth(n.Operand)
	case *BinaryOp:
		return 1 + max(Depth(n.Left), Depth(n.Right))
	default:
		return 1
	}
}

// Count returns the number of nodes in the tree
func Count(node Node) int {
	count := 0
	Walk(node, func(Node) bool {
		count++
		return true
	})
	return count
}

// Identifiers returns the distinct identifier names in order of first
// appearance
func Identifiers(node Node) []string {
	seen := make(map[string]bool)
	var names []string
	Walk(node, func(n Node) bool {
		if id, ok := n.(*Identifier); ok && !seen[id.Name] {
			seen[id.Name] = true
			names = append(names, id.Name)
		}
		return true
	})
	return names
}

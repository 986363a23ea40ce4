// File: render.go
// Title: Expression AST Rendering
// Description: Renders trees as fully parenthesized infix text, as an
//              indented tree for terminals and as plain maps for JSON and
//              YAML encoders.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial rendering helpers

package ast

import (
	"strconv"
	"strings"
)

// Canonical renders a node as fully parenthesized infix text:
// (1 + (2 * 3)), (-x), (a = (b = 1)). For trees built by the parser,
// parsing the result with the default grammar yields an Equal tree.
func Canonical(node Node) string {
	var sb strings.Builder
	writeCanonical(&sb, node)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, node Node) {
	switch n := node.(type) {
	case *Literal:
		sb.WriteString(n.text())
	case *Identifier:
		sb.WriteString(n.Name)
	case *UnaryOp:
		sb.WriteString("(")
		sb.WriteString(n.Operator)
		writeCanonical(sb, n.Operand)
		sb.WriteString(")")
	case *BinaryOp:
		sb.WriteString("(")
		writeCanonical(sb, n.Left)
		sb.WriteString(" ")
		sb.WriteString(n.Operator)
		sb.WriteString(" ")
		writeCanonical(sb, n.Right)
		sb.WriteString(")")
	default:
		sb.WriteString("<nil>")
	}
}

// TreeVisitor creates an indented, one node per line representation
type TreeVisitor struct {
	BaseVisitor
	buffer strings.Builder
	indent int
}

// NewTreeVisitor creates a new tree visitor
func NewTreeVisitor() *TreeVisitor {
	return &TreeVisitor{}
}

// String returns the built representation
func (tv *TreeVisitor) String() string {
	return tv.buffer.String()
}

// Reset clears the internal buffer
func (tv *TreeVisitor) Reset() {
	tv.buffer.Reset()
	tv.indent = 0
}

func (tv *TreeVisitor) line(text string) {
	tv.buffer.WriteString(strings.Repeat("  ", tv.indent))
	tv.buffer.WriteString(text)
	tv.buffer.WriteString("\n")
}

func (tv *TreeVisitor) VisitLiteral(node *Literal) interface{} {
	tv.line("Literal " + node.text())
	return nil
}

func (tv *TreeVisitor) VisitIdentifier(node *Identifier) interface{} {
	tv.line("Identifier " + node.Name)
	return nil
}

func (tv *TreeVisitor) VisitUnaryOp(node *UnaryOp) interface{} {
	tv.line("UnaryOp " + node.Operator)
	tv.indent++
	node.Operand.Accept(tv)
	tv.indent--
	return nil
}

func (tv *TreeVisitor) VisitBinaryOp(node *BinaryOp) interface{} {
	tv.line("BinaryOp " + node.Operator)
	tv.indent++
	node.Left.Accept(tv)
	node.Right.Accept(tv)
	tv.indent--
	return nil
}

// Tree renders node with the TreeVisitor
func Tree(node Node) string {
	if node == nil {
		return ""
	}
	tv := NewTreeVisitor()
	node.Accept(tv)
	return tv.String()
}

// ToMap converts a tree to nested maps with a "type" key per node, for
// encoding with encoding/json or yaml.v3
func ToMap(node Node) map[string]interface{} {
	switch n := node.(type) {
	case *Literal:
		return map[string]interface{}{
			"type":   "Literal",
			"raw":    n.text(),
			"value":  n.Value,
			"offset": n.Pos.Offset,
		}
	case *Identifier:
		return map[string]interface{}{
			"type":   "Identifier",
			"name":   n.Name,
			"offset": n.Pos.Offset,
		}
	case *UnaryOp:
		return map[string]interface{}{
			"type":     "UnaryOp",
			"operator": n.Operator,
			"operand":  ToMap(n.Operand),
			"offset":   n.Pos.Offset,
		}
	case *BinaryOp:
		return map[string]interface{}{
			"type":     "BinaryOp",
			"operator": n.Operator,
			"left":     ToMap(n.Left),
			"right":    ToMap(n.Right),
			"offset":   n.Pos.Offset,
		}
	default:
		return nil
	}
}

// FormatNumber renders a float without exponent and without trailing zeros
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Package ast defines the abstract syntax tree produced by the expression
// parser.
//
// Package: ast
// Title: Expression Abstract Syntax Tree
// Description: A closed set of node variants (Literal, Identifier, UnaryOp,
//              BinaryOp) with a visitor, structural helpers and three
//              renderings: String for the structural notation, Canonical for
//              re-parseable fully parenthesized infix and Tree for terminals.
//              ToMap feeds the JSON and YAML output of the CLI and service.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial AST package
//
// Usage:
//
//	node, _ := parser.Parse("1 + 2 * 3")
//	fmt.Println(node)                // BinaryOp(+, Literal(1), BinaryOp(*, Literal(2), Literal(3)))
//	fmt.Println(ast.Canonical(node)) // (1 + (2 * 3))
package ast

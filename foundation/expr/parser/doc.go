// Package parser implements a Pratt (top-down operator precedence) parser
// for arithmetic and assignment expressions.
//
// Package: parser
// Title: Pratt Expression Parser
// Description: The parser pops a token, dispatches it to its prefix
//              parselet, then keeps folding infix operators into the left
//              operand while the next operator binds tighter than the
//              current minimum precedence. Which tokens may start or
//              continue an expression, and how tightly operators bind, is
//              decided entirely by a registry.Registry, so new operators
//              are added by registration alone.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial parser package
//
// Errors are *error.Error values with one of the PARSE_* or LEX_* codes and
// "offset" and "token" details. Parsing stops at the first error.
//
// Usage:
//
//	p, err := parser.New(parser.Options{MaxDepth: 64})
//	node, err := p.Parse("a = b = 2 * (c + 1)")
//	fmt.Println(ast.Canonical(node)) // (a = (b = (2 * (c + 1))))
package parser

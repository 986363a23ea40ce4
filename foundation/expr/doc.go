// Package expr is the entry point of the expression toolkit.
//
// Package: expr
// Title: Extensible Expression Parsing
// Description: Tokenizes arithmetic and assignment expressions, parses them
//              with a Pratt parser whose operators are defined by a parselet
//              registry, and evaluates the resulting trees over float64.
//              The subpackages can be used on their own:
//
//              token     lexer and token kinds
//              ast       tree nodes, visitors and renderings
//              registry  parselets, default grammar, grammar files
//              parser    precedence climbing engine
//              eval      variable environment and evaluator
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial package
//
// Usage:
//
//	engine, err := expr.New(expr.Options{})
//	env := eval.NewEnv()
//	res, err := engine.Evaluate("x = 2 * (3 + 4)", env)
//	fmt.Println(ast.Canonical(res.Node), res.Value) // (x = (2 * (3 + 4))) 14
package expr

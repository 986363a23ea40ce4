// Package error provides structured error handling for the expression toolkit.
//
// Package: error
// Title: Structured Error Handling
// Description: Implements an error type with codes, severity, details and a
//              captured stack trace. Every failure of the lexer, the parser,
//              grammar construction and the evaluator is reported as an
//              *Error whose Code identifies the exact failure kind.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2026-10-17
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with contextual errors and codes
// - 2026-10-17 v0.2.0: Codes for lexing, parsing, grammars and evaluation
//
// Usage:
//
//	err := error.New("no prefix parselet for '*'").
//		WithCode(error.CodeNoPrefixHandler).
//		WithDetail("offset", 4)
//
//	wrapped := error.Wrap(err, "parse failed")
//	if error.HasCode(wrapped, error.CodeNoPrefixHandler) {
//		// the code survives wrapping
//	}
package error

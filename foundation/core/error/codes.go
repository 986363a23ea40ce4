// File: codes.go
// Title: Error Code Definitions
// Description: Defines standardized error codes for the expression toolkit.
//              Codes classify lexing, parsing, grammar construction and
//              evaluation failures so callers can react to the exact kind
//              of failure instead of matching message text.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-24
// Modified: 2026-10-17
//
// Change History:
// - 2025-01-24 v0.1.0: Initial implementation with core error codes
// - 2026-10-17 v0.2.0: Lexer, parser, grammar and evaluator codes

package error

// Code represents a structured error code for categorizing errors
type Code string

const (
	// Generic codes
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidInput Code = "INVALID_INPUT"

	// Lexical analysis
	CodeUnrecognizedToken Code = "LEX_UNRECOGNIZED_TOKEN"
	CodeEmptyToken        Code = "LEX_EMPTY_TOKEN"

	// Parsing
	CodeNoPrefixHandler      Code = "PARSE_NO_PREFIX_HANDLER"
	CodeUnexpectedToken      Code = "PARSE_UNEXPECTED_TOKEN"
	CodeUnexpectedEndOfInput Code = "PARSE_UNEXPECTED_END_OF_INPUT"
	CodeUnbalancedParens     Code = "PARSE_UNBALANCED_PARENS"
	CodeTrailingTokens       Code = "PARSE_TRAILING_TOKENS"
	CodeNestingTooDeep       Code = "PARSE_NESTING_TOO_DEEP"
	CodeInputTooLong         Code = "PARSE_INPUT_TOO_LONG"

	// Grammar construction
	CodeInvalidGrammar    Code = "GRAMMAR_INVALID"
	CodeDuplicateParselet Code = "GRAMMAR_DUPLICATE"

	// Evaluation
	CodeUndefinedVariable Code = "EVAL_UNDEFINED_VARIABLE"
	CodeDivisionByZero    Code = "EVAL_DIVISION_BY_ZERO"
	CodeInvalidAssignment Code = "EVAL_INVALID_ASSIGNMENT"
	CodeUnknownOperator   Code = "EVAL_UNKNOWN_OPERATOR"
	CodeOverflow          Code = "EVAL_OVERFLOW"

	// Configuration and storage
	CodeConfigError   Code = "CONFIG_ERROR"
	CodeDatabaseError Code = "DATABASE_ERROR"
)

// String returns the string representation of the error code
func (c Code) String() string {
	return string(c)
}

// IsValid checks if the error code is a known valid code
func (c Code) IsValid() bool {
	switch c {
	case CodeUnknown, CodeInternal, CodeNotFound, CodeInvalidInput,
		CodeUnrecognizedToken, CodeEmptyToken,
		CodeNoPrefixHandler, CodeUnexpectedToken, CodeUnexpectedEndOfInput,
		CodeUnbalancedParens, CodeTrailingTokens, CodeNestingTooDeep, CodeInputTooLong,
		CodeInvalidGrammar, CodeDuplicateParselet,
		CodeUndefinedVariable, CodeDivisionByZero, CodeInvalidAssignment, CodeUnknownOperator, CodeOverflow,
		CodeConfigError, CodeDatabaseError:
		return true
	default:
		return false
	}
}

// Category returns the high-level category of the error code
func (c Code) Category() string {
	switch c {
	case CodeUnrecognizedToken, CodeEmptyToken:
		return "lex"
	case CodeNoPrefixHandler, CodeUnexpectedToken, CodeUnexpectedEndOfInput,
		CodeUnbalancedParens, CodeTrailingTokens, CodeNestingTooDeep, CodeInputTooLong:
		return "parse"
	case CodeInvalidGrammar, CodeDuplicateParselet:
		return "grammar"
	case CodeUndefinedVariable, CodeDivisionByZero, CodeInvalidAssignment, CodeUnknownOperator, CodeOverflow:
		return "eval"
	case CodeConfigError:
		return "configuration"
	case CodeDatabaseError:
		return "database"
	default:
		return "generic"
	}
}

// IsSyntax reports whether the code describes a problem with the input text
// itself, as opposed to evaluation or infrastructure failures.
func (c Code) IsSyntax() bool {
	cat := c.Category()
	return cat == "lex" || cat == "parse"
}

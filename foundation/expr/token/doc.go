// Package token defines the token kinds of the expression language and the
// lexer that produces them.
//
// Input is split on whitespace and on the symbols + - * / ( ) =. Every
// symbol becomes its own token; every other maximal run of characters is
// classified as a Number (digits with at most one decimal point) or an
// Identifier (a letter followed by letters, digits or underscores). Anything
// else fails with a LEX_UNRECOGNIZED_TOKEN error that carries the offending
// text and its byte offset.
//
//	tokens, err := token.Tokenize("x = 2 * (y + 1)")
package token

// File: lexer.go
// Title: Expression Lexical Analyzer
// Description: Splits expression text on whitespace and on the single
//              character symbols + - * / ( ) = and classifies each chunk as
//              number, identifier or symbol. The lexer keeps no state
//              between inputs; a new Lexer re-tokenizes from scratch.
// Author: msto63
// Version: v0.2.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial implementation
// - 2026-10-17 v0.2.0: Identifiers are classified by their first rune

package token

import (
	"unicode"
	"unicode/utf8"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
)

// Lexer performs lexical analysis of one expression
type Lexer struct {
	input string
	pos   int // byte offset of the next unread rune
}

// NewLexer creates a new lexer for the given input
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Next returns the next token. ok is false once the input is exhausted.
func (l *Lexer) Next() (tok Token, ok bool, err error) {
	l.skipWhitespace()
	if l.pos >= len(l.input) {
		return Token{}, false, nil
	}

	start := l.pos
	ch, size := utf8.DecodeRuneInString(l.input[l.pos:])
	if kind, isSymbol := symbolKind(ch); isSymbol {
		l.pos += size
		return Token{Kind: kind, Text: l.input[start:l.pos], Offset: start}, true, nil
	}

	for l.pos < len(l.input) {
		ch, size = utf8.DecodeRuneInString(l.input[l.pos:])
		if unicode.IsSpace(ch) {
			break
		}
		if _, isSymbol := symbolKind(ch); isSymbol {
			break
		}
		l.pos += size
	}

	tok, err = classify(l.input[start:l.pos], start)
	if err != nil {
		return Token{}, false, err
	}
	return tok, true, nil
}

// Offset returns the byte offset of the next unread character
func (l *Lexer) Offset() int {
	return l.pos
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		ch, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(ch) {
			return
		}
		l.pos += size
	}
}

// Tokenize lexes the whole input. It stops at the first invalid chunk.
func Tokenize(input string) ([]Token, error) {
	lexer := NewLexer(input)
	var tokens []Token
	for {
		tok, ok, err := lexer.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

func classify(chunk string, offset int) (Token, error) {
	if chunk == "" {
		return Token{}, mdwerror.New("empty token").
			WithCode(mdwerror.CodeEmptyToken).
			WithDetail("offset", offset)
	}

	switch {
	case isNumber(chunk):
		return Token{Kind: Number, Text: chunk, Offset: offset}, nil
	case isIdentifier(chunk):
		return Token{Kind: Identifier, Text: chunk, Offset: offset}, nil
	}

	return Token{}, mdwerror.Newf("unrecognized token %q at offset %d", chunk, offset).
		WithCode(mdwerror.CodeUnrecognizedToken).
		WithDetail("token", chunk).
		WithDetail("offset", offset)
}

// isNumber accepts digits with at most one decimal point and at least one
// digit: 12, 1.5, .5, 5.
func isNumber(s string) bool {
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// isIdentifier accepts any chunk that starts with a letter. The rest of the
// chunk is not restricted: a.b and x' are names.
func isIdentifier(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(r)
}

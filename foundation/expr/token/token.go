// File: token.go
// Title: Token Structure
// Description: A lexical token with its kind, source text and byte offset.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial implementation

package token

import "fmt"

// Token represents a lexical token with position information
type Token struct {
	Kind   Kind   // Token kind
	Text   string // Token text, never empty
	Offset int    // Byte offset in the input
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("%s(%s)", t.Kind, t.Text)
}

// Is reports whether the token has the given kind
func (t Token) Is(kind Kind) bool {
	return t.Kind == kind
}

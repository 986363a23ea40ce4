// File: kind.go
// Title: Token Kinds
// Description: Defines the closed set of token kinds produced by the lexer.
//              Kinds are small integers so that the parselet registry can
//              index fixed-size tables with them.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial implementation

package token

import (
	"fmt"
	"strings"
)

// Kind represents the type of a lexical token
type Kind int

const (
	Number     Kind = iota // 1, 2.5, .5
	Identifier             // a, total, x1
	Plus                   // +
	Minus                  // -
	Star                   // *
	Slash                  // /
	LParen                 // (
	RParen                 // )
	Assign                 // =

	// NumKinds is the number of token kinds; it sizes dispatch tables
	NumKinds int = iota
)

var kindNames = [NumKinds]string{
	Number:     "NUMBER",
	Identifier: "IDENTIFIER",
	Plus:       "PLUS",
	Minus:      "MINUS",
	Star:       "STAR",
	Slash:      "SLASH",
	LParen:     "LPAREN",
	RParen:     "RPAREN",
	Assign:     "ASSIGN",
}

// String returns the upper-case name of the kind
func (k Kind) String() string {
	if !k.IsValid() {
		return fmt.Sprintf("KIND(%d)", int(k))
	}
	return kindNames[k]
}

// IsValid reports whether k is one of the defined kinds
func (k Kind) IsValid() bool {
	return k >= 0 && int(k) < NumKinds
}

// IsOperator reports whether k is an arithmetic or assignment operator
func (k Kind) IsOperator() bool {
	switch k {
	case Plus, Minus, Star, Slash, Assign:
		return true
	default:
		return false
	}
}

// Symbol returns the source text of a single-character kind, or "" for
// Number and Identifier
func (k Kind) Symbol() string {
	switch k {
	case Plus:
		return "+"
	case Minus:
		return "-"
	case Star:
		return "*"
	case Slash:
		return "/"
	case LParen:
		return "("
	case RParen:
		return ")"
	case Assign:
		return "="
	default:
		return ""
	}
}

// ParseKind resolves a kind by name ("PLUS", "plus") or by symbol ("+").
// Grammar files use it.
func ParseKind(s string) (Kind, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for k := Kind(0); int(k) < NumKinds; k++ {
		if kindNames[k] == name || (k.Symbol() != "" && k.Symbol() == name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown token kind %q", s)
}

// MarshalText encodes the kind by name for JSON and YAML output
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts anything ParseKind accepts
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Kinds returns all kinds in declaration order
func Kinds() []Kind {
	kinds := make([]Kind, NumKinds)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

func symbolKind(ch rune) (Kind, bool) {
	switch ch {
	case '+':
		return Plus, true
	case '-':
		return Minus, true
	case '*':
		return Star, true
	case '/':
		return Slash, true
	case '(':
		return LParen, true
	case ')':
		return RParen, true
	case '=':
		return Assign, true
	default:
		return 0, false
	}
}

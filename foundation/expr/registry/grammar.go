// File: grammar.go
// Title: Grammar Definitions
// Description: Describes a grammar as data (token kind, prefix role, infix
//              role with precedence and associativity) so that operator
//              tables can be loaded from YAML or TOML files and turned into
//              registries without code changes.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial grammar loader

package registry

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	"github.com/msto63/mExpr/foundation/expr/token"
)

// Grammar is the data form of a registry
type Grammar struct {
	Name  string `yaml:"name" toml:"name" json:"name"`
	Rules []Rule `yaml:"rules" toml:"rules" json:"rules"`
}

// Rule configures the roles of one token kind
type Rule struct {
	Token  string      `yaml:"token" toml:"token" json:"token"` // kind name or symbol
	Prefix *PrefixRule `yaml:"prefix,omitempty" toml:"prefix,omitempty" json:"prefix,omitempty"`
	Infix  *InfixRule  `yaml:"infix,omitempty" toml:"infix,omitempty" json:"infix,omitempty"`
}

// PrefixRule selects a prefix parselet: literal, identifier, unary or group.
// Precedence is required for unary and ignored otherwise.
type PrefixRule struct {
	Role       string `yaml:"role" toml:"role" json:"role"`
	Precedence *int   `yaml:"precedence,omitempty" toml:"precedence,omitempty" json:"precedence,omitempty"`
}

// InfixRule selects an infix parselet. Role is "binary"; Assoc is "left"
// (default) or "right".
type InfixRule struct {
	Role       string `yaml:"role" toml:"role" json:"role"`
	Precedence int    `yaml:"precedence" toml:"precedence" json:"precedence"`
	Assoc      string `yaml:"assoc,omitempty" toml:"assoc,omitempty" json:"assoc,omitempty"`
}

// DefaultGrammar returns the data form of the default registry
func DefaultGrammar() *Grammar {
	unary := PrecedencePrefix
	return &Grammar{
		Name: DefaultGrammarName,
		Rules: []Rule{
			{Token: "NUMBER", Prefix: &PrefixRule{Role: "literal"}},
			{Token: "IDENTIFIER", Prefix: &PrefixRule{Role: "identifier"}},
			{Token: "+", Prefix: &PrefixRule{Role: "unary", Precedence: &unary},
				Infix: &InfixRule{Role: "binary", Precedence: PrecedenceSum, Assoc: "left"}},
			{Token: "-", Prefix: &PrefixRule{Role: "unary", Precedence: &unary},
				Infix: &InfixRule{Role: "binary", Precedence: PrecedenceSum, Assoc: "left"}},
			{Token: "*", Infix: &InfixRule{Role: "binary", Precedence: PrecedenceProduct, Assoc: "left"}},
			{Token: "/", Infix: &InfixRule{Role: "binary", Precedence: PrecedenceProduct, Assoc: "left"}},
			{Token: "(", Prefix: &PrefixRule{Role: "group"}},
			{Token: "=", Infix: &InfixRule{Role: "binary", Precedence: PrecedenceAssign, Assoc: "right"}},
		},
	}
}

// LoadGrammar reads a grammar file. The format follows the extension:
// .yaml/.yml or .toml.
func LoadGrammar(path string) (*Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to read grammar file").
			WithCode(mdwerror.CodeInvalidGrammar).
			WithDetail("path", path)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	g, err := ParseGrammar(data, format)
	if err != nil {
		return nil, mdwerror.Wrap(err, "failed to load grammar").WithDetail("path", path)
	}
	if g.Name == "" {
		g.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return g, nil
}

// ParseGrammar decodes a grammar in the given format ("yaml", "yml" or
// "toml")
func ParseGrammar(data []byte, format string) (*Grammar, error) {
	var g Grammar
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&g); err != nil {
			return nil, mdwerror.Wrap(err, "invalid YAML grammar").WithCode(mdwerror.CodeInvalidGrammar)
		}
	case "toml":
		md, err := toml.Decode(string(data), &g)
		if err != nil {
			return nil, mdwerror.Wrap(err, "invalid TOML grammar").WithCode(mdwerror.CodeInvalidGrammar)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, mdwerror.Newf("unknown grammar key %q", undecoded[0].String()).
				WithCode(mdwerror.CodeInvalidGrammar)
		}
	default:
		return nil, mdwerror.Newf("unsupported grammar format %q", format).
			WithCode(mdwerror.CodeInvalidGrammar).
			WithDetail("format", format)
	}
	return &g, nil
}

// Build validates the grammar and returns a new, unsealed registry
func (g *Grammar) Build(logger *mdwlog.Logger) (*Registry, error) {
	if len(g.Rules) == 0 {
		return nil, mdwerror.New("grammar has no rules").WithCode(mdwerror.CodeInvalidGrammar)
	}

	r := New(Options{Logger: logger, Name: g.Name})
	for i, rule := range g.Rules {
		kind, err := token.ParseKind(rule.Token)
		if err != nil {
			return nil, ruleError(i, rule, err.Error())
		}
		if rule.Prefix == nil && rule.Infix == nil {
			return nil, ruleError(i, rule, "rule has neither prefix nor infix role")
		}

		if rule.Prefix != nil {
			parselet, err := rule.Prefix.parselet()
			if err != nil {
				return nil, ruleError(i, rule, err.Error())
			}
			if err := r.RegisterPrefix(kind, parselet); err != nil {
				return nil, err
			}
		}

		if rule.Infix != nil {
			parselet, err := rule.Infix.parselet()
			if err != nil {
				return nil, ruleError(i, rule, err.Error())
			}
			if err := r.RegisterInfix(kind, parselet, rule.Infix.Precedence); err != nil {
				return nil, err
			}
		}
	}

	r.logger.Debug("grammar built", mdwlog.Fields{
		"grammar": g.Name,
		"rules":   len(g.Rules),
	})
	return r, nil
}

func (pr *PrefixRule) parselet() (PrefixParselet, error) {
	switch strings.ToLower(pr.Role) {
	case "literal":
		return LiteralParselet{}, nil
	case "identifier":
		return IdentifierParselet{}, nil
	case "group":
		return GroupParselet{}, nil
	case "unary":
		if pr.Precedence == nil {
			return nil, fmt.Errorf("unary prefix needs a precedence")
		}
		if *pr.Precedence < 0 {
			return nil, fmt.Errorf("negative precedence %d", *pr.Precedence)
		}
		return Unary(*pr.Precedence), nil
	default:
		return nil, fmt.Errorf("unknown prefix role %q", pr.Role)
	}
}

func (ir *InfixRule) parselet() (InfixParselet, error) {
	if role := strings.ToLower(ir.Role); role != "binary" && role != "" {
		return nil, fmt.Errorf("unknown infix role %q", ir.Role)
	}
	if ir.Precedence <= 0 {
		return nil, fmt.Errorf("infix precedence must be positive, got %d", ir.Precedence)
	}

	switch strings.ToLower(ir.Assoc) {
	case "", "left":
		return Binary(ir.Precedence, false), nil
	case "right":
		return Binary(ir.Precedence, true), nil
	default:
		return nil, fmt.Errorf("unknown associativity %q", ir.Assoc)
	}
}

func ruleError(index int, rule Rule, reason string) error {
	return mdwerror.Newf("grammar rule %d (%s): %s", index+1, rule.Token, reason).
		WithCode(mdwerror.CodeInvalidGrammar).
		WithDetail("rule", index+1).
		WithDetail("token", rule.Token)
}

// Describe lists the registrations of r; see Registry.Entries
func Describe(r *Registry) []Entry {
	return r.Entries()
}

// FromRegistry converts a registry back into its data form. Parselets
// without a known role are skipped.
func FromRegistry(r *Registry) *Grammar {
	g := &Grammar{Name: r.Name()}
	index := make(map[token.Kind]int)

	for _, e := range r.Entries() {
		if e.Role == "custom" {
			continue
		}
		i, ok := index[e.Kind]
		if !ok {
			g.Rules = append(g.Rules, Rule{Token: e.Kind.String()})
			i = len(g.Rules) - 1
			index[e.Kind] = i
		}
		switch e.Position {
		case "prefix":
			pr := &PrefixRule{Role: e.Role}
			if e.Role == "unary" {
				prec := e.Precedence
				pr.Precedence = &prec
			}
			g.Rules[i].Prefix = pr
		case "infix":
			g.Rules[i].Infix = &InfixRule{Role: e.Role, Precedence: e.Precedence, Assoc: e.Assoc}
		}
	}
	return g
}

// Encode writes the grammar in the given format ("yaml" or "toml")
func (g *Grammar) Encode(format string) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(g); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	case "toml":
		if err := toml.NewEncoder(&buf).Encode(g); err != nil {
			return nil, err
		}
	default:
		return nil, mdwerror.Newf("unsupported grammar format %q", format).
			WithCode(mdwerror.CodeInvalidGrammar)
	}
	return buf.Bytes(), nil
}

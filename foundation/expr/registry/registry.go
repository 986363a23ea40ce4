// File: registry.go
// Title: Parselet Registry
// Description: Fixed-size dispatch tables from token kind to prefix
//              parselet and to infix parselet with binding precedence. A
//              registry is populated once, then sealed; a sealed registry is
//              read-only and may be shared by any number of concurrent
//              parses.
// Author: msto63
// Version: v0.2.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial implementation
// - 2026-10-17 v0.2.0: Fingerprint for cache keys

package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	mdwerror "github.com/msto63/mExpr/foundation/core/error"
	mdwlog "github.com/msto63/mExpr/foundation/core/log"
	"github.com/msto63/mExpr/foundation/expr/token"
)

type infixEntry struct {
	parselet   InfixParselet
	precedence int
}

// Registry maps token kinds to parselets
type Registry struct {
	name   string
	prefix [token.NumKinds]PrefixParselet
	infix  [token.NumKinds]infixEntry
	sealed atomic.Bool
	logger *mdwlog.Logger

	fingerprint atomic.Pointer[string] // set once sealed
}

// New creates an empty registry
func New(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	if opts.Name == "" {
		opts.Name = "custom"
	}
	return &Registry{
		name:   opts.Name,
		logger: opts.Logger.WithField("component", "expr-registry"),
	}
}

// Name returns the grammar name
func (r *Registry) Name() string {
	return r.name
}

// RegisterPrefix associates kind with a prefix parselet
func (r *Registry) RegisterPrefix(kind token.Kind, parselet PrefixParselet) error {
	if err := r.checkRegistration(kind, "prefix"); err != nil {
		return err
	}
	if parselet == nil {
		return mdwerror.Newf("nil prefix parselet for %s", kind).
			WithCode(mdwerror.CodeInvalidGrammar).
			WithDetail("kind", kind.String())
	}
	if r.prefix[kind] != nil {
		return duplicate(kind, "prefix")
	}

	r.prefix[kind] = parselet
	r.logger.Trace("prefix parselet registered", mdwlog.Fields{
		"grammar": r.name,
		"kind":    kind.String(),
		"role":    roleOf(parselet),
	})
	return nil
}

// RegisterInfix associates kind with an infix parselet and its binding
// precedence. Precedence must be positive; a zero precedence could never
// bind.
func (r *Registry) RegisterInfix(kind token.Kind, parselet InfixParselet, precedence int) error {
	if err := r.checkRegistration(kind, "infix"); err != nil {
		return err
	}
	if parselet == nil {
		return mdwerror.Newf("nil infix parselet for %s", kind).
			WithCode(mdwerror.CodeInvalidGrammar).
			WithDetail("kind", kind.String())
	}
	if precedence <= 0 {
		return mdwerror.Newf("infix precedence for %s must be positive, got %d", kind, precedence).
			WithCode(mdwerror.CodeInvalidGrammar).
			WithDetail("kind", kind.String()).
			WithDetail("precedence", precedence)
	}
	if r.infix[kind].parselet != nil {
		return duplicate(kind, "infix")
	}

	r.infix[kind] = infixEntry{parselet: parselet, precedence: precedence}
	r.logger.Trace("infix parselet registered", mdwlog.Fields{
		"grammar":    r.name,
		"kind":       kind.String(),
		"role":       roleOf(parselet),
		"precedence": precedence,
	})
	return nil
}

// RegisterBinary registers a BinaryParselet for kind at the given
// precedence and associativity
func (r *Registry) RegisterBinary(kind token.Kind, precedence int, rightAssoc bool) error {
	return r.RegisterInfix(kind, Binary(precedence, rightAssoc), precedence)
}

// PrefixFor returns the prefix parselet of kind
func (r *Registry) PrefixFor(kind token.Kind) (PrefixParselet, bool) {
	if !kind.IsValid() {
		return nil, false
	}
	p := r.prefix[kind]
	return p, p != nil
}

// InfixFor returns the infix parselet of kind and its precedence
func (r *Registry) InfixFor(kind token.Kind) (InfixParselet, int, bool) {
	if !kind.IsValid() {
		return nil, 0, false
	}
	e := r.infix[kind]
	return e.parselet, e.precedence, e.parselet != nil
}

// Precedence returns the infix precedence of kind, or 0 if kind has no
// infix parselet
func (r *Registry) Precedence(kind token.Kind) int {
	_, prec, _ := r.InfixFor(kind)
	return prec
}

// Seal makes the registry read-only. Sealing twice is harmless.
func (r *Registry) Seal() {
	if r.sealed.CompareAndSwap(false, true) {
		r.logger.Debug("registry sealed", mdwlog.Fields{"grammar": r.name})
	}
}

// Sealed reports whether the registry is read-only
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Clone returns an unsealed copy that can be extended without affecting r
func (r *Registry) Clone(name string) *Registry {
	clone := &Registry{
		name:   name,
		prefix: r.prefix,
		infix:  r.infix,
		logger: r.logger,
	}
	if clone.name == "" {
		clone.name = r.name
	}
	return clone
}

// Fingerprint identifies the dispatch table of r. Registries with the same
// parselet types, precedences and associativities at every kind share a
// fingerprint, whatever their names. Function parselets are identified by
// address.
func (r *Registry) Fingerprint() string {
	if fp := r.fingerprint.Load(); fp != nil {
		return *fp
	}

	h := sha256.New()
	for _, kind := range token.Kinds() {
		if p := r.prefix[kind]; p != nil {
			fmt.Fprintf(h, "prefix %s %T", kind, p)
			switch v := p.(type) {
			case *UnaryParselet:
				fmt.Fprintf(h, " %d", v.Precedence)
			case PrefixFunc:
				fmt.Fprintf(h, " %p", v)
			}
			h.Write([]byte{'\n'})
		}
		if ie := r.infix[kind]; ie.parselet != nil {
			fmt.Fprintf(h, "infix %s %T %d", kind, ie.parselet, ie.precedence)
			switch v := ie.parselet.(type) {
			case *BinaryParselet:
				fmt.Fprintf(h, " %s", v.Assoc())
			case InfixFunc:
				fmt.Fprintf(h, " %p", v)
			}
			h.Write([]byte{'\n'})
		}
	}
	fp := hex.EncodeToString(h.Sum(nil)[:16])

	if r.sealed.Load() {
		r.fingerprint.Store(&fp)
	}
	return fp
}

// Entries lists all registrations, prefix entries first, each group in
// token kind order
func (r *Registry) Entries() []Entry {
	var entries []Entry
	for _, kind := range token.Kinds() {
		if p := r.prefix[kind]; p != nil {
			e := Entry{Kind: kind, Position: "prefix", Role: roleOf(p)}
			if u, ok := p.(*UnaryParselet); ok {
				e.Precedence = u.Precedence
			}
			entries = append(entries, e)
		}
	}
	for _, kind := range token.Kinds() {
		if ie := r.infix[kind]; ie.parselet != nil {
			e := Entry{Kind: kind, Position: "infix", Role: roleOf(ie.parselet), Precedence: ie.precedence}
			if b, ok := ie.parselet.(*BinaryParselet); ok {
				e.Assoc = b.Assoc()
			}
			entries = append(entries, e)
		}
	}
	return entries
}

func (r *Registry) checkRegistration(kind token.Kind, position string) error {
	if r.sealed.Load() {
		return mdwerror.Newf("registry %q is sealed", r.name).
			WithCode(mdwerror.CodeInvalidGrammar).
			WithDetail("kind", kind.String()).
			WithDetail("position", position)
	}
	if !kind.IsValid() {
		return mdwerror.Newf("unknown token kind %d", int(kind)).
			WithCode(mdwerror.CodeInvalidGrammar).
			WithDetail("position", position)
	}
	return nil
}

func duplicate(kind token.Kind, position string) error {
	return mdwerror.Newf("%s parselet for %s already registered", position, kind).
		WithCode(mdwerror.CodeDuplicateParselet).
		WithDetail("kind", kind.String()).
		WithDetail("position", position)
}

func roleOf(parselet interface{}) string {
	if d, ok := parselet.(Describer); ok {
		return d.Role()
	}
	return "custom"
}

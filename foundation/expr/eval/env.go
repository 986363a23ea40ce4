// File: env.go
// Title: Variable Environment
// Description: A flat namespace of numeric variables shared by the
//              evaluations of one session. Safe for concurrent use.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-17
// Modified: 2026-10-17
//
// Change History:
// - 2026-10-17 v0.1.0: Initial implementation

package eval

import (
	"sort"
	"sync"
)

// Env maps variable names to values
type Env struct {
	vars  map[string]float64
	mutex sync.RWMutex
}

// NewEnv creates an empty environment
func NewEnv() *Env {
	return &Env{vars: make(map[string]float64)}
}

// Get returns the value of name
func (e *Env) Get(name string) (float64, bool) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	v, ok := e.vars[name]
	return v, ok
}

// Set assigns value to name
func (e *Env) Set(name string, value float64) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.vars[name] = value
}

// Delete removes name and reports whether it was defined
func (e *Env) Delete(name string) bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	_, ok := e.vars[name]
	delete(e.vars, name)
	return ok
}

// Names returns the defined names in sorted order
func (e *Env) Names() []string {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of all variables
func (e *Env) Snapshot() map[string]float64 {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	snapshot := make(map[string]float64, len(e.vars))
	for k, v := range e.vars {
		snapshot[k] = v
	}
	return snapshot
}

// Len returns the number of defined variables
func (e *Env) Len() int {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return len(e.vars)
}

// Reset removes all variables
func (e *Env) Reset() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.vars = make(map[string]float64)
}

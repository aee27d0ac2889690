// Copyright 2026 The makeval Authors
// SPDX-License-Identifier: Apache-2.0

package makeval

import (
	"sort"
	"strings"
)

// Flavor is a variable's storage mode.
type Flavor int

const (
	// FlavorRecursive stores the unexpanded expression; every reference
	// re-expands it against the table at that moment.
	FlavorRecursive Flavor = iota
	// FlavorSimple stores text that was expanded once, at assignment
	// time, and never changes afterwards.
	FlavorSimple
)

// Origin is the provenance of a binding. It decides whether later
// assignments may overwrite it.
type Origin int

const (
	OriginUndefined Origin = iota
	OriginEnvironment
	OriginFile
	OriginCommandLine
	OriginOverride
	OriginAutomatic
)

func (o Origin) String() string {
	switch o {
	case OriginEnvironment:
		return "environment"
	case OriginFile:
		return "file"
	case OriginCommandLine:
		return "command line"
	case OriginOverride:
		return "override"
	case OriginAutomatic:
		return "automatic"
	}
	return "undefined"
}

// Var is one variable binding.
type Var struct {
	flavor   Flavor
	expr     Expr   // FlavorRecursive
	value    string // FlavorSimple
	origin   Origin
	exported bool
}

// NewRecursiveVar makes a deferred-expansion binding.
func NewRecursiveVar(e Expr, origin Origin) *Var {
	return &Var{flavor: FlavorRecursive, expr: e, origin: origin}
}

// NewSimpleVar makes an immediate-expansion binding holding final text.
func NewSimpleVar(value string, origin Origin) *Var {
	return &Var{flavor: FlavorSimple, value: value, origin: origin}
}

func (v *Var) Flavor() Flavor { return v.flavor }
func (v *Var) Origin() Origin { return v.origin }
func (v *Var) Exported() bool { return v.exported }

// ValueText is the stored value without expansion: the literal text of a
// simple variable, or the source rendering of a recursive one. This is
// what ifdef and $(value ...) look at.
func (v *Var) ValueText() string {
	if v.flavor == FlavorSimple {
		return v.value
	}
	return v.expr.String()
}

// eval appends the binding's value to w, re-expanding recursive vars.
func (v *Var) eval(ev *Evaluator, w *strings.Builder) error {
	if v.flavor == FlavorSimple {
		w.WriteString(v.value)
		return nil
	}
	return v.expr.Eval(ev, w)
}

// VarTable maps variable names to bindings.
type VarTable struct {
	vars map[string]*Var

	// Export requests for names with no binding yet; applied when the
	// name is first defined.
	pendingExport map[string]bool
}

func NewVarTable() *VarTable {
	return &VarTable{
		vars:          make(map[string]*Var),
		pendingExport: make(map[string]bool),
	}
}

// Lookup returns the binding for name, or nil.
func (t *VarTable) Lookup(name string) *Var {
	return t.vars[name]
}

// Set installs a binding, honoring any pending export request. Automatic
// bindings are transient (foreach/call parameters) and must not consume a
// request meant for a later real definition.
func (t *VarTable) Set(name string, v *Var) {
	if v.origin != OriginAutomatic {
		if exp, ok := t.pendingExport[name]; ok {
			v.exported = exp
			delete(t.pendingExport, name)
		}
	}
	t.vars[name] = v
}

func (t *VarTable) delete(name string) {
	delete(t.vars, name)
}

// MarkExport sets or clears name's export flag. Marking a name that has
// no binding records the request for when it is defined.
func (t *VarTable) MarkExport(name string, on bool) {
	if v := t.vars[name]; v != nil {
		v.exported = on
		return
	}
	t.pendingExport[name] = on
}

// Len is the number of bindings.
func (t *VarTable) Len() int { return len(t.vars) }

// Names returns all bound names, sorted.
func (t *VarTable) Names() []string {
	names := make([]string, 0, len(t.vars))
	for name := range t.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

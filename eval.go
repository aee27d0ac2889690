// Copyright 2026 The makeval Authors
// SPDX-License-Identifier: Apache-2.0

package makeval

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/golang/glog"
)

// Evaluator interprets directive sequences, accumulating variable
// bindings and rule bodies. It is single-threaded: evaluation is a
// depth-first walk in textual order, with included files evaluated to
// completion before the including file continues.
type Evaluator struct {
	Vars   *VarTable
	Rules  *RuleSet
	Loader FileLoader

	loc Loc

	// Bodies the next CommandStmt attaches to: one per target of the
	// most recent rule statement in the current file pass. nil means no
	// rule has been seen yet in this file.
	currentBodies []*RuleBody

	includeStack []string

	// Names whose deferred expansion is in progress, for self-reference
	// detection. Scoped to the expansion call stack, not global: entries
	// are removed as each expansion returns.
	expanding map[string]bool
}

func NewEvaluator(loader FileLoader) *Evaluator {
	return &Evaluator{
		Vars:      NewVarTable(),
		Rules:     NewRuleSet(),
		Loader:    loader,
		expanding: make(map[string]bool),
	}
}

// ImportEnviron seeds the table from "k=v" pairs with environment
// origin. Values are stored as-is; environment text is not re-scanned
// for references.
func (ev *Evaluator) ImportEnviron(environ []string) {
	for _, pair := range environ {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		ev.Vars.Set(k, NewRecursiveVar(Literal(v), OriginEnvironment))
	}
}

// SetCommandLineVar defines a command-line-origin binding. File
// assignments cannot overwrite it unless they carry override.
func (ev *Evaluator) SetCommandLineVar(name, value string) {
	ev.Vars.Set(name, NewRecursiveVar(ParseExpr(value), OriginCommandLine))
}

// Run loads and evaluates the makefile at path. The first error aborts
// the pass; there is no partial-success mode.
func (ev *Evaluator) Run(path string) error {
	stmts, err := ev.Loader.Load(path)
	if err != nil {
		return err
	}
	ev.includeStack = append(ev.includeStack, path)
	defer func() {
		ev.includeStack = ev.includeStack[:len(ev.includeStack)-1]
	}()
	return ev.EvalStmts(stmts)
}

// EvalStmts evaluates a directive sequence in textual order.
func (ev *Evaluator) EvalStmts(stmts []Stmt) error {
	for _, s := range stmts {
		if err := ev.evalStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (ev *Evaluator) evalStmt(s Stmt) error {
	ev.loc = s.Loc()
	if glog.V(2) {
		glog.Infof("eval %s: %s", ev.loc, s.DebugString())
	}
	switch s := s.(type) {
	case *RuleStmt:
		return ev.evalRule(s)
	case *AssignStmt:
		return ev.evalAssign(s)
	case *CommandStmt:
		return ev.evalCommand(s)
	case *IfStmt:
		return ev.evalIf(s)
	case *IncludeStmt:
		return ev.evalInclude(s)
	case *ExportStmt:
		return ev.evalExport(s)
	}
	panic(fmt.Sprintf("unknown directive %T", s))
}

// evalString expands e to a string right now.
func (ev *Evaluator) evalString(e Expr) (string, error) {
	var b strings.Builder
	if err := e.Eval(ev, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// expandVar appends name's expanded value to w. Undefined names expand
// to nothing. A recursive variable re-entered while its own expansion is
// still in progress is a fatal self-reference.
func (ev *Evaluator) expandVar(name string, w *strings.Builder) error {
	v := ev.Vars.Lookup(name)
	if v == nil {
		return nil
	}
	if v.flavor == FlavorRecursive {
		if ev.expanding[name] {
			return &RecursiveExpansionError{Loc: ev.loc, Name: name}
		}
		ev.expanding[name] = true
		defer delete(ev.expanding, name)
	}
	return v.eval(ev, w)
}

// Value returns the expanded value of a variable, reflecting the table
// as it stands now.
func (ev *Evaluator) Value(name string) (string, error) {
	var b strings.Builder
	if err := ev.expandVar(name, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Environ renders the export set as "k=v" pairs for child processes.
func (ev *Evaluator) Environ() ([]string, error) {
	var env []string
	for _, name := range ev.Vars.Names() {
		if !ev.Vars.Lookup(name).exported {
			continue
		}
		val, err := ev.Value(name)
		if err != nil {
			return nil, err
		}
		env = append(env, name+"="+val)
	}
	return env, nil
}

func (ev *Evaluator) evalRule(s *RuleStmt) error {
	// Targets and prerequisites are expanded once, here; they are never
	// re-expanded later.
	targetText, err := ev.evalString(s.Targets)
	if err != nil {
		return err
	}
	prereqText, err := ev.evalString(s.Prereqs)
	if err != nil {
		return err
	}
	normal, orderOnly, _ := strings.Cut(prereqText, "|")
	prereqs := strings.Fields(normal)
	order := strings.Fields(orderOnly)

	targets := strings.Fields(targetText)
	bodies := make([]*RuleBody, 0, len(targets))
	for _, target := range targets {
		body, err := ev.Rules.Add(ev.loc, target, s.DoubleColon, prereqs, order)
		if err != nil {
			return err
		}
		bodies = append(bodies, body)
	}
	ev.currentBodies = bodies
	return nil
}

func (ev *Evaluator) evalAssign(s *AssignStmt) error {
	name, err := ev.evalString(s.LHS)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%s: empty variable name", ev.loc)
	}

	existing := ev.Vars.Lookup(name)
	origin := OriginFile
	if s.Directive == DirOverride {
		origin = OriginOverride
	}

	// Command-line and override bindings are read-only to plain file
	// assignments; only the export side effect still applies.
	protected := s.Directive != DirOverride && existing != nil &&
		(existing.origin == OriginCommandLine || existing.origin == OriginOverride)

	switch {
	case protected:
	case s.Op == OpCondSet && existing != nil:
		// ?= keeps any existing binding, whatever its origin.
	case s.Op == OpAppend && existing != nil:
		if err := ev.appendVar(existing, s.RHS); err != nil {
			return err
		}
		// override X += ... upgrades the binding so later plain
		// assignments cannot touch it.
		if s.Directive == DirOverride {
			existing.origin = OriginOverride
		}
	case s.Op == OpSimpleSet:
		val, err := ev.evalString(s.RHS)
		if err != nil {
			return err
		}
		ev.setVar(name, NewSimpleVar(val, origin), existing)
	default:
		// =, ?= with no binding, += with no binding.
		ev.setVar(name, NewRecursiveVar(s.RHS, origin), existing)
	}

	if s.Directive == DirExport {
		ev.Vars.MarkExport(name, true)
	}
	if glog.V(2) {
		glog.Infof("assign %s %s (origin %s)", name, s.Op, origin)
	}
	return nil
}

// setVar installs a binding, carrying the export flag over from the one
// it replaces.
func (ev *Evaluator) setVar(name string, v *Var, existing *Var) {
	if existing != nil {
		v.exported = existing.exported
	}
	ev.Vars.Set(name, v)
}

// appendVar implements +=, preserving the existing binding's flavor. A
// simple variable expands the appended text now; a recursive one splices
// the unexpanded expression so later references still see live values.
func (ev *Evaluator) appendVar(v *Var, rhs Expr) error {
	if v.flavor == FlavorSimple {
		val, err := ev.evalString(rhs)
		if err != nil {
			return err
		}
		if v.value != "" {
			v.value += " "
		}
		v.value += val
		return nil
	}
	v.expr = ExprSeq{v.expr, Literal(" "), rhs}
	return nil
}

func (ev *Evaluator) evalCommand(s *CommandStmt) error {
	if ev.currentBodies == nil {
		return &DanglingRecipeError{Loc: ev.loc}
	}
	// Stored unexpanded: recipe lines belong to the execution engine and
	// expand against automatic variables we never define.
	for _, body := range ev.currentBodies {
		body.Recipe = append(body.Recipe, s.Expr)
	}
	return nil
}

func (ev *Evaluator) evalIf(s *IfStmt) error {
	var cond bool
	switch s.Op {
	case CondIfeq, CondIfneq:
		lhs, err := ev.evalString(s.LHS)
		if err != nil {
			return err
		}
		rhs, err := ev.evalString(s.RHS)
		if err != nil {
			return err
		}
		cond = lhs == rhs
		if s.Op == CondIfneq {
			cond = !cond
		}
	case CondIfdef, CondIfndef:
		name, err := ev.evalString(s.LHS)
		if err != nil {
			return err
		}
		// ifdef tests the unexpanded value text, so a variable bound to
		// an empty string counts as undefined.
		v := ev.Vars.Lookup(strings.TrimSpace(name))
		cond = v != nil && v.ValueText() != ""
		if s.Op == CondIfndef {
			cond = !cond
		}
	}
	// Only the taken branch is dispatched; the other branch's directives
	// never run and leave no side effects.
	if cond {
		return ev.EvalStmts(s.True)
	}
	return ev.EvalStmts(s.False)
}

func (ev *Evaluator) evalInclude(s *IncludeStmt) error {
	pathText, err := ev.evalString(s.Expr)
	if err != nil {
		return err
	}
	for _, path := range strings.Fields(pathText) {
		if slices.Contains(ev.includeStack, path) {
			return &CircularIncludeError{Loc: ev.loc, File: path}
		}
		stmts, err := ev.Loader.Load(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if s.Required {
					return &MissingIncludeError{Loc: ev.loc, File: path, Err: err}
				}
				glog.V(1).Infof("skipping optional include %q", path)
				continue
			}
			return fmt.Errorf("%s: include %s: %w", ev.loc, path, err)
		}
		if err := ev.evalIncluded(path, stmts); err != nil {
			return err
		}
	}
	return nil
}

// evalIncluded runs a nested file pass: fresh current-rule context, path
// pushed for cycle detection. The pops happen via defer so the stack
// stays consistent when the nested pass fails.
func (ev *Evaluator) evalIncluded(path string, stmts []Stmt) error {
	glog.V(1).Infof("include %q (depth %d)", path, len(ev.includeStack))
	ev.includeStack = append(ev.includeStack, path)
	savedBodies, savedLoc := ev.currentBodies, ev.loc
	ev.currentBodies = nil
	defer func() {
		ev.includeStack = ev.includeStack[:len(ev.includeStack)-1]
		ev.currentBodies, ev.loc = savedBodies, savedLoc
	}()
	return ev.EvalStmts(stmts)
}

// evalExport applies export/unexport. An empty expansion is a snapshot:
// it flips every binding present right now and says nothing about
// variables defined later.
func (ev *Evaluator) evalExport(s *ExportStmt) error {
	text, err := ev.evalString(s.Expr)
	if err != nil {
		return err
	}
	names := strings.Fields(text)
	if len(names) == 0 {
		for _, name := range ev.Vars.Names() {
			ev.Vars.Lookup(name).exported = s.Enable
		}
		return nil
	}
	for _, name := range names {
		ev.Vars.MarkExport(name, s.Enable)
	}
	return nil
}

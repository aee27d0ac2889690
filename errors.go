// Copyright 2026 The makeval Authors
// SPDX-License-Identifier: Apache-2.0

package makeval

import "fmt"

// Loc is a source location for diagnostics.
type Loc struct {
	Path string
	Line int
}

func (l Loc) String() string {
	if l.Path == "" {
		return fmt.Sprintf("<unknown>:%d", l.Line)
	}
	return fmt.Sprintf("%s:%d", l.Path, l.Line)
}

// RecursiveExpansionError reports a variable that transitively references
// itself during deferred expansion.
type RecursiveExpansionError struct {
	Loc  Loc
	Name string
}

func (e *RecursiveExpansionError) Error() string {
	return fmt.Sprintf("%s: recursive variable %q references itself (eventually)", e.Loc, e.Name)
}

// ConflictingRuleTypeError reports a target declared with both single-colon
// and double-colon rules.
type ConflictingRuleTypeError struct {
	Loc    Loc
	Target string
}

func (e *ConflictingRuleTypeError) Error() string {
	return fmt.Sprintf("%s: target %q given both : and :: entries", e.Loc, e.Target)
}

// DanglingRecipeError reports a recipe line with no preceding rule.
type DanglingRecipeError struct {
	Loc Loc
}

func (e *DanglingRecipeError) Error() string {
	return fmt.Sprintf("%s: recipe commences before first target", e.Loc)
}

// CircularIncludeError reports a file that includes itself, directly or
// through a chain of includes.
type CircularIncludeError struct {
	Loc  Loc
	File string
}

func (e *CircularIncludeError) Error() string {
	return fmt.Sprintf("%s: circular include of %q", e.Loc, e.File)
}

// MissingIncludeError reports a required include whose file does not exist.
type MissingIncludeError struct {
	Loc  Loc
	File string
	Err  error
}

func (e *MissingIncludeError) Error() string {
	return fmt.Sprintf("%s: cannot read %q", e.Loc, e.File)
}

func (e *MissingIncludeError) Unwrap() error { return e.Err }

// UndefinedFunctionError reports a call to an unknown function name.
type UndefinedFunctionError struct {
	Loc  Loc
	Name string
}

func (e *UndefinedFunctionError) Error() string {
	return fmt.Sprintf("%s: undefined function %q", e.Loc, e.Name)
}

// MalformedConditionalError reports a structurally invalid conditional,
// such as an else or endif with no open ifeq/ifdef block.
type MalformedConditionalError struct {
	Loc Loc
	Msg string
}

func (e *MalformedConditionalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Msg)
}

package makeval

import (
	"fmt"
	"strings"
)

// Stmt is the interface for all top-level makefile directives.
type Stmt interface {
	stmt()

	// Loc returns the source location of the directive.
	Loc() Loc
	// Orig returns the original unexpanded source text.
	Orig() string
	// DebugString renders the directive for diagnostics.
	DebugString() string
}

type stmtBase struct {
	loc  Loc
	orig string
}

func (b stmtBase) Loc() Loc     { return b.loc }
func (b stmtBase) Orig() string { return b.orig }

type AssignOp int

const (
	OpSet       AssignOp = iota // =  recursive
	OpSimpleSet                 // := simple
	OpAppend                    // +=
	OpCondSet                   // ?=
)

func (op AssignOp) String() string {
	switch op {
	case OpSet:
		return "="
	case OpSimpleSet:
		return ":="
	case OpAppend:
		return "+="
	case OpCondSet:
		return "?="
	}
	return "?"
}

type AssignDirective int

const (
	DirNone AssignDirective = iota
	DirOverride
	DirExport
)

type CondOp int

const (
	CondIfeq CondOp = iota
	CondIfneq
	CondIfdef
	CondIfndef
)

func (op CondOp) String() string {
	switch op {
	case CondIfeq:
		return "ifeq"
	case CondIfneq:
		return "ifneq"
	case CondIfdef:
		return "ifdef"
	case CondIfndef:
		return "ifndef"
	}
	return "?"
}

// RuleStmt is a rule header: targets, colon kind and prerequisites.
// Targets and prerequisites are expanded once, when the statement is
// evaluated; recipe lines attach via subsequent CommandStmts.
type RuleStmt struct {
	stmtBase
	Targets     Expr
	DoubleColon bool
	Prereqs     Expr
}

// AssignStmt is a variable assignment. The storage mode of RHS depends on
// Op; LHS is expanded immediately to obtain the variable name.
type AssignStmt struct {
	stmtBase
	LHS       Expr
	RHS       Expr
	Op        AssignOp
	Directive AssignDirective
}

// CommandStmt is one recipe line belonging to the most recent rule.
type CommandStmt struct {
	stmtBase
	Expr Expr
}

// IfStmt is a conditional block. For CondIfdef/CondIfndef only LHS is
// meaningful. Exactly one branch is evaluated; the other branch's
// directives are never dispatched.
type IfStmt struct {
	stmtBase
	Op    CondOp
	LHS   Expr
	RHS   Expr
	True  []Stmt
	False []Stmt
}

// IncludeStmt loads and evaluates another makefile. When Required is
// false a missing file is silently skipped.
type IncludeStmt struct {
	stmtBase
	Expr     Expr
	Required bool
}

// ExportStmt sets or clears export flags. An empty expansion applies to
// every variable currently in the table.
type ExportStmt struct {
	stmtBase
	Expr   Expr
	Enable bool
}

func (*RuleStmt) stmt()    {}
func (*AssignStmt) stmt()  {}
func (*CommandStmt) stmt() {}
func (*IfStmt) stmt()      {}
func (*IncludeStmt) stmt() {}
func (*ExportStmt) stmt()  {}

func (s *RuleStmt) DebugString() string {
	sep := ":"
	if s.DoubleColon {
		sep = "::"
	}
	return fmt.Sprintf("RuleStmt(%s %s %s)", s.Targets, sep, s.Prereqs)
}

func (s *AssignStmt) DebugString() string {
	var dir string
	switch s.Directive {
	case DirOverride:
		dir = " override"
	case DirExport:
		dir = " export"
	}
	return fmt.Sprintf("AssignStmt(%s %s %s%s)", s.LHS, s.Op, s.RHS, dir)
}

func (s *CommandStmt) DebugString() string {
	return fmt.Sprintf("CommandStmt(%s)", s.Expr)
}

func (s *IfStmt) DebugString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "IfStmt(%s %s", s.Op, s.LHS)
	if s.Op == CondIfeq || s.Op == CondIfneq {
		fmt.Fprintf(&b, ", %s", s.RHS)
	}
	fmt.Fprintf(&b, " then %d else %d)", len(s.True), len(s.False))
	return b.String()
}

func (s *IncludeStmt) DebugString() string {
	if s.Required {
		return fmt.Sprintf("IncludeStmt(%s)", s.Expr)
	}
	return fmt.Sprintf("IncludeStmt(-%s)", s.Expr)
}

func (s *ExportStmt) DebugString() string {
	if s.Enable {
		return fmt.Sprintf("ExportStmt(%s)", s.Expr)
	}
	return fmt.Sprintf("UnexportStmt(%s)", s.Expr)
}

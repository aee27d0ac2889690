// Copyright 2026 The makeval Authors
// SPDX-License-Identifier: Apache-2.0

package makeval

import (
	"errors"
	"strings"
	"testing"
)

func parse(t *testing.T, src string) []Stmt {
	t.Helper()
	stmts, err := Parse("Makefile", strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %s", err)
	}
	return stmts
}

func parseErr(t *testing.T, src string) error {
	t.Helper()
	_, err := Parse("Makefile", strings.NewReader(src))
	if err == nil {
		t.Fatalf("expected parse error for:\n%s", src)
	}
	return err
}

func TestParseAssignOps(t *testing.T) {
	tests := []struct {
		src string
		op  AssignOp
	}{
		{"X = a", OpSet},
		{"X := a", OpSimpleSet},
		{"X ::= a", OpSimpleSet},
		{"X += a", OpAppend},
		{"X ?= a", OpCondSet},
	}
	for _, tc := range tests {
		stmts := parse(t, tc.src+"\n")
		if len(stmts) != 1 {
			t.Fatalf("%q: got %d stmts", tc.src, len(stmts))
		}
		a, ok := stmts[0].(*AssignStmt)
		if !ok {
			t.Fatalf("%q: got %T, want AssignStmt", tc.src, stmts[0])
		}
		if a.Op != tc.op {
			t.Errorf("%q: op = %s, want %s", tc.src, a.Op, tc.op)
		}
		if a.LHS.String() != "X" || a.RHS.String() != "a" {
			t.Errorf("%q: parsed as %s", tc.src, a.DebugString())
		}
	}
}

func TestParseAssignDirectives(t *testing.T) {
	stmts := parse(t, "override A = 1\nexport B := 2\n")
	a := stmts[0].(*AssignStmt)
	if a.Directive != DirOverride {
		t.Errorf("override not recognized: %s", a.DebugString())
	}
	b := stmts[1].(*AssignStmt)
	if b.Directive != DirExport || b.Op != OpSimpleSet {
		t.Errorf("export assignment mis-parsed: %s", b.DebugString())
	}
}

func TestParseRuleForms(t *testing.T) {
	stmts := parse(t, "out: in1 in2\nall clean::\n")
	r := stmts[0].(*RuleStmt)
	if r.DoubleColon || r.Targets.String() != "out" || r.Prereqs.String() != "in1 in2" {
		t.Errorf("mis-parsed: %s", r.DebugString())
	}
	r2 := stmts[1].(*RuleStmt)
	if !r2.DoubleColon || r2.Targets.String() != "all clean" {
		t.Errorf("mis-parsed: %s", r2.DebugString())
	}
}

func TestParseRuleNotConfusedByColonEquals(t *testing.T) {
	stmts := parse(t, "X := not-a-rule\n")
	if _, ok := stmts[0].(*AssignStmt); !ok {
		t.Fatalf(":= parsed as %T", stmts[0])
	}
}

func TestParseColonInsideRefDoesNotSplit(t *testing.T) {
	stmts := parse(t, "Y = $(X:.c=.o)\n")
	a, ok := stmts[0].(*AssignStmt)
	if !ok {
		t.Fatalf("got %T, want AssignStmt", stmts[0])
	}
	if _, ok := a.RHS.(*VarSubst); !ok {
		t.Errorf("RHS = %T, want VarSubst", a.RHS)
	}
}

func TestParseRecipeLines(t *testing.T) {
	stmts := parse(t, "t:\n\techo one # not a comment\n\t\n\techo two\n")
	if len(stmts) != 3 {
		t.Fatalf("got %d stmts, want rule plus 2 recipe lines", len(stmts))
	}
	c := stmts[1].(*CommandStmt)
	if !strings.Contains(c.Expr.String(), "# not a comment") {
		t.Errorf("recipe comment stripped: %q", c.Expr.String())
	}
}

func TestParseInlineRecipe(t *testing.T) {
	stmts := parse(t, "t: dep ; echo hi\n")
	if len(stmts) != 2 {
		t.Fatalf("got %d stmts, want 2", len(stmts))
	}
	r := stmts[0].(*RuleStmt)
	if r.Prereqs.String() != "dep" {
		t.Errorf("prereqs = %q", r.Prereqs.String())
	}
	c := stmts[1].(*CommandStmt)
	if c.Expr.String() != "echo hi" {
		t.Errorf("inline recipe = %q", c.Expr.String())
	}
}

func TestParseConditionalShape(t *testing.T) {
	stmts := parse(t, `
ifeq (a,b)
X = 1
else
Y = 2
Z = 3
endif
`)
	if len(stmts) != 1 {
		t.Fatalf("got %d top-level stmts, want 1", len(stmts))
	}
	s := stmts[0].(*IfStmt)
	if s.Op != CondIfeq || len(s.True) != 1 || len(s.False) != 2 {
		t.Errorf("shape = %s", s.DebugString())
	}
}

func TestParseNestedConditionals(t *testing.T) {
	stmts := parse(t, `
ifdef A
ifdef B
X = 1
endif
endif
`)
	outer := stmts[0].(*IfStmt)
	if len(outer.True) != 1 {
		t.Fatalf("outer true branch has %d stmts", len(outer.True))
	}
	inner, ok := outer.True[0].(*IfStmt)
	if !ok || inner.Op != CondIfdef || len(inner.True) != 1 {
		t.Errorf("inner = %s", outer.True[0].DebugString())
	}
}

func TestParseElseIfChain(t *testing.T) {
	stmts := parse(t, `
ifeq (a,a)
X = 1
else ifeq (b,b)
X = 2
else
X = 3
endif
`)
	if len(stmts) != 1 {
		t.Fatalf("got %d top-level stmts; one endif must close the chain", len(stmts))
	}
	outer := stmts[0].(*IfStmt)
	if len(outer.False) != 1 {
		t.Fatalf("outer false branch has %d stmts", len(outer.False))
	}
	second := outer.False[0].(*IfStmt)
	if len(second.True) != 1 || len(second.False) != 1 {
		t.Errorf("chained conditional shape = %s", second.DebugString())
	}
}

func TestParseQuotedConditional(t *testing.T) {
	stmts := parse(t, "ifeq \"a b\" 'c'\nendif\n")
	s := stmts[0].(*IfStmt)
	if s.LHS.String() != "a b" || s.RHS.String() != "c" {
		t.Errorf("operands = %q, %q", s.LHS.String(), s.RHS.String())
	}
}

func TestParseCondCommaInsideRef(t *testing.T) {
	stmts := parse(t, "ifeq ($(subst a,b,x),y)\nendif\n")
	s := stmts[0].(*IfStmt)
	if _, ok := s.LHS.(*FuncCall); !ok {
		t.Errorf("LHS = %T, want the whole call on the left of the comma", s.LHS)
	}
	if s.RHS.String() != "y" {
		t.Errorf("RHS = %q", s.RHS.String())
	}
}

func TestParseConditionalErrors(t *testing.T) {
	tests := []struct {
		src, msg string
	}{
		{"else\n", "else without matching conditional"},
		{"endif\n", "endif without matching conditional"},
		{"ifeq (a,a)\n", "missing endif"},
		{"ifeq (a,a)\nelse\nelse\nendif\n", "only one else"},
		{"ifeq (a b)\nendif\n", "comma"},
		{"ifdef\nendif\n", "variable name"},
		{"ifeq (a,a)\nendif trailing\n", "endif"},
		{"ifeq \"unterminated\nendif\n", "unterminated"},
	}
	for _, tc := range tests {
		err := parseErr(t, tc.src)
		var merr *MalformedConditionalError
		if !errors.As(err, &merr) {
			t.Errorf("%q: got %T (%s), want MalformedConditionalError", tc.src, err, err)
			continue
		}
		if !strings.Contains(err.Error(), tc.msg) {
			t.Errorf("%q: error %q does not mention %q", tc.src, err, tc.msg)
		}
	}
}

func TestParseIncludeForms(t *testing.T) {
	stmts := parse(t, "include a.mk b.mk\n-include opt.mk\nsinclude opt2.mk\n")
	inc := stmts[0].(*IncludeStmt)
	if !inc.Required || inc.Expr.String() != "a.mk b.mk" {
		t.Errorf("include mis-parsed: %s", inc.DebugString())
	}
	for i := 1; i <= 2; i++ {
		if stmts[i].(*IncludeStmt).Required {
			t.Errorf("stmt %d should be optional", i)
		}
	}
}

func TestParseExportForms(t *testing.T) {
	stmts := parse(t, "export\nexport A B\nunexport C\n")
	bare := stmts[0].(*ExportStmt)
	if !bare.Enable || bare.Expr.String() != "" {
		t.Errorf("bare export mis-parsed: %s", bare.DebugString())
	}
	named := stmts[1].(*ExportStmt)
	if !named.Enable || named.Expr.String() != "A B" {
		t.Errorf("named export mis-parsed: %s", named.DebugString())
	}
	un := stmts[2].(*ExportStmt)
	if un.Enable || un.Expr.String() != "C" {
		t.Errorf("unexport mis-parsed: %s", un.DebugString())
	}
}

func TestParseOverrideRequiresAssignment(t *testing.T) {
	err := parseErr(t, "override just words\n")
	if !strings.Contains(err.Error(), "override") {
		t.Errorf("error = %q", err)
	}
}

func TestParseMissingSeparator(t *testing.T) {
	err := parseErr(t, "just some words\n")
	if !strings.Contains(err.Error(), "missing separator") {
		t.Errorf("error = %q", err)
	}
}

func TestParseComments(t *testing.T) {
	stmts := parse(t, "# full line\nX = value # trailing\nY = a\\#b\n")
	if len(stmts) != 2 {
		t.Fatalf("got %d stmts, want 2", len(stmts))
	}
	if got := stmts[0].(*AssignStmt).RHS.String(); got != "value" {
		t.Errorf("trailing comment kept: %q", got)
	}
	if got := stmts[1].(*AssignStmt).RHS.String(); got != "a#b" {
		t.Errorf("escaped hash = %q, want a#b", got)
	}
}

func TestParseContinuations(t *testing.T) {
	stmts := parse(t, "LONG = one \\\n\ttwo \\\n\tthree\n")
	a := stmts[0].(*AssignStmt)
	if got := a.RHS.String(); got != "one two three" {
		t.Errorf("joined = %q, want words separated by single spaces", got)
	}
	if a.Loc().Line != 1 {
		t.Errorf("location = %s, want line 1", a.Loc())
	}
}

func TestParseLocations(t *testing.T) {
	stmts := parse(t, "\nA = 1\n\nB = 2\n")
	if stmts[0].Loc().Line != 2 || stmts[1].Loc().Line != 4 {
		t.Errorf("locations = %s, %s", stmts[0].Loc(), stmts[1].Loc())
	}
	if stmts[0].Loc().Path != "Makefile" {
		t.Errorf("path = %q", stmts[0].Loc().Path)
	}
}

func TestParseOrigText(t *testing.T) {
	stmts := parse(t, "X = 1\n")
	if stmts[0].Orig() != "X = 1" {
		t.Errorf("orig = %q", stmts[0].Orig())
	}
}

// Copyright 2026 The makeval Authors
// SPDX-License-Identifier: Apache-2.0

package makeval

import "strings"

// Expr is an immutable fragment of makefile text: a literal, a variable
// reference (whose name is itself an Expr, so computed names work), a
// substitution reference, a function call, or a concatenation of those.
//
// Eval performs deferred expansion: every variable reference is resolved
// against the evaluator's table as it exists at call time. Immediate
// expansion is simply calling Eval once and storing the resulting string.
type Expr interface {
	expr()

	// Eval expands the expression against ev's variable table,
	// appending the result to w.
	Eval(ev *Evaluator, w *strings.Builder) error

	// String renders the expression back as makefile-syntax text.
	String() string
}

// Literal is plain text with no references.
type Literal string

// VarRef is a variable reference $(NAME); Name may itself contain
// references, giving computed variable names.
type VarRef struct {
	Name Expr
}

// VarSubst is a substitution reference $(NAME:from=to). Each word of the
// variable's value matching from (with an implied % if none is given) is
// rewritten to to.
type VarSubst struct {
	Name Expr
	From Expr
	To   Expr
}

// FuncCall is a function invocation $(name arg,arg,...). Arguments are
// kept unexpanded; each function decides when (and whether) to expand
// them.
type FuncCall struct {
	Name string
	Args []Expr
}

// ExprSeq is the concatenation of its elements.
type ExprSeq []Expr

func (Literal) expr()   {}
func (*VarRef) expr()   {}
func (*VarSubst) expr() {}
func (*FuncCall) expr() {}
func (ExprSeq) expr()   {}

func (e Literal) Eval(ev *Evaluator, w *strings.Builder) error {
	w.WriteString(string(e))
	return nil
}

func (e *VarRef) Eval(ev *Evaluator, w *strings.Builder) error {
	name, err := ev.evalString(e.Name)
	if err != nil {
		return err
	}
	return ev.expandVar(name, w)
}

func (e *VarSubst) Eval(ev *Evaluator, w *strings.Builder) error {
	name, err := ev.evalString(e.Name)
	if err != nil {
		return err
	}
	var val strings.Builder
	if err := ev.expandVar(name, &val); err != nil {
		return err
	}
	from, err := ev.evalString(e.From)
	if err != nil {
		return err
	}
	to, err := ev.evalString(e.To)
	if err != nil {
		return err
	}
	// $(V:.c=.o) is shorthand for $(patsubst %.c,%.o,$(V)).
	if !strings.Contains(from, "%") {
		from = "%" + from
		to = "%" + to
	}
	ws := wordScanner{text: val.String()}
	for ws.next() {
		if ws.index > 0 {
			w.WriteByte(' ')
		}
		w.WriteString(substPattern(from, to, ws.word))
	}
	return nil
}

func (e *FuncCall) Eval(ev *Evaluator, w *strings.Builder) error {
	f, ok := builtinFuncs[e.Name]
	if !ok {
		return &UndefinedFunctionError{Loc: ev.loc, Name: e.Name}
	}
	return f.call(ev, e.Args, w)
}

func (e ExprSeq) Eval(ev *Evaluator, w *strings.Builder) error {
	for _, sub := range e {
		if err := sub.Eval(ev, w); err != nil {
			return err
		}
	}
	return nil
}

func (e Literal) String() string {
	return strings.ReplaceAll(string(e), "$", "$$")
}

func (e *VarRef) String() string {
	return "$(" + e.Name.String() + ")"
}

func (e *VarSubst) String() string {
	return "$(" + e.Name.String() + ":" + e.From.String() + "=" + e.To.String() + ")"
}

func (e *FuncCall) String() string {
	var b strings.Builder
	b.WriteString("$(")
	b.WriteString(e.Name)
	for i, arg := range e.Args {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteByte(',')
		}
		b.WriteString(arg.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (e ExprSeq) String() string {
	var b strings.Builder
	for _, sub := range e {
		b.WriteString(sub.String())
	}
	return b.String()
}

// compactExpr flattens a parsed fragment list into its minimal form.
func compactExpr(elems []Expr) Expr {
	switch len(elems) {
	case 0:
		return Literal("")
	case 1:
		return elems[0]
	}
	return ExprSeq(elems)
}

// wordScanner iterates whitespace-separated words of a string without
// allocating the intermediate slice strings.Fields would. index is the
// zero-based position of the current word.
type wordScanner struct {
	text  string
	word  string
	index int
	pos   int
	seen  bool
}

func (s *wordScanner) next() bool {
	for s.pos < len(s.text) && isSpace(s.text[s.pos]) {
		s.pos++
	}
	if s.pos >= len(s.text) {
		return false
	}
	start := s.pos
	for s.pos < len(s.text) && !isSpace(s.text[s.pos]) {
		s.pos++
	}
	if s.seen {
		s.index++
	} else {
		s.seen = true
	}
	s.word = s.text[start:s.pos]
	return true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// substPattern rewrites word according to a %-pattern pair. A pattern
// without % matches only the whole word.
func substPattern(pat, repl, word string) string {
	prefix, suffix, ok := strings.Cut(pat, "%")
	if !ok {
		if word == pat {
			return repl
		}
		return word
	}
	if len(word) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(word, prefix) && strings.HasSuffix(word, suffix) {
		stem := word[len(prefix) : len(word)-len(suffix)]
		return strings.Replace(repl, "%", stem, 1)
	}
	return word
}

// matchPattern tests a word against a %-pattern.
func matchPattern(pat, word string) bool {
	prefix, suffix, ok := strings.Cut(pat, "%")
	if !ok {
		return word == pat
	}
	return len(word) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(word, prefix) && strings.HasSuffix(word, suffix)
}

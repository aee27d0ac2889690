// Copyright 2026 The makeval Authors
// SPDX-License-Identifier: Apache-2.0

package makeval

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Parse reads makefile text and produces the directive sequence the
// evaluator consumes. path is used for locations only.
func Parse(path string, r io.Reader) ([]Stmt, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	p := &parser{path: path}
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		start := lineno
		// Backslash continuations collapse to a single space.
		for strings.HasSuffix(line, "\\") && scanner.Scan() {
			lineno++
			line = strings.TrimRight(line[:len(line)-1], " \t") + " " +
				strings.TrimLeft(scanner.Text(), " \t")
		}
		if err := p.parseLine(line, start); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(p.condStack) > 0 {
		f := p.condStack[len(p.condStack)-1]
		return nil, &MalformedConditionalError{Loc: f.loc, Msg: "missing endif"}
	}
	return p.stmts, nil
}

type parser struct {
	path  string
	stmts []Stmt

	// Open conditional blocks, innermost last. Pairs ifeq/else/endif at
	// parse time so the evaluator sees nested branch bodies and gets
	// short-circuiting structurally.
	condStack []*condFrame
}

type condFrame struct {
	loc    Loc
	cur    *IfStmt // innermost conditional of an else-if chain
	inElse bool
}

// out appends a finished statement to the current branch body, or to the
// top level when no conditional is open.
func (p *parser) out(s Stmt) {
	if n := len(p.condStack); n > 0 {
		f := p.condStack[n-1]
		if f.inElse {
			f.cur.False = append(f.cur.False, s)
		} else {
			f.cur.True = append(f.cur.True, s)
		}
		return
	}
	p.stmts = append(p.stmts, s)
}

func (p *parser) parseLine(raw string, lineno int) error {
	base := stmtBase{loc: Loc{Path: p.path, Line: lineno}, orig: raw}

	// Tab-indented lines are recipe text, comments and all.
	if strings.HasPrefix(raw, "\t") {
		text := raw[1:]
		if strings.TrimSpace(text) == "" {
			return nil
		}
		p.out(&CommandStmt{stmtBase: base, Expr: ParseExpr(text)})
		return nil
	}

	line := strings.TrimSpace(stripComment(raw))
	if line == "" {
		return nil
	}

	switch {
	case hasWordPrefix(line, "ifeq"), hasWordPrefix(line, "ifneq"),
		hasWordPrefix(line, "ifdef"), hasWordPrefix(line, "ifndef"):
		s, err := p.parseIfStmt(line, base)
		if err != nil {
			return err
		}
		p.out(s)
		p.condStack = append(p.condStack, &condFrame{loc: base.loc, cur: s})
		return nil

	case hasWordPrefix(line, "else"):
		return p.parseElse(line, base)

	case hasWordPrefix(line, "endif"):
		if rest := strings.TrimSpace(line[len("endif"):]); rest != "" {
			return &MalformedConditionalError{Loc: base.loc, Msg: "extraneous text after endif"}
		}
		if len(p.condStack) == 0 {
			return &MalformedConditionalError{Loc: base.loc, Msg: "endif without matching conditional"}
		}
		p.condStack = p.condStack[:len(p.condStack)-1]
		return nil

	case hasWordPrefix(line, "include"):
		p.out(&IncludeStmt{stmtBase: base, Expr: ParseExpr(strings.TrimSpace(line[len("include"):])), Required: true})
		return nil

	case hasWordPrefix(line, "-include"), hasWordPrefix(line, "sinclude"):
		p.out(&IncludeStmt{stmtBase: base, Expr: ParseExpr(strings.TrimSpace(line[len("-include"):])), Required: false})
		return nil

	case hasWordPrefix(line, "export"):
		rest := strings.TrimSpace(line[len("export"):])
		if rest == "" {
			p.out(&ExportStmt{stmtBase: base, Expr: Literal(""), Enable: true})
			return nil
		}
		handled, err := p.parseAssignOrRule(rest, base, DirExport)
		if err != nil {
			return err
		}
		if !handled {
			p.out(&ExportStmt{stmtBase: base, Expr: ParseExpr(rest), Enable: true})
		}
		return nil

	case hasWordPrefix(line, "unexport"):
		rest := strings.TrimSpace(line[len("unexport"):])
		p.out(&ExportStmt{stmtBase: base, Expr: ParseExpr(rest), Enable: false})
		return nil

	case hasWordPrefix(line, "override"):
		rest := strings.TrimSpace(line[len("override"):])
		handled, err := p.parseAssignOrRule(rest, base, DirOverride)
		if err != nil {
			return err
		}
		if !handled {
			return fmt.Errorf("%s: invalid override directive", base.loc)
		}
		return nil
	}

	handled, err := p.parseAssignOrRule(line, base, DirNone)
	if err != nil {
		return err
	}
	if !handled {
		return fmt.Errorf("%s: missing separator", base.loc)
	}
	return nil
}

// parseAssignOrRule scans for the earliest top-level assignment operator
// or rule colon. $(...) and ${...} groups are opaque to the scan, so
// colons and equals inside references never split a line. When dir is
// set, only the assignment form is accepted (export/override prefixes).
func (p *parser) parseAssignOrRule(line string, base stmtBase, dir AssignDirective) (bool, error) {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '$':
			if i+1 < len(line) && (line[i+1] == '(' || line[i+1] == '{') {
				if end := matchingClose(line[i+1:], line[i+1]); end >= 0 {
					i += end + 1
				}
			}

		case '=':
			op := OpSet
			lhsEnd := i
			if i > 0 {
				switch line[i-1] {
				case ':':
					op = OpSimpleSet
					lhsEnd = i - 1
					if i > 1 && line[i-2] == ':' {
						lhsEnd = i - 2
					}
				case '+':
					op = OpAppend
					lhsEnd = i - 1
				case '?':
					op = OpCondSet
					lhsEnd = i - 1
				}
			}
			lhs := strings.TrimSpace(line[:lhsEnd])
			if lhs == "" {
				return false, fmt.Errorf("%s: empty variable name", base.loc)
			}
			rhs := strings.TrimSpace(line[i+1:])
			p.out(&AssignStmt{
				stmtBase:  base,
				LHS:       ParseExpr(lhs),
				RHS:       ParseExpr(rhs),
				Op:        op,
				Directive: dir,
			})
			return true, nil

		case ':':
			if i+1 < len(line) && line[i+1] == '=' {
				continue // :=, handled at the =
			}
			if i+2 < len(line) && line[i+1] == ':' && line[i+2] == '=' {
				continue // ::=
			}
			if dir != DirNone {
				return false, nil
			}
			return true, p.parseRule(line, i, base)
		}
	}
	return false, nil
}

func (p *parser) parseRule(line string, colon int, base stmtBase) error {
	double := false
	restStart := colon + 1
	if restStart < len(line) && line[restStart] == ':' {
		double = true
		restStart++
	}
	targets := strings.TrimSpace(line[:colon])
	rest := line[restStart:]

	// target: prereq ; first-recipe-line
	cmd := ""
	hasCmd := false
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '$':
			if i+1 < len(rest) && (rest[i+1] == '(' || rest[i+1] == '{') {
				if end := matchingClose(rest[i+1:], rest[i+1]); end >= 0 {
					i += end + 1
				}
			}
		case ';':
			cmd = strings.TrimLeft(rest[i+1:], " \t")
			rest = rest[:i]
			hasCmd = true
		}
		if hasCmd {
			break
		}
	}

	p.out(&RuleStmt{
		stmtBase:    base,
		Targets:     ParseExpr(targets),
		DoubleColon: double,
		Prereqs:     ParseExpr(strings.TrimSpace(rest)),
	})
	if hasCmd && cmd != "" {
		p.out(&CommandStmt{stmtBase: base, Expr: ParseExpr(cmd)})
	}
	return nil
}

// parseIfStmt builds an IfStmt from a conditional directive line.
func (p *parser) parseIfStmt(line string, base stmtBase) (*IfStmt, error) {
	var op CondOp
	var rest string
	switch {
	case hasWordPrefix(line, "ifeq"):
		op, rest = CondIfeq, line[len("ifeq"):]
	case hasWordPrefix(line, "ifneq"):
		op, rest = CondIfneq, line[len("ifneq"):]
	case hasWordPrefix(line, "ifdef"):
		op, rest = CondIfdef, line[len("ifdef"):]
	case hasWordPrefix(line, "ifndef"):
		op, rest = CondIfndef, line[len("ifndef"):]
	default:
		return nil, &MalformedConditionalError{Loc: base.loc, Msg: fmt.Sprintf("invalid conditional directive: %s", line)}
	}
	rest = strings.TrimSpace(rest)
	s := &IfStmt{stmtBase: base, Op: op, RHS: Literal("")}
	if op == CondIfdef || op == CondIfndef {
		if rest == "" {
			return nil, &MalformedConditionalError{Loc: base.loc, Msg: op.String() + " requires a variable name"}
		}
		s.LHS = ParseExpr(rest)
		return s, nil
	}
	lhs, rhs, err := parseCondPair(rest, base.loc)
	if err != nil {
		return nil, err
	}
	s.LHS = ParseExpr(lhs)
	s.RHS = ParseExpr(rhs)
	return s, nil
}

// parseCondPair accepts the two ifeq operand forms: (a,b) and a pair of
// quoted strings.
func parseCondPair(rest string, loc Loc) (string, string, error) {
	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		inner := rest[1 : len(rest)-1]
		depthParen, depthBrace := 0, 0
		for i := 0; i < len(inner); i++ {
			switch inner[i] {
			case '(':
				depthParen++
			case ')':
				depthParen--
			case '{':
				depthBrace++
			case '}':
				depthBrace--
			case ',':
				if depthParen == 0 && depthBrace == 0 {
					return strings.TrimSpace(inner[:i]), strings.TrimSpace(inner[i+1:]), nil
				}
			}
		}
		return "", "", &MalformedConditionalError{Loc: loc, Msg: "conditional operands must be separated by a comma"}
	}
	lhs, rest, err := scanQuoted(rest, loc)
	if err != nil {
		return "", "", err
	}
	rhs, rest, err := scanQuoted(strings.TrimLeft(rest, " \t"), loc)
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(rest) != "" {
		return "", "", &MalformedConditionalError{Loc: loc, Msg: "extraneous text after conditional operands"}
	}
	return lhs, rhs, nil
}

func scanQuoted(s string, loc Loc) (string, string, error) {
	if s == "" || (s[0] != '"' && s[0] != '\'') {
		return "", "", &MalformedConditionalError{Loc: loc, Msg: "expected quoted conditional operand"}
	}
	quote := s[0]
	end := strings.IndexByte(s[1:], quote)
	if end < 0 {
		return "", "", &MalformedConditionalError{Loc: loc, Msg: "unterminated quoted operand"}
	}
	return s[1 : 1+end], s[end+2:], nil
}

func (p *parser) parseElse(line string, base stmtBase) error {
	if len(p.condStack) == 0 {
		return &MalformedConditionalError{Loc: base.loc, Msg: "else without matching conditional"}
	}
	f := p.condStack[len(p.condStack)-1]
	if f.inElse {
		return &MalformedConditionalError{Loc: base.loc, Msg: "only one else per conditional"}
	}
	rest := strings.TrimSpace(line[len("else"):])
	if rest == "" {
		f.inElse = true
		return nil
	}
	// else ifeq ... chains: the nested conditional is the entire false
	// branch, and one endif closes the whole chain.
	nested, err := p.parseIfStmt(rest, base)
	if err != nil {
		return err
	}
	f.cur.False = append(f.cur.False, nested)
	f.cur = nested
	return nil
}

// stripComment drops everything from the first unescaped # on.
func stripComment(s string) string {
	i := strings.IndexByte(s, '#')
	if i < 0 {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == '#' {
			b.WriteByte('#')
			i++
			continue
		}
		if s[i] == '#' {
			break
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func hasWordPrefix(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	return len(s) == len(word) || s[len(word)] == ' ' || s[len(word)] == '\t'
}

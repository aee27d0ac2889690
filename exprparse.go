// Copyright 2026 The makeval Authors
// SPDX-License-Identifier: Apache-2.0

package makeval

import "strings"

// ParseExpr scans makefile text into an expression tree. The syntax is
// the usual one: $$ for a literal dollar, $(NAME) and ${NAME} references
// (names may themselves contain references), $(NAME:from=to) substitution
// references, $(func arg,arg,...) calls, and $X single-character
// references. Malformed references (an unclosed paren, a trailing $) are
// kept as literal text, which is what make does.
func ParseExpr(s string) Expr {
	var elems []Expr
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			elems = append(elems, Literal(lit.String()))
			lit.Reset()
		}
	}
	i := 0
	for i < len(s) {
		c := s[i]
		if c != '$' {
			lit.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(s) {
			lit.WriteByte('$')
			break
		}
		switch next := s[i+1]; next {
		case '$':
			lit.WriteByte('$')
			i += 2
		case '(', '{':
			end := matchingClose(s[i+1:], next)
			if end < 0 {
				lit.WriteByte('$')
				i++
				continue
			}
			inner := s[i+2 : i+1+end]
			flush()
			elems = append(elems, parseRef(inner))
			i += end + 2
		default:
			flush()
			elems = append(elems, &VarRef{Name: Literal(string(next))})
			i += 2
		}
	}
	flush()
	return compactExpr(elems)
}

// parseRef interprets the inside of a $(...) reference: a function call,
// a substitution reference, or a plain (possibly computed) variable name,
// in that order of precedence.
func parseRef(inner string) Expr {
	if name, rest, ok := splitFuncName(inner); ok {
		return &FuncCall{Name: name, Args: splitFuncArgs(rest)}
	}
	if nameEnd, eq, ok := findSubstRef(inner); ok {
		return &VarSubst{
			Name: ParseExpr(inner[:nameEnd]),
			From: ParseExpr(inner[nameEnd+1 : eq]),
			To:   ParseExpr(inner[eq+1:]),
		}
	}
	return &VarRef{Name: ParseExpr(inner)}
}

// splitFuncName recognizes "name rest" where name looks like a function
// name (lowercase letters, digits, dashes). Uppercase words followed by
// text stay variable references, matching make's treatment of variable
// names containing spaces.
func splitFuncName(s string) (name, rest string, ok bool) {
	i := 0
	for i < len(s) && (s[i] >= 'a' && s[i] <= 'z' || s[i] >= '0' && s[i] <= '9' || s[i] == '-') {
		i++
	}
	if i == 0 || i >= len(s) || (s[i] != ' ' && s[i] != '\t') {
		return "", "", false
	}
	name = s[:i]
	rest = strings.TrimLeft(s[i:], " \t")
	return name, rest, true
}

// splitFuncArgs splits on top-level commas. Nested $(...) and ${...}
// groups shield their commas.
func splitFuncArgs(s string) []Expr {
	var args []Expr
	depthParen, depthBrace := 0, 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
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
				args = append(args, ParseExpr(s[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, ParseExpr(s[start:]))
	return args
}

// findSubstRef locates the colon and equals of a substitution reference
// at top nesting level, e.g. SRCS:.c=.o.
func findSubstRef(s string) (colon, eq int, ok bool) {
	depthParen, depthBrace := 0, 0
	colon = -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depthParen++
		case ')':
			depthParen--
		case '{':
			depthBrace++
		case '}':
			depthBrace--
		case ':':
			if depthParen == 0 && depthBrace == 0 && colon < 0 {
				colon = i
			}
		case '=':
			if depthParen == 0 && depthBrace == 0 && colon >= 0 {
				return colon, i, true
			}
		}
	}
	return 0, 0, false
}

// matchingClose returns the offset of the delimiter closing s[0], which
// must be '(' or '{', or -1 if unbalanced. Only the same delimiter kind
// nests; the other kind passes through as plain text.
func matchingClose(s string, open byte) int {
	var close byte = ')'
	if open == '{' {
		close = '}'
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

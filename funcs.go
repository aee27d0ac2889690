// Copyright 2026 The makeval Authors
// SPDX-License-Identifier: Apache-2.0

package makeval

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// builtinFunc is one entry of the function library. Arguments arrive
// unexpanded so each function controls its own laziness: most expand
// everything eagerly, but if/and/or/foreach leave branches untouched
// until needed.
type builtinFunc struct {
	name    string
	minArgs int
	maxArgs int // -1: variadic
	fn      func(ev *Evaluator, args []Expr, w *strings.Builder) error
}

func (f *builtinFunc) call(ev *Evaluator, args []Expr, w *strings.Builder) error {
	if len(args) < f.minArgs {
		return fmt.Errorf("%s: *** insufficient number of arguments (%d) to function `%s'",
			ev.loc, len(args), f.name)
	}
	if f.maxArgs >= 0 && len(args) > f.maxArgs {
		args = mergeExtraArgs(args, f.maxArgs)
	}
	return f.fn(ev, args, w)
}

// mergeExtraArgs rejoins surplus comma-separated pieces into the last
// argument, the way make treats commas beyond a function's arity.
func mergeExtraArgs(args []Expr, max int) []Expr {
	var tail ExprSeq
	for i, a := range args[max-1:] {
		if i > 0 {
			tail = append(tail, Literal(","))
		}
		tail = append(tail, a)
	}
	merged := make([]Expr, max)
	copy(merged, args[:max-1])
	merged[max-1] = tail
	return merged
}

var builtinFuncs map[string]*builtinFunc

func init() {
	funcs := []*builtinFunc{
		// String manipulation, all eager.
		{"subst", 3, 3, funcSubst},
		{"patsubst", 3, 3, funcPatsubst},
		{"strip", 1, 1, funcStrip},
		{"findstring", 2, 2, funcFindstring},
		{"filter", 2, 2, funcFilter},
		{"filter-out", 2, 2, funcFilterOut},
		{"sort", 1, 1, funcSort},
		{"word", 2, 2, funcWord},
		{"words", 1, 1, funcWords},
		{"wordlist", 3, 3, funcWordlist},
		{"firstword", 1, 1, funcFirstword},
		{"lastword", 1, 1, funcLastword},

		// Filename manipulation.
		{"dir", 1, 1, funcDir},
		{"notdir", 1, 1, funcNotdir},
		{"suffix", 1, 1, funcSuffix},
		{"basename", 1, 1, funcBasename},
		{"addsuffix", 2, 2, funcAddsuffix},
		{"addprefix", 2, 2, funcAddprefix},
		{"join", 2, 2, funcJoin},
		{"wildcard", 1, 1, funcWildcard},

		// Conditionals: the condition is eager, branches are lazy.
		{"if", 2, 3, funcIf},
		{"or", 1, -1, funcOr},
		{"and", 1, -1, funcAnd},

		// Iteration and indirection.
		{"foreach", 3, 3, funcForeach},
		{"call", 1, -1, funcCall},
		{"value", 1, 1, funcValue},
		{"origin", 1, 1, funcOrigin},

		{"shell", 1, 1, funcShell},
		{"info", 1, 1, funcInfo},
		{"warning", 1, 1, funcWarning},
		{"error", 1, 1, funcError},
	}
	builtinFuncs = make(map[string]*builtinFunc, len(funcs))
	for _, f := range funcs {
		builtinFuncs[f.name] = f
	}
}

func funcSubst(ev *Evaluator, args []Expr, w *strings.Builder) error {
	from, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	to, err := ev.evalString(args[1])
	if err != nil {
		return err
	}
	text, err := ev.evalString(args[2])
	if err != nil {
		return err
	}
	w.WriteString(strings.ReplaceAll(text, from, to))
	return nil
}

func funcPatsubst(ev *Evaluator, args []Expr, w *strings.Builder) error {
	pat, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	repl, err := ev.evalString(args[1])
	if err != nil {
		return err
	}
	return eachWord(ev, args[2], w, func(word string) string {
		return substPattern(pat, repl, word)
	})
}

func funcStrip(ev *Evaluator, args []Expr, w *strings.Builder) error {
	text, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	w.WriteString(strings.Join(strings.Fields(text), " "))
	return nil
}

func funcFindstring(ev *Evaluator, args []Expr, w *strings.Builder) error {
	find, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	in, err := ev.evalString(args[1])
	if err != nil {
		return err
	}
	if strings.Contains(in, find) {
		w.WriteString(find)
	}
	return nil
}

func funcFilter(ev *Evaluator, args []Expr, w *strings.Builder) error {
	return filterWords(ev, args, w, true)
}

func funcFilterOut(ev *Evaluator, args []Expr, w *strings.Builder) error {
	return filterWords(ev, args, w, false)
}

func filterWords(ev *Evaluator, args []Expr, w *strings.Builder, keep bool) error {
	patText, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	text, err := ev.evalString(args[1])
	if err != nil {
		return err
	}
	pats := strings.Fields(patText)
	sep := ""
	for _, word := range strings.Fields(text) {
		matched := false
		for _, pat := range pats {
			if matchPattern(pat, word) {
				matched = true
				break
			}
		}
		if matched == keep {
			w.WriteString(sep)
			w.WriteString(word)
			sep = " "
		}
	}
	return nil
}

func funcSort(ev *Evaluator, args []Expr, w *strings.Builder) error {
	text, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	words := strings.Fields(text)
	sort.Strings(words)
	sep := ""
	for i, word := range words {
		if i > 0 && word == words[i-1] {
			continue
		}
		w.WriteString(sep)
		w.WriteString(word)
		sep = " "
	}
	return nil
}

func funcWord(ev *Evaluator, args []Expr, w *strings.Builder) error {
	nText, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(strings.TrimSpace(nText))
	if err != nil || n < 1 {
		return fmt.Errorf("%s: *** first argument to `word' function must be greater than 0", ev.loc)
	}
	text, err := ev.evalString(args[1])
	if err != nil {
		return err
	}
	words := strings.Fields(text)
	if n <= len(words) {
		w.WriteString(words[n-1])
	}
	return nil
}

func funcWords(ev *Evaluator, args []Expr, w *strings.Builder) error {
	text, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	w.WriteString(strconv.Itoa(len(strings.Fields(text))))
	return nil
}

func funcWordlist(ev *Evaluator, args []Expr, w *strings.Builder) error {
	sText, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	eText, err := ev.evalString(args[1])
	if err != nil {
		return err
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(sText))
	end, err2 := strconv.Atoi(strings.TrimSpace(eText))
	if err1 != nil || err2 != nil || start < 1 {
		return fmt.Errorf("%s: *** invalid `wordlist' index", ev.loc)
	}
	text, err := ev.evalString(args[2])
	if err != nil {
		return err
	}
	words := strings.Fields(text)
	if start > len(words) {
		return nil
	}
	if end > len(words) {
		end = len(words)
	}
	if end >= start {
		w.WriteString(strings.Join(words[start-1:end], " "))
	}
	return nil
}

func funcFirstword(ev *Evaluator, args []Expr, w *strings.Builder) error {
	text, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	if words := strings.Fields(text); len(words) > 0 {
		w.WriteString(words[0])
	}
	return nil
}

func funcLastword(ev *Evaluator, args []Expr, w *strings.Builder) error {
	text, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	if words := strings.Fields(text); len(words) > 0 {
		w.WriteString(words[len(words)-1])
	}
	return nil
}

// eachWord expands e and writes f(word) for every word, space-separated.
func eachWord(ev *Evaluator, e Expr, w *strings.Builder, f func(string) string) error {
	text, err := ev.evalString(e)
	if err != nil {
		return err
	}
	sep := ""
	for _, word := range strings.Fields(text) {
		w.WriteString(sep)
		w.WriteString(f(word))
		sep = " "
	}
	return nil
}

func funcDir(ev *Evaluator, args []Expr, w *strings.Builder) error {
	return eachWord(ev, args[0], w, func(word string) string {
		d := filepath.Dir(word)
		if d == "/" {
			return d
		}
		return d + "/"
	})
}

func funcNotdir(ev *Evaluator, args []Expr, w *strings.Builder) error {
	return eachWord(ev, args[0], w, func(word string) string {
		if word == "/" {
			return ""
		}
		return filepath.Base(word)
	})
}

func funcSuffix(ev *Evaluator, args []Expr, w *strings.Builder) error {
	text, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	sep := ""
	for _, word := range strings.Fields(text) {
		if ext := filepath.Ext(word); ext != "" {
			w.WriteString(sep)
			w.WriteString(ext)
			sep = " "
		}
	}
	return nil
}

func funcBasename(ev *Evaluator, args []Expr, w *strings.Builder) error {
	return eachWord(ev, args[0], w, func(word string) string {
		return strings.TrimSuffix(word, filepath.Ext(word))
	})
}

func funcAddsuffix(ev *Evaluator, args []Expr, w *strings.Builder) error {
	suffix, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	return eachWord(ev, args[1], w, func(word string) string {
		return word + suffix
	})
}

func funcAddprefix(ev *Evaluator, args []Expr, w *strings.Builder) error {
	prefix, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	return eachWord(ev, args[1], w, func(word string) string {
		return prefix + word
	})
}

func funcJoin(ev *Evaluator, args []Expr, w *strings.Builder) error {
	aText, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	bText, err := ev.evalString(args[1])
	if err != nil {
		return err
	}
	as := strings.Fields(aText)
	bs := strings.Fields(bText)
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	sep := ""
	for i := 0; i < n; i++ {
		w.WriteString(sep)
		if i < len(as) {
			w.WriteString(as[i])
		}
		if i < len(bs) {
			w.WriteString(bs[i])
		}
		sep = " "
	}
	return nil
}

func funcWildcard(ev *Evaluator, args []Expr, w *strings.Builder) error {
	text, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	sep := ""
	for _, pat := range strings.Fields(text) {
		for _, match := range wildcardGlob(pat) {
			w.WriteString(sep)
			w.WriteString(match)
			sep = " "
		}
	}
	return nil
}

func funcIf(ev *Evaluator, args []Expr, w *strings.Builder) error {
	cond, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	if strings.TrimSpace(cond) != "" {
		return args[1].Eval(ev, w)
	}
	if len(args) >= 3 {
		return args[2].Eval(ev, w)
	}
	return nil
}

func funcOr(ev *Evaluator, args []Expr, w *strings.Builder) error {
	// Later arguments stay unexpanded once one is non-empty.
	for _, arg := range args {
		val, err := ev.evalString(arg)
		if err != nil {
			return err
		}
		if val != "" {
			w.WriteString(val)
			return nil
		}
	}
	return nil
}

func funcAnd(ev *Evaluator, args []Expr, w *strings.Builder) error {
	var last string
	for _, arg := range args {
		val, err := ev.evalString(arg)
		if err != nil {
			return err
		}
		if val == "" {
			return nil
		}
		last = val
	}
	w.WriteString(last)
	return nil
}

func funcForeach(ev *Evaluator, args []Expr, w *strings.Builder) error {
	name, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	list, err := ev.evalString(args[1])
	if err != nil {
		return err
	}
	saved := ev.Vars.Lookup(name)
	defer func() {
		if saved != nil {
			ev.Vars.Set(name, saved)
		} else {
			ev.Vars.delete(name)
		}
	}()
	sep := ""
	for _, word := range strings.Fields(list) {
		ev.Vars.Set(name, NewSimpleVar(word, OriginAutomatic))
		w.WriteString(sep)
		// The body re-expands per iteration against the loop binding.
		if err := args[2].Eval(ev, w); err != nil {
			return err
		}
		sep = " "
	}
	return nil
}

func funcCall(ev *Evaluator, args []Expr, w *strings.Builder) error {
	name, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)

	// Bind $(0)..$(N), remembering whatever they shadow.
	type shadow struct {
		name string
		old  *Var
	}
	var shadows []shadow
	defer func() {
		for i := len(shadows) - 1; i >= 0; i-- {
			if shadows[i].old != nil {
				ev.Vars.Set(shadows[i].name, shadows[i].old)
			} else {
				ev.Vars.delete(shadows[i].name)
			}
		}
	}()
	bind := func(param, val string) {
		shadows = append(shadows, shadow{param, ev.Vars.Lookup(param)})
		ev.Vars.Set(param, NewSimpleVar(val, OriginAutomatic))
	}
	bind("0", name)
	for i, arg := range args[1:] {
		val, err := ev.evalString(arg)
		if err != nil {
			return err
		}
		bind(strconv.Itoa(i+1), val)
	}
	return ev.expandVar(name, w)
}

func funcValue(ev *Evaluator, args []Expr, w *strings.Builder) error {
	name, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	if v := ev.Vars.Lookup(strings.TrimSpace(name)); v != nil {
		w.WriteString(v.ValueText())
	}
	return nil
}

func funcOrigin(ev *Evaluator, args []Expr, w *strings.Builder) error {
	name, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	if v := ev.Vars.Lookup(strings.TrimSpace(name)); v != nil {
		w.WriteString(v.origin.String())
	} else {
		w.WriteString("undefined")
	}
	return nil
}

func funcShell(ev *Evaluator, args []Expr, w *strings.Builder) error {
	cmdText, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	out, err := exec.Command("sh", "-c", cmdText).Output()
	if err != nil {
		// make treats a failing $(shell) as empty output.
		return nil
	}
	text := strings.TrimRight(string(out), "\n")
	w.WriteString(strings.ReplaceAll(text, "\n", " "))
	return nil
}

func funcInfo(ev *Evaluator, args []Expr, w *strings.Builder) error {
	text, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func funcWarning(ev *Evaluator, args []Expr, w *strings.Builder) error {
	text, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", ev.loc, text)
	return nil
}

func funcError(ev *Evaluator, args []Expr, w *strings.Builder) error {
	text, err := ev.evalString(args[0])
	if err != nil {
		return err
	}
	return fmt.Errorf("%s: *** %s.", ev.loc, text)
}

// Copyright 2026 The makeval Authors
// SPDX-License-Identifier: Apache-2.0

// Command makeval evaluates a makefile and prints the resulting variable
// table and rule registry, the view a build executor would consume.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"

	"makeval"
)

func main() {
	file := flag.String("f", "Makefile", "makefile to read")
	flag.Parse()
	defer glog.Flush()

	if err := run(*file, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "makeval: %s\n", err)
		os.Exit(1)
	}
}

func run(file string, args []string) error {
	ev := makeval.NewEvaluator(makeval.DirLoader{})
	ev.ImportEnviron(os.Environ())

	// NAME=value arguments become command-line bindings; bare names
	// select variables to print after evaluation.
	var names []string
	for _, arg := range args {
		if name, value, ok := strings.Cut(arg, "="); ok {
			ev.SetCommandLineVar(name, value)
		} else {
			names = append(names, arg)
		}
	}

	if err := ev.Run(file); err != nil {
		return err
	}

	if len(names) > 0 {
		for _, name := range names {
			val, err := ev.Value(name)
			if err != nil {
				return err
			}
			fmt.Printf("%s = %s\n", name, val)
		}
		return nil
	}
	return dump(ev)
}

func dump(ev *makeval.Evaluator) error {
	for _, name := range ev.Vars.Names() {
		v := ev.Vars.Lookup(name)
		switch v.Origin() {
		case makeval.OriginFile, makeval.OriginOverride, makeval.OriginCommandLine:
		default:
			continue
		}
		val, err := ev.Value(name)
		if err != nil {
			return err
		}
		op := "="
		if v.Flavor() == makeval.FlavorSimple {
			op = ":="
		}
		mark := " "
		if v.Exported() {
			mark = "*"
		}
		fmt.Printf("%s %s %s %s\n", mark, name, op, val)
	}

	for _, target := range ev.Rules.Targets() {
		tr := ev.Rules.Lookup(target)
		sep := ":"
		if tr.DoubleColon {
			sep = "::"
		}
		for _, body := range tr.Bodies {
			line := target + sep
			if len(body.Prereqs) > 0 {
				line += " " + strings.Join(body.Prereqs, " ")
			}
			if len(body.OrderOnly) > 0 {
				line += " | " + strings.Join(body.OrderOnly, " ")
			}
			fmt.Println(line)
			for _, recipe := range body.Recipe {
				fmt.Printf("\t%s\n", recipe)
			}
		}
	}
	return nil
}

// Copyright 2026 The makeval Authors
// SPDX-License-Identifier: Apache-2.0

package makeval

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// fixtureCase is one end-to-end scenario from testdata/*.yaml: a makefile
// (plus any includable files), optional command-line bindings, and the
// expected evaluation outcome.
type fixtureCase struct {
	Name        string            `yaml:"name"`
	Makefile    string            `yaml:"makefile"`
	Files       map[string]string `yaml:"files"`
	CommandLine map[string]string `yaml:"command_line"`

	Vars     map[string]string `yaml:"vars"`
	Exported []string          `yaml:"exported"`
	Rules    []fixtureRule     `yaml:"rules"`
	Error    string            `yaml:"error"`
}

type fixtureRule struct {
	Target      string        `yaml:"target"`
	DoubleColon bool          `yaml:"double_colon"`
	Bodies      []fixtureBody `yaml:"bodies"`
}

type fixtureBody struct {
	Prereqs   []string `yaml:"prereqs"`
	OrderOnly []string `yaml:"order_only"`
	Recipe    []string `yaml:"recipe"`
}

func TestFixtures(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no fixture files under testdata/")
	}
	for _, path := range paths {
		group := strings.TrimSuffix(filepath.Base(path), ".yaml")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var cases []fixtureCase
		if err := yaml.Unmarshal(data, &cases); err != nil {
			t.Fatalf("%s: %s", path, err)
		}
		for _, fc := range cases {
			t.Run(group+"/"+fc.Name, func(t *testing.T) {
				runFixture(t, fc)
			})
		}
	}
}

func runFixture(t *testing.T, fc fixtureCase) {
	loader := MapLoader{"Makefile": fc.Makefile}
	for name, src := range fc.Files {
		loader[name] = src
	}
	ev := NewEvaluator(loader)
	for name, val := range fc.CommandLine {
		ev.SetCommandLineVar(name, val)
	}

	err := ev.Run("Makefile")
	if fc.Error != "" {
		if err == nil {
			t.Fatalf("expected error containing %q, got none", fc.Error)
		}
		if !strings.Contains(err.Error(), fc.Error) {
			t.Fatalf("error %q does not contain %q", err, fc.Error)
		}
		return
	}
	if err != nil {
		t.Fatalf("eval: %s", err)
	}

	for name, want := range fc.Vars {
		got, err := ev.Value(name)
		if err != nil {
			t.Errorf("expand %s: %s", name, err)
			continue
		}
		if got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	if fc.Exported != nil {
		var got []string
		for _, name := range ev.Vars.Names() {
			if ev.Vars.Lookup(name).Exported() {
				got = append(got, name)
			}
		}
		want := append([]string(nil), fc.Exported...)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			t.Errorf("exported = %v, want %v", got, want)
		}
	}

	for _, wantRule := range fc.Rules {
		tr := ev.Rules.Lookup(wantRule.Target)
		if tr == nil {
			t.Errorf("no rules for target %q", wantRule.Target)
			continue
		}
		if tr.DoubleColon != wantRule.DoubleColon {
			t.Errorf("%s: double-colon = %v, want %v", wantRule.Target, tr.DoubleColon, wantRule.DoubleColon)
		}
		if len(tr.Bodies) != len(wantRule.Bodies) {
			t.Errorf("%s: got %d bodies, want %d", wantRule.Target, len(tr.Bodies), len(wantRule.Bodies))
			continue
		}
		for i, wantBody := range wantRule.Bodies {
			body := tr.Bodies[i]
			if !slices.Equal(body.Prereqs, wantBody.Prereqs) {
				t.Errorf("%s body %d: prereqs = %v, want %v", wantRule.Target, i, body.Prereqs, wantBody.Prereqs)
			}
			if !slices.Equal(body.OrderOnly, wantBody.OrderOnly) {
				t.Errorf("%s body %d: order-only = %v, want %v", wantRule.Target, i, body.OrderOnly, wantBody.OrderOnly)
			}
			var recipe []string
			for _, line := range body.Recipe {
				recipe = append(recipe, line.String())
			}
			if !slices.Equal(recipe, wantBody.Recipe) {
				t.Errorf("%s body %d: recipe = %v, want %v", wantRule.Target, i, recipe, wantBody.Recipe)
			}
		}
	}
}

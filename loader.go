// Copyright 2026 The makeval Authors
// SPDX-License-Identifier: Apache-2.0

package makeval

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileLoader supplies parsed directive sequences to Include evaluation.
// A missing file must be reported as an error satisfying
// errors.Is(err, fs.ErrNotExist) so the evaluator can tell soft-include
// skips from real failures.
type FileLoader interface {
	Load(path string) ([]Stmt, error)
}

// DirLoader reads makefiles from the filesystem. Relative paths resolve
// under Dir, or the working directory when Dir is empty.
type DirLoader struct {
	Dir string
}

func (l DirLoader) Load(path string) ([]Stmt, error) {
	full := path
	if l.Dir != "" && !filepath.IsAbs(path) {
		full = filepath.Join(l.Dir, path)
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(path, f)
}

// MapLoader serves makefile sources from memory. Handy for tests and for
// embedding generated fragments.
type MapLoader map[string]string

func (l MapLoader) Load(path string) ([]Stmt, error) {
	src, ok := l[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	return Parse(path, strings.NewReader(src))
}

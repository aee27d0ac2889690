// Copyright 2026 The makeval Authors
// SPDX-License-Identifier: Apache-2.0

package makeval

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// wildcardCacheT memoizes directory listings so repeated $(wildcard)
// calls against the same directories stay cheap within one process.
type wildcardCacheT struct {
	mu     sync.Mutex
	dirent map[string][]string
}

var wildcardCache = &wildcardCacheT{
	dirent: make(map[string][]string),
}

func hasWildcardMeta(pat string) bool {
	return strings.IndexAny(pat, "*?[") >= 0
}

func (w *wildcardCacheT) readdirnames(dir string) []string {
	w.mu.Lock()
	names, ok := w.dirent[dir]
	w.mu.Unlock()
	if ok {
		return names
	}
	d, err := os.Open(dir)
	if err != nil {
		w.mu.Lock()
		w.dirent[dir] = nil
		w.mu.Unlock()
		return nil
	}
	defer d.Close()
	names, _ = d.Readdirnames(-1)
	sort.Strings(names)
	glog.V(2).Infof("wildcard cache: %d entries for %q", len(names), dir)
	w.mu.Lock()
	w.dirent[dir] = names
	w.mu.Unlock()
	return names
}

// wildcardGlob expands one pattern to the sorted list of matching paths.
// A pattern with no wildcard metacharacters just checks existence. Names
// starting with a dot only match patterns that ask for them explicitly.
func wildcardGlob(pat string) []string {
	if !hasWildcardMeta(pat) {
		if _, err := os.Lstat(pat); err == nil {
			return []string{pat}
		}
		return nil
	}
	dir, base := filepath.Split(pat)
	if hasWildcardMeta(dir) {
		// Meta in a directory component; no listing to cache per level,
		// let filepath do the walk.
		matches, _ := filepath.Glob(pat)
		sort.Strings(matches)
		return matches
	}
	readDir := dir
	if readDir == "" {
		readDir = "."
	}
	var out []string
	for _, name := range wildcardCache.readdirnames(readDir) {
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		if ok, _ := filepath.Match(base, name); ok {
			out = append(out, dir+name)
		}
	}
	return out
}

package watcher

import (
	"os"
	"path/filepath"
	"slices"
)

// Matcher decides which filesystem events concern the watched targets.
// A file target matches only itself; a directory target matches its
// direct children.
type Matcher struct {
	files []string
	dirs  []string
}

// NewMatcher classifies targets into files and directories. Targets that
// do not exist yet are treated as files so that their creation is seen.
func NewMatcher(targets []string) *Matcher {
	m := &Matcher{}
	for _, t := range targets {
		t = filepath.Clean(t)
		if info, err := os.Stat(t); err == nil && info.IsDir() {
			m.dirs = append(m.dirs, t)
		} else {
			m.files = append(m.files, t)
		}
	}
	return m
}

// Match reports whether path is one of the targets or inside a target
// directory.
func (m *Matcher) Match(path string) bool {
	path = filepath.Clean(path)
	if slices.Contains(m.files, path) {
		return true
	}
	return slices.Contains(m.dirs, filepath.Dir(path))
}

// WatchDirs returns the directories fsnotify must follow: every directory
// target and the parent of every file target. Editors and dpkg replace
// files by rename, which only the parent directory observes.
func (m *Matcher) WatchDirs() []string {
	var dirs []string
	add := func(d string) {
		if !slices.Contains(dirs, d) {
			dirs = append(dirs, d)
		}
	}
	for _, d := range m.dirs {
		add(d)
	}
	for _, f := range m.files {
		add(filepath.Dir(f))
	}
	return dirs
}

package config

import (
	"strings"

	"github.com/simonhull/firebird-suite/weaver/pkg/filesystem"
)

// WalkOptions derives the shared directory walker settings
func (c *Config) WalkOptions() filesystem.WalkOptions {
	return filesystem.WalkOptions{
		Extensions:     c.Extensions,
		IgnoreDirs:     c.ExcludeDirs,
		IgnorePatterns: []string{"*.d.ts", "*.min.js"},
	}
}

// IsTestPath reports whether a root-relative slash path belongs to the
// test suite, either by living under a test dir or by naming convention.
func (c *Config) IsTestPath(rel string) bool {
	rel = strings.TrimPrefix(rel, "./")
	for _, dir := range c.TestDirs {
		dir = strings.Trim(dir, "/")
		if dir != "" && (rel == dir || strings.HasPrefix(rel, dir+"/")) {
			return true
		}
	}
	rooted := "/" + rel
	for _, marker := range c.TestMarkers {
		if marker != "" && strings.Contains(rooted, marker) {
			return true
		}
	}
	return false
}

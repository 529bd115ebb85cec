package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
)

// DefaultIgnoreDirs are directory names never worth scanning for wiring
var DefaultIgnoreDirs = []string{
	"node_modules", ".next", ".git", ".svn", ".hg", ".turbo", ".vercel",
	"dist", "build", "out", "coverage", ".netlify", "__pycache__",
	".venv", "venv", "vendor", "tmp", "temp",
}

// WalkOptions configures directory traversal behavior
type WalkOptions struct {
	Extensions     []string // Allowed file extensions, with or without dot (empty: all)
	IgnoreDirs     []string // Directory names to skip (default: DefaultIgnoreDirs)
	IgnorePatterns []string // File name globs to skip (e.g., "*.d.ts")
	IncludeHidden  bool     // Include hidden files/dirs (default: false)
}

// Walker walks directory trees with the configured filters
type Walker struct {
	exts       map[string]struct{}
	ignoreDirs map[string]struct{}
	opts       WalkOptions
	log        logger.Logger
}

// NewWalker creates a Walker. A nil logger uses the package default.
func NewWalker(opts WalkOptions, log logger.Logger) *Walker {
	if log == nil {
		log = logger.Default()
	}
	ignore := opts.IgnoreDirs
	if len(ignore) == 0 {
		ignore = DefaultIgnoreDirs
	}

	w := &Walker{
		exts:       make(map[string]struct{}, len(opts.Extensions)),
		ignoreDirs: make(map[string]struct{}, len(ignore)),
		opts:       opts,
		log:        log,
	}
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		w.exts[ext] = struct{}{}
	}
	for _, dir := range ignore {
		w.ignoreDirs[dir] = struct{}{}
	}
	return w
}

// Walk calls visitor for every file under root that passes the filters.
// Errors from the filesystem or the visitor are logged per entry and never
// stop the traversal. A missing root is silently empty.
func (w *Walker) Walk(root string, visitor func(path string, d fs.DirEntry)) {
	if _, err := os.Stat(root); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.log.Warn("cannot stat scan root", logger.F("root", root), logger.Err(err))
		}
		return
	}

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.Warn("skipping unreadable entry", logger.F("path", path), logger.Err(err))
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := w.ignoreDirs[name]; skip {
				return filepath.SkipDir
			}
			if !w.opts.IncludeHidden && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !w.opts.IncludeHidden && strings.HasPrefix(name, ".") {
			return nil
		}
		if !w.accepts(name) {
			return nil
		}
		visitor(path, d)
		return nil
	})
}

func (w *Walker) accepts(name string) bool {
	for _, pattern := range w.opts.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return false
		}
	}
	if len(w.exts) == 0 {
		return true
	}
	_, ok := w.exts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Files returns every accepted file under the given roots, sorted and
// de-duplicated so overlapping roots do not double count.
func (w *Walker) Files(roots ...string) []string {
	seen := make(map[string]struct{})
	var files []string
	for _, root := range roots {
		w.Walk(root, func(path string, _ fs.DirEntry) {
			clean := filepath.Clean(path)
			if _, dup := seen[clean]; dup {
				return
			}
			seen[clean] = struct{}{}
			files = append(files, clean)
		})
	}
	sort.Strings(files)
	return files
}

// LatestModTime returns the newest modification time among accepted files
// under roots along with the file that carries it. Zero time means no files.
func (w *Walker) LatestModTime(roots ...string) (time.Time, string) {
	var (
		latest time.Time
		file   string
	)
	for _, root := range roots {
		w.Walk(root, func(path string, d fs.DirEntry) {
			info, err := d.Info()
			if err != nil {
				w.log.Warn("cannot stat file", logger.F("file", path), logger.Err(err))
				return
			}
			if info.ModTime().After(latest) {
				latest = info.ModTime()
				file = path
			}
		})
	}
	return latest, file
}

// Package mocks finds e2e route-mock registrations in test files and
// classifies each as a wildcard or a mock of one specific route.
package mocks

import (
	"bufio"
	"bytes"
	"os"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/simonhull/firebird-suite/weaver/pkg/config"
	"github.com/simonhull/firebird-suite/weaver/pkg/filesystem"
	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
	"github.com/simonhull/firebird-suite/weaver/pkg/pathtemplate"
	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// routeCallRe matches page.route('...'), context.route("...") and
// template-literal patterns.
var routeCallRe = regexp.MustCompile(`\b[A-Za-z_$][\w$]*\s*\.\s*route\s*\(\s*(?:'([^']*)'|"([^"]*)"|` + "`([^`]*)`" + `)`)

// Wildcard samples: a pattern is unbounded when it accepts both a single
// segment and a deeply nested path beneath its prefix.
const (
	shallowSample = "x"
	deepSample    = "x/y/z"
)

// Extractor finds route mocks under the test directories
type Extractor struct {
	cfg    *config.Config
	bases  []config.ExternalBase
	walker *filesystem.Walker
	logger logger.Logger
	read   func(string) ([]byte, error)
}

// NewExtractor creates a mock Extractor
func NewExtractor(cfg *config.Config, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.Default()
	}
	return &Extractor{
		cfg:    cfg,
		bases:  cfg.ResolvedBases(),
		walker: filesystem.NewWalker(cfg.WalkOptions(), log),
		logger: log.WithFields(logger.F("component", "mocks")),
		read:   os.ReadFile,
	}
}

// Extract scans test files for route mocks, in file then line order
func (e *Extractor) Extract() []wiring.MockReference {
	dirs := wiring.UniqueSorted(append(append([]string{}, e.cfg.TestDirs...), e.cfg.CallerDirs...))
	var refs []wiring.MockReference
	for _, file := range e.walker.Files(e.cfg.Paths(dirs)...) {
		rel := e.cfg.Rel(file)
		if !e.cfg.IsTestPath(rel) {
			continue
		}
		content, err := e.read(file)
		if err != nil {
			e.logger.Warn("Cannot read test file", logger.F("file", rel), logger.Err(err))
			continue
		}
		refs = append(refs, e.ExtractSource(rel, content)...)
	}
	e.logger.Info("Mock extraction complete", logger.F("mocks", len(refs)))
	return refs
}

// ExtractSource finds route mocks in one file's content
func (e *Extractor) ExtractSource(rel string, content []byte) []wiring.MockReference {
	var refs []wiring.MockReference
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		for _, m := range routeCallRe.FindAllStringSubmatch(scanner.Text(), -1) {
			pattern := m[1] + m[2] + m[3]
			if pattern == "" {
				continue
			}
			ref := e.Classify(pattern)
			ref.File = rel
			ref.Line = lineNo
			refs = append(refs, ref)
		}
	}
	if err := scanner.Err(); err != nil {
		e.logger.Warn("Stopped scanning file early", logger.F("file", rel), logger.Err(err))
	}
	return refs
}

// Classify decides whether pattern is a wildcard and, when specific,
// which canonical path it mocks. Specific patterns unrelated to any API
// prefix or external base have a nil normalized path.
func (e *Extractor) Classify(pattern string) wiring.MockReference {
	ref := wiring.MockReference{Pattern: pattern}

	if repo, rest, ok := e.externalBase(pattern); ok {
		rest = stripQuery(rest)
		if strings.Trim(rest, "/") == "" || isUnbounded(strings.TrimPrefix(rest, "/")) {
			ref.Wildcard = true
			return ref
		}
		ref.NormalizedPath = ptr(pathtemplate.ExternalScheme + repo + normalizeGlob(rest))
		return ref
	}

	for _, prefix := range []string{e.cfg.FunctionPrefix, e.cfg.RoutePrefix} {
		idx := prefixIndex(pattern, prefix)
		if idx < 0 {
			continue
		}
		tail := stripQuery(pattern[idx:])
		if isUnbounded(strings.TrimPrefix(tail[len(strings.TrimRight(prefix, "/")):], "/")) {
			ref.Wildcard = true
			return ref
		}
		ref.NormalizedPath = ptr(normalizeGlob(tail))
		return ref
	}

	// No known prefix: a catch-everything glob such as **/* is still a
	// wildcard over the API surface.
	if isUnbounded(strings.TrimPrefix(stripQuery(pattern), "/")) {
		ref.Wildcard = true
	}
	return ref
}

func (e *Extractor) externalBase(pattern string) (string, string, bool) {
	best := -1
	for i, b := range e.bases {
		if pattern != b.BaseURL && !strings.HasPrefix(pattern, b.BaseURL+"/") && !strings.HasPrefix(pattern, b.BaseURL+"?") {
			continue
		}
		if best < 0 || len(b.BaseURL) > len(e.bases[best].BaseURL) {
			best = i
		}
	}
	if best < 0 {
		return "", "", false
	}
	return e.bases[best].Repo, strings.TrimPrefix(pattern, e.bases[best].BaseURL), true
}

// prefixIndex locates prefix inside pattern on a segment boundary
func prefixIndex(pattern, prefix string) int {
	prefix = "/" + strings.Trim(prefix, "/")
	from := 0
	for {
		i := strings.Index(pattern[from:], prefix)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(prefix)
		if end == len(pattern) || strings.ContainsRune("/?*#", rune(pattern[end])) {
			return i
		}
		from = i + 1
	}
}

// isUnbounded reports whether a slash-free-prefixed glob accepts both a
// shallow and a deep path.
func isUnbounded(glob string) bool {
	if glob == "" {
		return false
	}
	shallow, err := doublestar.Match(glob, shallowSample)
	if err != nil {
		return false
	}
	deep, _ := doublestar.Match(glob, deepSample)
	return shallow && deep
}

// normalizeGlob turns a specific glob into a canonical path: the trailing
// star is dropped and remaining star segments become placeholders.
func normalizeGlob(p string) string {
	p = strings.TrimRight(p, "*")
	p = strings.TrimRight(p, "/")
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		if strings.Contains(seg, "*") {
			segs[i] = pathtemplate.Placeholder
		}
	}
	return pathtemplate.NormalizeCallPath(strings.Join(segs, "/"))
}

func stripQuery(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}

func ptr(s string) *string { return &s }

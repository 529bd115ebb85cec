package callers

import (
	"bufio"
	"bytes"
	"os"
	"strings"

	"github.com/simonhull/firebird-suite/weaver/pkg/config"
	"github.com/simonhull/firebird-suite/weaver/pkg/filesystem"
	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// Result is everything extracted from the caller directories
type Result struct {
	Calls        []wiring.CallerReference
	Skipped      []wiring.SkippedCall
	Unclassified int
	ScannedDirs  []string
}

// Extractor scans caller, function and test directories for call sites
type Extractor struct {
	cfg      *config.Config
	registry *Registry
	walker   *filesystem.Walker
	logger   logger.Logger
	read     func(string) ([]byte, error)
}

// NewExtractor creates an Extractor with the default matcher registry
func NewExtractor(cfg *config.Config, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.Default()
	}
	return &Extractor{
		cfg:      cfg,
		registry: NewRegistry(NewSettings(cfg)),
		walker:   filesystem.NewWalker(cfg.WalkOptions(), log),
		logger:   log.WithFields(logger.F("component", "callers")),
		read:     os.ReadFile,
	}
}

// Registry exposes the matcher registry so callers can add matchers
func (e *Extractor) Registry() *Registry {
	return e.registry
}

// Dirs returns the root-relative directories scanned for callers
func (e *Extractor) Dirs() []string {
	dirs := make([]string, 0, len(e.cfg.CallerDirs)+len(e.cfg.FunctionsDirs)+len(e.cfg.TestDirs))
	dirs = append(dirs, e.cfg.CallerDirs...)
	dirs = append(dirs, e.cfg.FunctionsDirs...)
	dirs = append(dirs, e.cfg.TestDirs...)
	return wiring.UniqueSorted(dirs)
}

// Extract scans every file under the caller directories
func (e *Extractor) Extract() *Result {
	res := &Result{ScannedDirs: e.Dirs()}
	for _, file := range e.walker.Files(e.cfg.Paths(res.ScannedDirs)...) {
		rel := e.cfg.Rel(file)
		content, err := e.read(file)
		if err != nil {
			e.logger.Warn("Cannot read caller file", logger.F("file", rel), logger.Err(err))
			continue
		}
		e.scan(rel, content, res)
	}
	e.logger.Info("Caller extraction complete",
		logger.F("calls", len(res.Calls)),
		logger.F("skipped", len(res.Skipped)),
		logger.F("unclassified_external", res.Unclassified))
	return res
}

// ExtractSource scans one file's content; rel is used for references
func (e *Extractor) ExtractSource(rel string, content []byte) *Result {
	res := &Result{}
	e.scan(rel, content, res)
	return res
}

func (e *Extractor) scan(rel string, content []byte, res *Result) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if isComment(line) {
			continue
		}
		matches, by := e.registry.ClaimLine(line)
		for _, m := range matches {
			e.record(rel, lineNo, line, by, m, res)
		}
	}
	if err := scanner.Err(); err != nil {
		e.logger.Warn("Stopped scanning file early", logger.F("file", rel), logger.F("line", lineNo), logger.Err(err))
	}
}

func (e *Extractor) record(rel string, lineNo int, line, by string, m Match, res *Result) {
	switch {
	case m.Unclassified:
		res.Unclassified++
		e.logger.Debug("Dropped unclassified external call",
			logger.F("file", rel), logger.F("line", lineNo), logger.F("url", m.Site.Arg.Value))
	case m.Skip != "":
		res.Skipped = append(res.Skipped, wiring.SkippedCall{
			File:   rel,
			Line:   lineNo,
			Raw:    strings.TrimSpace(line),
			Reason: m.Skip,
		})
	case m.Resolved():
		res.Calls = append(res.Calls, wiring.CallerReference{
			File:    rel,
			Line:    lineNo,
			Target:  m.Target,
			Context: Snippet(line, m.Site.Col, e.cfg.Thresholds.SnippetChars),
			Style:   m.Style,
		})
		e.logger.Debug("Resolved call", logger.F("file", rel), logger.F("line", lineNo),
			logger.F("target", m.Target), logger.F("matcher", by))
	}
}

func isComment(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "//") || strings.HasPrefix(t, "/*") ||
		strings.HasPrefix(t, "*") || strings.HasPrefix(t, "#")
}

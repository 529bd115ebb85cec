package discovery

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/simonhull/firebird-suite/weaver/pkg/config"
	"github.com/simonhull/firebird-suite/weaver/pkg/filesystem"
	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// Result holds everything discovered on the server side
type Result struct {
	Routes     map[string]*wiring.RouteEntry
	Functions  map[string]*wiring.RouteEntry
	Duplicates []wiring.DuplicateRoute
}

// Discoverer finds routes and serverless functions
type Discoverer struct {
	cfg     *config.Config
	walker  *filesystem.Walker
	scanner *Scanner
	logger  logger.Logger
	read    func(string) ([]byte, error)
}

// New creates a Discoverer
func New(cfg *config.Config, log logger.Logger) (*Discoverer, error) {
	if log == nil {
		log = logger.Default()
	}
	tagID, err := regexp.Compile(cfg.DocTagPattern)
	if err != nil {
		return nil, fmt.Errorf("compiling doc tag pattern: %w", err)
	}
	names := make([]string, 0)
	for name := range cfg.ExternalEnvVars() {
		names = append(names, name)
	}
	return &Discoverer{
		cfg:     cfg,
		walker:  filesystem.NewWalker(cfg.WalkOptions(), log),
		scanner: NewScanner(cfg.StorageCalls, cfg.DocTagMarker, tagID, names),
		logger:  log.WithFields(logger.F("component", "discovery")),
		read:    os.ReadFile,
	}, nil
}

// Discover walks the API root and the functions directories
func (d *Discoverer) Discover() *Result {
	res := &Result{
		Routes:    make(map[string]*wiring.RouteEntry),
		Functions: make(map[string]*wiring.RouteEntry),
	}
	d.discoverRoutes(res)
	d.discoverFunctions(res)
	d.logger.Info("Discovery complete",
		logger.F("routes", len(res.Routes)),
		logger.F("functions", len(res.Functions)),
		logger.F("duplicates", len(res.Duplicates)))
	return res
}

func (d *Discoverer) discoverRoutes(res *Result) {
	apiRoot := d.cfg.Path(d.cfg.APIRoot)
	for _, file := range d.walker.Files(apiRoot) {
		rel := d.cfg.Rel(file)
		if d.cfg.IsTestPath(rel) {
			continue
		}
		routePath, ok := RoutePath(apiRoot, file, d.cfg.RoutePrefix, d.cfg.RouteFileNames)
		if !ok {
			d.logger.Debug("Not a routable file", logger.F("file", rel))
			continue
		}
		d.register(res.Routes, res, routePath, rel, file, wiring.RouteWeb)
	}
}

func (d *Discoverer) discoverFunctions(res *Result) {
	prefix := "/" + strings.Trim(d.cfg.FunctionPrefix, "/") + "/"
	for _, dir := range d.cfg.FunctionsDirs {
		root := d.cfg.Path(dir)
		for _, file := range d.walker.Files(root) {
			id, ok := FunctionID(root, file)
			if !ok {
				continue
			}
			d.register(res.Functions, res, path.Clean(prefix+id), d.cfg.Rel(file), file, wiring.RouteFunction)
		}
	}
}

// register applies first-discovery-wins deduplication. Later claims are
// remembered so they can be reported instead of silently vanishing.
func (d *Discoverer) register(into map[string]*wiring.RouteEntry, res *Result, routePath, rel, file string, typ wiring.RouteType) {
	if existing, dup := into[routePath]; dup {
		d.logger.Warn("Duplicate route ignored",
			logger.F("path", routePath), logger.F("kept", existing.File), logger.F("ignored", rel))
		res.Duplicates = append(res.Duplicates, wiring.DuplicateRoute{Path: routePath, Kept: existing.File, Ignored: rel})
		return
	}

	facts := Facts{Methods: []string{"GET"}}
	content, err := d.read(file)
	if err != nil {
		d.logger.Warn("Cannot read route file, using defaults", logger.F("file", rel), logger.Err(err))
	} else {
		facts = d.scanner.Scan(string(content))
	}

	into[routePath] = &wiring.RouteEntry{
		RouteDefinition: wiring.RouteDefinition{
			Path:        routePath,
			Methods:     facts.Methods,
			Type:        typ,
			Description: facts.Description,
		},
		File:        rel,
		Callers:     []wiring.CallerReference{},
		Outbound:    wiring.Outbound{Tables: facts.Tables, External: facts.External},
		E2ECoverage: []string{},
		DocTags:     facts.DocTags,
	}
}

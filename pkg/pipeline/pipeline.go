// Package pipeline runs one generate pass: discovery, caller and mock
// extraction, inventory loading and reconciliation, assembled into a
// wiring map.
package pipeline

import (
	"fmt"
	"time"

	"github.com/simonhull/firebird-suite/weaver/pkg/callers"
	"github.com/simonhull/firebird-suite/weaver/pkg/config"
	"github.com/simonhull/firebird-suite/weaver/pkg/discovery"
	"github.com/simonhull/firebird-suite/weaver/pkg/fileops"
	"github.com/simonhull/firebird-suite/weaver/pkg/inventory"
	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
	"github.com/simonhull/firebird-suite/weaver/pkg/mocks"
	"github.com/simonhull/firebird-suite/weaver/pkg/pathtemplate"
	"github.com/simonhull/firebird-suite/weaver/pkg/reconcile"
	"github.com/simonhull/firebird-suite/weaver/pkg/report"
	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// Outcome is the result of one generate pass
type Outcome struct {
	Map       *wiring.APIWiringMap
	Artifacts *report.Artifacts
	// AllowlistedCalls were matched by an allowlist entry and never orphaned
	AllowlistedCalls int
}

// Generator assembles wiring maps for one project
type Generator struct {
	cfg       *config.Config
	generator string
	cache     *pathtemplate.Cache
	logger    logger.Logger
	now       func() time.Time
}

// New creates a Generator. version is recorded in the map metadata.
func New(cfg *config.Config, version string, log logger.Logger) *Generator {
	if log == nil {
		log = logger.Default()
	}
	return &Generator{
		cfg:       cfg,
		generator: "weaver " + version,
		cache:     pathtemplate.NewCache(0),
		logger:    log,
		now:       time.Now,
	}
}

// SetClock replaces the timestamp source
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// Run scans the project and renders every artifact without writing them
func (g *Generator) Run() (*Outcome, error) {
	d, err := discovery.New(g.cfg, g.logger)
	if err != nil {
		return nil, err
	}
	found := d.Discover()
	calls := callers.NewExtractor(g.cfg, g.logger).Extract()
	mockRefs := mocks.NewExtractor(g.cfg, g.logger).Extract()
	loaded := inventory.NewLoader(g.cfg, g.logger).Load()

	rec := reconcile.New(g.cfg, g.cache, g.logger).Reconcile(reconcile.Input{
		Routes:    found.Routes,
		Functions: found.Functions,
		Calls:     calls.Calls,
		Mocks:     mockRefs,
		External:  loaded.Routes,
	})

	m := g.assemble(found, calls, mockRefs, loaded, rec)
	artifacts, err := report.Render(m, g.cfg)
	if err != nil {
		return nil, fmt.Errorf("rendering artifacts: %w", err)
	}
	return &Outcome{Map: m, Artifacts: artifacts, AllowlistedCalls: rec.AllowlistedCalls}, nil
}

func (g *Generator) assemble(found *discovery.Result, calls *callers.Result, mockRefs []wiring.MockReference,
	loaded *inventory.Loaded, rec *reconcile.Result) *wiring.APIWiringMap {
	excluded := 0
	for _, o := range rec.Orphans {
		if o.Excluded {
			excluded++
		}
	}

	m := &wiring.APIWiringMap{
		Metadata: wiring.Metadata{
			GeneratedAt:               wiring.Timestamp(g.now()),
			Generator:                 g.generator,
			Repo:                      g.cfg.Repo,
			RouteCount:                len(found.Routes),
			FunctionCount:             len(found.Functions),
			CallerCount:               len(calls.Calls),
			OrphanCount:               len(rec.Orphans) - excluded,
			ExcludedOrphanCount:       excluded,
			SkippedCallCount:          len(calls.Skipped),
			UnclassifiedExternalCalls: calls.Unclassified,
			UnverifiedExternalCalls:   rec.UnverifiedExternal,
			MockCount:                 len(mockRefs),
			WildcardMockCount:         len(rec.Wildcards),
			CoveredRouteCount:         rec.CoveredRoutes,
			CrossRepoMatches:          rec.CrossRepoMatches,
			ScannedDirs:               calls.ScannedDirs,
			ExternalSources:           loaded.Statuses,
			DuplicateRoutes:           found.Duplicates,
			UncalledRoutes:            rec.Uncalled,
		},
		Routes:              found.Routes,
		ServerlessFunctions: found.Functions,
		ExternalCalls:       rec.ExternalCalls,
		Orphans:             rec.Orphans,
		SkippedCalls:        calls.Skipped,
		E2EGaps:             rec.Gaps,
		E2EWildcards:        rec.Wildcards,
	}
	m.Canonicalize()
	return m
}

// Write commits every artifact atomically. withHTML adds HTML renderings
// of the Markdown reports. It returns the written paths.
func (g *Generator) Write(out *Outcome, withHTML bool) ([]string, error) {
	tx := fileops.NewTransaction()
	if err := out.Artifacts.Stage(tx, g.cfg, withHTML); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("writing artifacts: %w", err)
	}
	return tx.Paths(), nil
}

// Inventory discovers this project's routes and renders its inventory
func (g *Generator) Inventory() (wiring.APIInventory, []byte, error) {
	d, err := discovery.New(g.cfg, g.logger)
	if err != nil {
		return wiring.APIInventory{}, nil, err
	}
	found := d.Discover()
	inv := inventory.Build(g.cfg.Repo, g.now(), found.Routes, found.Functions)
	data, err := inventory.Marshal(inv)
	if err != nil {
		return wiring.APIInventory{}, nil, err
	}
	return inv, data, nil
}

// WriteInventory writes the rendered inventory to path, or to the
// configured inventory path when path is empty.
func (g *Generator) WriteInventory(path string, data []byte) (string, error) {
	if path == "" {
		path = g.cfg.Outputs.InventoryPath
	}
	target := g.cfg.Path(path)
	tx := fileops.NewTransaction()
	tx.AddFile(target, data, 0644)
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("writing inventory: %w", err)
	}
	return target, nil
}

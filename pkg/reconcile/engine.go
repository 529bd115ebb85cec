package reconcile

import (
	"sort"
	"strings"

	"github.com/simonhull/firebird-suite/weaver/pkg/config"
	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
	"github.com/simonhull/firebird-suite/weaver/pkg/pathtemplate"
	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// Input is everything the scanners produced
type Input struct {
	Routes    map[string]*wiring.RouteEntry
	Functions map[string]*wiring.RouteEntry
	Calls     []wiring.CallerReference
	Mocks     []wiring.MockReference
	// External holds routes from loaded or stale sibling inventories
	External []wiring.MergedRoute
}

// Result is what reconciliation adds on top of the input. Callers and
// coverage are attached to the input's route entries in place.
type Result struct {
	Orphans            []wiring.OrphanEntry
	Uncalled           []wiring.UncalledRoute
	Gaps               []wiring.E2EGap
	Wildcards          []wiring.MockReference
	Merged             []wiring.MergedRoute
	ExternalCalls      map[string]*wiring.ExternalCallGroup
	CrossRepoMatches   int
	AllowlistedCalls   int
	UnverifiedExternal int
	CoveredRoutes      int
}

// Engine reconciles calls, routes, mocks and inventories
type Engine struct {
	cfg    *config.Config
	cache  *pathtemplate.Cache
	logger logger.Logger
}

// New creates an Engine. A nil cache gets a default-sized one.
func New(cfg *config.Config, cache *pathtemplate.Cache, log logger.Logger) *Engine {
	if cache == nil {
		cache = pathtemplate.NewCache(0)
	}
	if log == nil {
		log = logger.Default()
	}
	return &Engine{cfg: cfg, cache: cache, logger: log.WithFields(logger.F("component", "reconcile"))}
}

// Reconcile matches the input and classifies what is left over
func (e *Engine) Reconcile(in Input) *Result {
	res := &Result{
		Merged:        e.merge(in),
		ExternalCalls: make(map[string]*wiring.ExternalCallGroup),
	}

	local := newRouteIndex(e.cache, entryPaths(in.Routes, in.Functions))
	merged := newMergedIndex(e.cache, res.Merged)

	var unmatched []wiring.CallerReference
	for _, call := range in.Calls {
		if !e.matchCall(call, in, local, merged, res) {
			unmatched = append(unmatched, call)
		}
	}

	for _, group := range res.ExternalCalls {
		wiring.SortCallers(group.Callers)
	}
	res.Orphans = e.orphans(unmatched, res)
	res.Uncalled = e.uncalled(in)
	e.coverage(in, local, merged, res)

	e.logger.Info("Reconciliation complete",
		logger.F("orphans", len(res.Orphans)),
		logger.F("uncalled", len(res.Uncalled)),
		logger.F("cross_repo_matches", res.CrossRepoMatches),
		logger.F("external_call_groups", len(res.ExternalCalls)),
		logger.F("e2e_gaps", len(res.Gaps)))
	return res
}

// merge builds the union of local routes and sibling inventory routes
func (e *Engine) merge(in Input) []wiring.MergedRoute {
	merged := make([]wiring.MergedRoute, 0, len(in.Routes)+len(in.Functions)+len(in.External))
	for _, set := range []map[string]*wiring.RouteEntry{in.Routes, in.Functions} {
		for _, entry := range set {
			merged = append(merged, wiring.MergedRoute{
				Path:    entry.Path,
				Methods: entry.Methods,
				Type:    entry.Type,
				Repo:    e.cfg.Repo,
				BaseURL: entry.BaseURL,
			})
		}
	}
	merged = append(merged, in.External...)
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Repo != merged[j].Repo {
			return merged[i].Repo < merged[j].Repo
		}
		return merged[i].Path < merged[j].Path
	})
	return merged
}

func (e *Engine) lookup(in Input, path string) *wiring.RouteEntry {
	if entry, ok := in.Routes[path]; ok {
		return entry
	}
	return in.Functions[path]
}

// matchCall attaches call to the route serving it. It reports false when
// the call is unmatched and should be considered for orphan reporting.
func (e *Engine) matchCall(call wiring.CallerReference, in Input, local *routeIndex, merged *mergedIndex, res *Result) bool {
	if repo, path, ok := pathtemplate.SplitExternalID(call.Target); ok {
		if repo == e.cfg.Repo {
			if routePath, found := local.match(path); found {
				entry := e.lookup(in, routePath)
				entry.Callers = append(entry.Callers, call)
				return true
			}
			return false
		}
		if !merged.has(repo) {
			res.UnverifiedExternal++
			e.logger.Debug("No inventory to verify external call",
				logger.F("repo", repo), logger.F("target", call.Target), logger.F("file", call.File))
			e.recordExternal(res, repo, path, nil, call)
			return true
		}
		if route, found := merged.match(repo, path); found {
			res.CrossRepoMatches++
			e.recordExternal(res, repo, path, &route, call)
			return true
		}
		return false
	}

	if routePath, found := local.match(call.Target); found {
		entry := e.lookup(in, routePath)
		entry.Callers = append(entry.Callers, call)
		return true
	}
	if route, found := merged.matchAny(call.Target, e.cfg.Repo); found {
		res.CrossRepoMatches++
		e.recordExternal(res, route.Repo, call.Target, &route, call)
		return true
	}
	return false
}

// recordExternal adds call to the group for repo and path. A nil route
// means no inventory for repo was available to confirm the call.
func (e *Engine) recordExternal(res *Result, repo, path string, route *wiring.MergedRoute, call wiring.CallerReference) {
	key := pathtemplate.ExternalID(repo, path)
	group, ok := res.ExternalCalls[key]
	if !ok {
		group = &wiring.ExternalCallGroup{
			Target:  key,
			Repo:    repo,
			Methods: []string{},
			Status:  wiring.ExternalUnverified,
		}
		if route != nil {
			group.Route = route.Path
			group.Methods = wiring.SortMethods(route.Methods)
			group.Type = route.Type
			group.Status = wiring.ExternalMatched
		}
		res.ExternalCalls[key] = group
	}
	group.Callers = append(group.Callers, call)
}

// allowlisted reports whether call is a known server-to-server call
func (e *Engine) allowlisted(call wiring.CallerReference) bool {
	for _, entry := range e.cfg.ServerAllowlist {
		if !strings.HasSuffix(call.File, entry.CallerSuffix) {
			continue
		}
		if entry.Route == call.Target || e.cache.Match(entry.Route, call.Target) {
			return true
		}
	}
	return false
}

func (e *Engine) orphans(unmatched []wiring.CallerReference, res *Result) []wiring.OrphanEntry {
	groups := make(map[string][]wiring.CallerReference)
	for _, call := range unmatched {
		if e.allowlisted(call) {
			res.AllowlistedCalls++
			continue
		}
		groups[call.Target] = append(groups[call.Target], call)
	}

	paths := make([]string, 0, len(groups))
	for p := range groups {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	orphans := make([]wiring.OrphanEntry, 0, len(paths))
	for _, p := range paths {
		callers := groups[p]
		wiring.SortCallers(callers)
		class := Classify(p, callers, e.cfg.IsTestPath, e.cfg.WebhookKeywords)
		excluded := allCallers(callers, func(file string) bool {
			return excludedCaller(file, e.cfg.CallerExclusions)
		})
		orphans = append(orphans, wiring.OrphanEntry{
			Path:           p,
			Callers:        callers,
			Classification: class,
			Recommendation: Recommendation(class, p),
			Excluded:       excluded,
		})
	}
	return orphans
}

// isAllowlistTarget reports whether some server allowlist entry targets path
func (e *Engine) isAllowlistTarget(path string) bool {
	for _, entry := range e.cfg.ServerAllowlist {
		if entry.Route == path || e.cache.Match(path, entry.Route) {
			return true
		}
	}
	return false
}

func (e *Engine) uncalled(in Input) []wiring.UncalledRoute {
	var out []wiring.UncalledRoute
	for _, set := range []map[string]*wiring.RouteEntry{in.Routes, in.Functions} {
		for path, entry := range set {
			if len(entry.Callers) > 0 || e.isAllowlistTarget(path) {
				continue
			}
			out = append(out, wiring.UncalledRoute{
				Path:           path,
				File:           entry.File,
				Type:           entry.Type,
				Classification: ClassifyUncalled(path, e.cfg.WebhookKeywords),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (e *Engine) coverage(in Input, local *routeIndex, merged *mergedIndex, res *Result) {
	for _, mock := range in.Mocks {
		if mock.Wildcard {
			res.Wildcards = append(res.Wildcards, mock)
			continue
		}
		if mock.NormalizedPath == nil {
			continue
		}
		target := *mock.NormalizedPath

		if repo, path, ok := pathtemplate.SplitExternalID(target); ok && repo != e.cfg.Repo {
			if _, found := merged.match(repo, path); merged.has(repo) && !found {
				res.Gaps = append(res.Gaps, gap(mock, target))
			}
			continue
		} else if ok {
			target = path
		}

		if routePath, found := local.match(target); found {
			entry := e.lookup(in, routePath)
			entry.E2ECoverage = append(entry.E2ECoverage, mock.Key())
			continue
		}
		if _, found := merged.matchAny(target, e.cfg.Repo); found {
			continue
		}
		res.Gaps = append(res.Gaps, gap(mock, target))
	}

	for _, set := range []map[string]*wiring.RouteEntry{in.Routes, in.Functions} {
		for _, entry := range set {
			if len(entry.E2ECoverage) > 0 {
				res.CoveredRoutes++
			}
		}
	}
}

func gap(mock wiring.MockReference, normalized string) wiring.E2EGap {
	return wiring.E2EGap{File: mock.File, Line: mock.Line, Pattern: mock.Pattern, NormalizedPath: normalized}
}

package reconcile

import (
	"sort"

	"github.com/simonhull/firebird-suite/weaver/pkg/pathtemplate"
	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// routeIndex matches call paths against a set of route templates
type routeIndex struct {
	cache     *pathtemplate.Cache
	exact     map[string]bool
	templates []string
}

func newRouteIndex(cache *pathtemplate.Cache, paths []string) *routeIndex {
	idx := &routeIndex{cache: cache, exact: make(map[string]bool, len(paths))}
	for _, p := range paths {
		idx.exact[p] = true
		if pathtemplate.IsDynamic(p) {
			idx.templates = append(idx.templates, p)
		}
	}
	// Fewest dynamic segments first, then lexical, so the first match is
	// the most specific one.
	sort.Slice(idx.templates, func(i, j int) bool {
		si, sj := pathtemplate.Specificity(idx.templates[i]), pathtemplate.Specificity(idx.templates[j])
		if si != sj {
			return si < sj
		}
		return idx.templates[i] < idx.templates[j]
	})
	return idx
}

// match returns the route path serving target. An exact path wins over
// any template.
func (idx *routeIndex) match(target string) (string, bool) {
	if idx.exact[target] {
		return target, true
	}
	for _, tmpl := range idx.templates {
		if idx.cache.Match(tmpl, target) {
			return tmpl, true
		}
	}
	return "", false
}

func entryPaths(sets ...map[string]*wiring.RouteEntry) []string {
	var paths []string
	for _, set := range sets {
		for p := range set {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// mergedIndex groups merged routes by owning repo
type mergedIndex struct {
	byRepo map[string]*routeIndex
	routes map[string]map[string]wiring.MergedRoute
}

func newMergedIndex(cache *pathtemplate.Cache, routes []wiring.MergedRoute) *mergedIndex {
	mi := &mergedIndex{
		byRepo: make(map[string]*routeIndex),
		routes: make(map[string]map[string]wiring.MergedRoute),
	}
	paths := make(map[string][]string)
	for _, r := range routes {
		if mi.routes[r.Repo] == nil {
			mi.routes[r.Repo] = make(map[string]wiring.MergedRoute)
		}
		if _, dup := mi.routes[r.Repo][r.Path]; dup {
			continue
		}
		mi.routes[r.Repo][r.Path] = r
		paths[r.Repo] = append(paths[r.Repo], r.Path)
	}
	for repo, ps := range paths {
		sort.Strings(ps)
		mi.byRepo[repo] = newRouteIndex(cache, ps)
	}
	return mi
}

func (mi *mergedIndex) has(repo string) bool {
	_, ok := mi.byRepo[repo]
	return ok
}

// match returns the route of repo serving path
func (mi *mergedIndex) match(repo, path string) (wiring.MergedRoute, bool) {
	idx, ok := mi.byRepo[repo]
	if !ok {
		return wiring.MergedRoute{}, false
	}
	routePath, found := idx.match(path)
	if !found {
		return wiring.MergedRoute{}, false
	}
	return mi.routes[repo][routePath], true
}

// matchAny returns the route serving path from the first repo, in name
// order, other than skip
func (mi *mergedIndex) matchAny(path, skip string) (wiring.MergedRoute, bool) {
	repos := make([]string, 0, len(mi.byRepo))
	for repo := range mi.byRepo {
		if repo != skip {
			repos = append(repos, repo)
		}
	}
	sort.Strings(repos)
	for _, repo := range repos {
		if route, ok := mi.match(repo, path); ok {
			return route, true
		}
	}
	return wiring.MergedRoute{}, false
}

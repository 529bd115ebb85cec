package wiring

import (
	"sort"
	"strconv"
)

func itoa(n int) string { return strconv.Itoa(n) }

// methodOrder is the canonical display order of HTTP methods
var methodOrder = map[string]int{
	"GET": 0, "POST": 1, "PUT": 2, "PATCH": 3, "DELETE": 4, "HEAD": 5, "OPTIONS": 6,
}

// SortMethods orders methods canonically and removes duplicates
func SortMethods(methods []string) []string {
	seen := make(map[string]bool, len(methods))
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, iok := methodOrder[out[i]]
		oj, jok := methodOrder[out[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return out[i] < out[j]
		}
	})
	return out
}

// SortCallers orders references by file then line then target
func SortCallers(refs []CallerReference) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].File != refs[j].File {
			return refs[i].File < refs[j].File
		}
		if refs[i].Line != refs[j].Line {
			return refs[i].Line < refs[j].Line
		}
		return refs[i].Target < refs[j].Target
	})
}

// UniqueSorted returns the sorted set of values, never nil
func UniqueSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// Canonicalize sorts every list in the map and replaces nil slices with
// empty ones so two runs over the same tree serialize identically.
func (m *APIWiringMap) Canonicalize() {
	if m.Routes == nil {
		m.Routes = map[string]*RouteEntry{}
	}
	if m.ServerlessFunctions == nil {
		m.ServerlessFunctions = map[string]*RouteEntry{}
	}
	for _, entries := range []map[string]*RouteEntry{m.Routes, m.ServerlessFunctions} {
		for _, e := range entries {
			e.Canonicalize()
		}
	}

	if m.ExternalCalls == nil {
		m.ExternalCalls = map[string]*ExternalCallGroup{}
	}
	for _, g := range m.ExternalCalls {
		g.Methods = SortMethods(g.Methods)
		if g.Callers == nil {
			g.Callers = []CallerReference{}
		}
		SortCallers(g.Callers)
	}

	if m.Orphans == nil {
		m.Orphans = []OrphanEntry{}
	}
	for i := range m.Orphans {
		if m.Orphans[i].Callers == nil {
			m.Orphans[i].Callers = []CallerReference{}
		}
		SortCallers(m.Orphans[i].Callers)
	}
	sort.Slice(m.Orphans, func(i, j int) bool { return m.Orphans[i].Path < m.Orphans[j].Path })

	if m.SkippedCalls == nil {
		m.SkippedCalls = []SkippedCall{}
	}
	sort.Slice(m.SkippedCalls, func(i, j int) bool {
		a, b := m.SkippedCalls[i], m.SkippedCalls[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Raw < b.Raw
	})

	if m.E2EGaps == nil {
		m.E2EGaps = []E2EGap{}
	}
	sort.Slice(m.E2EGaps, func(i, j int) bool {
		if m.E2EGaps[i].File != m.E2EGaps[j].File {
			return m.E2EGaps[i].File < m.E2EGaps[j].File
		}
		return m.E2EGaps[i].Line < m.E2EGaps[j].Line
	})

	if m.E2EWildcards == nil {
		m.E2EWildcards = []MockReference{}
	}
	sort.Slice(m.E2EWildcards, func(i, j int) bool { return m.E2EWildcards[i].Key() < m.E2EWildcards[j].Key() })

	md := &m.Metadata
	if md.ScannedDirs == nil {
		md.ScannedDirs = []string{}
	}
	if md.ExternalSources == nil {
		md.ExternalSources = []SourceStatus{}
	}
	if md.DuplicateRoutes == nil {
		md.DuplicateRoutes = []DuplicateRoute{}
	}
	if md.UncalledRoutes == nil {
		md.UncalledRoutes = []UncalledRoute{}
	}
	sort.Slice(md.UncalledRoutes, func(i, j int) bool { return md.UncalledRoutes[i].Path < md.UncalledRoutes[j].Path })
}

// Canonicalize sorts the entry's lists and replaces nil slices
func (e *RouteEntry) Canonicalize() {
	if e.Methods == nil {
		e.Methods = []string{}
	}
	e.Methods = SortMethods(e.Methods)
	if e.Callers == nil {
		e.Callers = []CallerReference{}
	}
	SortCallers(e.Callers)
	e.Outbound.Tables = UniqueSorted(e.Outbound.Tables)
	e.Outbound.External = UniqueSorted(e.Outbound.External)
	e.E2ECoverage = UniqueSorted(e.E2ECoverage)
	e.DocTags = UniqueSorted(e.DocTags)
}

package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// Options controls report rendering
type Options struct {
	// DisplayCap bounds every list; zero means unbounded
	DisplayCap int
}

// OrphanReport renders the orphan report: blocking orphans first, then
// excluded orphans and uncalled routes as informational sections.
func OrphanReport(m *wiring.APIWiringMap, opts Options) string {
	var active, excluded []wiring.OrphanEntry
	for _, o := range m.Orphans {
		if o.Excluded {
			excluded = append(excluded, o)
		} else {
			active = append(active, o)
		}
	}

	var b strings.Builder
	b.WriteString("# API Orphan Report\n\n")
	fmt.Fprintf(&b, "Generated %s for `%s`.\n\n", m.Metadata.GeneratedAt, m.Metadata.Repo)

	b.WriteString("| Metric | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Routes | %d |\n", m.Metadata.RouteCount)
	fmt.Fprintf(&b, "| Serverless functions | %d |\n", m.Metadata.FunctionCount)
	fmt.Fprintf(&b, "| Resolved calls | %d |\n", m.Metadata.CallerCount)
	fmt.Fprintf(&b, "| Orphaned calls | %d |\n", len(active))
	fmt.Fprintf(&b, "| Excluded orphans | %d |\n", len(excluded))
	fmt.Fprintf(&b, "| Uncalled routes | %d |\n", len(m.Metadata.UncalledRoutes))
	fmt.Fprintf(&b, "| Skipped calls | %d |\n", m.Metadata.SkippedCallCount)
	fmt.Fprintf(&b, "| Cross-repo calls (matched) | %d |\n", m.Metadata.CrossRepoMatches)
	fmt.Fprintf(&b, "| Cross-repo calls (unverified) | %d |\n\n", m.Metadata.UnverifiedExternalCalls)

	b.WriteString("## Orphaned calls\n\n")
	if len(active) == 0 {
		b.WriteString("No orphaned calls.\n\n")
	}
	shown, more := capped(len(active), opts.DisplayCap)
	for _, o := range active[:shown] {
		writeOrphan(&b, o, opts)
	}
	writeMore(&b, more)

	if len(excluded) > 0 {
		b.WriteString("## Excluded orphans\n\n")
		b.WriteString("These calls match `caller_exclusions` and do not fail validation.\n\n")
		shown, more := capped(len(excluded), opts.DisplayCap)
		for _, o := range excluded[:shown] {
			writeOrphan(&b, o, opts)
		}
		writeMore(&b, more)
	}

	if n := len(m.Metadata.UncalledRoutes); n > 0 {
		b.WriteString("## Uncalled routes\n\n")
		b.WriteString("Routes with no caller in this repository. Informational only.\n\n")
		b.WriteString("| Route | Type | Classification | File |\n|---|---|---|---|\n")
		shown, more := capped(n, opts.DisplayCap)
		for _, r := range m.Metadata.UncalledRoutes[:shown] {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", code(r.Path), r.Type, r.Classification, code(r.File))
		}
		b.WriteString("\n")
		writeMore(&b, more)
	}

	writeExternalCalls(&b, m, opts)

	return b.String()
}

// writeExternalCalls lists calls served by sibling repos, unverified
// targets first
func writeExternalCalls(b *strings.Builder, m *wiring.APIWiringMap, opts Options) {
	groups := make([]*wiring.ExternalCallGroup, 0, len(m.ExternalCalls))
	for _, g := range m.ExternalCalls {
		groups = append(groups, g)
	}
	if len(groups) == 0 {
		return
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Status != groups[j].Status {
			return groups[i].Status == wiring.ExternalUnverified
		}
		return groups[i].Target < groups[j].Target
	})

	b.WriteString("## External calls\n\n")
	b.WriteString("Calls served by sibling repositories. Unverified calls had no inventory to check against.\n\n")
	b.WriteString("| Target | Repo | Status | Methods | Callers |\n|---|---|---|---|---|\n")
	shown, more := capped(len(groups), opts.DisplayCap)
	for _, g := range groups[:shown] {
		methods := strings.Join(g.Methods, ", ")
		if methods == "" {
			methods = "-"
		}
		sites := make([]string, 0, len(g.Callers))
		for _, c := range g.Callers {
			sites = append(sites, code(fmt.Sprintf("%s:%d", c.File, c.Line)))
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n", code(g.Target), g.Repo, g.Status, methods, strings.Join(sites, " "))
	}
	b.WriteString("\n")
	writeMore(b, more)
}

func writeOrphan(b *strings.Builder, o wiring.OrphanEntry, opts Options) {
	fmt.Fprintf(b, "### %s\n\n", code(o.Path))
	fmt.Fprintf(b, "- **Classification:** %s\n", o.Classification)
	fmt.Fprintf(b, "- **Recommendation:** %s\n", o.Recommendation)
	fmt.Fprintf(b, "- **Callers (%d):**\n", len(o.Callers))
	shown, more := capped(len(o.Callers), opts.DisplayCap)
	for _, c := range o.Callers[:shown] {
		fmt.Fprintf(b, "  - %s %s\n", code(fmt.Sprintf("%s:%d", c.File, c.Line)), code(c.Context))
	}
	if more > 0 {
		fmt.Fprintf(b, "  - ...and %d more\n", more)
	}
	b.WriteString("\n")
}

// CoverageReport renders covered and uncovered routes, unmatched mocks
// and wildcard mocks.
func CoverageReport(m *wiring.APIWiringMap, opts Options) string {
	entries := allEntries(m)
	var covered, uncovered []*wiring.RouteEntry
	for _, e := range entries {
		if len(e.E2ECoverage) > 0 {
			covered = append(covered, e)
		} else {
			uncovered = append(uncovered, e)
		}
	}

	var b strings.Builder
	b.WriteString("# API E2E Coverage Report\n\n")
	fmt.Fprintf(&b, "Generated %s for `%s`.\n\n", m.Metadata.GeneratedAt, m.Metadata.Repo)
	fmt.Fprintf(&b, "**%d of %d routes covered (%s)** by %d route mocks, %d of them wildcards.\n\n",
		len(covered), len(entries), percent(len(covered), len(entries)),
		m.Metadata.MockCount, m.Metadata.WildcardMockCount)

	b.WriteString("## Covered routes\n\n")
	if len(covered) == 0 {
		b.WriteString("No route has specific e2e coverage.\n\n")
	} else {
		b.WriteString("| Route | Mocks |\n|---|---|\n")
		shown, more := capped(len(covered), opts.DisplayCap)
		for _, e := range covered[:shown] {
			fmt.Fprintf(&b, "| %s | %s |\n", code(e.Path), strings.Join(e.E2ECoverage, ", "))
		}
		b.WriteString("\n")
		writeMore(&b, more)
	}

	b.WriteString("## Uncovered routes\n\n")
	if len(uncovered) == 0 {
		b.WriteString("Every route is covered.\n\n")
	} else {
		shown, more := capped(len(uncovered), opts.DisplayCap)
		for _, e := range uncovered[:shown] {
			fmt.Fprintf(&b, "- %s\n", code(e.Path))
		}
		b.WriteString("\n")
		writeMore(&b, more)
	}

	b.WriteString("## Unmatched mocks\n\n")
	if len(m.E2EGaps) == 0 {
		b.WriteString("Every specific mock resolves to a known route.\n\n")
	} else {
		b.WriteString("| Mock | Pattern | Resolved path |\n|---|---|---|\n")
		shown, more := capped(len(m.E2EGaps), opts.DisplayCap)
		for _, g := range m.E2EGaps[:shown] {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", code(fmt.Sprintf("%s:%d", g.File, g.Line)), code(g.Pattern), code(g.NormalizedPath))
		}
		b.WriteString("\n")
		writeMore(&b, more)
	}

	b.WriteString("## Wildcard mocks\n\n")
	if len(m.E2EWildcards) == 0 {
		b.WriteString("None.\n\n")
	} else {
		b.WriteString("Wildcards intercept many routes and never count as specific coverage.\n\n")
		shown, more := capped(len(m.E2EWildcards), opts.DisplayCap)
		for _, w := range m.E2EWildcards[:shown] {
			fmt.Fprintf(&b, "- %s %s\n", code(w.Key()), code(w.Pattern))
		}
		b.WriteString("\n")
		writeMore(&b, more)
	}

	return b.String()
}

func allEntries(m *wiring.APIWiringMap) []*wiring.RouteEntry {
	entries := make([]*wiring.RouteEntry, 0, len(m.Routes)+len(m.ServerlessFunctions))
	for _, e := range m.Routes {
		entries = append(entries, e)
	}
	for _, e := range m.ServerlessFunctions {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// capped splits n items into the number to show and the number hidden
func capped(n, limit int) (int, int) {
	if limit <= 0 || n <= limit {
		return n, 0
	}
	return limit, n - limit
}

func writeMore(b *strings.Builder, more int) {
	if more > 0 {
		fmt.Fprintf(b, "...and %d more\n\n", more)
	}
}

func percent(part, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", float64(part)*100/float64(total))
}

// code wraps s as inline code, widening the fence when s has backticks.
// Pipes are escaped so the result is safe inside tables.
func code(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	if strings.Contains(s, "`") {
		return "`` " + s + " ``"
	}
	return "`" + s + "`"
}

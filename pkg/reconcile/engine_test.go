package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/firebird-suite/weaver/pkg/config"
	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

func newEngine(mutate ...func(*config.Config)) *Engine {
	cfg := config.DefaultConfig()
	for _, m := range mutate {
		m(cfg)
	}
	return New(cfg, nil, logger.NewSilentLogger())
}

func route(path string, typ wiring.RouteType) *wiring.RouteEntry {
	return &wiring.RouteEntry{
		RouteDefinition: wiring.RouteDefinition{Path: path, Methods: []string{"GET"}, Type: typ},
		File:            "src/app" + path + "/route.ts",
	}
}

func routes(paths ...string) map[string]*wiring.RouteEntry {
	m := make(map[string]*wiring.RouteEntry, len(paths))
	for _, p := range paths {
		m[p] = route(p, wiring.RouteWeb)
	}
	return m
}

func call(file string, line int, target string) wiring.CallerReference {
	return wiring.CallerReference{File: file, Line: line, Target: target, Context: "fetch(...)", Style: wiring.StyleFetch}
}

func strPtr(s string) *string { return &s }

func TestReconcile_TemplateCallMatchesDynamicRoute(t *testing.T) {
	in := Input{
		Routes: routes("/api/projects/[id]"),
		Calls:  []wiring.CallerReference{call("src/app/projects/page.tsx", 12, "/api/projects/:param")},
	}
	res := newEngine().Reconcile(in)

	assert.Empty(t, res.Orphans)
	require.Len(t, in.Routes["/api/projects/[id]"].Callers, 1)
	assert.Equal(t, 12, in.Routes["/api/projects/[id]"].Callers[0].Line)
	assert.Empty(t, res.Uncalled)
}

func TestReconcile_UnservedCallIsUnknownOrphan(t *testing.T) {
	in := Input{
		Routes: routes("/api/projects"),
		Calls:  []wiring.CallerReference{call("src/lib/reports.ts", 3, "/api/reports/export")},
	}
	res := newEngine().Reconcile(in)

	require.Len(t, res.Orphans, 1)
	o := res.Orphans[0]
	assert.Equal(t, "/api/reports/export", o.Path)
	assert.Equal(t, wiring.ClassUnknown, o.Classification)
	assert.NotEmpty(t, o.Recommendation)
	assert.False(t, o.Excluded)
	require.Len(t, res.Uncalled, 1)
	assert.Equal(t, wiring.ClassDeadCode, res.Uncalled[0].Classification)
}

func TestReconcile_ExactRouteBeatsTemplate(t *testing.T) {
	in := Input{
		Routes: routes("/api/projects/[id]", "/api/projects/archive", "/api/projects/[...rest]"),
		Calls: []wiring.CallerReference{
			call("src/a.ts", 1, "/api/projects/archive"),
			call("src/a.ts", 2, "/api/projects/42"),
			call("src/a.ts", 3, "/api/projects/42/runs/7"),
		},
	}
	newEngine().Reconcile(in)

	assert.Len(t, in.Routes["/api/projects/archive"].Callers, 1)
	assert.Len(t, in.Routes["/api/projects/[id]"].Callers, 1)
	assert.Len(t, in.Routes["/api/projects/[...rest]"].Callers, 1)
	assert.Equal(t, 3, in.Routes["/api/projects/[...rest]"].Callers[0].Line)
}

func TestReconcile_FunctionsMatch(t *testing.T) {
	fn := route("/.netlify/functions/crew-analyze", wiring.RouteFunction)
	in := Input{
		Functions: map[string]*wiring.RouteEntry{fn.Path: fn},
		Calls:     []wiring.CallerReference{call("src/a.ts", 1, "/.netlify/functions/crew-analyze")},
	}
	res := newEngine().Reconcile(in)
	assert.Empty(t, res.Orphans)
	assert.Len(t, fn.Callers, 1)
}

func TestReconcile_ExternalCalls(t *testing.T) {
	external := []wiring.MergedRoute{
		{Path: "/kickoff", Methods: []string{"POST"}, Type: wiring.RouteExternal, Repo: "crew-service"},
		{Path: "/status/[id]", Methods: []string{"GET"}, Type: wiring.RouteExternal, Repo: "crew-service"},
	}
	in := Input{
		Calls: []wiring.CallerReference{
			call("src/a.ts", 1, "external://crew-service/kickoff"),
			call("src/b.ts", 9, "external://crew-service/kickoff"),
			call("src/a.ts", 2, "external://crew-service/status/:param"),
			call("src/a.ts", 3, "external://crew-service/cancel"),
			call("src/a.ts", 4, "external://billing/invoices"),
		},
		External: external,
	}
	res := newEngine().Reconcile(in)

	assert.Equal(t, 3, res.CrossRepoMatches)
	assert.Equal(t, 1, res.UnverifiedExternal, "no inventory loaded for billing")
	require.Len(t, res.Orphans, 1)
	assert.Equal(t, "external://crew-service/cancel", res.Orphans[0].Path)
	assert.Contains(t, res.Orphans[0].Recommendation, "crew-service")

	require.Len(t, res.ExternalCalls, 3)
	kickoff := res.ExternalCalls["external://crew-service/kickoff"]
	require.NotNil(t, kickoff)
	assert.Equal(t, wiring.ExternalMatched, kickoff.Status)
	assert.Equal(t, "crew-service", kickoff.Repo)
	assert.Equal(t, "/kickoff", kickoff.Route)
	assert.Equal(t, []string{"POST"}, kickoff.Methods)
	assert.Equal(t, wiring.RouteExternal, kickoff.Type)
	require.Len(t, kickoff.Callers, 2)
	assert.Equal(t, "src/a.ts", kickoff.Callers[0].File)
	assert.Equal(t, "src/b.ts", kickoff.Callers[1].File)

	status := res.ExternalCalls["external://crew-service/status/:param"]
	require.NotNil(t, status)
	assert.Equal(t, "/status/[id]", status.Route)

	billing := res.ExternalCalls["external://billing/invoices"]
	require.NotNil(t, billing)
	assert.Equal(t, wiring.ExternalUnverified, billing.Status)
	assert.Empty(t, billing.Route)
	assert.Empty(t, billing.Methods)
	require.Len(t, billing.Callers, 1)
	assert.Equal(t, 4, billing.Callers[0].Line)
}

func TestReconcile_UnverifiedExternalCallsAreKept(t *testing.T) {
	in := Input{
		Calls: []wiring.CallerReference{
			call("src/b.ts", 9, "external://crew-service/kickoff"),
			call("src/a.ts", 1, "external://crew-service/kickoff"),
		},
	}
	res := newEngine().Reconcile(in)

	assert.Empty(t, res.Orphans)
	assert.Equal(t, 2, res.UnverifiedExternal)
	require.Len(t, res.ExternalCalls, 1)
	group := res.ExternalCalls["external://crew-service/kickoff"]
	require.NotNil(t, group)
	assert.Equal(t, wiring.ExternalUnverified, group.Status)
	require.Len(t, group.Callers, 2)
	assert.Equal(t, "src/a.ts", group.Callers[0].File)
}

func TestReconcile_UnmatchedExternalCallsGroupByTarget(t *testing.T) {
	in := Input{
		Calls: []wiring.CallerReference{
			call("src/b.ts", 9, "external://crew-service/kickoff"),
			call("src/a.ts", 1, "external://crew-service/kickoff"),
		},
		External: []wiring.MergedRoute{{Path: "/status", Repo: "crew-service"}},
	}
	res := newEngine().Reconcile(in)

	require.Len(t, res.Orphans, 1)
	require.Len(t, res.Orphans[0].Callers, 2)
	assert.Equal(t, "src/a.ts", res.Orphans[0].Callers[0].File)
}

func TestReconcile_LocalCallServedBySibling(t *testing.T) {
	in := Input{
		Calls:    []wiring.CallerReference{call("src/a.ts", 1, "/api/marketing/leads")},
		External: []wiring.MergedRoute{{Path: "/api/marketing/leads", Repo: "marketing"}},
	}
	res := newEngine().Reconcile(in)
	assert.Empty(t, res.Orphans)
	assert.Equal(t, 1, res.CrossRepoMatches)

	group := res.ExternalCalls["external://marketing/api/marketing/leads"]
	require.NotNil(t, group)
	assert.Equal(t, wiring.ExternalMatched, group.Status)
	assert.Equal(t, "marketing", group.Repo)
	require.Len(t, group.Callers, 1)
	assert.Equal(t, "/api/marketing/leads", group.Callers[0].Target)
}

func TestReconcile_Allowlist(t *testing.T) {
	engine := newEngine(func(c *config.Config) {
		c.ServerAllowlist = []config.AllowlistEntry{
			{CallerSuffix: "netlify/functions/crew-analyze.py", Route: "/api/crew/callback"},
		}
	})
	in := Input{
		Routes: routes("/api/health"),
		Calls: []wiring.CallerReference{
			call("netlify/functions/crew-analyze.py", 40, "/api/crew/callback"),
			call("src/other.ts", 2, "/api/crew/callback"),
		},
	}
	res := engine.Reconcile(in)

	assert.Equal(t, 1, res.AllowlistedCalls)
	require.Len(t, res.Orphans, 1)
	require.Len(t, res.Orphans[0].Callers, 1)
	assert.Equal(t, "src/other.ts", res.Orphans[0].Callers[0].File)
}

func TestReconcile_AllowlistTargetIsNotUncalled(t *testing.T) {
	engine := newEngine(func(c *config.Config) {
		c.ServerAllowlist = []config.AllowlistEntry{{CallerSuffix: "crew.py", Route: "/api/crew/[id]/result"}}
	})
	in := Input{Routes: routes("/api/crew/[id]/result", "/api/unused")}
	res := engine.Reconcile(in)

	require.Len(t, res.Uncalled, 1)
	assert.Equal(t, "/api/unused", res.Uncalled[0].Path)
}

func TestReconcile_ExcludedOrphan(t *testing.T) {
	engine := newEngine(func(c *config.Config) {
		c.CallerExclusions = []string{"src/legacy/**"}
	})
	in := Input{
		Calls: []wiring.CallerReference{
			call("src/legacy/old.ts", 1, "/api/old"),
			call("src/legacy/deep/older.ts", 2, "/api/old"),
			call("src/legacy/old.ts", 3, "/api/mixed"),
			call("src/new.ts", 3, "/api/mixed"),
		},
	}
	res := engine.Reconcile(in)

	require.Len(t, res.Orphans, 2)
	assert.Equal(t, "/api/mixed", res.Orphans[0].Path)
	assert.False(t, res.Orphans[0].Excluded)
	assert.Equal(t, "/api/old", res.Orphans[1].Path)
	assert.True(t, res.Orphans[1].Excluded)
}

func TestReconcile_Coverage(t *testing.T) {
	in := Input{
		Routes: routes("/api/projects", "/api/projects/[id]", "/api/health"),
		Mocks: []wiring.MockReference{
			{File: "tests/e2e/a.spec.ts", Line: 3, Pattern: "**/api/**", Wildcard: true},
			{File: "tests/e2e/a.spec.ts", Line: 5, Pattern: "**/api/projects", NormalizedPath: strPtr("/api/projects")},
			{File: "tests/e2e/a.spec.ts", Line: 7, Pattern: "**/api/projects/*/x", NormalizedPath: strPtr("/api/projects/:param/x")},
			{File: "tests/e2e/b.spec.ts", Line: 1, Pattern: "**/api/projects/*/", NormalizedPath: strPtr("/api/projects/:param")},
			{File: "tests/e2e/b.spec.ts", Line: 2, Pattern: "**/logo.svg"},
		},
	}
	res := newEngine().Reconcile(in)

	require.Len(t, res.Wildcards, 1)
	assert.Equal(t, "**/api/**", res.Wildcards[0].Pattern)

	assert.Equal(t, []string{"tests/e2e/a.spec.ts:5"}, in.Routes["/api/projects"].E2ECoverage)
	assert.Equal(t, []string{"tests/e2e/b.spec.ts:1"}, in.Routes["/api/projects/[id]"].E2ECoverage)
	assert.Empty(t, in.Routes["/api/health"].E2ECoverage, "wildcards never count as specific coverage")

	require.Len(t, res.Gaps, 1)
	assert.Equal(t, "/api/projects/:param/x", res.Gaps[0].NormalizedPath)
	assert.Equal(t, 2, res.CoveredRoutes)
}

func TestReconcile_ExternalMockCoverage(t *testing.T) {
	in := Input{
		Mocks: []wiring.MockReference{
			{File: "t.spec.ts", Line: 1, NormalizedPath: strPtr("external://crew-service/kickoff")},
			{File: "t.spec.ts", Line: 2, NormalizedPath: strPtr("external://crew-service/nope")},
			{File: "t.spec.ts", Line: 3, NormalizedPath: strPtr("external://billing/x")},
		},
		External: []wiring.MergedRoute{{Path: "/kickoff", Repo: "crew-service"}},
	}
	res := newEngine().Reconcile(in)

	require.Len(t, res.Gaps, 1)
	assert.Equal(t, 2, res.Gaps[0].Line)
}

func TestReconcile_MergedIncludesLocalAndExternal(t *testing.T) {
	in := Input{
		Routes:   routes("/api/projects"),
		External: []wiring.MergedRoute{{Path: "/kickoff", Repo: "crew-service"}},
	}
	res := newEngine().Reconcile(in)

	require.Len(t, res.Merged, 2)
	assert.Equal(t, "app", res.Merged[0].Repo)
	assert.Equal(t, "crew-service", res.Merged[1].Repo)
}

func TestClassify(t *testing.T) {
	isTest := func(f string) bool { return f == "tests/a.spec.ts" }
	kws := []string{"webhook", "cron"}

	testOnly := []wiring.CallerReference{{File: "tests/a.spec.ts"}}
	mixed := []wiring.CallerReference{{File: "tests/a.spec.ts"}, {File: "src/a.ts"}}

	assert.Equal(t, wiring.ClassTestOnly, Classify("/api/x", testOnly, isTest, kws))
	assert.Equal(t, wiring.ClassTestOnly, Classify("/api/webhooks/stripe", testOnly, isTest, kws))
	assert.Equal(t, wiring.ClassExternalCaller, Classify("/api/webhook", mixed, isTest, kws))
	assert.Equal(t, wiring.ClassExternalCaller, Classify("/api/cron-nightly", mixed, isTest, kws))
	assert.Equal(t, wiring.ClassUnknown, Classify("/api/x", mixed, isTest, kws))

	for i := 0; i < 5; i++ {
		assert.Equal(t, wiring.ClassUnknown, Classify("/api/x", mixed, isTest, kws))
	}
}

func TestClassifyUncalled(t *testing.T) {
	kws := []string{"webhook", "webhooks", "cron"}
	assert.Equal(t, wiring.ClassExternalCaller, ClassifyUncalled("/api/webhooks/stripe", kws))
	assert.Equal(t, wiring.ClassDeadCode, ClassifyUncalled("/api/projects", kws))
}

func TestRecommendationPerClass(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range []wiring.Classification{wiring.ClassDeadCode, wiring.ClassTestOnly, wiring.ClassExternalCaller, wiring.ClassUnknown} {
		r := Recommendation(c, "/api/x")
		assert.Contains(t, r, "/api/x")
		assert.False(t, seen[r], "recommendations differ per class")
		seen[r] = true
	}
}

package callers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/firebird-suite/weaver/pkg/config"
	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

func testConfig(root string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Root = root
	cfg.ExternalBases = []config.ExternalBase{{
		Repo:    "crew-service",
		BaseURL: "https://service.example",
		EnvVars: []string{"CREW_SERVICE_URL"},
	}}
	cfg.SetDotenv(nil)
	return cfg
}

func extract(t *testing.T, cfg *config.Config, src string) *Result {
	t.Helper()
	return NewExtractor(cfg, logger.NewSilentLogger()).ExtractSource("src/app/page.tsx", []byte(src))
}

func TestExtract_ResolvedCalls(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		target string
		style  wiring.CallStyle
	}{
		{"literal fetch", `const r = await fetch('/api/projects');`, "/api/projects", wiring.StyleFetch},
		{"literal with query", `fetch('/api/projects/?limit=5')`, "/api/projects", wiring.StyleFetch},
		{"template fetch", "fetch(`/api/projects/${id}`)", "/api/projects/:param", wiring.StyleFetch},
		{"template with query", "fetch(`/api/projects/${id}/runs?since=${ts}`)", "/api/projects/:param/runs", wiring.StyleFetch},
		{"wrapper absolute", `const data = await api.get('/projects')`, "/api/projects", wiring.StyleWrapper},
		{"wrapper relative", `api.post('projects/archive', body)`, "/api/projects/archive", wiring.StyleWrapper},
		{"wrapper already prefixed", `api.delete('/api/projects/1')`, "/api/projects/1", wiring.StyleWrapper},
		{"bare wrapper", `await post('/onboarding/start', payload)`, "/api/onboarding/start", wiring.StyleWrapper},
		{"function", `fetch('/.netlify/functions/crew-analyze', { method: 'POST' })`, "/.netlify/functions/crew-analyze", wiring.StyleFunction},
		{"function through wrapper", `api.post('/.netlify/functions/gate-evaluate')`, "/.netlify/functions/gate-evaluate", wiring.StyleFunction},
		{"external", `fetch('https://service.example/kickoff', { method: 'POST' })`, "external://crew-service/kickoff", wiring.StyleExternal},
		{"external template", "fetch(`https://service.example/status/${runId}`)", "external://crew-service/status/:param", wiring.StyleExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := extract(t, testConfig(t.TempDir()), tt.line)
			require.Len(t, res.Calls, 1, "calls")
			assert.Empty(t, res.Skipped)
			assert.Equal(t, tt.target, res.Calls[0].Target)
			assert.Equal(t, tt.style, res.Calls[0].Style)
			assert.Equal(t, 1, res.Calls[0].Line)
			assert.NotEmpty(t, res.Calls[0].Context)
		})
	}
}

func TestExtract_SkippedCalls(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		reason wiring.SkipReason
	}{
		{"variable prefix", "fetch(`${API_BASE}/api/projects`)", wiring.SkipVariablePrefix},
		{"external env prefix", "fetch(`${process.env.CREW_SERVICE_URL}/kickoff`)", wiring.SkipExternalUnresolved},
		{"external env concat", `fetch(process.env.CREW_SERVICE_URL + '/kickoff')`, wiring.SkipExternalUnresolved},
		{"variable concat", `fetch(baseUrl + '/api/projects')`, wiring.SkipVariablePrefix},
		{"nested invocation", "fetch(`/api/projects/${encodeURIComponent(id)}`)", wiring.SkipRuntimeFunction},
		{"string concat", `fetch('/api/projects/' + id)`, wiring.SkipComplexExpression},
		{"wrapper full url", `api.get('https://service.example/x')`, wiring.SkipExternalUnresolved},
		{"python fstring env", `resp = requests.post(f"{CREW_SERVICE_URL}/kickoff", json=body)`, wiring.SkipExternalUnresolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := extract(t, testConfig(t.TempDir()), tt.line)
			assert.Empty(t, res.Calls)
			require.Len(t, res.Skipped, 1)
			assert.Equal(t, tt.reason, res.Skipped[0].Reason)
			assert.Equal(t, 1, res.Skipped[0].Line)
		})
	}
}

func TestExtract_IgnoresNonHTTPCalls(t *testing.T) {
	src := `const id = searchParams.get('id');
const v = cache.delete(key);
// fetch('/api/commented-out')
 * fetch('/api/in-doc-comment')
const r = await fetch(url);
`
	res := extract(t, testConfig(t.TempDir()), src)
	assert.Empty(t, res.Calls)
	assert.Empty(t, res.Skipped)
	assert.Zero(t, res.Unclassified)
}

func TestExtract_UnclassifiedExternal(t *testing.T) {
	line := `fetch('https://api.stripe.com/v1/charges')`

	res := extract(t, testConfig(t.TempDir()), line)
	assert.Empty(t, res.Calls)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, 1, res.Unclassified)

	cfg := testConfig(t.TempDir())
	cfg.ReportUnclassifiedExternal = true
	res = extract(t, cfg, line)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, wiring.SkipExternalUnclassified, res.Skipped[0].Reason)
}

func TestExtract_ExternalCallsShareOneTarget(t *testing.T) {
	src := `await fetch('https://service.example/kickoff', { method: 'POST' });
await fetch('https://service.example/kickoff/?retry=1');
`
	res := extract(t, testConfig(t.TempDir()), src)
	require.Len(t, res.Calls, 2)
	assert.Equal(t, "external://crew-service/kickoff", res.Calls[0].Target)
	assert.Equal(t, res.Calls[0].Target, res.Calls[1].Target)
	assert.Equal(t, 2, res.Calls[1].Line)
}

func TestExtract_ClaimedLineNotReconsidered(t *testing.T) {
	line := "await Promise.all([fetch('/api/a'), fetch(`${base}/b`)])"
	res := extract(t, testConfig(t.TempDir()), line)
	assert.Empty(t, res.Calls)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, wiring.SkipVariablePrefix, res.Skipped[0].Reason)
}

func TestExtract_SeveralCallsOnOneLine(t *testing.T) {
	res := extract(t, testConfig(t.TempDir()), `await Promise.all([fetch('/api/a'), fetch('/api/b')])`)
	require.Len(t, res.Calls, 2)
	assert.Equal(t, "/api/a", res.Calls[0].Target)
	assert.Equal(t, "/api/b", res.Calls[1].Target)
}

func TestExtract_LongestBaseWins(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.ExternalBases = append(cfg.ExternalBases, config.ExternalBase{
		Repo: "crew-admin", BaseURL: "https://service.example/admin",
	})
	res := extract(t, cfg, `fetch('https://service.example/admin/users')`)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, "external://crew-admin/users", res.Calls[0].Target)
}

func TestExtract_WalksCallerDirectories(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"src/lib/projects.ts":               "export const load = () => fetch('/api/projects');\n",
		"netlify/functions/crew-analyze.py": "requests.post(f\"{API}/api/x\")\n",
		"tests/e2e/onboarding.spec.ts":      "\n\nawait page.request.get('/api/health');\nawait fetch('/api/health');\n",
		"src/node_modules/pkg/index.js":     "fetch('/api/ignored')\n",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}

	ex := NewExtractor(testConfig(root), logger.NewSilentLogger())
	res := ex.Extract()

	assert.Equal(t, []string{"e2e", "netlify/functions", "src", "tests"}, res.ScannedDirs)
	require.Len(t, res.Calls, 2)
	assert.Equal(t, "src/lib/projects.ts", res.Calls[0].File)
	assert.Equal(t, "tests/e2e/onboarding.spec.ts", res.Calls[1].File)
	assert.Equal(t, 4, res.Calls[1].Line)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "netlify/functions/crew-analyze.py", res.Skipped[0].File)
}

type stubMatcher struct{}

func (stubMatcher) Name() string { return "stub" }

func (stubMatcher) Claim(sites []Site) []Match {
	var out []Match
	for _, s := range sites {
		if s.Receiver == "supabase" {
			out = append(out, Match{Site: s, Target: "/api/rpc", Style: wiring.StyleWrapper})
		}
	}
	return out
}

func TestRegistry_CustomMatcherRunsLast(t *testing.T) {
	ex := NewExtractor(testConfig(t.TempDir()), logger.NewSilentLogger())
	ex.Registry().Register(stubMatcher{})
	require.Len(t, ex.Registry().Matchers(), 7)

	res := ex.ExtractSource("a.ts", []byte("supabase.post('x y')\n"))
	require.Len(t, res.Calls, 1)
	assert.Equal(t, "/api/rpc", res.Calls[0].Target)
}

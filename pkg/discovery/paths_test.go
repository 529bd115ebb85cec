package discovery

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutePath(t *testing.T) {
	root := filepath.Join("repo", "src", "app", "api")
	strip := []string{"route", "index", "handler"}

	cases := []struct {
		file string
		want string
		ok   bool
	}{
		{"projects/route.ts", "/api/projects", true},
		{"projects/[id]/route.ts", "/api/projects/[id]", true},
		{"files/[...path]/route.ts", "/api/files/[...path]", true},
		{"(admin)/users/route.ts", "/api/users", true},
		{"@modal/preview/route.ts", "/api/preview", true},
		{"legacy/health.ts", "/api/legacy/health", true},
		{"route.ts", "/api", true},
		{"index.js", "/api", true},
		{"_lib/supabase.ts", "", false},
		{"projects/_helpers.ts", "", false},
	}
	for _, c := range cases {
		got, ok := RoutePath(root, filepath.Join(root, filepath.FromSlash(c.file)), "/api", strip)
		assert.Equal(t, c.ok, ok, c.file)
		assert.Equal(t, c.want, got, c.file)
	}

	_, ok := RoutePath(root, filepath.Join("repo", "src", "lib", "x.ts"), "/api", strip)
	assert.False(t, ok, "files outside the API root are not routes")
}

func TestFunctionID(t *testing.T) {
	root := filepath.Join("repo", "netlify", "functions")

	cases := []struct {
		file string
		want string
		ok   bool
	}{
		{"crew-analyze.py", "crew-analyze", true},
		{"gate-evaluate.ts", "gate-evaluate", true},
		{"crew-runtime/index.js", "crew-runtime", true},
		{"diagnostics/diagnostics.ts", "diagnostics", true},
		{"startupai/__init__.py", "", false},
		{"startupai/tools.py", "", false},
		{"_shared.ts", "", false},
		{"a/b/c.ts", "", false},
	}
	for _, c := range cases {
		got, ok := FunctionID(root, filepath.Join(root, filepath.FromSlash(c.file)))
		assert.Equal(t, c.ok, ok, c.file)
		assert.Equal(t, c.want, got, c.file)
	}
}

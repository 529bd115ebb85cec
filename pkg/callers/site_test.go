package callers

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSites_ArgumentShapes(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		verb  string
		kind  ArgKind
		value string
		head  string
	}{
		{"literal", `await fetch('/api/projects', { method: 'POST' })`, "fetch", ArgLiteral, "/api/projects", ""},
		{"double quoted", `fetch("/api/projects")`, "fetch", ArgLiteral, "/api/projects", ""},
		{"template", "fetch(`/api/projects/${id}`)", "fetch", ArgTemplate, "/api/projects/${id}", ""},
		{"string concat", `fetch('/api/projects/' + id)`, "fetch", ArgConcat, "/api/projects/", ""},
		{"variable concat", `fetch(process.env.CREW_URL + '/kickoff')`, "fetch", ArgConcat, "/kickoff", "process.env.CREW_URL"},
		{"fstring", `requests.post(f"{CREW_URL}/kickoff", json=body)`, "post", ArgTemplate, "${CREW_URL}/kickoff", ""},
		{"identifier", `fetch(url)`, "fetch", ArgExpr, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sites := Sites(tt.line)
			require.Len(t, sites, 1)
			assert.Equal(t, tt.verb, sites[0].Verb)
			assert.Equal(t, tt.kind, sites[0].Arg.Kind)
			assert.Equal(t, tt.value, sites[0].Arg.Value)
			assert.Equal(t, tt.head, sites[0].Arg.Head)
		})
	}
}

func TestSites_Receiver(t *testing.T) {
	sites := Sites(`const a = api.get('/x'); const b = searchParams.get('id');`)
	require.Len(t, sites, 2)
	assert.Equal(t, "api", sites[0].Receiver)
	assert.Equal(t, "searchParams", sites[1].Receiver)
	assert.Less(t, sites[0].Col, sites[1].Col)
}

func TestSites_NoCalls(t *testing.T) {
	assert.Empty(t, Sites(`const target = forget(x);`))
}

func TestInterpolations(t *testing.T) {
	assert.Equal(t, []string{"b", "fn(x)"}, Interpolations("/a/${b}/c/${fn(x)}"))
	assert.Equal(t, []string{"obj.map((v) => { return v })"}, Interpolations("${obj.map((v) => { return v })}"))
	assert.Empty(t, Interpolations("/plain/path"))
}

func TestVariableName(t *testing.T) {
	assert.Equal(t, "CREW_URL", VariableName("process.env.CREW_URL"))
	assert.Equal(t, "CREW_URL", VariableName("import.meta.env.CREW_URL"))
	assert.Equal(t, "CREW_URL", VariableName("os.environ['CREW_URL']"))
	assert.Equal(t, "base", VariableName("base"))
}

func TestFstringToTemplate(t *testing.T) {
	assert.Equal(t, "${base}/x/{lit}", fstringToTemplate("{base}/x/{{lit}}"))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "const x = fetch('/api/a')", Snippet("    const x = fetch('/api/a')  ", 14, 120))

	long := make([]byte, 0, 211)
	for i := 0; i < 100; i++ {
		long = append(long, 'a')
	}
	long = append(long, "fetch('/x')"...)
	for i := 0; i < 100; i++ {
		long = append(long, 'b')
	}
	got := Snippet(string(long), 100, 40)
	assert.True(t, len(got) <= 46)
	assert.Contains(t, got, "fetch(")
	assert.Equal(t, "...", got[:3])
	assert.Equal(t, "...", got[len(got)-3:])
}

func TestSnippet_MultibyteCut(t *testing.T) {
	line := strings.Repeat("é", 60) + "fetch('/api/ünïcode')" + strings.Repeat("→", 60)
	for col := 0; col < len(line); col += 7 {
		got := Snippet(line, col, 33)
		require.True(t, utf8.ValidString(got), "col %d: %q", col, got)
		assert.LessOrEqual(t, len(got), 39)
	}
	assert.Contains(t, Snippet(line, 120, 40), "fetch(")
}

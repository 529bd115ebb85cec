// Package selftest runs the wiring pipeline against small generated
// projects and checks the results, so an installed binary can prove it
// behaves before it gates a CI run.
package selftest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/simonhull/firebird-suite/weaver/pkg/config"
	"github.com/simonhull/firebird-suite/weaver/pkg/history"
	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
	"github.com/simonhull/firebird-suite/weaver/pkg/pathtemplate"
	"github.com/simonhull/firebird-suite/weaver/pkg/pipeline"
	"github.com/simonhull/firebird-suite/weaver/pkg/report"
	"github.com/simonhull/firebird-suite/weaver/pkg/validate"
	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// Check is one self-diagnostic scenario. Run gets an empty project root.
type Check struct {
	Name string
	Run  func(root string, log logger.Logger) error
}

// Outcome is the result of one check
type Outcome struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Report collects every outcome of a run
type Report struct {
	Outcomes []Outcome
}

// Checks returns the built-in scenarios in run order
func Checks() []Check {
	return []Check{
		{"dynamic route matches template call", checkDynamicRoute},
		{"unserved call is an unknown orphan", checkUnknownOrphan},
		{"external calls group by target with or without inventory", checkExternalGroup},
		{"wildcard mocks stay out of coverage", checkWildcardMocks},
		{"unsupported inventory schema is invalid", checkInvalidInventory},
		{"route count drop is a regression", checkRegression},
		{"generate is idempotent", checkIdempotent},
		{"route templates round-trip", checkRoundTrip},
	}
}

// Run executes checks, each in its own temporary directory
func Run(checks []Check, log logger.Logger) *Report {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	r := &Report{}
	for _, c := range checks {
		start := time.Now()
		err := runOne(c, log)
		r.Outcomes = append(r.Outcomes, Outcome{Name: c.Name, Err: err, Duration: time.Since(start)})
	}
	return r
}

func runOne(c Check, log logger.Logger) (err error) {
	root, err := os.MkdirTemp("", "weaver-selftest-")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(root)
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return c.Run(root, log)
}

// Passed reports whether every check passed
func (r *Report) Passed() bool {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return false
		}
	}
	return true
}

// Failures returns the number of failed checks
func (r *Report) Failures() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Summary returns a human-readable PASS/FAIL listing
func (r *Report) Summary() string {
	var sb strings.Builder
	sb.WriteString("WEAVER SELFTEST\n")
	sb.WriteString(strings.Repeat("─", 40) + "\n")
	for _, o := range r.Outcomes {
		if o.Err != nil {
			sb.WriteString(fmt.Sprintf("FAIL  %s: %v\n", o.Name, o.Err))
			continue
		}
		sb.WriteString(fmt.Sprintf("PASS  %s (%s)\n", o.Name, o.Duration.Round(time.Millisecond)))
	}
	sb.WriteString(strings.Repeat("─", 40) + "\n")
	sb.WriteString(fmt.Sprintf("%d passed, %d failed\n", len(r.Outcomes)-r.Failures(), r.Failures()))
	return sb.String()
}

func project(root string, files map[string]string) (*config.Config, error) {
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			return nil, err
		}
	}
	cfg := config.DefaultConfig()
	cfg.Root = root
	cfg.SetDotenv(nil)
	return cfg, nil
}

func generate(cfg *config.Config, log logger.Logger) (*wiring.APIWiringMap, error) {
	out, err := pipeline.New(cfg, "selftest", log).Run()
	if err != nil {
		return nil, err
	}
	return out.Map, nil
}

func checkDynamicRoute(root string, log logger.Logger) error {
	cfg, err := project(root, map[string]string{
		"src/app/api/projects/[id]/route.ts": "export async function GET() {}",
		"src/app/projects/page.tsx":          "const res = await fetch(`/api/projects/${id}`)",
	})
	if err != nil {
		return err
	}
	m, err := generate(cfg, log)
	if err != nil {
		return err
	}
	if len(m.Orphans) != 0 {
		return fmt.Errorf("expected no orphans, got %d", len(m.Orphans))
	}
	entry := m.Routes["/api/projects/[id]"]
	if entry == nil {
		return fmt.Errorf("route /api/projects/[id] not discovered")
	}
	if len(entry.Callers) != 1 {
		return fmt.Errorf("expected 1 caller, got %d", len(entry.Callers))
	}
	return nil
}

func checkUnknownOrphan(root string, log logger.Logger) error {
	cfg, err := project(root, map[string]string{
		"src/app/api/projects/route.ts": "export async function GET() {}",
		"src/lib/reports.ts":            "await fetch('/api/reports/export')",
	})
	if err != nil {
		return err
	}
	m, err := generate(cfg, log)
	if err != nil {
		return err
	}
	if len(m.Orphans) != 1 {
		return fmt.Errorf("expected 1 orphan, got %d", len(m.Orphans))
	}
	o := m.Orphans[0]
	if o.Classification != wiring.ClassUnknown {
		return fmt.Errorf("expected classification %s, got %s", wiring.ClassUnknown, o.Classification)
	}
	if o.Recommendation == "" {
		return fmt.Errorf("orphan has no recommendation")
	}
	return nil
}

func checkExternalGroup(root string, log logger.Logger) error {
	cfg, err := project(root, map[string]string{
		"src/a.ts": "await fetch('https://service.example/kickoff', { method: 'POST' })",
		"src/b.ts": "await fetch('https://service.example/kickoff')",
		"vendor/crew-service.json": `{"schema_version":"1.0","repo":"crew-service","generated_at":"2026-01-01T00:00:00Z",` +
			`"routes":[{"path":"/status","methods":["GET"],"type":"external"}]}`,
	})
	if err != nil {
		return err
	}
	cfg.ExternalBases = []config.ExternalBase{{Repo: "crew-service", BaseURL: "https://service.example"}}

	// Without an inventory the calls are kept as one unverified group.
	m, err := generate(cfg, log)
	if err != nil {
		return err
	}
	if len(m.Orphans) != 0 {
		return fmt.Errorf("expected no orphans without an inventory, got %d", len(m.Orphans))
	}
	g, ok := m.ExternalCalls["external://crew-service/kickoff"]
	if !ok {
		return errors.New("expected an external call group for external://crew-service/kickoff")
	}
	if g.Status != wiring.ExternalUnverified {
		return fmt.Errorf("expected unverified group, got %s", g.Status)
	}
	if len(g.Callers) != 2 {
		return fmt.Errorf("expected 2 callers in unverified group, got %d", len(g.Callers))
	}

	cfg.ExternalSources = []config.ExternalSource{{Repo: "crew-service", Inventory: "vendor/crew-service.json"}}
	m, err = generate(cfg, log)
	if err != nil {
		return err
	}
	if len(m.Orphans) != 1 {
		return fmt.Errorf("expected 1 caller group, got %d", len(m.Orphans))
	}
	o := m.Orphans[0]
	if o.Path != "external://crew-service/kickoff" {
		return fmt.Errorf("unexpected group path %s", o.Path)
	}
	if len(o.Callers) != 2 {
		return fmt.Errorf("expected 2 callers in group, got %d", len(o.Callers))
	}
	return nil
}

func checkWildcardMocks(root string, log logger.Logger) error {
	cfg, err := project(root, map[string]string{
		"src/app/api/projects/route.ts": "export async function GET() {}",
		"src/app/api/users/route.ts":    "export async function GET() {}",
		"tests/e2e/app.spec.ts": "await page.route('**/api/**', r => r.continue())\n" +
			"await page.route('**/api/projects', r => r.fulfill({}))\n",
	})
	if err != nil {
		return err
	}
	m, err := generate(cfg, log)
	if err != nil {
		return err
	}
	if len(m.E2EWildcards) != 1 || m.E2EWildcards[0].Pattern != "**/api/**" {
		return fmt.Errorf("expected **/api/** as the only wildcard, got %v", m.E2EWildcards)
	}
	if n := len(m.Routes["/api/projects"].E2ECoverage); n != 1 {
		return fmt.Errorf("expected /api/projects covered once, got %d", n)
	}
	if n := len(m.Routes["/api/users"].E2ECoverage); n != 0 {
		return fmt.Errorf("wildcard leaked into /api/users coverage (%d)", n)
	}
	return nil
}

func checkInvalidInventory(root string, log logger.Logger) error {
	cfg, err := project(root, map[string]string{
		"src/a.ts":        "await fetch('https://one.example/run')\nawait fetch('https://two.example/run')\n",
		"vendor/two.json": `{"schema_version":"2.0","repo":"two","routes":[{"path":"/run"}]}`,
	})
	if err != nil {
		return err
	}
	cfg.ExternalBases = []config.ExternalBase{
		{Repo: "one", BaseURL: "https://one.example"},
		{Repo: "two", BaseURL: "https://two.example"},
	}
	cfg.ExternalSources = []config.ExternalSource{
		{Repo: "one", Inventory: "vendor/one.json"},
		{Repo: "two", Inventory: "vendor/two.json"},
	}

	m, err := generate(cfg, log)
	if err != nil {
		return err
	}
	statuses := m.Metadata.ExternalSources
	if len(statuses) != 2 {
		return fmt.Errorf("expected 2 source statuses, got %d", len(statuses))
	}
	if statuses[0].Status != wiring.StatusMissing || statuses[1].Status != wiring.StatusInvalid {
		return fmt.Errorf("expected missing and invalid, got %s and %s", statuses[0].Status, statuses[1].Status)
	}
	if statuses[0].RouteCount != statuses[1].RouteCount {
		return fmt.Errorf("invalid inventory contributed %d routes", statuses[1].RouteCount)
	}
	if m.Metadata.UnverifiedExternalCalls != 2 || len(m.Orphans) != 0 {
		return fmt.Errorf("missing and invalid inventories scored differently")
	}
	return nil
}

// committedMap serves a fixed map as the HEAD snapshot
type committedMap []byte

func (c committedMap) Show(context.Context, string, string) ([]byte, error) {
	if c == nil {
		return nil, history.ErrNoHistory
	}
	return c, nil
}

func checkRegression(root string, log logger.Logger) error {
	cfg, err := project(root, map[string]string{
		"src/app/api/projects/route.ts": "export async function GET() {}",
	})
	if err != nil {
		return err
	}
	g := pipeline.New(cfg, "selftest", log)
	out, err := g.Run()
	if err != nil {
		return err
	}
	if _, err := g.Write(out, false); err != nil {
		return err
	}

	prev, err := report.MarshalMap(&wiring.APIWiringMap{Metadata: wiring.Metadata{RouteCount: out.Map.Metadata.RouteCount + 10}})
	if err != nil {
		return err
	}
	res, err := validate.New(cfg, validate.Options{}, committedMap(prev), log).Validate(context.Background())
	if err != nil {
		return err
	}
	if !res.Has(validate.CodeRouteRegression) {
		return fmt.Errorf("expected %s, got %v", validate.CodeRouteRegression, res.Codes())
	}
	return nil
}

func checkIdempotent(root string, log logger.Logger) error {
	cfg, err := project(root, map[string]string{
		"src/app/api/projects/[id]/route.ts": "export async function GET() {}",
		"src/app/api/users/route.ts":         "export async function POST() {}",
		"src/app/page.tsx":                   "fetch('/api/users')\nfetch(`/api/projects/${id}`)\nfetch('/api/gone')\n",
		"tests/e2e/users.spec.ts":            "await page.route('**/api/users', r => r.fulfill({}))\n",
	})
	if err != nil {
		return err
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	render := func() ([]byte, error) {
		g := pipeline.New(cfg, "selftest", log)
		g.SetClock(func() time.Time { return now })
		out, err := g.Run()
		if err != nil {
			return nil, err
		}
		return out.Artifacts.Map, nil
	}
	first, err := render()
	if err != nil {
		return err
	}
	second, err := render()
	if err != nil {
		return err
	}
	if string(first) != string(second) {
		return fmt.Errorf("two runs on an unchanged tree produced different maps")
	}
	return nil
}

func checkRoundTrip(string, logger.Logger) error {
	templates := []string{"/api/projects/[id]", "/api/projects/[id]/runs/[runId]", "/api/docs/[...slug]", "/api/files/{key}"}
	for _, tmpl := range templates {
		re, err := pathtemplate.Compile(tmpl)
		if err != nil {
			return err
		}
		sample := pathtemplate.Sample(tmpl)
		if !re.MatchString(sample) {
			return fmt.Errorf("%s does not match its sample %s", tmpl, sample)
		}
		if re.MatchString(sample+"/extra/more") && !strings.Contains(tmpl, "...") {
			return fmt.Errorf("%s matches too many segments", tmpl)
		}
		if segs := pathtemplate.Segments(sample); len(segs) > 1 {
			short := "/" + strings.Join(segs[:len(segs)-1], "/")
			if re.MatchString(short) && !strings.Contains(tmpl, "[[...") && !strings.Contains(tmpl, "...") {
				return fmt.Errorf("%s matches too few segments", tmpl)
			}
		}
	}
	return nil
}

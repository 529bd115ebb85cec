package callers

import (
	"regexp"
	"strings"

	"github.com/simonhull/firebird-suite/weaver/pkg/config"
	"github.com/simonhull/firebird-suite/weaver/pkg/pathtemplate"
	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// Match is one outcome produced by a matcher for a call site
type Match struct {
	Site   Site
	Target string
	Style  wiring.CallStyle
	// Skip is set instead of Target when the call cannot be resolved
	Skip wiring.SkipReason
	// Unclassified marks a full URL matching no configured base that is
	// dropped rather than reported
	Unclassified bool
}

// Resolved reports whether the match produced a call target
func (m Match) Resolved() bool {
	return m.Target != "" && m.Skip == ""
}

// Matcher tries to claim a line. A non-empty result claims the line and
// stops later matchers from seeing it.
type Matcher interface {
	Name() string
	Claim(sites []Site) []Match
}

// Settings is the slice of configuration the matchers need
type Settings struct {
	RoutePrefix    string
	FunctionPrefix string
	Receivers      map[string]bool
	ExternalVars   map[string]string
	Bases          []config.ExternalBase
	ReportUnknown  bool
}

// NewSettings derives matcher settings from cfg
func NewSettings(cfg *config.Config) Settings {
	receivers := make(map[string]bool, len(cfg.WrapperReceivers))
	for _, r := range cfg.WrapperReceivers {
		receivers[r] = true
	}
	return Settings{
		RoutePrefix:    "/" + strings.Trim(cfg.RoutePrefix, "/"),
		FunctionPrefix: "/" + strings.Trim(cfg.FunctionPrefix, "/"),
		Receivers:      receivers,
		ExternalVars:   cfg.ExternalEnvVars(),
		Bases:          cfg.ResolvedBases(),
		ReportUnknown:  cfg.ReportUnclassifiedExternal,
	}
}

// isWrapper reports whether the site is a thin verb-named HTTP wrapper:
// a bare get/post/... call or one on a configured receiver.
func (s Settings) isWrapper(site Site) bool {
	if site.IsFetch() {
		return false
	}
	return site.Receiver == "" || s.Receivers[site.Receiver]
}

// relevant filters out call sites that are not HTTP calls at all, such as
// searchParams.get('id') or cache.delete(key).
func (s Settings) relevant(site Site) bool {
	return site.IsFetch() || s.isWrapper(site)
}

func isFullURL(v string) bool {
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

func simpleTemplate(body string) bool {
	for _, expr := range Interpolations(body) {
		if !IsSimpleInterpolation(expr) {
			return false
		}
	}
	return true
}

// unresolvableMatcher claims calls whose target cannot be known statically
type unresolvableMatcher struct{ s Settings }

func (m unresolvableMatcher) Name() string { return "unresolvable" }

func (m unresolvableMatcher) Claim(sites []Site) []Match {
	var out []Match
	for _, site := range sites {
		if !m.s.relevant(site) {
			continue
		}
		if reason, ok := m.reason(site.Arg); ok {
			out = append(out, Match{Site: site, Skip: reason})
		}
	}
	return out
}

func (m unresolvableMatcher) reason(arg Arg) (wiring.SkipReason, bool) {
	switch arg.Kind {
	case ArgTemplate:
		if !simpleTemplate(arg.Value) {
			return wiring.SkipRuntimeFunction, true
		}
		if strings.HasPrefix(arg.Value, "${") {
			exprs := Interpolations(arg.Value)
			if len(exprs) > 0 {
				return m.variableReason(exprs[0]), true
			}
		}
	case ArgConcat:
		if arg.Head != "" {
			return m.variableReason(arg.Head), true
		}
		if strings.HasPrefix(arg.Value, "/") || isFullURL(arg.Value) {
			return wiring.SkipComplexExpression, true
		}
	}
	return "", false
}

func (m unresolvableMatcher) variableReason(expr string) wiring.SkipReason {
	if _, ok := m.s.ExternalVars[VariableName(expr)]; ok {
		return wiring.SkipExternalUnresolved
	}
	return wiring.SkipVariablePrefix
}

// literalFetchMatcher claims fetch('/api/...') with a plain string
type literalFetchMatcher struct{ s Settings }

func (m literalFetchMatcher) Name() string { return "literal-fetch" }

func (m literalFetchMatcher) Claim(sites []Site) []Match {
	var out []Match
	for _, site := range sites {
		if !site.IsFetch() || site.Arg.Kind != ArgLiteral {
			continue
		}
		p := pathtemplate.NormalizeCallPath(site.Arg.Value)
		if pathtemplate.HasPrefixSegment(p, m.s.RoutePrefix) {
			out = append(out, Match{Site: site, Target: p, Style: wiring.StyleFetch})
		}
	}
	return out
}

// templateFetchMatcher claims fetch(`/api/x/${id}`) with simple interpolations
type templateFetchMatcher struct{ s Settings }

func (m templateFetchMatcher) Name() string { return "template-fetch" }

func (m templateFetchMatcher) Claim(sites []Site) []Match {
	var out []Match
	for _, site := range sites {
		if !site.IsFetch() || site.Arg.Kind != ArgTemplate || !simpleTemplate(site.Arg.Value) {
			continue
		}
		p := pathtemplate.NormalizeCallPath(site.Arg.Value)
		if pathtemplate.HasPrefixSegment(p, m.s.RoutePrefix) {
			out = append(out, Match{Site: site, Target: p, Style: wiring.StyleFetch})
		}
	}
	return out
}

var relativePathRe = regexp.MustCompile(`^[A-Za-z0-9_\-/:$\{\}\[\]]+$`)

// wrapperMatcher claims api.get('/projects') style calls
type wrapperMatcher struct{ s Settings }

func (m wrapperMatcher) Name() string { return "wrapper" }

func (m wrapperMatcher) Claim(sites []Site) []Match {
	var out []Match
	for _, site := range sites {
		if !m.s.isWrapper(site) {
			continue
		}
		arg := site.Arg
		if arg.Kind != ArgLiteral && arg.Kind != ArgTemplate {
			continue
		}
		if isFullURL(arg.Value) {
			out = append(out, Match{Site: site, Skip: wiring.SkipExternalUnresolved})
			continue
		}
		if !m.pathLike(site) {
			continue
		}
		p := pathtemplate.NormalizeCallPath(arg.Value)
		if pathtemplate.HasPrefixSegment(p, m.s.FunctionPrefix) {
			continue
		}
		out = append(out, Match{
			Site:   site,
			Target: pathtemplate.JoinPrefix(m.s.RoutePrefix, p),
			Style:  wiring.StyleWrapper,
		})
	}
	return out
}

// pathLike rejects arguments that are not paths. Bare verb calls need an
// absolute path; configured receivers may pass relative ones.
func (m wrapperMatcher) pathLike(site Site) bool {
	v := site.Arg.Value
	if i := strings.IndexAny(v, "?#"); i >= 0 {
		v = v[:i]
	}
	if v == "" || !relativePathRe.MatchString(v) {
		return false
	}
	if site.Receiver == "" {
		return strings.HasPrefix(v, "/")
	}
	return true
}

// functionMatcher claims calls to /.netlify/functions/<name>
type functionMatcher struct{ s Settings }

func (m functionMatcher) Name() string { return "function" }

func (m functionMatcher) Claim(sites []Site) []Match {
	var out []Match
	for _, site := range sites {
		if !m.s.relevant(site) || (site.Arg.Kind != ArgLiteral && site.Arg.Kind != ArgTemplate) {
			continue
		}
		p := pathtemplate.NormalizeCallPath(site.Arg.Value)
		if p != m.s.FunctionPrefix && pathtemplate.HasPrefixSegment(p, m.s.FunctionPrefix) {
			out = append(out, Match{Site: site, Target: p, Style: wiring.StyleFunction})
		}
	}
	return out
}

// externalMatcher claims full URLs and maps known bases to external ids
type externalMatcher struct{ s Settings }

func (m externalMatcher) Name() string { return "external" }

func (m externalMatcher) Claim(sites []Site) []Match {
	var out []Match
	for _, site := range sites {
		if !m.s.relevant(site) || (site.Arg.Kind != ArgLiteral && site.Arg.Kind != ArgTemplate) {
			continue
		}
		if !isFullURL(site.Arg.Value) || !simpleTemplate(site.Arg.Value) {
			continue
		}
		repo, rest, ok := m.resolve(site.Arg.Value)
		switch {
		case ok:
			out = append(out, Match{Site: site, Target: pathtemplate.ExternalID(repo, rest), Style: wiring.StyleExternal})
		case m.s.ReportUnknown:
			out = append(out, Match{Site: site, Skip: wiring.SkipExternalUnclassified})
		default:
			out = append(out, Match{Site: site, Unclassified: true})
		}
	}
	return out
}

// resolve finds the longest configured base that prefixes url on a path
// boundary and returns its repo and the remaining path.
func (m externalMatcher) resolve(url string) (string, string, bool) {
	best := -1
	for i, b := range m.s.Bases {
		if url != b.BaseURL && !strings.HasPrefix(url, b.BaseURL+"/") &&
			!strings.HasPrefix(url, b.BaseURL+"?") && !strings.HasPrefix(url, b.BaseURL+"#") {
			continue
		}
		if best < 0 || len(b.BaseURL) > len(m.s.Bases[best].BaseURL) {
			best = i
		}
	}
	if best < 0 {
		return "", "", false
	}
	b := m.s.Bases[best]
	return b.Repo, strings.TrimPrefix(url, b.BaseURL), true
}

package callers

// Registry holds matchers in precedence order
type Registry struct {
	matchers []Matcher
}

// NewRegistry creates a Registry with the default matchers, in order:
// unresolvable targets, literal fetch, template fetch, wrapper,
// function invocation, external URL.
func NewRegistry(s Settings) *Registry {
	r := &Registry{matchers: make([]Matcher, 0)}
	for _, m := range DefaultMatchers(s) {
		r.Register(m)
	}
	return r
}

// DefaultMatchers returns the built-in matchers in precedence order
func DefaultMatchers(s Settings) []Matcher {
	return []Matcher{
		unresolvableMatcher{s},
		literalFetchMatcher{s},
		templateFetchMatcher{s},
		wrapperMatcher{s},
		functionMatcher{s},
		externalMatcher{s},
	}
}

// Register appends a matcher with the lowest precedence so far
func (r *Registry) Register(m Matcher) {
	r.matchers = append(r.matchers, m)
}

// Matchers returns all registered matchers in precedence order
func (r *Registry) Matchers() []Matcher {
	return r.matchers
}

// ClaimLine offers the line's sites to each matcher in turn and returns
// the first non-empty claim along with the claiming matcher's name.
func (r *Registry) ClaimLine(line string) ([]Match, string) {
	sites := Sites(line)
	if len(sites) == 0 {
		return nil, ""
	}
	for _, m := range r.matchers {
		if matches := m.Claim(sites); len(matches) > 0 {
			return matches, m.Name()
		}
	}
	return nil, ""
}

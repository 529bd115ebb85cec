// Package pathtemplate turns route path templates into matchers and
// normalizes call paths so both sides of the wiring graph compare equal.
//
// A template is a slash path whose segments may be dynamic:
//
//	[id]          one segment
//	[...slug]     one or more segments
//	[[...slug]]   zero or more segments
//	{id}, :id     one segment (inventories from other frameworks)
//
// Call paths use the single Placeholder token for every runtime value.
package pathtemplate

import (
	"fmt"
	"regexp"
	"strings"
)

// Placeholder replaces every interpolated value in a normalized call path
const Placeholder = ":param"

const (
	segmentToken  = `[^/]+`
	catchAllToken = `.+`
)

// SegmentKind classifies one template segment
type SegmentKind int

const (
	Literal SegmentKind = iota
	Dynamic
	CatchAll
	OptionalCatchAll
)

// Kind returns the kind of a single path segment
func Kind(seg string) SegmentKind {
	switch {
	case strings.HasPrefix(seg, "[[...") && strings.HasSuffix(seg, "]]"):
		return OptionalCatchAll
	case strings.HasPrefix(seg, "[...") && strings.HasSuffix(seg, "]"):
		return CatchAll
	case strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]") && len(seg) > 2:
		return Dynamic
	case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") && len(seg) > 2:
		return Dynamic
	case strings.HasPrefix(seg, ":") && len(seg) > 1:
		return Dynamic
	default:
		return Literal
	}
}

// Segments splits a path into its non-empty segments
func Segments(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsDynamic reports whether template has at least one non-literal segment
func IsDynamic(template string) bool {
	for _, seg := range Segments(template) {
		if Kind(seg) != Literal {
			return true
		}
	}
	return false
}

// Specificity ranks templates when several match the same path; lower is
// more specific. Literal templates score 0, catch-alls weigh most.
func Specificity(template string) int {
	score := 0
	for _, seg := range Segments(template) {
		switch Kind(seg) {
		case Dynamic:
			score++
		case CatchAll:
			score += 100
		case OptionalCatchAll:
			score += 101
		}
	}
	return score
}

// Pattern converts a template to an anchored regular expression source
func Pattern(template string) string {
	segs := Segments(template)
	var b strings.Builder
	b.WriteString("^")
	for _, seg := range segs {
		switch Kind(seg) {
		case OptionalCatchAll:
			b.WriteString("(?:/" + catchAllToken + ")?")
		case CatchAll:
			b.WriteString("/" + catchAllToken)
		case Dynamic:
			b.WriteString("/" + segmentToken)
		default:
			b.WriteString("/" + regexp.QuoteMeta(seg))
		}
	}
	if len(segs) == 0 {
		b.WriteString("/")
	}
	b.WriteString("$")
	return b.String()
}

// Compile builds the matcher for template
func Compile(template string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(Pattern(template))
	if err != nil {
		return nil, fmt.Errorf("compiling route template %q: %w", template, err)
	}
	return re, nil
}

// Sample substitutes a concrete value for every dynamic segment, producing
// a path the template must match. Catch-alls get two segments.
func Sample(template string) string {
	segs := Segments(template)
	out := make([]string, 0, len(segs)+1)
	for i, seg := range segs {
		switch Kind(seg) {
		case Dynamic:
			out = append(out, fmt.Sprintf("v%d", i))
		case CatchAll, OptionalCatchAll:
			out = append(out, fmt.Sprintf("v%d", i), fmt.Sprintf("w%d", i))
		default:
			out = append(out, seg)
		}
	}
	return "/" + strings.Join(out, "/")
}

package callers

import (
	"regexp"
	"strings"
)

// ArgKind describes the shape of a call's first argument
type ArgKind int

const (
	// ArgExpr is anything that is not a string (identifiers, objects)
	ArgExpr ArgKind = iota
	// ArgLiteral is a plain quoted string
	ArgLiteral
	// ArgTemplate is a template literal or Python f-string with interpolations
	// rewritten to ${...}
	ArgTemplate
	// ArgConcat is a string joined with "+" to something else
	ArgConcat
)

// Arg is the first argument of a call site
type Arg struct {
	Kind ArgKind
	// Value is the string body without quotes. For ArgConcat it is the
	// first string piece.
	Value string
	// Head is the leading non-string operand of a concatenation
	// ("process.env.CREW_URL" in process.env.CREW_URL + '/x').
	Head string
	Raw  string
}

// Site is one call expression found on a line
type Site struct {
	Receiver string
	Verb     string
	Col      int
	Arg      Arg
}

// IsFetch reports whether the call is a direct fetch/axios call
func (s Site) IsFetch() bool {
	return s.Verb == "fetch" || s.Verb == "axios"
}

var (
	openerRe = regexp.MustCompile(`(?:([A-Za-z_$][\w$]*)\s*\.\s*)?\b(fetch|axios|get|post|put|patch|delete)\s*\(`)
	headRe   = regexp.MustCompile(`^[A-Za-z_$][\w$.]*`)
	identRe  = regexp.MustCompile(`[A-Za-z_$][\w$]*`)
)

// Sites finds every call site on line
func Sites(line string) []Site {
	var sites []Site
	for _, m := range openerRe.FindAllStringSubmatchIndex(line, -1) {
		site := Site{Verb: line[m[4]:m[5]], Col: m[0]}
		if m[2] >= 0 {
			site.Receiver = line[m[2]:m[3]]
		}
		site.Arg = parseArg(line[m[1]:])
		sites = append(sites, site)
	}
	return sites
}

func parseArg(s string) Arg {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return Arg{Kind: ArgExpr}
	}

	switch {
	case s[0] == '\'' || s[0] == '"':
		body, rest, ok := readQuoted(s[1:], s[0])
		if !ok {
			return Arg{Kind: ArgExpr, Raw: s}
		}
		raw := s[:len(s)-len(rest)]
		if isConcat(rest) {
			return Arg{Kind: ArgConcat, Value: body, Raw: raw + concatTail(rest)}
		}
		return Arg{Kind: ArgLiteral, Value: body, Raw: raw}

	case s[0] == '`':
		body, rest, ok := readTemplate(s[1:])
		if !ok {
			return Arg{Kind: ArgExpr, Raw: s}
		}
		raw := s[:len(s)-len(rest)]
		if isConcat(rest) {
			return Arg{Kind: ArgConcat, Value: body, Raw: raw + concatTail(rest)}
		}
		return Arg{Kind: ArgTemplate, Value: body, Raw: raw}

	case len(s) > 1 && (s[0] == 'f' || s[0] == 'F') && (s[1] == '\'' || s[1] == '"'):
		body, rest, ok := readQuoted(s[2:], s[1])
		if !ok {
			return Arg{Kind: ArgExpr, Raw: s}
		}
		return Arg{Kind: ArgTemplate, Value: fstringToTemplate(body), Raw: s[:len(s)-len(rest)]}
	}

	head := headRe.FindString(s)
	if head != "" && isConcat(s[len(head):]) {
		rest := strings.TrimLeft(s[len(head):], " \t")[1:]
		piece := parseArg(rest)
		return Arg{Kind: ArgConcat, Head: head, Value: piece.Value, Raw: head + " + " + piece.Raw}
	}
	return Arg{Kind: ArgExpr, Raw: head}
}

// readQuoted returns the body up to the closing quote and the remainder
func readQuoted(s string, quote byte) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// readTemplate reads a template literal body, honouring nested braces
// inside ${...} so that a backtick in an interpolation does not end it.
func readTemplate(s string) (string, string, bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\':
			i++
		case depth == 0 && s[i] == '`':
			return s[:i], s[i+1:], true
		case s[i] == '$' && i+1 < len(s) && s[i+1] == '{':
			depth++
			i++
		case depth > 0 && s[i] == '{':
			depth++
		case depth > 0 && s[i] == '}':
			depth--
		}
	}
	return "", "", false
}

func isConcat(rest string) bool {
	return strings.HasPrefix(strings.TrimLeft(rest, " \t"), "+")
}

func concatTail(rest string) string {
	rest = strings.TrimLeft(rest, " \t")
	end := strings.IndexAny(rest, ",)")
	if end < 0 {
		return " " + strings.TrimSpace(rest)
	}
	return " " + strings.TrimSpace(rest[:end])
}

// fstringToTemplate rewrites Python f-string fields {x} to ${x}.
// Doubled braces are literal.
func fstringToTemplate(body string) string {
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if (c == '{' || c == '}') && i+1 < len(body) && body[i+1] == c {
			b.WriteByte(c)
			i++
			continue
		}
		if c == '{' {
			b.WriteString("${")
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Interpolations returns the expressions inside ${...} in a template body
func Interpolations(body string) []string {
	var exprs []string
	for i := 0; i < len(body); i++ {
		if body[i] != '$' || i+1 >= len(body) || body[i+1] != '{' {
			continue
		}
		depth := 1
		start := i + 2
		j := start
		for ; j < len(body) && depth > 0; j++ {
			switch body[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
		}
		if depth != 0 {
			break
		}
		exprs = append(exprs, strings.TrimSpace(body[start:j-1]))
		i = j - 1
	}
	return exprs
}

// IsSimpleInterpolation reports whether expr is a plain value reference
// with no nested invocation or nested template.
func IsSimpleInterpolation(expr string) bool {
	return !strings.ContainsAny(expr, "(`{")
}

// VariableName returns the last identifier of a reference, so
// process.env.CREW_URL and os.environ['CREW_URL'] both yield CREW_URL.
func VariableName(expr string) string {
	idents := identRe.FindAllString(expr, -1)
	if len(idents) == 0 {
		return strings.TrimSpace(expr)
	}
	return idents[len(idents)-1]
}

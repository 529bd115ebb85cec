package discovery

import (
	"regexp"
	"sort"
	"strings"

	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

const methodAlternation = `GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS`

var (
	exportFuncRe  = regexp.MustCompile(`\bexport\s+(?:async\s+)?function\s+(` + methodAlternation + `)\b`)
	exportConstRe = regexp.MustCompile(`\bexport\s+(?:const|let|var)\s+(` + methodAlternation + `)\s*[=:]`)
	exportAliasRe = regexp.MustCompile(`\bas\s+(` + methodAlternation + `)\b`)
	methodCmpRe   = regexp.MustCompile(`(?:httpMethod|method)['"\])]*\s*(?:===?|!==?)\s*['"](` + methodAlternation + `)['"]`)
	summaryRe     = regexp.MustCompile(`@summary[:\s]+([^\n*]+)`)
)

// Facts is what a lexical pass over one handler file yields
type Facts struct {
	Methods     []string
	Tables      []string
	External    []string
	DocTags     []string
	Description string
}

// Scanner extracts Facts from handler source text
type Scanner struct {
	tableRe   *regexp.Regexp
	tagRe     *regexp.Regexp
	tagID     *regexp.Regexp
	externals []*regexp.Regexp
	names     []string
}

// NewScanner builds a scanner for the given storage table accessors
// (e.g. ".from", ".table"), doc tag marker and ID grammar, and external
// env names.
func NewScanner(storageCalls []string, tagMarker string, tagID *regexp.Regexp, externalNames []string) *Scanner {
	s := &Scanner{tagID: tagID}
	var accessors []string
	for _, call := range storageCalls {
		if call != "" {
			accessors = append(accessors, regexp.QuoteMeta(call))
		}
	}
	if len(accessors) > 0 {
		s.tableRe = regexp.MustCompile(`(?:` + strings.Join(accessors, "|") + `)\(\s*['"` + "`" + `]([A-Za-z0-9_.\-]+)['"` + "`" + `]\s*\)`)
	}
	if tagMarker != "" {
		s.tagRe = regexp.MustCompile(regexp.QuoteMeta(tagMarker) + `[:\s]+([^\n*]+)`)
	}
	names := append([]string(nil), externalNames...)
	sort.Strings(names)
	for _, name := range names {
		s.externals = append(s.externals, regexp.MustCompile(`\b`+regexp.QuoteMeta(name)+`\b`))
		s.names = append(s.names, name)
	}
	return s
}

// Scan extracts facts from content. Methods default to GET.
func (s *Scanner) Scan(content string) Facts {
	var f Facts

	for _, re := range []*regexp.Regexp{exportFuncRe, exportConstRe, exportAliasRe, methodCmpRe} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			f.Methods = append(f.Methods, m[1])
		}
	}
	if len(f.Methods) == 0 {
		f.Methods = []string{"GET"}
	}
	f.Methods = wiring.SortMethods(f.Methods)

	if s.tableRe != nil {
		for _, m := range s.tableRe.FindAllStringSubmatch(content, -1) {
			f.Tables = append(f.Tables, m[1])
		}
	}
	f.Tables = wiring.UniqueSorted(f.Tables)

	for i, re := range s.externals {
		if re.MatchString(content) {
			f.External = append(f.External, s.names[i])
		}
	}
	f.External = wiring.UniqueSorted(f.External)

	if s.tagRe != nil {
		for _, m := range s.tagRe.FindAllStringSubmatch(content, -1) {
			for _, raw := range strings.Split(m[1], ",") {
				id := strings.TrimSpace(raw)
				if s.tagID == nil || s.tagID.MatchString(id) {
					f.DocTags = append(f.DocTags, id)
				}
			}
		}
	}
	f.DocTags = wiring.UniqueSorted(f.DocTags)

	if m := summaryRe.FindStringSubmatch(content); m != nil {
		f.Description = strings.TrimSpace(m[1])
	}
	return f
}

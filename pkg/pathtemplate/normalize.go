package pathtemplate

import (
	"regexp"
	"strings"
)

var (
	interpolationRe = regexp.MustCompile(`\$\{[^{}]*\}`)
	multiSlashRe    = regexp.MustCompile(`/{2,}`)
)

// NormalizeCallPath canonicalizes a path extracted from source text:
// interpolations become Placeholder, query strings and fragments are
// dropped, duplicate and trailing slashes are removed.
func NormalizeCallPath(raw string) string {
	p := interpolationRe.ReplaceAllString(strings.TrimSpace(raw), Placeholder)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = multiSlashRe.ReplaceAllString(p, "/")
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// JoinPrefix joins a relative wrapper path onto prefix. Paths already
// under prefix are returned unchanged.
func JoinPrefix(prefix, path string) string {
	prefix = "/" + strings.Trim(prefix, "/")
	if path == prefix || strings.HasPrefix(path, prefix+"/") {
		return path
	}
	return prefix + "/" + strings.TrimLeft(path, "/")
}

// HasPrefixSegment reports whether path starts with prefix on a segment
// boundary ("/api" matches "/api" and "/api/x", never "/apix").
func HasPrefixSegment(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// ContainsKeywordSegment reports whether any segment of path equals one of
// keywords, or starts with it followed by a dash (e.g. "webhook-stripe").
func ContainsKeywordSegment(path string, keywords []string) bool {
	for _, seg := range Segments(path) {
		seg = strings.ToLower(seg)
		for _, kw := range keywords {
			kw = strings.ToLower(kw)
			if seg == kw || strings.HasPrefix(seg, kw+"-") || strings.HasSuffix(seg, "-"+kw) {
				return true
			}
		}
	}
	return false
}

// ExternalID builds the abstract identifier for a call into another repo
func ExternalID(repo, path string) string {
	return ExternalScheme + repo + NormalizeCallPath(path)
}

// ExternalScheme prefixes every cross-repository call identifier
const ExternalScheme = "external://"

// SplitExternalID splits "external://repo/path" into repo and path
func SplitExternalID(id string) (repo, path string, ok bool) {
	rest, found := strings.CutPrefix(id, ExternalScheme)
	if !found {
		return "", "", false
	}
	repo, path, _ = strings.Cut(rest, "/")
	if repo == "" {
		return "", "", false
	}
	return repo, "/" + path, true
}

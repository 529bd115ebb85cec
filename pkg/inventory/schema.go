package inventory

import (
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// SchemaVersion is written into every inventory this tool produces
const SchemaVersion = "1.0"

var versionRe = regexp.MustCompile(`^[0-9]+\.[0-9]+$`)

// Supports reports whether version is accepted by the supported list.
// Entries are exact versions ("1.0") or same-major wildcards ("1.x").
func Supports(supported []string, version string) bool {
	if !versionRe.MatchString(version) {
		return false
	}
	canonical := "v" + version
	if !semver.IsValid(canonical) {
		return false
	}
	for _, s := range supported {
		if s == version {
			return true
		}
		major, ok := strings.CutSuffix(s, ".x")
		if ok && semver.Major(canonical) == "v"+major {
			return true
		}
	}
	return false
}

package reconcile

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/simonhull/firebird-suite/weaver/pkg/pathtemplate"
	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// Classify labels an orphan path from its callers. It is a pure function
// of its arguments.
func Classify(path string, callers []wiring.CallerReference, isTest func(string) bool, webhookKeywords []string) wiring.Classification {
	if len(callers) > 0 && allCallers(callers, isTest) {
		return wiring.ClassTestOnly
	}
	if pathtemplate.ContainsKeywordSegment(path, webhookKeywords) {
		return wiring.ClassExternalCaller
	}
	return wiring.ClassUnknown
}

// ClassifyUncalled labels a route that nothing calls
func ClassifyUncalled(path string, webhookKeywords []string) wiring.Classification {
	if pathtemplate.ContainsKeywordSegment(path, webhookKeywords) {
		return wiring.ClassExternalCaller
	}
	return wiring.ClassDeadCode
}

// Recommendation returns the remediation text for a classified path
func Recommendation(class wiring.Classification, path string) string {
	if repo, rest, ok := pathtemplate.SplitExternalID(path); ok {
		switch class {
		case wiring.ClassTestOnly:
			return fmt.Sprintf("Only tests call %s on %s. Update the tests or ask the %s owners to publish the route in their inventory.", rest, repo, repo)
		default:
			return fmt.Sprintf("%s does not list %s in its inventory. Fix the call path or regenerate the %s inventory if the route exists.", repo, rest, repo)
		}
	}

	switch class {
	case wiring.ClassTestOnly:
		return fmt.Sprintf("Only tests call %s. Add the route handler or point the tests at an existing route.", path)
	case wiring.ClassExternalCaller:
		return fmt.Sprintf("%s looks like an inbound webhook or scheduled endpoint. Add its handler, or add the caller to server_allowlist if the call is server-to-server.", path)
	case wiring.ClassDeadCode:
		return fmt.Sprintf("Nothing calls %s. Remove the handler or document the caller that reaches it from outside this repository.", path)
	default:
		return fmt.Sprintf("No route serves %s. Create the handler, fix the call path, or remove the call.", path)
	}
}

// excludedCaller reports whether file matches any caller exclusion glob
func excludedCaller(file string, globs []string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, file); err == nil && ok {
			return true
		}
	}
	return false
}

func allCallers(callers []wiring.CallerReference, pred func(string) bool) bool {
	for _, c := range callers {
		if !pred(c.File) {
			return false
		}
	}
	return true
}

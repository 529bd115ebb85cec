// Package validate re-checks a generated wiring map against the live tree
// and applies the CI pass/fail policy: validation fails iff at least one
// error-severity issue is found.
package validate

import (
	"errors"
	"sort"
)

// Severity of a validation issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Issue codes
const (
	CodeMapStale          = "MAP_STALE"
	CodeRouteRegression   = "ROUTE_REGRESSION"
	CodeNoHistory         = "NO_HISTORY"
	CodeOrphanCall        = "ORPHAN_CALL"
	CodeExcludedOrphan    = "EXCLUDED_ORPHAN"
	CodeUncalledRoute     = "UNCALLED_ROUTE"
	CodeInventoryMissing  = "EXTERNAL_INVENTORY_MISSING"
	CodeInventoryInvalid  = "EXTERNAL_INVENTORY_INVALID"
	CodeInventoryStale    = "EXTERNAL_INVENTORY_STALE"
	CodeSkippedCallsHigh  = "SKIPPED_CALLS_HIGH"
	CodeSkippedCall       = "SKIPPED_CALL"
	CodeE2EGap            = "E2E_GAP"
	CodeHighFanout        = "HIGH_FANOUT"
	CodeDuplicateRoute    = "DUPLICATE_ROUTE"
	CodeUnclassifiedCalls = "UNCLASSIFIED_EXTERNAL_CALLS"
	CodeUnverifiedCalls   = "UNVERIFIED_EXTERNAL_CALLS"
)

var (
	// ErrMapNotFound is the one precondition validate cannot recover from
	ErrMapNotFound = errors.New("wiring map not found")
	// ErrFailed is returned when at least one error-severity issue exists
	ErrFailed = errors.New("validation failed")
)

// Issue is one finding
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Repo     string   `json:"repo,omitempty"`
}

// Result aggregates every issue from one validation run
type Result struct {
	Issues []Issue
}

func (r *Result) add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

// Count returns the number of issues with severity s
func (r *Result) Count(s Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}

// Failed reports whether any error-severity issue exists
func (r *Result) Failed() bool {
	return r.Count(SeverityError) > 0
}

// Codes lists issue codes in result order, for tests and summaries
func (r *Result) Codes() []string {
	codes := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		codes = append(codes, issue.Code)
	}
	return codes
}

// Has reports whether an issue with code exists
func (r *Result) Has(code string) bool {
	for _, issue := range r.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// sort orders issues by severity, then code, then location
func (r *Result) sort() {
	sort.SliceStable(r.Issues, func(i, j int) bool {
		a, b := r.Issues[i], r.Issues[j]
		if a.Severity.rank() != b.Severity.rank() {
			return a.Severity.rank() < b.Severity.rank()
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
}

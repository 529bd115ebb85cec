// Package wiring defines the wiring graph data model and the two stable
// JSON documents weaver reads and writes: the per-repo API inventory and
// the API wiring map.
package wiring

import "time"

// RouteType says where a route is served from
type RouteType string

const (
	RouteWeb      RouteType = "web"
	RouteFunction RouteType = "function"
	RouteExternal RouteType = "external"
	RouteStatic   RouteType = "static"
)

// CallStyle records which call convention produced a caller reference
type CallStyle string

const (
	StyleFetch    CallStyle = "fetch"
	StyleWrapper  CallStyle = "wrapper"
	StyleFunction CallStyle = "function"
	StyleExternal CallStyle = "external"
)

// SkipReason explains why a call expression could not be resolved
type SkipReason string

const (
	SkipVariablePrefix       SkipReason = "variable_prefix"
	SkipRuntimeFunction      SkipReason = "runtime_function"
	SkipComplexExpression    SkipReason = "complex_expression"
	SkipExternalUnresolved   SkipReason = "external_unresolved"
	SkipExternalUnclassified SkipReason = "external_unclassified"
)

// Classification labels an orphan by the most likely reason it exists
type Classification string

const (
	ClassDeadCode       Classification = "dead_code"
	ClassTestOnly       Classification = "test_only"
	ClassExternalCaller Classification = "external_caller"
	ClassUnknown        Classification = "unknown"
)

// ExternalStatus says whether a sibling inventory confirmed an external call
type ExternalStatus string

const (
	ExternalMatched    ExternalStatus = "matched"
	ExternalUnverified ExternalStatus = "unverified"
)

// InventoryStatus is the outcome of loading one external inventory
type InventoryStatus string

const (
	StatusLoaded  InventoryStatus = "loaded"
	StatusMissing InventoryStatus = "missing"
	StatusStale   InventoryStatus = "stale"
	StatusInvalid InventoryStatus = "invalid"
)

// RouteDefinition is the immutable description of one endpoint
type RouteDefinition struct {
	Path        string    `json:"path"`
	Methods     []string  `json:"methods"`
	Type        RouteType `json:"type"`
	BaseURL     string    `json:"base_url,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Outbound lists what a handler reaches out to
type Outbound struct {
	Tables   []string `json:"tables"`
	External []string `json:"external"`
}

// RouteEntry is a discovered route plus everything reconciled onto it
type RouteEntry struct {
	RouteDefinition
	File        string            `json:"file"`
	Callers     []CallerReference `json:"callers"`
	Outbound    Outbound          `json:"outbound"`
	E2ECoverage []string          `json:"e2e_coverage"`
	DocTags     []string          `json:"doc_tags"`
}

// CallerReference is one resolved call site
type CallerReference struct {
	File    string    `json:"file"`
	Line    int       `json:"line"`
	Target  string    `json:"target"`
	Context string    `json:"context"`
	Style   CallStyle `json:"style"`
}

// SkippedCall is a call site whose target could not be resolved statically
type SkippedCall struct {
	File   string     `json:"file"`
	Line   int        `json:"line"`
	Raw    string     `json:"raw"`
	Reason SkipReason `json:"reason"`
}

// MockReference is one e2e route-mock registration
type MockReference struct {
	File           string  `json:"file"`
	Line           int     `json:"line"`
	Pattern        string  `json:"pattern"`
	Wildcard       bool    `json:"wildcard"`
	NormalizedPath *string `json:"normalized_path"`
}

// Key identifies the mock in coverage lists
func (m MockReference) Key() string {
	return m.File + ":" + itoa(m.Line)
}

// APIInventory is a repository's published route list
type APIInventory struct {
	SchemaVersion string            `json:"schema_version"`
	Repo          string            `json:"repo"`
	GeneratedAt   string            `json:"generated_at"`
	Routes        []RouteDefinition `json:"routes"`
}

// MergedRoute is a route from any repo, used only for matching
type MergedRoute struct {
	Path    string    `json:"path"`
	Methods []string  `json:"methods"`
	Type    RouteType `json:"type"`
	Repo    string    `json:"repo"`
	BaseURL string    `json:"base_url,omitempty"`
}

// OrphanEntry is a call path with no route to serve it
type OrphanEntry struct {
	Path           string            `json:"path"`
	Callers        []CallerReference `json:"callers"`
	Classification Classification    `json:"classification"`
	Recommendation string            `json:"recommendation"`
	Excluded       bool              `json:"excluded"`
}

// ExternalCallGroup collects the calls this repo makes to one route owned
// by a sibling repo. Route, Methods and Type come from the sibling's
// inventory and are empty while the group is unverified.
type ExternalCallGroup struct {
	Target  string            `json:"target"`
	Repo    string            `json:"repo"`
	Route   string            `json:"route,omitempty"`
	Methods []string          `json:"methods"`
	Type    RouteType         `json:"type,omitempty"`
	Status  ExternalStatus    `json:"status"`
	Callers []CallerReference `json:"callers"`
}

// UncalledRoute is a discovered route or function with no caller
type UncalledRoute struct {
	Path           string         `json:"path"`
	File           string         `json:"file"`
	Type           RouteType      `json:"type"`
	Classification Classification `json:"classification"`
}

// E2EGap is a specific mock that resolves to no known route
type E2EGap struct {
	File           string `json:"file"`
	Line           int    `json:"line"`
	Pattern        string `json:"pattern"`
	NormalizedPath string `json:"normalized_path"`
}

// DuplicateRoute records a route file ignored because an earlier file
// already claimed the same canonical path.
type DuplicateRoute struct {
	Path    string `json:"path"`
	Kept    string `json:"kept"`
	Ignored string `json:"ignored"`
}

// SourceStatus is the load result of one external inventory
type SourceStatus struct {
	Repo       string          `json:"repo"`
	Inventory  string          `json:"inventory"`
	Required   bool            `json:"required"`
	Status     InventoryStatus `json:"status"`
	Message    string          `json:"message,omitempty"`
	RouteCount int             `json:"route_count"`
}

// Metadata summarizes one generation run
type Metadata struct {
	GeneratedAt               string           `json:"generated_at"`
	Generator                 string           `json:"generator"`
	Repo                      string           `json:"repo"`
	RouteCount                int              `json:"route_count"`
	FunctionCount             int              `json:"function_count"`
	CallerCount               int              `json:"caller_count"`
	OrphanCount               int              `json:"orphan_count"`
	ExcludedOrphanCount       int              `json:"excluded_orphan_count"`
	SkippedCallCount          int              `json:"skipped_call_count"`
	UnclassifiedExternalCalls int              `json:"unclassified_external_calls"`
	UnverifiedExternalCalls   int              `json:"unverified_external_calls"`
	MockCount                 int              `json:"mock_count"`
	WildcardMockCount         int              `json:"wildcard_mock_count"`
	CoveredRouteCount         int              `json:"covered_route_count"`
	CrossRepoMatches          int              `json:"cross_repo_matches"`
	ScannedDirs               []string         `json:"scanned_dirs"`
	ExternalSources           []SourceStatus   `json:"external_sources"`
	DuplicateRoutes           []DuplicateRoute `json:"duplicate_routes"`
	UncalledRoutes            []UncalledRoute  `json:"uncalled_routes"`
}

// APIWiringMap is the single generated artifact
type APIWiringMap struct {
	Metadata            Metadata                      `json:"metadata"`
	Routes              map[string]*RouteEntry        `json:"routes"`
	ServerlessFunctions map[string]*RouteEntry        `json:"serverless_functions"`
	ExternalCalls       map[string]*ExternalCallGroup `json:"external_calls"`
	Orphans             []OrphanEntry                 `json:"orphans"`
	SkippedCalls        []SkippedCall                 `json:"skipped_calls"`
	E2EGaps             []E2EGap                      `json:"e2e_gaps"`
	E2EWildcards        []MockReference               `json:"e2e_wildcards"`
}

// Timestamp formats t the way every generated document records time
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

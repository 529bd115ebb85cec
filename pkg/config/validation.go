package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a config validation error with context
type ValidationError struct {
	Field      string // Field path (e.g., "external_sources[0].repo")
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid config at %s: %s", e.Field, e.Message)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(". Suggestion: %s", e.Suggestion)
	}
	return msg
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "invalid config"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "found %d config errors:\n", len(e))
	for i := range e {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, e[i].Error())
	}
	return b.String()
}

var schemaVersionRe = regexp.MustCompile(`^[0-9]+\.([0-9]+|x)$`)

// Validate checks the configuration for values no component can work with
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, msg, hint string) {
		errs = append(errs, ValidationError{Field: field, Message: msg, Suggestion: hint})
	}

	if strings.TrimSpace(c.Repo) == "" {
		add("repo", "repo id is required", "set repo: app")
	}
	if !strings.HasPrefix(c.RoutePrefix, "/") {
		add("route_prefix", "must start with /", "use /api")
	}
	if c.FunctionPrefix != "" && !strings.HasPrefix(c.FunctionPrefix, "/") {
		add("function_prefix", "must start with /", "use /.netlify/functions/")
	}
	if c.APIRoot == "" {
		add("api_root", "API root directory is required", "")
	}
	if _, err := regexp.Compile(c.DocTagPattern); err != nil {
		add("doc_tag_pattern", err.Error(), "")
	}
	if len(c.SupportedSchemaVersions) == 0 {
		add("supported_schema_versions", "at least one version is required", `use ["1.0", "1.x"]`)
	}
	for i, v := range c.SupportedSchemaVersions {
		if !schemaVersionRe.MatchString(v) {
			add(fmt.Sprintf("supported_schema_versions[%d]", i), fmt.Sprintf("%q is not MAJOR.MINOR or MAJOR.x", v), "")
		}
	}
	for i, b := range c.ExternalBases {
		if b.Repo == "" {
			add(fmt.Sprintf("external_bases[%d].repo", i), "repo id is required", "")
		}
		if b.BaseURL == "" && b.BaseURLEnv == "" {
			add(fmt.Sprintf("external_bases[%d]", i), "base_url or base_url_env is required", "")
		}
	}
	for i, s := range c.ExternalSources {
		if s.Repo == "" {
			add(fmt.Sprintf("external_sources[%d].repo", i), "repo id is required", "")
		}
		if s.Inventory == "" {
			add(fmt.Sprintf("external_sources[%d].inventory", i), "inventory path is required", "")
		}
	}
	for i, a := range c.ServerAllowlist {
		if a.CallerSuffix == "" || a.Route == "" {
			add(fmt.Sprintf("server_allowlist[%d]", i), "caller_suffix and route are both required", "")
		}
	}
	t := c.Thresholds
	if t.SkippedCallsWarning < 0 || t.OutboundFanout < 0 || t.ReportDisplayCap < 0 || t.InfoDisplayCap < 0 {
		add("thresholds", "thresholds cannot be negative", "")
	}
	if t.SnippetChars <= 0 {
		add("thresholds.snippet_chars", "must be positive", "use 120")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

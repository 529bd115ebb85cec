// Package report serializes the wiring map and renders the orphan and
// e2e coverage reports as Markdown, with optional HTML renderings.
package report

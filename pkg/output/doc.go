// Package output provides styled terminal output for the weaver CLI.
//
// # Usage
//
//	output.Success("Wiring map written")
//	output.Warn("2 external inventories are stale")
//	output.Step("docs/api-wiring-map.json")
//
// # Verbose Mode
//
//	output.SetVerbose(true)
//	output.Verbose("Scanning src/app/api")
//
// # CI Detection
//
// IsCI reports whether the process runs unattended (CI env var set or
// stdout not a terminal). Commands use it to pick between the compact CI
// layout and the decorated local one.
package output

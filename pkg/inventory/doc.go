// Package inventory reads the route inventories published by sibling
// repositories and writes this repository's own.
//
// An inventory is a small JSON document:
//
//	{
//	  "schema_version": "1.0",
//	  "repo": "crew-service",
//	  "generated_at": "2026-01-01T00:00:00Z",
//	  "routes": [{"path": "/kickoff", "methods": ["POST"], "type": "external"}]
//	}
//
// Loading never fails the run. Each configured source ends up loaded,
// stale, missing or invalid, and only loaded or stale sources contribute
// routes to matching.
package inventory

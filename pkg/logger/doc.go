// Package logger provides the leveled, key=value structured logger used by
// every weaver component.
//
// Scanners log per-file failures at Warn and keep going:
//
//	log.Warn("skipping unreadable file", logger.F("file", path), logger.Err(err))
//
// The CLI lowers the level to Debug under --verbose. Tests pass
// NewSilentLogger into constructors.
package logger

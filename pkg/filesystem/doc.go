// Package filesystem enumerates source files for the scanners.
//
// A Walker filters by extension, skips a directory denylist and hidden
// entries, and treats I/O failures as local: a missing root yields no
// files, an unreadable directory or file is logged and skipped, and the
// walk carries on with the remaining entries.
//
//	w := filesystem.NewWalker(filesystem.WalkOptions{
//	    Extensions: []string{".ts", ".tsx"},
//	    IgnoreDirs: filesystem.DefaultIgnoreDirs,
//	}, log)
//	files := w.Files("src", "tests/e2e")
package filesystem

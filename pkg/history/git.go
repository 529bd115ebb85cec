// Package history reads previously committed artifacts from git so a new
// run can be compared with the last committed one.
package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoHistory means no committed snapshot is available. Callers treat
// it as informational: a fresh repo or a shallow CI checkout has none.
var ErrNoHistory = errors.New("no committed snapshot available")

// Git reads file contents at a revision
type Git struct {
	dir string

	// For mocking in tests
	commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewGit creates a reader working in dir
func NewGit(dir string) *Git {
	return &Git{dir: dir, commandFunc: exec.CommandContext}
}

// Show returns the content of path at rev. path is relative to the
// reader's directory. Every failure wraps ErrNoHistory.
func (g *Git) Show(ctx context.Context, rev, path string) ([]byte, error) {
	object := rev + ":./" + filepath.ToSlash(strings.TrimPrefix(path, "./"))
	cmd := g.commandFunc(ctx, "git", "show", object)
	if g.dir != "" {
		cmd.Dir = g.dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if isCommandNotFound(err) {
			return nil, fmt.Errorf("%w: git is not installed", ErrNoHistory)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: git show %s: %s", ErrNoHistory, object, firstLine(msg))
	}
	return stdout.Bytes(), nil
}

// isCommandNotFound checks if an error indicates a command was not found
func isCommandNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) ||
		strings.Contains(err.Error(), "executable file not found")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCommand re-runs the test binary as a fake git
func mockCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", name}
	cs = append(cs, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

// TestHelperProcess is the fake git used by mockCommand
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}

	if len(args) < 3 || args[0] != "git" || args[1] != "show" {
		fmt.Fprintf(os.Stderr, "unexpected command %v\n", args)
		os.Exit(2)
	}

	switch args[2] {
	case "HEAD:./docs/api-wiring-map.json":
		fmt.Print(`{"metadata":{"route_count":50}}`)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "fatal: path '%s' does not exist in 'HEAD'\nhint: second line\n", strings.TrimPrefix(args[2], "HEAD:./"))
		os.Exit(128)
	}
}

func TestShow(t *testing.T) {
	g := NewGit(t.TempDir())
	g.commandFunc = mockCommand

	data, err := g.Show(context.Background(), "HEAD", "docs/api-wiring-map.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"metadata":{"route_count":50}}`, string(data))
}

func TestShow_MissingPath(t *testing.T) {
	g := NewGit(t.TempDir())
	g.commandFunc = mockCommand

	_, err := g.Show(context.Background(), "HEAD", "./docs/other.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoHistory))
	assert.Contains(t, err.Error(), "does not exist")
	assert.NotContains(t, err.Error(), "second line")
}

func TestShow_GitNotInstalled(t *testing.T) {
	g := NewGit(t.TempDir())
	g.commandFunc = func(ctx context.Context, _ string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "definitely-not-a-real-git-binary", args...)
	}

	_, err := g.Show(context.Background(), "HEAD", "docs/api-wiring-map.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoHistory))
	assert.Contains(t, err.Error(), "not installed")
}

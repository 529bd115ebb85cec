// Package fileops writes generated artifacts all-or-nothing.
package fileops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Transaction stages a set of file writes that land together or not at all
type Transaction struct {
	staged    []stagedFile
	committed bool
}

type stagedFile struct {
	path    string
	content []byte
	mode    os.FileMode
}

// previous is what a path held before Commit touched it
type previous struct {
	path    string
	content []byte
	mode    os.FileMode
	existed bool
}

// NewTransaction creates an empty transaction
func NewTransaction() *Transaction {
	return &Transaction{staged: make([]stagedFile, 0)}
}

// AddFile stages a write (nothing touches disk until Commit)
func (t *Transaction) AddFile(path string, content []byte, mode os.FileMode) {
	t.staged = append(t.staged, stagedFile{path: path, content: content, mode: mode})
}

// Paths lists staged paths in staging order
func (t *Transaction) Paths() []string {
	paths := make([]string, 0, len(t.staged))
	for _, f := range t.staged {
		paths = append(paths, f.path)
	}
	return paths
}

// Commit writes every staged file. Each file is first written to a temp
// file beside its target; targets are only replaced once all temp files
// exist. On failure, already replaced targets get their old content back
// and files that did not exist before are removed.
func (t *Transaction) Commit() error {
	if t.committed {
		return fmt.Errorf("transaction already committed")
	}

	temps := make([]string, 0, len(t.staged))
	cleanup := func() {
		for _, tmp := range temps {
			os.Remove(tmp) // best effort
		}
	}

	for _, f := range t.staged {
		dir := filepath.Dir(f.path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			cleanup()
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		tmp, err := writeTemp(dir, f)
		if err != nil {
			cleanup()
			return fmt.Errorf("failed to write file %s: %w", f.path, err)
		}
		temps = append(temps, tmp)
	}

	replaced := make([]previous, 0, len(t.staged))
	for i, f := range t.staged {
		prev, err := snapshot(f.path)
		if err != nil {
			restore(replaced)
			cleanup()
			return err
		}
		if err := os.Rename(temps[i], f.path); err != nil {
			restore(replaced)
			cleanup()
			return fmt.Errorf("failed to replace %s: %w", f.path, err)
		}
		replaced = append(replaced, prev)
	}

	t.committed = true
	return nil
}

func writeTemp(dir string, f stagedFile) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	if _, err := tmp.Write(f.content); err != nil {
		tmp.Close()
		os.Remove(name)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	if err := os.Chmod(name, f.mode); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func snapshot(path string) (previous, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return previous{path: path}, nil
	}
	if err != nil {
		return previous{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return previous{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return previous{path: path, content: content, mode: info.Mode().Perm(), existed: true}, nil
}

// restore puts replaced files back, newest first
func restore(replaced []previous) {
	for i := len(replaced) - 1; i >= 0; i-- {
		p := replaced[i]
		if !p.existed {
			os.Remove(p.path)
			continue
		}
		os.WriteFile(p.path, p.content, p.mode)
	}
}

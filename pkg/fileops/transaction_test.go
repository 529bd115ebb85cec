package fileops

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTransaction_Success(t *testing.T) {
	tempDir := t.TempDir()

	tx := NewTransaction()
	tx.AddFile(filepath.Join(tempDir, "docs", "map.json"), []byte("{}\n"), 0644)
	tx.AddFile(filepath.Join(tempDir, "docs", "orphans.md"), []byte("# Orphans\n"), 0644)

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(tempDir, "docs", "map.json"))
	if err != nil || string(content) != "{}\n" {
		t.Error("map.json not written correctly")
	}
	content, err = os.ReadFile(filepath.Join(tempDir, "docs", "orphans.md"))
	if err != nil || string(content) != "# Orphans\n" {
		t.Error("orphans.md not written correctly")
	}

	entries, err := os.ReadDir(filepath.Join(tempDir, "docs"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected no temp files left behind, found %d entries", len(entries))
	}
}

func TestTransaction_FailureLeavesExistingFilesAlone(t *testing.T) {
	tempDir := t.TempDir()
	existing := filepath.Join(tempDir, "map.json")
	if err := os.WriteFile(existing, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	tx := NewTransaction()
	tx.AddFile(existing, []byte("new"), 0644)
	tx.AddFile(filepath.Join(tempDir, "\x00invalid", "report.md"), []byte("x"), 0644)

	if err := tx.Commit(); err == nil {
		t.Fatal("Expected commit to fail with invalid path")
	}

	content, err := os.ReadFile(existing)
	if err != nil || string(content) != "old" {
		t.Errorf("existing file should be untouched, got %q", content)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestTransaction_RestoresOnReplaceFailure(t *testing.T) {
	tempDir := t.TempDir()
	first := filepath.Join(tempDir, "map.json")
	if err := os.WriteFile(first, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	// A directory in the way makes the second rename fail.
	blocked := filepath.Join(tempDir, "report.md")
	if err := os.MkdirAll(filepath.Join(blocked, "child"), 0755); err != nil {
		t.Fatal(err)
	}

	tx := NewTransaction()
	tx.AddFile(first, []byte("new"), 0644)
	tx.AddFile(blocked, []byte("x"), 0644)

	if err := tx.Commit(); err == nil {
		t.Fatal("Expected commit to fail")
	}

	content, err := os.ReadFile(first)
	if err != nil || string(content) != "old" {
		t.Errorf("map.json should be restored, got %q", content)
	}
}

func TestTransaction_CannotCommitTwice(t *testing.T) {
	tx := NewTransaction()
	tx.AddFile(filepath.Join(t.TempDir(), "file1.txt"), []byte("content1"), 0644)

	if err := tx.Commit(); err != nil {
		t.Fatalf("First commit failed: %v", err)
	}
	if err := tx.Commit(); err == nil {
		t.Fatal("Expected second commit to fail")
	}
}

func TestTransaction_Paths(t *testing.T) {
	tx := NewTransaction()
	tx.AddFile("a", nil, 0644)
	tx.AddFile("b", nil, 0644)

	paths := tx.Paths()
	if len(paths) != 2 || paths[0] != "a" || paths[1] != "b" {
		t.Errorf("unexpected paths %v", paths)
	}
}

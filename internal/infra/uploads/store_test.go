package uploads

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestSave_NameAndContent(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	content := []byte("hello upload")
	path, err := s.Save("task-1", "notes.txt", content)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	sum := md5.Sum(content)
	wantName := "task-1_" + hex.EncodeToString(sum[:]) + ".txt"
	if filepath.Base(path) != wantName {
		t.Errorf("stored name = %q, want %q", filepath.Base(path), wantName)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read stored blob: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("stored content = %q, want %q", got, content)
	}
}

func TestSave_StripsDirectoryFromFilename(t *testing.T) {
	s := New(t.TempDir())

	path, err := s.Save("task-1", "../../evil/path.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if filepath.Ext(path) != ".pdf" {
		t.Errorf("extension = %q, want .pdf", filepath.Ext(path))
	}
	if filepath.Dir(path) != filepath.Clean(filepath.Dir(path)) {
		t.Errorf("path not clean: %q", path)
	}
}

func TestSave_RejectsUnsafeTaskID(t *testing.T) {
	s := New(t.TempDir())
	for _, id := range []string{"", "../x", "a/b"} {
		if _, err := s.Save(id, "f.txt", []byte("x")); err == nil {
			t.Errorf("Save(%q) accepted an unsafe task id", id)
		}
	}
}

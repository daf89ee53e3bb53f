// Package uploads stores uploaded blobs on disk as
// uploads/<task_id>_<md5hex><ext>. The content hash in the name makes
// repeat uploads of the same bytes self-evident on inspection and keeps a
// re-submitted task id from silently clobbering a different document.
package uploads

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store writes uploaded files under one root directory.
type Store struct {
	root string
}

// New returns a Store rooted at root.
func New(root string) *Store {
	return &Store{root: root}
}

// Save writes content to disk and returns the absolute path of the stored
// blob. The original filename contributes only its extension.
func (s *Store) Save(taskID, filename string, content []byte) (string, error) {
	if taskID == "" || strings.ContainsAny(taskID, `/\`) || strings.Contains(taskID, "..") {
		return "", fmt.Errorf("uploads: invalid task id %q", taskID)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("uploads: mkdir %s: %w", s.root, err)
	}

	sum := md5.Sum(content)
	name := taskID + "_" + hex.EncodeToString(sum[:]) + safeExt(filename)
	path := filepath.Join(s.root, name)

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("uploads: temp file: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmp.Name()) //nolint:errcheck
		return "", fmt.Errorf("uploads: write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return "", fmt.Errorf("uploads: close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return "", fmt.Errorf("uploads: rename blob: %w", err)
	}
	return path, nil
}

// safeExt extracts a usable extension from a client-supplied filename.
func safeExt(filename string) string {
	ext := filepath.Ext(filepath.Base(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		return ""
	}
	return ext
}

// Package cache is a content-addressed store for derived document text
// (generated abstracts). Re-uploading the same document or re-running the
// same task id becomes a cache hit instead of a second LLM round-trip.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// artifactFile is the derived-text artifact inside a fingerprint directory.
const artifactFile = "structured_abstract.json"

// minValidChars is the validity threshold on read: an entry shorter than
// this is a failed generation that must be recomputed, never served.
const minValidChars = 10

type entry struct {
	Abstract string `json:"abstract"`
}

// Store is a filesystem cache rooted at one directory, keyed by fingerprint.
type Store struct {
	root string
}

// New returns a Store rooted at root.
func New(root string) *Store {
	return &Store{root: root}
}

// Fingerprint derives the cache key for a document: the caller-supplied
// task id when present, otherwise the md5 of the content. Callers must pick
// one scheme per logical document and stick with it.
func Fingerprint(taskID string, content []byte) string {
	if taskID != "" {
		return taskID
	}
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached text for fingerprint. An entry that is missing,
// unreadable, or below the validity threshold is reported as a miss.
func (s *Store) Get(fingerprint string) (string, bool) {
	path, err := s.artifactPath(fingerprint)
	if err != nil {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return "", false
	}
	if len(strings.TrimSpace(e.Abstract)) < minValidChars {
		return "", false
	}
	return e.Abstract, true
}

// Put stores text under fingerprint, overwriting any previous (possibly
// invalid) entry. The write is temp-then-rename.
func (s *Store) Put(fingerprint, text string) error {
	path, err := s.artifactPath(fingerprint)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cache: mkdir %s: %w", dir, err)
	}

	data, err := json.Marshal(entry{Abstract: text})
	if err != nil {
		return fmt.Errorf("cache: marshal entry: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".abstract-*")
	if err != nil {
		return fmt.Errorf("cache: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("cache: write entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("cache: close entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("cache: rename entry: %w", err)
	}
	return nil
}

// --- internal ---

func (s *Store) artifactPath(fingerprint string) (string, error) {
	if fingerprint == "" || strings.ContainsAny(fingerprint, `/\`) || strings.Contains(fingerprint, "..") {
		return "", fmt.Errorf("cache: invalid fingerprint %q", fingerprint)
	}
	return filepath.Join(s.root, fingerprint, artifactFile), nil
}

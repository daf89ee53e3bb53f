// Package runstore persists the terminal JSON result of a task under
// runs/<task_id>/. Results are the only task state that survives a process
// restart, so a client that never held a websocket, or whose connection
// died mid-run, can still fetch the outcome over HTTP.
package runstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind selects the result file class within a task directory.
type Kind string

const (
	// KindGeneral is the canonical result file written by the orchestrator.
	KindGeneral Kind = "result.json"
	// KindPDF is the kind-specific file written by the document processor
	// as soon as a summary exists, before the orchestrator finishes.
	KindPDF Kind = "pdf_result.json"
)

// readyMarker flags that a result was computed even if the canonical file
// write was interrupted; Get falls back to scanning the directory when the
// marker is present.
const readyMarker = "result_ready.txt"

// ErrNotFound is returned by Get when no result exists for the task.
var ErrNotFound = errors.New("runstore: result not found")

// Store is a filesystem-backed result store rooted at one directory.
type Store struct {
	root string
}

// New returns a Store rooted at root. The directory is created lazily on
// the first Put.
func New(root string) *Store {
	return &Store{root: root}
}

// Put marshals v and writes it as the task's result file for the given kind.
// The write is temp-file-then-rename so a concurrent reader never observes
// a torn file; duplicate submissions are last-writer-wins at file level.
func (s *Store) Put(taskID string, kind Kind, v any) error {
	dir, err := s.taskDir(taskID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("runstore: mkdir %s: %w", dir, err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("runstore: marshal result for %s: %w", taskID, err)
	}

	path := filepath.Join(dir, string(kind))
	tmp, err := os.CreateTemp(dir, ".result-*")
	if err != nil {
		return fmt.Errorf("runstore: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("runstore: write result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("runstore: close result: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return fmt.Errorf("runstore: rename result: %w", err)
	}
	return nil
}

// MarkReady drops the ready marker for a task. Called when a result exists
// but could not be delivered over the channel, so the HTTP result endpoint
// knows to look harder.
func (s *Store) MarkReady(taskID string) error {
	dir, err := s.taskDir(taskID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("runstore: mkdir %s: %w", dir, err)
	}
	return os.WriteFile(filepath.Join(dir, readyMarker), []byte("1"), 0o644)
}

// Get returns the stored result JSON for taskID. Search order: the
// kind-specific PDF file, then the canonical file, then, only when the
// ready marker exists, any valid JSON file in the task directory. The last
// step covers a crash between compute and persist.
func (s *Store) Get(taskID string) ([]byte, error) {
	dir, err := s.taskDir(taskID)
	if err != nil {
		return nil, err
	}

	for _, kind := range []Kind{KindPDF, KindGeneral} {
		data, err := os.ReadFile(filepath.Join(dir, string(kind)))
		if err == nil && gjson.ValidBytes(data) {
			return data, nil
		}
	}

	if _, err := os.Stat(filepath.Join(dir, readyMarker)); err != nil {
		return nil, ErrNotFound
	}
	return s.scan(dir)
}

// ResultType sniffs the "type" field of a stored result without decoding
// the full payload ("chat" when the result carries a reply instead).
func ResultType(data []byte) string {
	if t := gjson.GetBytes(data, "type"); t.Exists() {
		return t.String()
	}
	if gjson.GetBytes(data, "reply").Exists() {
		return "chat"
	}
	return ""
}

// --- internal ---

// taskDir validates the id before joining it into a path; a traversal in a
// client-supplied task id must not escape the store root.
func (s *Store) taskDir(taskID string) (string, error) {
	if taskID == "" || strings.ContainsAny(taskID, `/\`) || strings.Contains(taskID, "..") {
		return "", fmt.Errorf("runstore: invalid task id %q", taskID)
	}
	return filepath.Join(s.root, taskID), nil
}

// scan returns the first parseable JSON file in dir, skipping temp files.
func (s *Store) scan(dir string) ([]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ErrNotFound
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil || !gjson.ValidBytes(data) {
			continue
		}
		return data, nil
	}
	return nil, ErrNotFound
}

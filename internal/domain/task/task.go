// Package task implements the orchestration core: the task registry, the
// per-task subscriber registry, the staged progress reporter and the
// orchestrator that drives a submission from accepted to persisted result.
package task

import (
	"sync"
	"time"
)

// Kind discriminates chat tasks from document-upload tasks.
type Kind string

const (
	KindChat   Kind = "chat"
	KindUpload Kind = "upload"
)

// Task is the unit of work tracked by the registry. A task is created at the
// HTTP boundary and processed by a single orchestrator goroutine.
//
// The stopped flag is set only by an explicit client stop request. A dropped
// subscriber channel never stops a task; processing continues in the
// background and the result stays retrievable by polling.
type Task struct {
	ID        string
	Kind      Kind
	CreatedAt time.Time

	// chat
	Message string

	// upload
	FileName    string
	FilePath    string
	ContentType string

	mu         sync.Mutex
	stopped    bool
	stopCh     chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
	finishOnce sync.Once
}

// NewChatTask builds a chat task for the given prompt.
func NewChatTask(id, message string) *Task {
	return &Task{
		ID:        id,
		Kind:      KindChat,
		Message:   message,
		CreatedAt: time.Now(),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// NewUploadTask builds an upload task for a stored file.
func NewUploadTask(id, fileName, filePath, contentType string) *Task {
	return &Task{
		ID:          id,
		Kind:        KindUpload,
		FileName:    fileName,
		FilePath:    filePath,
		ContentType: contentType,
		CreatedAt:   time.Now(),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Stop requests cooperative cancellation. Safe to call more than once and
// from any goroutine. The orchestrator observes it between stages.
func (t *Task) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.stopped = true
		t.mu.Unlock()
		close(t.stopCh)
	})
}

// Stopped reports whether the client requested a stop.
func (t *Task) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// StopSignal returns a channel closed when Stop is called.
func (t *Task) StopSignal() <-chan struct{} {
	return t.stopCh
}

// Done returns a channel closed when the task's run has finished, for any
// terminal outcome (completed, failed or stopped).
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Finished reports whether the task's run has reached a terminal outcome.
func (t *Task) Finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *Task) finish() {
	t.finishOnce.Do(func() { close(t.done) })
}

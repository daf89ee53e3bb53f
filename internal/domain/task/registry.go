package task

import "sync"

// Registry tracks submitted tasks by id. It is an injected dependency of the
// orchestrator and the HTTP handlers; there is no package-level state.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Put stores t under its id. When a task with the same id is still running,
// the registered task is returned with attached=true and t is discarded, so a
// duplicate submission joins the live run instead of spawning a second one.
// A finished task with the same id is replaced.
func (r *Registry) Put(t *Task) (stored *Task, attached bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tasks[t.ID]; ok && !existing.Finished() {
		return existing, true
	}
	r.tasks[t.ID] = t
	return t, false
}

// Get returns the task registered under id.
func (r *Registry) Get(id string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	return t, ok
}

// Stop requests cancellation of the task registered under id. It reports
// whether the id was known.
func (r *Registry) Stop(id string) bool {
	r.mu.RLock()
	t, ok := r.tasks[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	t.Stop()
	return true
}

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matiasleandrokruk/deepchat/internal/domain/task"
	"github.com/matiasleandrokruk/deepchat/internal/infra/runstore"
)

// ChatRecoverer re-runs a chat task's LLM call so a poll can answer before
// the background run has persisted anything.
type ChatRecoverer interface {
	RecoverChat(ctx context.Context, taskID string) (task.Result, error)
}

type ResultHandler struct {
	store   *runstore.Store
	tasks   *task.Registry
	recover ChatRecoverer
	log     *slog.Logger
}

func NewResultHandler(store *runstore.Store, tasks *task.Registry, recover ChatRecoverer, log *slog.Logger) *ResultHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ResultHandler{store: store, tasks: tasks, recover: recover, log: log}
}

// Result resolves a task id to its outcome. Lookup order: the durable run
// store, then registry state for an in-flight or stopped task (with a
// synchronous chat recovery attempt), then 404.
func (h *ResultHandler) Result(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")

	data, err := h.store.Get(taskID)
	if err == nil {
		writeRawJSON(w, http.StatusOK, data)
		return
	}
	if !errors.Is(err, runstore.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "failed to read result")
		return
	}

	t, ok := h.tasks.Get(taskID)
	if !ok {
		writeError(w, http.StatusNotFound, "Task result does not exist")
		return
	}

	if t.Stopped() {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "stopped",
			"task_id": taskID,
			"message": "Task was stopped by the user",
		})
		return
	}

	if t.Kind == task.KindChat {
		if res, err := h.recover.RecoverChat(r.Context(), taskID); err == nil {
			writeJSON(w, http.StatusOK, res)
			return
		} else {
			h.log.Warn("chat recovery failed, reporting processing", "task_id", taskID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "processing",
		"task_id":   taskID,
		"task_type": string(t.Kind),
		"message":   "Task is being processed",
	})
}

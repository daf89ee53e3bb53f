package handlers

import (
	"encoding/json"
	"net/http"
)

// ChatStarter submits a chat task and returns its authoritative id.
type ChatStarter interface {
	StartChat(id, message string) string
}

type ChatHandler struct {
	orch ChatStarter
}

func NewChatHandler(orch ChatStarter) *ChatHandler {
	return &ChatHandler{orch: orch}
}

type chatRequest struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

// Chat accepts a message, registers the task and returns the task id the
// client should open its progress channel with. The work itself runs in the
// background.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	taskID := h.orch.StartChat(req.TaskID, req.Message)
	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID})
}

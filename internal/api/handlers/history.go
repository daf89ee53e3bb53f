package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matiasleandrokruk/deepchat/internal/domain/history"
)

// HistoryReader is the read side of the conversation log.
type HistoryReader interface {
	ListConversations(ctx context.Context) ([]history.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]history.Message, error)
}

type HistoryHandler struct {
	svc HistoryReader
}

func NewHistoryHandler(svc HistoryReader) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

// ListConversations returns the recorded conversations, newest first.
func (h *HistoryHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.svc.ListConversations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

// ListMessages returns one conversation's messages in order.
func (h *HistoryHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	convID := chi.URLParam(r, "id")
	msgs, err := h.svc.ListMessages(r.Context(), convID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

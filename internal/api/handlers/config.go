package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/matiasleandrokruk/deepchat/internal/infra/config"
)

type ConfigHandler struct {
	cfg *config.Manager
}

func NewConfigHandler(cfg *config.Manager) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// Get returns the current configuration with the API key masked.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Redacted())
}

// Update applies a partial configuration patch and persists it. The LLM
// adapter reads settings per call, so changes take effect immediately.
func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.cfg.Update(patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Configuration updated",
	})
}

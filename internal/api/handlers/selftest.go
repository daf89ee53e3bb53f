package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/matiasleandrokruk/deepchat/internal/infra/llm"
)

// SelfTestDirs names the data directories the self-test verifies.
type SelfTestDirs struct {
	Uploads string
	Runs    string
	Cache   string
}

type SelfTestHandler struct {
	provider llm.Provider
	dirs     SelfTestDirs
}

func NewSelfTestHandler(provider llm.Provider, dirs SelfTestDirs) *SelfTestHandler {
	return &SelfTestHandler{provider: provider, dirs: dirs}
}

// Test runs a server self-check plus one live LLM round-trip with timing.
// A 401 from the provider is reported as "invalid key" so operators can tell
// a bad credential apart from an unreachable endpoint.
func (h *SelfTestHandler) Test(w http.ResponseWriter, r *http.Request) {
	meta := h.provider.ModelInfo()
	info := map[string]any{
		"server_status":     "running",
		"api_base":          meta.BaseURL,
		"model":             meta.ID,
		"upload_dir_exists": dirExists(h.dirs.Uploads),
		"runs_dir_exists":   dirExists(h.dirs.Runs),
		"cache_dir_exists":  dirExists(h.dirs.Cache),
	}

	start := time.Now()
	resp, err := h.provider.ChatCompletion(r.Context(), llm.ChatRequest{
		Messages: []llm.Message{{
			Role:    "user",
			Content: "This is a test message. Please respond with 'API test successful'",
		}},
	})
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		if llm.IsAuthError(err) {
			info["api_call_status"] = "invalid key"
		} else {
			info["api_call_status"] = "failed"
		}
		info["api_error"] = err.Error()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "error",
			"message":     "API call failed: " + err.Error(),
			"server_info": info,
		})
		return
	}

	info["api_call_status"] = "success"
	info["api_response_time_ms"] = elapsed
	info["api_response"] = resp.Content
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"message":     "API connection test successful",
		"server_info": info,
	})
}

func dirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

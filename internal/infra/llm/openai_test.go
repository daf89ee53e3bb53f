package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// completionsStub serves the OpenAI chat-completions wire format.
func completionsStub(t *testing.T, status int, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`)) //nolint:errcheck
			return
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model == "" || len(body.Messages) == 0 {
			t.Errorf("request missing model/messages: %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
}

func provider(url string) *OpenAIProvider {
	return NewOpenAIProvider(func() Settings {
		return Settings{
			APIBase:     url,
			APIKey:      "sk-test",
			Model:       "deepseek-chat",
			Temperature: 0.7,
			MaxTokens:   100,
		}
	})
}

func TestChatCompletion_OK(t *testing.T) {
	srv := completionsStub(t, http.StatusOK, "hello from the model")
	defer srv.Close()

	resp, err := provider(srv.URL).ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if resp.Content != "hello from the model" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.StopReason != "stop" {
		t.Errorf("StopReason = %q, want stop", resp.StopReason)
	}
}

func TestChatCompletion_RequestOverrides(t *testing.T) {
	srv := completionsStub(t, http.StatusOK, "ok")
	defer srv.Close()

	// Per-request model override must not error; the stub asserts a model is set.
	_, err := provider(srv.URL).ChatCompletion(context.Background(), ChatRequest{
		Model:       "deepseek-coder",
		Messages:    []Message{{Role: "system", Content: "be terse"}, {Role: "user", Content: "hi"}},
		Temperature: 0.3,
		MaxTokens:   50,
	})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
}

func TestChatCompletion_UpstreamError(t *testing.T) {
	srv := completionsStub(t, http.StatusUnauthorized, "")
	defer srv.Close()

	_, err := provider(srv.URL).ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err == nil {
		t.Fatal("expected error for 401 upstream")
	}
	if !IsAuthError(err) {
		t.Errorf("IsAuthError(%v) = false, want true", err)
	}
}

func TestChatCompletion_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := provider(srv.URL).ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestModelInfo(t *testing.T) {
	meta := provider("http://example.test/v1").ModelInfo()
	if meta.ID != "deepseek-chat" {
		t.Errorf("ID = %q", meta.ID)
	}
	if meta.Provider != "openai-compatible" {
		t.Errorf("Provider = %q", meta.Provider)
	}
}

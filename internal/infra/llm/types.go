// Package llm defines the model-agnostic LLM provider abstraction.
// All types here are shared between the provider interface and adapters.
package llm

// Message represents a single turn in a conversation (role + content).
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatRequest is the input for a non-streaming chat completion.
// Zero-valued fields fall back to the adapter's configured settings.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ChatResponse is the output from a non-streaming chat completion.
type ChatResponse struct {
	Content    string // The assistant message text.
	StopReason string // "stop" | "length" | provider-specific
}

// Settings is the live connection configuration for an adapter.
// Adapters re-read it per call so runtime config updates take effect
// without a restart.
type Settings struct {
	APIBase     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// ModelMeta describes the model / provider identity.
type ModelMeta struct {
	ID       string // e.g. "deepseek-chat"
	Provider string // e.g. "openai-compatible"
	BaseURL  string
}

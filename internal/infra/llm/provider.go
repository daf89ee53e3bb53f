package llm

import "context"

// Provider is the vendor-agnostic interface for LLM operations.
// The orchestrator and the document summarizer consume this interface so
// the application is never coupled to a specific LLM vendor.
type Provider interface {
	// ChatCompletion performs a single non-streaming chat completion.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ModelInfo returns static metadata about the provider/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable and the
	// credentials are accepted.
	HealthCheck(ctx context.Context) error
}

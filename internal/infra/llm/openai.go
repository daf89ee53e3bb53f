// OpenAI-compatible adapter. DeepSeek (the default upstream) speaks the
// OpenAI chat-completions wire format, so the adapter is built on the
// official openai-go client pointed at a configurable base URL.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider implements Provider against any OpenAI-compatible endpoint.
// The client is rebuilt per call from the settings source so that API key,
// base URL and model changes made through POST /api/config apply immediately.
type OpenAIProvider struct {
	source func() Settings
}

// NewOpenAIProvider creates an adapter that reads live settings from source.
func NewOpenAIProvider(source func() Settings) *OpenAIProvider {
	return &OpenAIProvider{source: source}
}

// ChatCompletion performs a non-streaming chat completion.
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	s := p.source()
	client := p.client(s)

	model := req.Model
	if model == "" {
		model = s.Model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = s.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = s.MaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toOpenAIMessages(req.Messages),
	}
	if temperature != 0 {
		params.Temperature = openai.Float(temperature)
	}
	if maxTokens != 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("llm chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm chat completion: response contained no choices")
	}

	return &ChatResponse{
		Content:    resp.Choices[0].Message.Content,
		StopReason: string(resp.Choices[0].FinishReason),
	}, nil
}

// ModelInfo returns static metadata for the configured endpoint.
func (p *OpenAIProvider) ModelInfo() ModelMeta {
	s := p.source()
	return ModelMeta{
		ID:       s.Model,
		Provider: "openai-compatible",
		BaseURL:  s.APIBase,
	}
}

// HealthCheck lists models on the upstream; it exercises the credentials
// without consuming completion tokens.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	s := p.source()
	client := p.client(s)
	if _, err := client.Models.List(ctx); err != nil {
		return fmt.Errorf("llm healthcheck: %w", err)
	}
	return nil
}

// IsAuthError reports whether err is an upstream 401 (bad or missing API key).
func IsAuthError(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// --- internal ---

func (p *OpenAIProvider) client(s Settings) openai.Client {
	base := s.APIBase
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	opts := []option.RequestOption{option.WithAPIKey(s.APIKey)}
	if base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return openai.NewClient(opts...)
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

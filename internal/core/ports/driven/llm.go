// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/scribe/internal/core/domain"
)

// LLMService provides language model operations for transcript post-processing.
//
// Implementations include:
//   - OpenAI and OpenAI-compatible servers (OpenRouter, Groq, Cerebras, LM Studio)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ListModels returns the model identifiers the provider offers.
	ListModels(ctx context.Context) ([]string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// LLMFactory creates LLM services for a provider.
type LLMFactory interface {
	// Create returns a service bound to provider, authenticated with apiKey
	// and generating with model. model may be empty for listing only.
	Create(provider domain.ProviderOption, apiKey, model string) (LLMService, error)
}

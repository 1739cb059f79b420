// Package ai provides factory functions for creating LLM service adapters
// for post-processing providers.
package ai

import (
	"context"
	"fmt"
	"time"

	anthropicllm "github.com/custodia-labs/scribe/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/scribe/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/scribe/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Ensure Factory implements the interface.
var _ driven.LLMFactory = (*Factory)(nil)

// FactoryConfig configures the services a Factory creates.
type FactoryConfig struct {
	// Timeout is the per-request timeout. Zero uses each adapter's default.
	Timeout time.Duration

	// Limiter throttles model listing across all created services.
	// Nil disables throttling.
	Limiter *RateLimiter
}

// Factory creates LLM services for post-processing providers.
type Factory struct {
	cfg FactoryConfig
}

// NewFactory creates a new LLM factory.
func NewFactory(cfg FactoryConfig) *Factory {
	return &Factory{cfg: cfg}
}

// Create returns a service for provider. Anthropic and Ollama get their
// native adapters; every other provider is treated as OpenAI-compatible.
func (f *Factory) Create(provider domain.ProviderOption, apiKey, model string) (driven.LLMService, error) {
	svc, err := f.create(provider, apiKey, model)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrLLMUnavailable, provider.Label, err)
	}
	if f.cfg.Limiter != nil {
		svc = &rateLimitedService{LLMService: svc, limiter: f.cfg.Limiter}
	}
	return svc, nil
}

func (f *Factory) create(provider domain.ProviderOption, apiKey, model string) (driven.LLMService, error) {
	if provider.BaseURL == "" {
		return nil, fmt.Errorf("no base URL configured")
	}

	switch provider.ID {
	case domain.ProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  apiKey,
			BaseURL: provider.BaseURL,
			Model:   model,
			Timeout: f.cfg.Timeout,
		})

	case domain.ProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: provider.BaseURL,
			Model:   model,
			Timeout: f.cfg.Timeout,
		}), nil

	default:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:         apiKey,
			BaseURL:        provider.BaseURL,
			ModelsEndpoint: provider.ModelsEndpoint,
			Model:          model,
			Timeout:        f.cfg.Timeout,
		})
	}
}

// ValidateProvider creates a service for provider and pings it.
// This is intended for the CLI to check credentials when they are set.
func ValidateProvider(ctx context.Context, factory driven.LLMFactory, provider domain.ProviderOption, apiKey string) error {
	svc, err := factory.Create(provider, apiKey, "")
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return nil
}

// Package testutil provides shared fixtures for adapter tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scribe/internal/adapters/driven/backend/local"
	"github.com/custodia-labs/scribe/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
	"github.com/custodia-labs/scribe/internal/core/services"
)

// StubLLM is a scriptable LLM service. Set fields before the store uses it.
// When Release is non-nil, Generate blocks until it is closed or the
// context ends.
type StubLLM struct {
	Models  []string
	ListErr error
	Output  string
	GenErr  error
	Release chan struct{}

	mu      sync.Mutex
	prompts []string
}

var _ driven.LLMService = (*StubLLM)(nil)

// Generate records prompt and returns Output.
func (s *StubLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if s.Release != nil {
		select {
		case <-s.Release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.Output, s.GenErr
}

// ListModels returns Models.
func (s *StubLLM) ListModels(_ context.Context) ([]string, error) { return s.Models, s.ListErr }

// ModelName returns "stub".
func (s *StubLLM) ModelName() string { return "stub" }

// Ping always succeeds.
func (s *StubLLM) Ping(_ context.Context) error { return nil }

// Close does nothing.
func (s *StubLLM) Close() error { return nil }

// Prompts returns the prompts passed to Generate.
func (s *StubLLM) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// StubFactory hands out the same StubLLM for every provider.
type StubFactory struct {
	LLM *StubLLM
}

// Create returns f.LLM.
func (f StubFactory) Create(domain.ProviderOption, string, string) (driven.LLMService, error) {
	return f.LLM, nil
}

// TransformReady returns stored settings under which a test run succeeds
// with the LM Studio provider and a single "Fix" prompt.
func TransformReady() domain.Snapshot {
	id := "p1"
	return domain.Snapshot{
		domain.KeyPostProcessEnabled:          domain.Bool(true),
		domain.KeyPostProcessProviderID:       domain.String(domain.ProviderLMStudio),
		domain.KeyPostProcessModels:           domain.StringMap(map[string]string{domain.ProviderLMStudio: "qwen"}),
		domain.KeyPostProcessPrompts:          domain.Prompts([]domain.Prompt{{ID: id, Name: "Fix", Text: "Fix: ${output}"}}),
		domain.KeyPostProcessSelectedPromptID: domain.OptionalString(&id),
	}
}

// NewSettingsStore returns an initialized store over the local backend, an
// in-memory repository seeded with stored and llm. The store is disposed
// when the test ends.
func NewSettingsStore(
	t *testing.T,
	stored domain.Snapshot,
	llm *StubLLM,
) (*services.SettingsStore, *memory.SettingsStore) {
	t.Helper()
	if llm == nil {
		llm = &StubLLM{}
	}

	repo := memory.NewSettingsStore(stored)
	backend := local.New(repo, StubFactory{LLM: llm})
	store := services.NewSettingsStore(backend, services.WithTickInterval(10*time.Millisecond))
	require.NoError(t, store.Initialize(context.Background()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = store.Dispose(ctx)
	})
	return store, repo
}

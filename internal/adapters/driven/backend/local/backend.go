// Package local implements the settings backend in-process, over a settings
// repository, an optional secret store and LLM provider adapters.
package local

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
	"github.com/custodia-labs/scribe/internal/logger"
)

// Ensure Backend implements the interface.
var _ driven.SettingsBackend = (*Backend)(nil)

// invisibleChars are stripped from LLM output before it is returned.
var invisibleChars = strings.NewReplacer(
	"\u200B", "",
	"\u200C", "",
	"\u200D", "",
	"\uFEFF", "",
)

// Backend serves settings, prompts, model lists and transformation runs.
type Backend struct {
	repo    driven.SettingsRepository
	secrets driven.SecretStore
	llm     driven.LLMFactory
	log     logger.Component
	newID   func() string

	// mu serialises read-modify-write cycles on the repository.
	mu sync.Mutex
}

// Option configures a Backend.
type Option func(*Backend)

// WithSecretStore keeps provider API keys in secrets instead of the
// settings repository.
func WithSecretStore(secrets driven.SecretStore) Option {
	return func(b *Backend) {
		b.secrets = secrets
	}
}

// WithIDGenerator replaces the prompt id generator.
func WithIDGenerator(fn func() string) Option {
	return func(b *Backend) {
		b.newID = fn
	}
}

// New creates a local backend.
func New(repo driven.SettingsRepository, llm driven.LLMFactory, opts ...Option) *Backend {
	b := &Backend{
		repo:  repo,
		llm:   llm,
		log:   logger.Component("backend"),
		newID: func() string { return "prompt_" + uuid.New().String() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// GetSettings returns the stored settings layered over the defaults.
func (b *Backend) GetSettings(ctx context.Context) (domain.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load(ctx)
}

// GetDefaults returns the built-in settings.
func (b *Backend) GetDefaults(_ context.Context) (domain.Snapshot, error) {
	return domain.DefaultSnapshot(), nil
}

// Persist validates and stores the given keys.
func (b *Backend) Persist(ctx context.Context, partial domain.Snapshot) error {
	for key, value := range partial {
		if err := domain.ValidateValue(key, value); err != nil {
			return domain.NewDomainError("Invalid value for '%s': %v", key, err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.save(ctx, partial)
}

// ListModels returns the provider's remote models followed by the custom
// models recorded for it. Providers that need an API key are not queried
// until one is configured.
func (b *Backend) ListModels(ctx context.Context, providerID string) ([]string, error) {
	b.mu.Lock()
	snap, err := b.load(ctx)
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	provider, ok := snap.Provider(providerID)
	if !ok {
		return nil, domain.NewDomainError("Provider '%s' not found", providerID)
	}
	custom := snap.StringListMap(domain.KeyPostProcessCustomModels)[providerID]
	apiKey := snap.StringMap(domain.KeyPostProcessAPIKeys)[providerID]

	if provider.RequiresAPIKey && apiKey == "" {
		b.log.Debug("skipping remote model list for %s: no API key", providerID)
		return mergeModels(nil, custom), nil
	}

	remote, err := b.fetchModels(ctx, provider, apiKey)
	if err != nil {
		if len(custom) > 0 {
			b.log.Warn("model list for %s failed, using custom models: %v", providerID, err)
			return mergeModels(nil, custom), nil
		}
		if errors.Is(err, domain.ErrRateLimited) {
			return nil, domain.NewDomainError("Too many model requests. Try again shortly.")
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewDomainError("Failed to fetch models from %s: %v", provider.Label, err)
	}
	return mergeModels(remote, custom), nil
}

func (b *Backend) fetchModels(ctx context.Context, provider domain.ProviderOption, apiKey string) ([]string, error) {
	svc, err := b.llm.Create(provider, apiKey, "")
	if err != nil {
		return nil, err
	}
	defer svc.Close()
	return svc.ListModels(ctx)
}

// RunTransform runs the selected prompt over input with the selected
// provider and model.
func (b *Backend) RunTransform(ctx context.Context, input string) (string, error) {
	b.mu.Lock()
	snap, err := b.load(ctx)
	b.mu.Unlock()
	if err != nil {
		return "", err
	}

	if !snap.Bool(domain.KeyPostProcessEnabled) {
		return "", domain.NewDomainError("Post-processing is disabled. Please enable it first.")
	}

	provider, ok := snap.Provider(snap.Text(domain.KeyPostProcessProviderID))
	if !ok {
		return "", domain.NewDomainError("No post-processing provider is selected.")
	}

	model := snap.StringMap(domain.KeyPostProcessModels)[provider.ID]
	if strings.TrimSpace(model) == "" {
		return "", domain.NewDomainError("No model configured for provider '%s'.", provider.Label)
	}

	promptID, ok := snap.SelectedPromptID()
	if !ok {
		return "", domain.NewDomainError("No prompt is selected.")
	}
	idx := slices.IndexFunc(snap.Prompts(), func(p domain.Prompt) bool { return p.ID == promptID })
	if idx < 0 {
		return "", domain.NewDomainError("Selected prompt '%s' not found.", promptID)
	}
	prompt := snap.Prompts()[idx]
	if strings.TrimSpace(prompt.Text) == "" {
		return "", domain.NewDomainError("The selected prompt is empty.")
	}

	text := strings.ReplaceAll(prompt.Text, domain.PromptOutputPlaceholder, input)
	apiKey := snap.StringMap(domain.KeyPostProcessAPIKeys)[provider.ID]

	svc, err := b.llm.Create(provider, apiKey, model)
	if err != nil {
		return "", domain.NewDomainError("LLM request failed: %v", err)
	}
	defer svc.Close()

	b.log.Debug("running prompt %s with %s/%s", prompt.ID, provider.ID, model)
	output, err := svc.Generate(ctx, text, driven.GenerateOptions{})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", domain.NewDomainError("LLM request failed: %v", err)
	}
	if output == "" {
		return "", domain.NewDomainError("LLM returned an empty response.")
	}
	return invisibleChars.Replace(output), nil
}

// AddPrompt appends a prompt with a generated id.
func (b *Backend) AddPrompt(ctx context.Context, name, text string) (domain.Prompt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.load(ctx)
	if err != nil {
		return domain.Prompt{}, err
	}

	prompt := domain.Prompt{ID: b.newID(), Name: name, Text: text}
	prompts := append(snap.Prompts(), prompt)
	if err := b.save(ctx, domain.Snapshot{domain.KeyPostProcessPrompts: domain.Prompts(prompts)}); err != nil {
		return domain.Prompt{}, err
	}
	return prompt, nil
}

// UpdatePrompt replaces the name and text of an existing prompt.
func (b *Backend) UpdatePrompt(ctx context.Context, prompt domain.Prompt) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.load(ctx)
	if err != nil {
		return err
	}

	prompts := snap.Prompts()
	idx := slices.IndexFunc(prompts, func(p domain.Prompt) bool { return p.ID == prompt.ID })
	if idx < 0 {
		return domain.NewDomainError("Prompt with id '%s' not found", prompt.ID)
	}
	prompts[idx] = prompt
	return b.save(ctx, domain.Snapshot{domain.KeyPostProcessPrompts: domain.Prompts(prompts)})
}

// DeletePrompt removes a prompt. The last prompt cannot be deleted. When
// the selected prompt is removed the first remaining one is selected.
func (b *Backend) DeletePrompt(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.load(ctx)
	if err != nil {
		return err
	}

	prompts := snap.Prompts()
	if len(prompts) <= 1 {
		return domain.NewDomainError("Cannot delete the last prompt")
	}
	idx := slices.IndexFunc(prompts, func(p domain.Prompt) bool { return p.ID == id })
	if idx < 0 {
		return domain.NewDomainError("Prompt with id '%s' not found", id)
	}
	prompts = slices.Delete(prompts, idx, idx+1)

	partial := domain.Snapshot{domain.KeyPostProcessPrompts: domain.Prompts(prompts)}
	if selected, ok := snap.SelectedPromptID(); ok && selected == id {
		first := prompts[0].ID
		partial[domain.KeyPostProcessSelectedPromptID] = domain.OptionalString(&first)
	}
	return b.save(ctx, partial)
}

// load reads the repository over the defaults, fills in API keys from the
// secret store and merges missing post-processing defaults. Callers hold b.mu.
func (b *Backend) load(ctx context.Context) (domain.Snapshot, error) {
	stored, err := b.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	snap := domain.DefaultSnapshot()
	for key, value := range stored {
		snap[key] = value
	}

	b.mergeSecrets(snap)

	if domain.EnsurePostProcessDefaults(snap) {
		b.log.Debug("merged missing post-processing defaults")
		partial := domain.Snapshot{
			domain.KeyPostProcessProviders: snap[domain.KeyPostProcessProviders],
			domain.KeyPostProcessAPIKeys:   snap[domain.KeyPostProcessAPIKeys],
			domain.KeyPostProcessModels:    snap[domain.KeyPostProcessModels],
			domain.KeyPostProcessPrompts:   snap[domain.KeyPostProcessPrompts],
		}
		if err := b.save(ctx, partial); err != nil {
			b.log.Warn("storing merged defaults: %v", err)
		}
	}

	return snap, nil
}

// mergeSecrets replaces the API keys in snap with those in the secret store.
func (b *Backend) mergeSecrets(snap domain.Snapshot) {
	if b.secrets == nil {
		return
	}
	keys := snap.StringMap(domain.KeyPostProcessAPIKeys)
	for _, p := range snap.Providers() {
		secret, err := b.secrets.Get(p.ID)
		switch {
		case err == nil:
			keys[p.ID] = secret
		case !errors.Is(err, domain.ErrNotFound):
			b.log.Warn("reading API key for %s: %v", p.ID, err)
		}
	}
	snap[domain.KeyPostProcessAPIKeys] = domain.StringMap(keys)
}

// save writes partial to the repository, diverting API keys to the secret
// store when one is configured. Callers hold b.mu.
func (b *Backend) save(ctx context.Context, partial domain.Snapshot) error {
	if value, ok := partial[domain.KeyPostProcessAPIKeys]; ok && b.secrets != nil {
		keys, _ := value.AsStringMap()
		blanked := make(map[string]string, len(keys))
		for id, secret := range keys {
			if err := b.secrets.Set(id, secret); err != nil {
				return fmt.Errorf("storing API key for %s: %w", id, err)
			}
			blanked[id] = ""
		}
		partial = partial.Clone()
		partial[domain.KeyPostProcessAPIKeys] = domain.StringMap(blanked)
	}

	if err := b.repo.Save(ctx, partial); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// mergeModels returns remote followed by the custom models it lacks.
func mergeModels(remote, custom []string) []string {
	out := make([]string, 0, len(remote)+len(custom))
	seen := make(map[string]bool, len(remote)+len(custom))
	for _, list := range [][]string{remote, custom} {
		for _, m := range list {
			if m == "" || seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

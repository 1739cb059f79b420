package local

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scribe/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
)

type fakeLLM struct {
	models    []string
	listErr   error
	output    string
	genErr    error
	prompts   []string
	modelName string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.output, f.genErr
}

func (f *fakeLLM) ListModels(_ context.Context) ([]string, error) { return f.models, f.listErr }
func (f *fakeLLM) ModelName() string                              { return f.modelName }
func (f *fakeLLM) Ping(_ context.Context) error                   { return nil }
func (f *fakeLLM) Close() error                                   { return nil }

type fakeFactory struct {
	svc     *fakeLLM
	created []string
	apiKeys []string
}

func (f *fakeFactory) Create(provider domain.ProviderOption, apiKey, model string) (driven.LLMService, error) {
	f.created = append(f.created, provider.ID)
	f.apiKeys = append(f.apiKeys, apiKey)
	f.svc.modelName = model
	return f.svc, nil
}

func newBackend(t *testing.T, stored domain.Snapshot, opts ...Option) (*Backend, *memory.SettingsStore, *fakeFactory) {
	t.Helper()
	repo := memory.NewSettingsStore(stored)
	factory := &fakeFactory{svc: &fakeLLM{}}
	n := 0
	opts = append([]Option{WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("prompt_%d", n)
	})}, opts...)
	return New(repo, factory, opts...), repo, factory
}

func selected(id string) domain.Value {
	return domain.OptionalString(&id)
}

// transformReady stores settings that satisfy every RunTransform precondition.
func transformReady(text string) domain.Snapshot {
	return domain.Snapshot{
		domain.KeyPostProcessEnabled:          domain.Bool(true),
		domain.KeyPostProcessProviderID:       domain.String(domain.ProviderLMStudio),
		domain.KeyPostProcessModels:           domain.StringMap(map[string]string{domain.ProviderLMStudio: "qwen"}),
		domain.KeyPostProcessPrompts:          domain.Prompts([]domain.Prompt{{ID: "p1", Name: "Fix", Text: text}}),
		domain.KeyPostProcessSelectedPromptID: selected("p1"),
	}
}

func TestBackend_GetSettings_MergesDefaults(t *testing.T) {
	b, repo, _ := newBackend(t, domain.Snapshot{
		domain.KeyPushToTalk: domain.Bool(false),
		domain.KeyPostProcessProviders: domain.Providers([]domain.ProviderOption{
			{ID: domain.ProviderOpenAI, Label: "OpenAI", BaseURL: "https://api.openai.com/v1"},
		}),
	})

	snap, err := b.GetSettings(context.Background())
	require.NoError(t, err)

	assert.False(t, snap.Bool(domain.KeyPushToTalk))
	assert.Len(t, snap.Providers(), len(domain.DefaultProviders()))
	assert.Contains(t, snap.StringMap(domain.KeyPostProcessModels), domain.ProviderCustom)
	assert.Len(t, snap.Prompts(), len(domain.DefaultPrompts()))
	assert.Equal(t, 1, repo.Saves(), "merged defaults are written back")

	_, err = b.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Saves(), "nothing new to write on the second load")
}

func TestBackend_GetDefaults(t *testing.T) {
	b, _, _ := newBackend(t, nil)
	defaults, err := b.GetDefaults(context.Background())
	require.NoError(t, err)
	assert.True(t, defaults[domain.KeyPushToTalk].Equal(domain.Bool(true)))
}

func TestBackend_Persist(t *testing.T) {
	b, repo, _ := newBackend(t, nil)

	require.NoError(t, b.Persist(context.Background(), domain.Snapshot{domain.KeyHistoryLimit: domain.Number(20)}))

	stored, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, stored[domain.KeyHistoryLimit].Equal(domain.Number(20)))
}

func TestBackend_Persist_RejectsInvalidValue(t *testing.T) {
	b, repo, _ := newBackend(t, nil)

	err := b.Persist(context.Background(), domain.Snapshot{domain.KeySoundTheme: domain.String("trumpet")})
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Contains(t, domainErr.Message, "sound_theme")
	assert.Zero(t, repo.Saves())
}

func TestBackend_Persist_RepositoryFailure(t *testing.T) {
	b, repo, _ := newBackend(t, nil)
	repo.FailSaves(errors.New("disk full"))

	err := b.Persist(context.Background(), domain.Snapshot{domain.KeyDebugMode: domain.Bool(true)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestBackend_SecretStore(t *testing.T) {
	secrets := memory.NewSecretStore()
	b, repo, _ := newBackend(t, nil, WithSecretStore(secrets))
	ctx := context.Background()

	keys := domain.StringMap(map[string]string{domain.ProviderOpenAI: "sk-secret", domain.ProviderGroq: ""})
	require.NoError(t, b.Persist(ctx, domain.Snapshot{domain.KeyPostProcessAPIKeys: keys}))

	got, err := secrets.Get(domain.ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", got)

	stored, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored.StringMap(domain.KeyPostProcessAPIKeys)[domain.ProviderOpenAI])

	snap, err := b.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", snap.StringMap(domain.KeyPostProcessAPIKeys)[domain.ProviderOpenAI])
}

func TestBackend_ListModels(t *testing.T) {
	b, _, factory := newBackend(t, domain.Snapshot{
		domain.KeyPostProcessCustomModels: domain.StringListMap(map[string][]string{
			domain.ProviderLMStudio: {"my-finetune", "qwen"},
		}),
	})
	factory.svc.models = []string{"qwen", "llama"}

	models, err := b.ListModels(context.Background(), domain.ProviderLMStudio)
	require.NoError(t, err)
	assert.Equal(t, []string{"qwen", "llama", "my-finetune"}, models)
	assert.Equal(t, []string{domain.ProviderLMStudio}, factory.created)
}

func TestBackend_ListModels_UnknownProvider(t *testing.T) {
	b, _, _ := newBackend(t, nil)

	_, err := b.ListModels(context.Background(), "nope")
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "Provider 'nope' not found", domainErr.Message)
}

func TestBackend_ListModels_SkipsRemoteWithoutKey(t *testing.T) {
	b, _, factory := newBackend(t, domain.Snapshot{
		domain.KeyPostProcessCustomModels: domain.StringListMap(map[string][]string{
			domain.ProviderOpenAI: {"gpt-custom"},
		}),
	})

	models, err := b.ListModels(context.Background(), domain.ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-custom"}, models)
	assert.Empty(t, factory.created)
}

func TestBackend_ListModels_FetchFailure(t *testing.T) {
	t.Run("falls back to custom models", func(t *testing.T) {
		b, _, factory := newBackend(t, domain.Snapshot{
			domain.KeyPostProcessCustomModels: domain.StringListMap(map[string][]string{
				domain.ProviderCustom: {"local-model"},
			}),
		})
		factory.svc.listErr = errors.New("connection refused")

		models, err := b.ListModels(context.Background(), domain.ProviderCustom)
		require.NoError(t, err)
		assert.Equal(t, []string{"local-model"}, models)
	})

	t.Run("fails without custom models", func(t *testing.T) {
		b, _, factory := newBackend(t, nil)
		factory.svc.listErr = errors.New("connection refused")

		_, err := b.ListModels(context.Background(), domain.ProviderCustom)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Contains(t, domainErr.Message, "connection refused")
	})

	t.Run("rate limited", func(t *testing.T) {
		b, _, factory := newBackend(t, nil)
		factory.svc.listErr = domain.ErrRateLimited

		_, err := b.ListModels(context.Background(), domain.ProviderCustom)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Contains(t, domainErr.Message, "Too many model requests")
	})
}

func TestBackend_RunTransform(t *testing.T) {
	b, _, factory := newBackend(t, transformReady("Clean up: ${output}"))
	factory.svc.output = "Hello\u200B world\uFEFF"

	out, err := b.RunTransform(context.Background(), "helo wrld")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
	assert.Equal(t, []string{"Clean up: helo wrld"}, factory.svc.prompts)
	assert.Equal(t, "qwen", factory.svc.modelName)
}

func TestBackend_RunTransform_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(domain.Snapshot)
		wantMsg string
	}{
		{
			name:    "disabled",
			mutate:  func(s domain.Snapshot) { s[domain.KeyPostProcessEnabled] = domain.Bool(false) },
			wantMsg: "Post-processing is disabled. Please enable it first.",
		},
		{
			name:    "unknown provider",
			mutate:  func(s domain.Snapshot) { s[domain.KeyPostProcessProviderID] = domain.String("gone") },
			wantMsg: "No post-processing provider is selected.",
		},
		{
			name: "no model",
			mutate: func(s domain.Snapshot) {
				s[domain.KeyPostProcessModels] = domain.StringMap(map[string]string{domain.ProviderLMStudio: "  "})
			},
			wantMsg: "No model configured for provider 'LM Studio'.",
		},
		{
			name:    "no prompt selected",
			mutate:  func(s domain.Snapshot) { s[domain.KeyPostProcessSelectedPromptID] = domain.OptionalString(nil) },
			wantMsg: "No prompt is selected.",
		},
		{
			name:    "selected prompt missing",
			mutate:  func(s domain.Snapshot) { s[domain.KeyPostProcessSelectedPromptID] = selected("ghost") },
			wantMsg: "Selected prompt 'ghost' not found.",
		},
		{
			name: "empty prompt",
			mutate: func(s domain.Snapshot) {
				s[domain.KeyPostProcessPrompts] = domain.Prompts([]domain.Prompt{{ID: "p1", Name: "Fix", Text: " "}})
			},
			wantMsg: "The selected prompt is empty.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := transformReady("${output}")
			tt.mutate(stored)
			b, _, factory := newBackend(t, stored)

			_, err := b.RunTransform(context.Background(), "input")
			var domainErr *domain.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.wantMsg, domainErr.Message)
			assert.Empty(t, factory.svc.prompts)
		})
	}
}

func TestBackend_RunTransform_LLMFailures(t *testing.T) {
	t.Run("empty response", func(t *testing.T) {
		b, _, _ := newBackend(t, transformReady("${output}"))
		_, err := b.RunTransform(context.Background(), "x")
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "LLM returned an empty response.", domainErr.Message)
	})

	t.Run("request failed", func(t *testing.T) {
		b, _, factory := newBackend(t, transformReady("${output}"))
		factory.svc.genErr = errors.New("status 500")
		_, err := b.RunTransform(context.Background(), "x")
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "LLM request failed: status 500", domainErr.Message)
	})
}

func TestBackend_AddPrompt(t *testing.T) {
	b, _, _ := newBackend(t, nil)
	ctx := context.Background()

	prompt, err := b.AddPrompt(ctx, "Terse", "Shorten: ${output}")
	require.NoError(t, err)
	assert.Equal(t, domain.Prompt{ID: "prompt_1", Name: "Terse", Text: "Shorten: ${output}"}, prompt)

	snap, err := b.GetSettings(ctx)
	require.NoError(t, err)
	prompts := snap.Prompts()
	assert.Equal(t, prompt, prompts[len(prompts)-1])
}

func TestBackend_UpdatePrompt(t *testing.T) {
	b, _, _ := newBackend(t, transformReady("old"))
	ctx := context.Background()

	require.NoError(t, b.UpdatePrompt(ctx, domain.Prompt{ID: "p1", Name: "Renamed", Text: "new"}))

	snap, err := b.GetSettings(ctx)
	require.NoError(t, err)
	assert.Contains(t, snap.Prompts(), domain.Prompt{ID: "p1", Name: "Renamed", Text: "new"})

	err = b.UpdatePrompt(ctx, domain.Prompt{ID: "missing"})
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "Prompt with id 'missing' not found", domainErr.Message)
}

func TestBackend_DeletePrompt(t *testing.T) {
	ctx := context.Background()

	t.Run("reselects first remaining prompt", func(t *testing.T) {
		b, _, _ := newBackend(t, transformReady("x"))
		snap, err := b.GetSettings(ctx)
		require.NoError(t, err)
		first := snap.Prompts()[0].ID
		require.Equal(t, "p1", first)

		require.NoError(t, b.DeletePrompt(ctx, "p1"))

		snap, err = b.GetSettings(ctx)
		require.NoError(t, err)
		id, ok := snap.SelectedPromptID()
		require.True(t, ok)
		assert.Equal(t, snap.Prompts()[0].ID, id)
	})

	t.Run("unknown id", func(t *testing.T) {
		b, _, _ := newBackend(t, nil)
		err := b.DeletePrompt(ctx, "ghost")
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "Prompt with id 'ghost' not found", domainErr.Message)
	})
}

func TestMergeModels(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, mergeModels([]string{"a", "", "b"}, []string{"b", "c", "a"}))
	assert.Empty(t, mergeModels(nil, nil))
}

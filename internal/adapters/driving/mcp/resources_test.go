package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/testutil"
)

func TestExtractProviderID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid provider models URI",
			uri:      "scribe://providers/openai/models",
			expected: "openai",
		},
		{
			name:     "invalid prefix",
			uri:      "file://providers/openai/models",
			expected: "",
		},
		{
			name:     "missing models suffix",
			uri:      "scribe://providers/openai",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractProviderID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleSettingsResource(t *testing.T) {
	stored := testutil.TransformReady()
	stored[domain.KeyPostProcessAPIKeys] = domain.StringMap(map[string]string{"openai": "sk-1234567890abcdef"})
	store, _ := testutil.NewSettingsStore(t, stored, nil)
	server, err := NewServer(&Ports{Settings: store})
	require.NoError(t, err)

	result, err := server.handleSettingsResource(context.Background(), makeReadResourceRequest("scribe://settings"))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)
	assert.NotContains(t, result.Contents[0].Text, "sk-1234567890abcdef")

	snap, err := domain.DecodeSnapshot([]byte(result.Contents[0].Text))
	require.NoError(t, err)
	assert.True(t, snap.Bool(domain.KeyPostProcessEnabled))
}

func TestServer_handleProvidersResource(t *testing.T) {
	server := newTestServer(t, nil)

	result, err := server.handleProvidersResource(context.Background(), makeReadResourceRequest("scribe://providers"))
	require.NoError(t, err)

	var infos []struct {
		ID       string `json:"id"`
		Model    string `json:"model"`
		Selected bool   `json:"selected"`
	}
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &infos))
	require.Len(t, infos, len(domain.DefaultProviders()))

	for _, info := range infos {
		if info.ID == domain.ProviderLMStudio {
			assert.True(t, info.Selected)
			assert.Equal(t, "qwen", info.Model)
		} else {
			assert.False(t, info.Selected, info.ID)
		}
	}
}

func TestServer_handlePromptsResource(t *testing.T) {
	server := newTestServer(t, nil)

	result, err := server.handlePromptsResource(context.Background(), makeReadResourceRequest("scribe://prompts"))
	require.NoError(t, err)

	var prompts []PromptOutput
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &prompts))
	assert.Contains(t, prompts, PromptOutput{ID: "p1", Name: "Fix", Text: "Fix: ${output}"})
}

func TestServer_handleModelsResource(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t, &testutil.StubLLM{Models: []string{"qwen"}})
	uri := "scribe://providers/lm_studio/models"

	t.Run("not cached yet", func(t *testing.T) {
		_, err := server.handleModelsResource(ctx, makeReadResourceRequest(uri))
		assert.Error(t, err)
	})

	t.Run("cached after refresh", func(t *testing.T) {
		_, err := server.store.RefreshModels(ctx, domain.ProviderLMStudio)
		require.NoError(t, err)

		result, err := server.handleModelsResource(ctx, makeReadResourceRequest(uri))
		require.NoError(t, err)
		assert.JSONEq(t, `["qwen"]`, result.Contents[0].Text)
	})

	t.Run("malformed URI", func(t *testing.T) {
		_, err := server.handleModelsResource(ctx, makeReadResourceRequest("scribe://providers/lm_studio"))
		assert.Error(t, err)
	})
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/scribe/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Scribe resources.
	uriScheme = "scribe://"

	mimeJSON = "application/json"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "settings",
		Name:        "settings",
		Description: "Current settings snapshot with API keys masked",
		MIMEType:    mimeJSON,
	}, s.handleSettingsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "providers",
		Name:        "providers",
		Description: "Post-processing providers and their selected models",
		MIMEType:    mimeJSON,
	}, s.handleProvidersResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "prompts",
		Name:        "prompts",
		Description: "Post-processing prompts",
		MIMEType:    mimeJSON,
	}, s.handlePromptsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "providers/{providerId}/models",
		Name:        "provider-models",
		Description: "Cached model list of a provider; use the refresh_models tool to fetch",
		MIMEType:    mimeJSON,
	}, s.handleModelsResource)
}

func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, s.store.Snapshot().Redacted())
}

func (s *Server) handleProvidersResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type providerInfo struct {
		ID               string `json:"id"`
		Label            string `json:"label"`
		BaseURL          string `json:"base_url"`
		AllowBaseURLEdit bool   `json:"allow_base_url_edit"`
		RequiresAPIKey   bool   `json:"requires_api_key"`
		HasAPIKey        bool   `json:"has_api_key"`
		Model            string `json:"model,omitempty"`
		Selected         bool   `json:"selected"`
	}

	snap := s.store.Snapshot()
	keys := snap.StringMap(domain.KeyPostProcessAPIKeys)
	models := snap.StringMap(domain.KeyPostProcessModels)
	selected := snap.Text(domain.KeyPostProcessProviderID)

	providers := snap.Providers()
	infos := make([]providerInfo, len(providers))
	for i, p := range providers {
		infos[i] = providerInfo{
			ID:               p.ID,
			Label:            p.Label,
			BaseURL:          p.BaseURL,
			AllowBaseURLEdit: p.AllowBaseURLEdit,
			RequiresAPIKey:   p.RequiresAPIKey,
			HasAPIKey:        keys[p.ID] != "",
			Model:            models[p.ID],
			Selected:         p.ID == selected,
		}
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handlePromptsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	prompts := s.store.Prompts()
	out := make([]PromptOutput, len(prompts))
	for i, p := range prompts {
		out[i] = PromptOutput{ID: p.ID, Name: p.Name, Text: p.Text}
	}
	return jsonResource(req.Params.URI, out)
}

func (s *Server) handleModelsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	providerID := extractProviderID(req.Params.URI)
	if providerID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	models, ok := s.store.GetModels(providerID)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResource(req.Params.URI, models)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		}},
	}, nil
}

// extractProviderID extracts the provider ID from a URI like scribe://providers/{providerId}/models.
func extractProviderID(uri string) string {
	const prefix = uriScheme + "providers/"
	const suffix = "/models"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}

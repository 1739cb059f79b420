package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driving"
)

// GetSettingInput is the input schema for the get_setting tool.
type GetSettingInput struct {
	Key string `json:"key" jsonschema:"the setting name, for example debug_mode"`
}

// SettingOutput describes one setting.
type SettingOutput struct {
	Key     string `json:"key"`
	Kind    string `json:"kind"`
	Value   any    `json:"value"`
	Pending bool   `json:"pending"`
}

// ListSettingsOutput is the output schema for the list_settings tool.
type ListSettingsOutput struct {
	Settings []SettingOutput `json:"settings"`
	Pending  []string        `json:"pending,omitempty"`
}

// UpdateSettingInput is the input schema for the update_setting tool.
type UpdateSettingInput struct {
	Key   string `json:"key" jsonschema:"the setting name"`
	Value string `json:"value" jsonschema:"the new value: true/false, a number, text, a comma separated list, or JSON for structured settings"`
}

// ResetSettingInput is the input schema for the reset_setting tool.
type ResetSettingInput struct {
	Key string `json:"key" jsonschema:"the setting name to restore to its default"`
}

// UpdateSettingOutput reports how a write was reconciled.
type UpdateSettingOutput struct {
	Setting    SettingOutput `json:"setting"`
	RolledBack bool          `json:"rolled_back"`
	Error      string        `json:"error,omitempty"`
}

// RefreshModelsInput is the input schema for the refresh_models tool.
type RefreshModelsInput struct {
	ProviderID string `json:"provider_id" jsonschema:"the post-processing provider id, for example openai"`
	Cached     bool   `json:"cached,omitempty" jsonschema:"return the cached list when one exists instead of fetching"`
}

// RefreshModelsOutput is the output schema for the refresh_models tool.
type RefreshModelsOutput struct {
	ProviderID string   `json:"provider_id"`
	Models     []string `json:"models"`
	Stale      bool     `json:"stale"`
	Cached     bool     `json:"cached"`
}

// RunTestInput is the input schema for the run_test tool.
type RunTestInput struct {
	Input string `json:"input" jsonschema:"the text to post-process with the selected prompt"`
}

// RunTestOutput is the output schema for the run_test tool.
type RunTestOutput struct {
	Status    string `json:"status"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// AddPromptInput is the input schema for the add_prompt tool.
type AddPromptInput struct {
	Name string `json:"name" jsonschema:"display name of the prompt"`
	Text string `json:"text" jsonschema:"prompt template; ${output} is replaced by the input text"`
}

// PromptOutput describes one prompt.
type PromptOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_setting",
		Description: "Read the current value of one setting",
	}, s.handleGetSetting)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_settings",
		Description: "List every setting with its current value. API keys are masked.",
	}, s.handleListSettings)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update_setting",
		Description: "Change a setting and wait until the change is saved or rolled back",
	}, s.handleUpdateSetting)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reset_setting",
		Description: "Restore a setting to its default value",
	}, s.handleResetSetting)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "refresh_models",
		Description: "Fetch the list of models offered by a post-processing provider",
	}, s.handleRefreshModels)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_test",
		Description: "Run the selected post-processing prompt against sample text",
	}, s.handleRunTest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_prompt",
		Description: "Create a post-processing prompt",
	}, s.handleAddPrompt)
}

func (s *Server) handleGetSetting(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetSettingInput,
) (*mcp.CallToolResult, SettingOutput, error) {
	key := domain.SettingKey(input.Key)
	out, err := s.describe(key)
	if err != nil {
		return nil, SettingOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) handleListSettings(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, ListSettingsOutput, error) {
	snap := s.store.Snapshot().Redacted()

	out := ListSettingsOutput{Settings: make([]SettingOutput, 0, len(snap))}
	for _, key := range snap.Keys() {
		setting, err := s.encode(key, snap[key])
		if err != nil {
			return nil, ListSettingsOutput{}, err
		}
		out.Settings = append(out.Settings, setting)
	}
	for _, key := range s.store.PendingKeys() {
		out.Pending = append(out.Pending, key.String())
	}
	return nil, out, nil
}

func (s *Server) handleUpdateSetting(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateSettingInput,
) (*mcp.CallToolResult, UpdateSettingOutput, error) {
	key := domain.SettingKey(input.Key)
	value, err := domain.ParseValue(key, input.Value)
	if err != nil {
		return nil, UpdateSettingOutput{}, err
	}
	return s.reconcile(ctx, key, s.store.UpdateSetting(ctx, key, value))
}

func (s *Server) handleResetSetting(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ResetSettingInput,
) (*mcp.CallToolResult, UpdateSettingOutput, error) {
	key := domain.SettingKey(input.Key)
	if _, ok := domain.KindOf(key); !ok {
		return nil, UpdateSettingOutput{}, fmt.Errorf("%w: %s", domain.ErrUnknownSetting, key)
	}
	return s.reconcile(ctx, key, s.store.ResetSetting(ctx, key))
}

// reconcile waits for a pending write and reports the settled value.
// Backend rejections are reported in the output rather than as tool errors
// so the caller sees the rolled back value.
func (s *Server) reconcile(
	ctx context.Context,
	key domain.SettingKey,
	pending driving.PendingUpdate,
) (*mcp.CallToolResult, UpdateSettingOutput, error) {
	waitErr := pending.Wait(ctx)
	if waitErr != nil && ctx.Err() != nil && errors.Is(waitErr, ctx.Err()) {
		return nil, UpdateSettingOutput{}, waitErr
	}

	setting, err := s.describe(key)
	if err != nil {
		return nil, UpdateSettingOutput{}, err
	}
	out := UpdateSettingOutput{Setting: setting, RolledBack: pending.RolledBack()}
	if waitErr != nil {
		out.Error = waitErr.Error()
	}
	return nil, out, nil
}

func (s *Server) handleRefreshModels(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RefreshModelsInput,
) (*mcp.CallToolResult, RefreshModelsOutput, error) {
	if input.Cached {
		if models, ok := s.store.GetModels(input.ProviderID); ok {
			return nil, RefreshModelsOutput{ProviderID: input.ProviderID, Models: models, Cached: true}, nil
		}
	}

	refresh, err := s.store.RefreshModels(ctx, input.ProviderID)
	if err != nil {
		return nil, RefreshModelsOutput{}, err
	}
	out := RefreshModelsOutput{ProviderID: input.ProviderID, Models: refresh.Models, Stale: refresh.Stale}
	if out.Models == nil {
		out.Models = []string{}
	}
	return nil, out, nil
}

func (s *Server) handleRunTest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunTestInput,
) (*mcp.CallToolResult, RunTestOutput, error) {
	// The run outlives ctx on its own; cancellation is handled below.
	token, err := s.store.BeginTestRun(context.WithoutCancel(ctx), input.Input)
	if err != nil {
		return nil, RunTestOutput{}, err
	}

	state, err := s.store.AwaitTestRun(ctx, token)
	if err != nil {
		// The caller went away. Drop its run so it does not linger as visible
		// state, but leave a newer run from another client alone.
		s.store.CancelTestRunToken(token)
		return nil, RunTestOutput{}, err
	}

	out := RunTestOutput{
		Status:    string(state.Status),
		Output:    state.Output,
		ElapsedMS: state.Elapsed.Milliseconds(),
	}
	if state.Token != token {
		out.Status = string(domain.TestRunIdle)
		out.Error = "cancelled or superseded by a newer run"
		return nil, out, nil
	}
	if state.Err != nil {
		out.Error = state.Err.Error()
	}
	return nil, out, nil
}

func (s *Server) handleAddPrompt(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddPromptInput,
) (*mcp.CallToolResult, PromptOutput, error) {
	prompt, err := s.store.AddPrompt(ctx, input.Name, input.Text)
	if err != nil {
		return nil, PromptOutput{}, err
	}
	return nil, PromptOutput{ID: prompt.ID, Name: prompt.Name, Text: prompt.Text}, nil
}

// describe returns the current, redacted value of key.
func (s *Server) describe(key domain.SettingKey) (SettingOutput, error) {
	if _, ok := domain.KindOf(key); !ok {
		return SettingOutput{}, fmt.Errorf("%w: %s", domain.ErrUnknownSetting, key)
	}
	value, ok := s.store.GetSetting(key)
	if !ok {
		return SettingOutput{}, fmt.Errorf("%w: %s has no value", domain.ErrNotFound, key)
	}
	redacted := domain.Snapshot{key: value}.Redacted()
	return s.encode(key, redacted[key])
}

func (s *Server) encode(key domain.SettingKey, value domain.Value) (SettingOutput, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return SettingOutput{}, fmt.Errorf("encoding %s: %w", key, err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return SettingOutput{}, fmt.Errorf("encoding %s: %w", key, err)
	}
	return SettingOutput{
		Key:     key.String(),
		Kind:    value.Kind().String(),
		Value:   decoded,
		Pending: s.store.IsUpdating(key),
	}, nil
}

package driving

import (
	"context"

	"github.com/custodia-labs/scribe/internal/core/domain"
)

// PendingUpdate tracks one optimistic write until the backend confirms or
// rejects it.
type PendingUpdate interface {
	// Key returns the setting being written.
	Key() domain.SettingKey

	// Done is closed once the update has been reconciled.
	Done() <-chan struct{}

	// Wait blocks until reconciliation or ctx ends and returns the outcome.
	Wait(ctx context.Context) error

	// Err returns the outcome, or nil while still pending.
	Err() error

	// RolledBack reports whether the optimistic value was reverted.
	RolledBack() bool
}

// SettingsStore is the settings surface used by every UI collaborator.
// Reads never block on the backend; writes are applied locally first and
// reconciled asynchronously.
type SettingsStore interface {
	// Initialize loads the snapshot and defaults from the backend.
	// Failure is reported as *domain.InitError.
	Initialize(ctx context.Context) error

	// Dispose cancels in-flight operations and waits for outstanding
	// persists until ctx ends.
	Dispose(ctx context.Context) error

	// GetSetting returns the current value of key.
	GetSetting(key domain.SettingKey) (domain.Value, bool)

	// Snapshot returns a copy of the current snapshot.
	Snapshot() domain.Snapshot

	// Defaults returns a copy of the default snapshot.
	Defaults() domain.Snapshot

	// UpdateSetting writes value optimistically and persists it.
	UpdateSetting(ctx context.Context, key domain.SettingKey, value domain.Value) PendingUpdate

	// ResetSetting writes the default value of key through UpdateSetting.
	ResetSetting(ctx context.Context, key domain.SettingKey) PendingUpdate

	// IsUpdating reports whether a persist for key is outstanding.
	IsUpdating(key domain.SettingKey) bool

	// PendingKeys lists keys with outstanding persists.
	PendingKeys() []domain.SettingKey

	// RefreshSettings re-fetches and replaces the snapshot.
	RefreshSettings(ctx context.Context) error

	// RefreshModels fetches the model list for a provider. A superseded
	// refresh returns a result with Stale set and a nil error.
	RefreshModels(ctx context.Context, providerID string) (*domain.ModelRefresh, error)

	// GetModels returns the cached model list for a provider.
	GetModels(providerID string) ([]string, bool)

	// InvalidateModels drops the cached list and supersedes in-flight refreshes.
	InvalidateModels(providerID string)

	// SetProviderAPIKey stores the API key for a provider.
	SetProviderAPIKey(ctx context.Context, providerID, apiKey string) (PendingUpdate, error)

	// SetProviderBaseURL changes the base URL of an editable provider.
	SetProviderBaseURL(ctx context.Context, providerID, baseURL string) (PendingUpdate, error)

	// SetProviderModel selects the model for a provider.
	SetProviderModel(ctx context.Context, providerID, model string) (PendingUpdate, error)

	// BeginTestRun starts a transformation test run, superseding any
	// run in flight. The run continues in the background.
	BeginTestRun(ctx context.Context, input string) (domain.Token, error)

	// CancelTestRun resets the visible test run state to idle and
	// discards the result of the run in flight.
	CancelTestRun()

	// CancelTestRunToken cancels the run only while token is the run in
	// flight. Reports whether it did.
	CancelTestRunToken(token domain.Token) bool

	// TestRunState returns the visible test run state.
	TestRunState() domain.TestRunState

	// AwaitTestRun blocks until the run identified by token finishes or is
	// superseded, and returns the visible state at that point.
	AwaitTestRun(ctx context.Context, token domain.Token) (domain.TestRunState, error)

	// AddPrompt creates a post-processing prompt.
	AddPrompt(ctx context.Context, name, text string) (domain.Prompt, error)

	// UpdatePrompt edits an existing prompt.
	UpdatePrompt(ctx context.Context, prompt domain.Prompt) error

	// DeletePrompt removes a prompt.
	DeletePrompt(ctx context.Context, id string) error

	// Prompts returns the configured prompts.
	Prompts() []domain.Prompt

	// PromptCount returns the number of configured prompts.
	PromptCount() int
}

package driven

import (
	"context"

	"github.com/custodia-labs/scribe/internal/core/domain"
)

// SettingsBackend is the authoritative settings boundary. Every call is an
// asynchronous request/response exchange that may be slow or fail.
//
// A rejection the user should see is returned as *domain.DomainError. Any
// other error is treated by the core as a transport failure.
type SettingsBackend interface {
	// GetSettings returns the full authoritative snapshot.
	GetSettings(ctx context.Context) (domain.Snapshot, error)

	// GetDefaults returns the default value of every known key.
	GetDefaults(ctx context.Context) (domain.Snapshot, error)

	// Persist durably writes the given keys.
	Persist(ctx context.Context, partial domain.Snapshot) error

	// ListModels returns the model identifiers available from a provider.
	ListModels(ctx context.Context, providerID string) ([]string, error)

	// RunTransform runs the selected post-processing prompt over input.
	RunTransform(ctx context.Context, input string) (string, error)

	// AddPrompt creates a prompt and returns it with its assigned id.
	AddPrompt(ctx context.Context, name, text string) (domain.Prompt, error)

	// UpdatePrompt replaces the name and text of an existing prompt.
	UpdatePrompt(ctx context.Context, prompt domain.Prompt) error

	// DeletePrompt removes a prompt.
	DeletePrompt(ctx context.Context, id string) error
}

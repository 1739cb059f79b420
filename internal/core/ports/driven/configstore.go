package driven

import (
	"context"

	"github.com/custodia-labs/scribe/internal/core/domain"
)

// SettingsRepository persists the settings snapshot on behalf of a backend.
// Implementations handle the storage format (e.g., TOML files, SQLite).
type SettingsRepository interface {
	// Load reads the stored snapshot. A repository with nothing stored
	// returns an empty snapshot and no error.
	Load(ctx context.Context) (domain.Snapshot, error)

	// Save merges the given keys into storage.
	Save(ctx context.Context, partial domain.Snapshot) error

	// Path returns the storage location, for display and file watching.
	Path() string

	// Close releases resources.
	Close() error
}

package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
)

// FileName is the settings file name inside the config directory.
const FileName = "settings.toml"

// Ensure SettingsRepository implements the interface.
var _ driven.SettingsRepository = (*SettingsRepository)(nil)

// SettingsRepository is a file-based implementation of
// driven.SettingsRepository using TOML. Unset optional values are omitted
// from the file.
type SettingsRepository struct {
	mu       sync.Mutex
	filePath string
}

// NewSettingsRepository creates a TOML-backed repository.
// If configDir is empty, defaults to ~/.scribe/settings.toml.
func NewSettingsRepository(configDir string) (*SettingsRepository, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".scribe")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	return &SettingsRepository{filePath: filepath.Join(configDir, FileName)}, nil
}

// Load reads the settings file. A missing file yields an empty snapshot.
func (r *SettingsRepository) Load(_ context.Context) (domain.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *SettingsRepository) load() (domain.Snapshot, error) {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Snapshot{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", r.filePath, err)
	}

	// TOML and the snapshot schema meet through JSON, which already
	// knows how to decode every value kind.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return domain.DecodeSnapshot(encoded)
}

// Save merges partial into the file.
func (r *SettingsRepository) Save(_ context.Context, partial domain.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load()
	if err != nil {
		return err
	}
	for k, v := range partial {
		current[k] = v
	}

	encoded, err := json.Marshal(current)
	if err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(encoded, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if v == nil {
			delete(raw, k)
		}
	}

	data, err := toml.Marshal(raw)
	if err != nil {
		return err
	}

	// Write with restricted permissions; the file may hold API keys.
	return os.WriteFile(r.filePath, data, 0600)
}

// Path returns the settings file path.
func (r *SettingsRepository) Path() string {
	return r.filePath
}

// Close is a no-op for files.
func (r *SettingsRepository) Close() error {
	return nil
}

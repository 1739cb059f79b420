// Package memory provides in-memory implementations of driven ports for
// tests and ephemeral sessions.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
)

// Ensure SettingsStore implements the interface.
var _ driven.SettingsRepository = (*SettingsStore)(nil)

// SettingsStore is an in-memory implementation of driven.SettingsRepository.
type SettingsStore struct {
	mu      sync.RWMutex
	values  domain.Snapshot
	saveErr error
	saves   int
}

// NewSettingsStore creates a new in-memory settings store seeded with
// initial, which may be nil.
func NewSettingsStore(initial domain.Snapshot) *SettingsStore {
	return &SettingsStore{values: initial.Clone()}
}

// Load returns a copy of the stored snapshot.
func (s *SettingsStore) Load(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Clone(), nil
}

// Save merges partial into the stored snapshot.
func (s *SettingsStore) Save(ctx context.Context, partial domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	for k, v := range partial {
		s.values[k] = v
	}
	s.saves++
	return nil
}

// FailSaves makes every subsequent Save return err. Pass nil to recover.
func (s *SettingsStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// Saves returns the number of successful saves.
func (s *SettingsStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Path identifies the store in logs.
func (s *SettingsStore) Path() string {
	return ":memory:"
}

// Close is a no-op.
func (s *SettingsStore) Close() error {
	return nil
}

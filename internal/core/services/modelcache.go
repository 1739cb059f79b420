package services

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
	"github.com/custodia-labs/scribe/internal/logger"
)

// ModelCache holds the last accepted model list per provider for the
// current session.
type ModelCache struct {
	backend driven.SettingsBackend
	guard   *OperationGuard
	log     logger.Component

	mu      sync.RWMutex
	entries map[string]domain.ModelCacheEntry
}

// NewModelCache creates an empty cache. Refreshes run under the
// model-refresh class of guard.
func NewModelCache(backend driven.SettingsBackend, guard *OperationGuard) *ModelCache {
	return &ModelCache{
		backend: backend,
		guard:   guard,
		log:     logger.Component("models"),
		entries: make(map[string]domain.ModelCacheEntry),
	}
}

// GetModels returns the cached models for providerID.
func (c *ModelCache) GetModels(providerID string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[providerID]
	if !ok {
		return nil, false
	}
	return slices.Clone(entry.Models), true
}

// Entry returns the full cache entry for providerID.
func (c *ModelCache) Entry(providerID string) (domain.ModelCacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[providerID]
	entry.Models = slices.Clone(entry.Models)
	return entry, ok
}

// Refresh fetches the model list for providerID. Only the most recently
// issued refresh may change the cache; an older one resolves as stale.
func (c *ModelCache) Refresh(ctx context.Context, providerID string) (*domain.ModelRefresh, error) {
	op := c.guard.BeginFor(domain.OpModelRefresh, providerID)
	c.log.Debug("refresh %s (token %d)", providerID, op.Token())

	models, err := c.backend.ListModels(ctx, providerID)
	if err != nil {
		if !op.IsCurrent() {
			c.log.Debug("discarding stale refresh error for %s (token %d)", providerID, op.Token())
			return &domain.ModelRefresh{ProviderID: providerID, Stale: true}, nil
		}
		return nil, domain.AsBoundaryError("list_models", err)
	}

	models = slices.Clone(models)
	accepted := op.Commit(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.entries[providerID] = domain.ModelCacheEntry{
			ProviderID:     providerID,
			Models:         models,
			FetchedAtToken: op.Token(),
		}
	})
	if !accepted {
		c.log.Debug("discarding stale refresh for %s (token %d)", providerID, op.Token())
		return &domain.ModelRefresh{ProviderID: providerID, Stale: true}, nil
	}

	return &domain.ModelRefresh{ProviderID: providerID, Models: slices.Clone(models)}, nil
}

// Invalidate drops the entry for providerID. A refresh for providerID
// still in flight is superseded so a response computed against the old
// configuration is discarded. Refreshes for other providers are untouched.
func (c *ModelCache) Invalidate(providerID string) {
	// Commit writes entries under the guard lock, so once the refresh is
	// superseded nothing stale can land after the delete.
	if c.guard.InvalidateFor(domain.OpModelRefresh, providerID) {
		c.log.Debug("superseded refresh in flight for %s", providerID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, providerID)
}

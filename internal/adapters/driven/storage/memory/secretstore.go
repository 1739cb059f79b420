package memory

import (
	"sync"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
)

// Ensure SecretStore implements the interface.
var _ driven.SecretStore = (*SecretStore)(nil)

// SecretStore is an in-memory implementation of driven.SecretStore.
type SecretStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewSecretStore creates an empty secret store.
func NewSecretStore() *SecretStore {
	return &SecretStore{secrets: make(map[string]string)}
}

// Get returns the secret for providerID.
func (s *SecretStore) Get(providerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	secret, ok := s.secrets[providerID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return secret, nil
}

// Set stores secret for providerID. An empty secret deletes it.
func (s *SecretStore) Set(providerID, secret string) error {
	if secret == "" {
		return s.Delete(providerID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[providerID] = secret
	return nil
}

// Delete removes the secret for providerID.
func (s *SecretStore) Delete(providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, providerID)
	return nil
}

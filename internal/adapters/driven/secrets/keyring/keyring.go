// Package keyring stores provider API keys in the operating system keyring.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driven"
)

// DefaultService is the keyring service name for Scribe secrets.
const DefaultService = "scribe"

// Ensure Store implements the interface.
var _ driven.SecretStore = (*Store)(nil)

// Store keeps one keyring entry per provider under a shared service name.
type Store struct {
	service string
}

// NewStore creates a keyring-backed secret store. An empty service uses
// DefaultService.
func NewStore(service string) *Store {
	if service == "" {
		service = DefaultService
	}
	return &Store{service: service}
}

func (s *Store) user(providerID string) string {
	return "provider:" + providerID
}

// Get returns the API key for providerID.
func (s *Store) Get(providerID string) (string, error) {
	secret, err := keyring.Get(s.service, s.user(providerID))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading keyring: %w", err)
	}
	return secret, nil
}

// Set stores the API key for providerID. An empty key deletes the entry.
func (s *Store) Set(providerID, secret string) error {
	if secret == "" {
		return s.Delete(providerID)
	}
	if err := keyring.Set(s.service, s.user(providerID), secret); err != nil {
		return fmt.Errorf("writing keyring: %w", err)
	}
	return nil
}

// Delete removes the API key for providerID.
func (s *Store) Delete(providerID string) error {
	err := keyring.Delete(s.service, s.user(providerID))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting from keyring: %w", err)
	}
	return nil
}

// Available reports whether the OS keyring can be used, by probing a
// throwaway entry.
func Available(service string) bool {
	if service == "" {
		service = DefaultService
	}
	const probe = "availability-probe"
	if err := keyring.Set(service, probe, "ok"); err != nil {
		return false
	}
	_ = keyring.Delete(service, probe)
	return true
}

package driven

// SecretStore keeps provider API keys outside the settings file.
type SecretStore interface {
	// Get returns the secret for a provider.
	// Returns domain.ErrNotFound if none is stored.
	Get(providerID string) (string, error)

	// Set stores the secret for a provider. An empty secret deletes it.
	Set(providerID, secret string) error

	// Delete removes the secret for a provider. Deleting a missing
	// secret is not an error.
	Delete(providerID string) error
}

package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/custodia-labs/scribe/internal/core/domain"
)

func TestStore(t *testing.T) {
	keyring.MockInit()
	store := NewStore("")

	_, err := store.Get("openai")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Set("openai", "sk-live"))
	secret, err := store.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-live", secret)

	require.NoError(t, store.Set("openai", ""))
	_, err = store.Get("openai")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, store.Delete("groq"))
}

func TestStore_ServicesAreIsolated(t *testing.T) {
	keyring.MockInit()
	a := NewStore("scribe-a")
	b := NewStore("scribe-b")

	require.NoError(t, a.Set("groq", "gsk-a"))
	_, err := b.Get("groq")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAvailable_WithMock(t *testing.T) {
	keyring.MockInit()
	assert.True(t, Available(""))
}

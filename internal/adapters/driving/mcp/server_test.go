package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scribe/internal/testutil"
)

func newTestServer(t *testing.T, llm *testutil.StubLLM) *Server {
	t.Helper()
	store, _ := testutil.NewSettingsStore(t, testutil.TransformReady(), llm)
	server, err := NewServer(&Ports{Settings: store})
	require.NoError(t, err)
	return server
}

func TestNewServer(t *testing.T) {
	t.Run("nil settings store returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSettingsStore)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server := newTestServer(t, nil)
		assert.NotNil(t, server)
		assert.NotNil(t, server.Handler())
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil ports", func(t *testing.T) {
		var ports *Ports
		assert.ErrorIs(t, ports.Validate(), ErrMissingSettingsStore)
	})

	t.Run("missing store", func(t *testing.T) {
		assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingSettingsStore)
	})
}

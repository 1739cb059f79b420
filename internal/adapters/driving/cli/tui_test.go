package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTUICommand_Exists(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"tui"})

	require.NoError(t, err)
	assert.Equal(t, "tui", cmd.Name())
	assert.Equal(t, "Launch the interactive terminal UI", cmd.Short)
}

func TestTUICommand_Help(t *testing.T) {
	stdout, _, err := execute(t, "", "tui", "--help")

	require.NoError(t, err)
	assert.Contains(t, stdout, "interactive terminal user interface")
	assert.Contains(t, stdout, "Controls:")
}

func TestTUICommand_NoStore(t *testing.T) {
	useRuntime(t, nil)
	clearStore(t)

	_, _, err := execute(t, "", "tui")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings store not configured")
}

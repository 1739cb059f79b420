package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg := LoadFrom(dir)

	assert.Equal(t, dir, cfg.DataDir())
	assert.Equal(t, DriverTOML, cfg.StorageDriver())
	assert.True(t, cfg.UseKeyring())
	rate, burst := cfg.ModelRate()
	assert.InDelta(t, DefaultRatePerSecond, rate, 0.0001)
	assert.Equal(t, DefaultRateBurst, burst)
	assert.Equal(t, DefaultTickInterval, cfg.TickInterval())
	assert.Equal(t, DefaultLLMTimeout, cfg.LLMTimeout())
	assert.True(t, cfg.WatchEnabled())
	assert.False(t, cfg.Verbose())
	assert.False(t, cfg.TelemetryEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFrom_File(t *testing.T) {
	dir := t.TempDir()
	content := "storage:\n  driver: sqlite\ntestrun:\n  tick_interval: 250ms\nverbose: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scribe.yaml"), []byte(content), 0o600))

	cfg := LoadFrom(dir)

	assert.Equal(t, DriverSQLite, cfg.StorageDriver())
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval())
	assert.True(t, cfg.Verbose())
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scribe.yaml"), []byte("storage:\n  driver: sqlite\n"), 0o600))
	t.Setenv("SCRIBE_STORAGE_DRIVER", "memory")
	t.Setenv("SCRIBE_LLM_TIMEOUT", "3s")
	t.Setenv("SCRIBE_SECRETS_KEYRING", "false")

	cfg := LoadFrom(dir)

	assert.Equal(t, DriverMemory, cfg.StorageDriver())
	assert.Equal(t, 3*time.Second, cfg.LLMTimeout())
	assert.False(t, cfg.UseKeyring())
}

func TestConfig_Set(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	cfg := LoadFrom(dir)

	require.NoError(t, cfg.Set("storage.driver", DriverSQLite))
	assert.FileExists(t, cfg.File())

	reloaded := LoadFrom(dir)
	assert.Equal(t, DriverSQLite, reloaded.StorageDriver())
}

func TestConfig_Set_NoDir(t *testing.T) {
	cfg := LoadFrom("")
	assert.Error(t, cfg.Set("verbose", true))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"SCRIBE_STORAGE_DRIVER": "postgres"}},
		{name: "zero tick", env: map[string]string{"SCRIBE_TESTRUN_TICK_INTERVAL": "0s"}},
		{name: "zero rate", env: map[string]string{"SCRIBE_MODELS_RATE_PER_SECOND": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Error(t, LoadFrom(t.TempDir()).Validate())
		})
	}
}

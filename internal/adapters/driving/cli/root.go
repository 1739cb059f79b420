// Package cli provides the cobra command tree for Scribe.
package cli

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driving"
	"github.com/custodia-labs/scribe/internal/logger"
)

// ProviderValidator checks that a provider is reachable with apiKey.
type ProviderValidator func(ctx context.Context, provider domain.ProviderOption, apiKey string) error

// Runtime holds the process-level collaborators wired by main.
type Runtime struct {
	// OpenStore returns an initialized settings store. It is called at
	// most once, on the first command that needs settings.
	OpenStore func(ctx context.Context) (driving.SettingsStore, error)

	// Validator verifies provider credentials. Optional.
	Validator ProviderValidator

	// Watch reloads settings on external changes until ctx ends. Optional;
	// long-running commands start it in the background.
	Watch func(ctx context.Context, store driving.SettingsStore) error
}

var (
	// version is set by main from build-time ldflags.
	version = "dev"

	verbose bool

	wiring *Runtime

	// settingsStore is the opened store, set directly by tests.
	settingsStore driving.SettingsStore
	storeMu       sync.Mutex
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Manage transcription settings and post-processing",
	Long: `Scribe manages transcription settings and the LLM post-processing
pipeline: providers, API keys, models, prompts and test runs.

Changes are applied immediately and saved in the background. A change the
backend rejects is reverted and reported.

Get started:
  scribe settings show           Show current settings
  scribe provider api-key openai Store an API key
  scribe models refresh openai   Fetch available models
  scribe test-run "some text"    Try the selected prompt
  scribe tui                     Interactive settings`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetRuntime sets the collaborators used by commands.
func SetRuntime(rt *Runtime) {
	storeMu.Lock()
	defer storeMu.Unlock()
	wiring = rt
	settingsStore = nil
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// requireStore returns the settings store, opening it on first use.
func requireStore(ctx context.Context) (driving.SettingsStore, error) {
	storeMu.Lock()
	defer storeMu.Unlock()

	if settingsStore != nil {
		return settingsStore, nil
	}
	if wiring == nil || wiring.OpenStore == nil {
		return nil, errors.New("settings store not configured")
	}

	store, err := wiring.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	settingsStore = store
	return store, nil
}

// startWatch runs the settings watcher in the background until ctx ends.
func startWatch(ctx context.Context, store driving.SettingsStore) {
	if wiring == nil || wiring.Watch == nil {
		return
	}
	go func() {
		if err := wiring.Watch(ctx, store); err != nil {
			logger.Warn("settings watcher stopped: %v", err)
		}
	}()
}

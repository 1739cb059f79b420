package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/scribe/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/services"
	"github.com/custodia-labs/scribe/internal/testutil"
)

// useStore installs an initialized store for the duration of the test.
func useStore(
	t *testing.T,
	stored domain.Snapshot,
	llm *testutil.StubLLM,
) (*services.SettingsStore, *memory.SettingsStore) {
	t.Helper()
	store, repo := testutil.NewSettingsStore(t, stored, llm)

	storeMu.Lock()
	prev := settingsStore
	settingsStore = store
	storeMu.Unlock()

	t.Cleanup(func() {
		storeMu.Lock()
		settingsStore = prev
		storeMu.Unlock()
	})
	return store, repo
}

// useRuntime installs rt without touching the opened store.
func useRuntime(t *testing.T, rt *Runtime) {
	t.Helper()
	storeMu.Lock()
	prev := wiring
	wiring = rt
	storeMu.Unlock()

	t.Cleanup(func() {
		storeMu.Lock()
		wiring = prev
		storeMu.Unlock()
	})
}

// execute runs the root command with args and stdin and returns what was
// written to stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag of cmd and its children to its default,
// since cobra keeps flag state between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// clearStore removes the opened store for the duration of the test.
func clearStore(t *testing.T) {
	t.Helper()
	storeMu.Lock()
	prev := settingsStore
	settingsStore = nil
	storeMu.Unlock()

	t.Cleanup(func() {
		storeMu.Lock()
		settingsStore = prev
		storeMu.Unlock()
	})
}

package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driving"
)

var settingsJSON bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change settings.

Values are written optimistically: the new value is visible at once and
saved in the background. If saving fails the previous value is restored.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value of one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a setting and wait until it is saved.

Booleans take true or false, numbers take decimal notation and lists take
comma separated items. Structured settings take JSON.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset <key>",
	Short: "Restore a setting to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsReset,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List setting names and their value kinds",
	RunE:  runSettingsKeys,
}

func init() {
	settingsCmd.PersistentFlags().BoolVar(&settingsJSON, "json", false, "output as JSON")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	snap := store.Snapshot().Redacted()
	if settingsJSON {
		return writeJSON(cmd, snap)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	for _, key := range snap.Keys() {
		marker := ""
		if store.IsUpdating(key) {
			marker = " (saving)"
		}
		cmd.Printf("  %-32s %s%s\n", key, snap[key], marker)
	}
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	key, err := settingKey(args[0])
	if err != nil {
		return err
	}
	value, ok := store.GetSetting(key)
	if !ok {
		return fmt.Errorf("%s has no value", key)
	}
	value = domain.Snapshot{key: value}.Redacted()[key]

	if settingsJSON {
		return writeJSON(cmd, value)
	}
	cmd.Println(value.String())
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	key, err := settingKey(args[0])
	if err != nil {
		return err
	}
	value, err := domain.ParseValue(key, args[1])
	if err != nil {
		return err
	}

	if err := awaitUpdate(cmd, store.UpdateSetting(cmd.Context(), key, value)); err != nil {
		return err
	}
	current, _ := store.GetSetting(key)
	cmd.Printf("%s = %s\n", key, current)
	return nil
}

func runSettingsReset(cmd *cobra.Command, args []string) error {
	store, err := requireStore(cmd.Context())
	if err != nil {
		return err
	}

	key, err := settingKey(args[0])
	if err != nil {
		return err
	}
	if err := awaitUpdate(cmd, store.ResetSetting(cmd.Context(), key)); err != nil {
		return err
	}
	current, _ := store.GetSetting(key)
	cmd.Printf("%s reset to %s\n", key, current)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	for _, key := range domain.AllSettingKeys() {
		kind, _ := domain.KindOf(key)
		cmd.Printf("  %-32s %s\n", key, kind)
	}
	return nil
}

// Helper functions.

func settingKey(name string) (domain.SettingKey, error) {
	key := domain.SettingKey(strings.TrimSpace(name))
	if _, ok := domain.KindOf(key); !ok {
		return "", fmt.Errorf("%w: %s (run 'scribe settings keys' to list them)", domain.ErrUnknownSetting, name)
	}
	return key, nil
}

// awaitUpdate blocks until pending is reconciled and describes a rollback.
func awaitUpdate(cmd *cobra.Command, pending driving.PendingUpdate) error {
	err := pending.Wait(cmd.Context())
	if err == nil {
		return nil
	}
	if pending.RolledBack() {
		return fmt.Errorf("%s was not saved and has been reverted: %w", pending.Key(), err)
	}
	return fmt.Errorf("saving %s: %w", pending.Key(), err)
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret(cmd *cobra.Command) string {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	return readLine(bufio.NewReader(cmd.InOrStdin()))
}

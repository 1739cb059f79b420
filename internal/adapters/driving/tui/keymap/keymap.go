// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	// Quit exits the application.
	Quit key.Binding

	// Help shows the help view.
	Help key.Binding

	// Back returns to the previous view or abandons an edit.
	Back key.Binding

	// Up navigates up in a list.
	Up key.Binding

	// Down navigates down in a list.
	Down key.Binding

	// Select confirms a selection or submits an edit.
	Select key.Binding

	// Reset restores the highlighted setting to its default.
	Reset key.Binding

	// Reload re-fetches settings from the backend.
	Reload key.Binding

	// APIKey edits the API key of the highlighted provider.
	APIKey key.Binding

	// BaseURL edits the base URL of the highlighted provider.
	BaseURL key.Binding

	// Models opens the model list of the highlighted provider.
	Models key.Binding

	// Refresh fetches the model list again.
	Refresh key.Binding

	// NextPrompt selects the next post-processing prompt.
	NextPrompt key.Binding

	// Cancel stops the running test.
	Cancel key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reload"),
		),
		APIKey: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "api key"),
		),
		BaseURL: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "base url"),
		),
		Models: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "models"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		NextPrompt: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next prompt"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "cancel run"),
		),
	}
}

// ShortHelp returns a short list of keybindings for the status bar.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Help}
}

// SettingsHelp returns keybindings for the settings view.
func (k *KeyMap) SettingsHelp() []key.Binding {
	return []key.Binding{k.Select, k.Reset, k.Reload, k.Back}
}

// ProvidersHelp returns keybindings for the providers view.
func (k *KeyMap) ProvidersHelp() []key.Binding {
	return []key.Binding{k.Select, k.APIKey, k.BaseURL, k.Models, k.Back}
}

// TestRunHelp returns keybindings for the test run view.
func (k *KeyMap) TestRunHelp() []key.Binding {
	return []key.Binding{k.Select, k.NextPrompt, k.Cancel, k.Back}
}

// FullHelp returns the full list of keybindings for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back},
		{k.Reset, k.Reload},
		{k.APIKey, k.BaseURL, k.Models, k.Refresh},
		{k.NextPrompt, k.Cancel},
		{k.Help, k.Quit},
	}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}

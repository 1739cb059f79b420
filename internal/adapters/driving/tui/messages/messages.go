// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/scribe/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewSettings lists every setting.
	ViewSettings
	// ViewProviders configures post-processing providers and models.
	ViewProviders
	// ViewTestRun runs the selected prompt against sample text.
	ViewTestRun
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSettings:
		return "settings"
	case ViewProviders:
		return "providers"
	case ViewTestRun:
		return "test-run"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals an error that should be displayed.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// SettingSaved reports how an optimistic write was reconciled.
type SettingSaved struct {
	Key        domain.SettingKey
	Err        error
	RolledBack bool
}

// SettingsReloaded signals the snapshot was re-fetched from the backend.
type SettingsReloaded struct {
	Err error
}

// ModelsLoaded carries the outcome of a model list refresh.
type ModelsLoaded struct {
	ProviderID string
	Models     []string
	Stale      bool
	Err        error
}

// TestRunTick drives the elapsed time display of a running test.
type TestRunTick struct {
	Token domain.Token
}

// TestRunFinished carries the visible state once a test run settles.
type TestRunFinished struct {
	Token domain.Token
	State domain.TestRunState
	Err   error
}

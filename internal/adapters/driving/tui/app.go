package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/views/providers"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/views/settings"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/views/testrun"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	// statusBar shows save progress, the running test and key hints.
	statusBar *status.Bar

	menuView      *menu.View
	settingsView  *settings.View
	providersView *providers.View
	testRunView   *testrun.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keymap:        km,
		statusBar:     status.NewBar(s, km),
		menuView:      menu.NewView(s, km, ports.Settings),
		settingsView:  settings.NewView(s, km, ports.Settings),
		providersView: providers.NewView(s, km, ports.Settings),
		testRunView:   testrun.NewView(s, km, ports.Settings),
		currentView:   messages.ViewMenu,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.settingsView.SetContext(ctx)
	a.providersView.SetContext(ctx)
	a.testRunView.SetContext(ctx)
	return a
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("scribe - Settings"),
	)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.update(msg)
	a.syncStatus()
	return a, cmd
}

//nolint:gocyclo // central message router
func (a *App) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.String() == "ctrl+c" {
			return tea.Quit
		}
		return a.handleKeyMsg(msg)

	case messages.ViewChanged:
		return a.switchView(msg.View)

	case messages.SettingSaved:
		// Only the active view reports the outcome.
		return a.forward(msg)

	case messages.SettingsReloaded:
		a.settingsView, cmd = a.settingsView.Update(msg)
		return cmd

	case messages.ModelsLoaded:
		a.providersView, cmd = a.providersView.Update(msg)
		return cmd

	case messages.TestRunTick, messages.TestRunFinished:
		a.testRunView, cmd = a.testRunView.Update(msg)
		return cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return nil

	case messages.Quit:
		return tea.Quit
	}

	return a.forward(msg)
}

func (a *App) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd

	switch a.currentView {
	case messages.ViewMenu:
		if keymap.Matches(msg.String(), a.keymap.Help) {
			return a.switchView(messages.ViewHelp)
		}
		a.menuView, cmd = a.menuView.Update(msg)
		return cmd

	case messages.ViewHelp:
		if msg.Type == tea.KeyEsc {
			return a.switchView(messages.ViewMenu)
		}
		return nil
	}
	return a.forward(msg)
}

// forward delivers msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd

	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewSettings:
		a.settingsView, cmd = a.settingsView.Update(msg)
	case messages.ViewProviders:
		a.providersView, cmd = a.providersView.Update(msg)
	case messages.ViewTestRun:
		a.testRunView, cmd = a.testRunView.Update(msg)
	case messages.ViewHelp:
		// Help view doesn't need to handle other messages
	}
	return cmd
}

func (a *App) switchView(view messages.ViewType) tea.Cmd {
	a.currentView = view
	a.err = nil

	switch view {
	case messages.ViewSettings:
		a.settingsView.Reset()
		return a.settingsView.Init()
	case messages.ViewProviders:
		a.providersView.Reset()
		return a.providersView.Init()
	case messages.ViewTestRun:
		a.testRunView.Reset()
		return a.testRunView.Init()
	case messages.ViewMenu, messages.ViewHelp:
		// Other views don't need special initialisation
	}
	return nil
}

// syncStatus reflects pending writes and the test run in the status bar.
func (a *App) syncStatus() {
	store := a.ports.Settings
	pending := len(store.PendingKeys())
	run := store.TestRunState()

	a.statusBar.Clear()
	a.statusBar.SetPending(pending)
	switch {
	case a.err != nil:
		a.statusBar.SetState(status.StateError)
		a.statusBar.SetMessage(a.err.Error())
	case pending > 0:
		a.statusBar.SetState(status.StateSaving)
	case run.Active():
		a.statusBar.SetState(status.StateRunning)
		a.statusBar.SetMessage(fmt.Sprintf("Running %s", run.Elapsed))
	case a.currentView == messages.ViewHelp:
		a.statusBar.SetState(status.StateHelp)
	}

	switch a.currentView {
	case messages.ViewSettings:
		a.statusBar.SetBindings(a.keymap.SettingsHelp())
	case messages.ViewProviders:
		a.statusBar.SetBindings(a.keymap.ProvidersHelp())
	case messages.ViewTestRun:
		a.statusBar.SetBindings(a.keymap.TestRunHelp())
	case messages.ViewMenu, messages.ViewHelp:
		a.statusBar.SetBindings(nil)
	}
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewSettings:
		body = a.settingsView.View()
	case messages.ViewProviders:
		body = a.providersView.View()
	case messages.ViewTestRun:
		body = a.testRunView.View()
	case messages.ViewHelp:
		body = a.viewHelp()
	case messages.ViewMenu:
		body = a.menuView.View()
	default:
		body = a.menuView.View()
	}
	return body + "\n\n" + a.statusBar.View()
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return `Help

Navigation:
  esc         Back to Menu
  ctrl+c      Quit

Settings:
  j/k, ↑/↓    Navigate settings
  enter       Toggle or edit the value
  r           Reset to default
  ctrl+r      Reload from disk

Providers & Models:
  enter       Use the highlighted provider
  a           Set API key
  u           Set base URL (self-hosted providers)
  m           Browse models (r refreshes, enter selects)

Test Run:
  enter       Run the selected prompt on the input
  tab         Select the next prompt
  ctrl+x      Cancel the running test

Changes show immediately and are saved in the background.
A change that cannot be saved is reverted.

[esc] back to menu`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the active view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// StatusBar returns the status bar component.
func (a *App) StatusBar() *status.Bar {
	return a.statusBar
}

// SetDimensions sets the terminal dimensions for the app and its views.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.statusBar.SetWidth(width)
	a.menuView.SetDimensions(width, height)
	a.settingsView.SetDimensions(width, height)
	a.providersView.SetDimensions(width, height)
	a.testRunView.SetDimensions(width, height)
}

// Package menu provides the main navigation menu view for the TUI.
package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driving"
)

// Item is a menu entry. Status, when set, renders a live summary next to
// the label.
type Item struct {
	Label  string
	View   messages.ViewType
	Quit   bool
	Status func(driving.SettingsStore) string
}

// View is the main menu. Each entry shows where its area stands: writes
// still saving, the active provider, the test run in flight.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	store  driving.SettingsStore

	items    []Item
	selected int

	width  int
	height int
	ready  bool
}

// NewView creates the menu. A nil store renders labels only.
func NewView(s *styles.Styles, km *keymap.KeyMap, store driving.SettingsStore) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles: s,
		keymap: km,
		store:  store,
		items: []Item{
			{Label: "Settings", View: messages.ViewSettings, Status: settingsStatus},
			{Label: "Providers & Models", View: messages.ViewProviders, Status: providerStatus},
			{Label: "Test Run", View: messages.ViewTestRun, Status: testRunStatus},
			{Label: "Help", View: messages.ViewHelp},
			{Label: "Quit", Quit: true},
		},
		width:  80,
		height: 24,
	}
}

func settingsStatus(store driving.SettingsStore) string {
	if n := len(store.PendingKeys()); n > 0 {
		return fmt.Sprintf("saving %d", n)
	}
	return fmt.Sprintf("%d settings", len(store.Snapshot()))
}

func providerStatus(store driving.SettingsStore) string {
	snap := store.Snapshot()
	if !snap.Bool(domain.KeyPostProcessEnabled) {
		return "post-processing off"
	}
	id := snap.Text(domain.KeyPostProcessProviderID)
	label := id
	if p, ok := snap.Provider(id); ok {
		label = p.Label
	}
	if model := snap.StringMap(domain.KeyPostProcessModels)[id]; model != "" {
		return label + " / " + model
	}
	return label + ", no model"
}

func testRunStatus(store driving.SettingsStore) string {
	state := store.TestRunState()
	if state.Status == domain.TestRunIdle {
		return ""
	}
	return fmt.Sprintf("%s %s", strings.ToLower(state.Status.Description()), state.Elapsed)
}

// Init initialises the menu view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the menu view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		k := msg.String()
		switch {
		case keymap.Matches(k, v.keymap.Up):
			if v.selected > 0 {
				v.selected--
			}
		case keymap.Matches(k, v.keymap.Down):
			if v.selected < len(v.items)-1 {
				v.selected++
			}
		case keymap.Matches(k, v.keymap.Select):
			item := v.items[v.selected]
			if item.Quit {
				return v, tea.Quit
			}
			return v, func() tea.Msg { return messages.ViewChanged{View: item.View} }
		case keymap.Matches(k, v.keymap.Quit):
			return v, tea.Quit
		}
	}
	return v, nil
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Scribe"))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Muted.Render("Transcription Settings"))
	b.WriteString("\n\n")

	for i, item := range v.items {
		cursor, style := "  ", v.styles.Normal
		if i == v.selected {
			cursor, style = "> ", v.styles.Selected
		}
		b.WriteString(cursor + style.Render(item.Label))
		if status := v.status(item); status != "" {
			b.WriteString("  " + v.styles.Muted.Render(status))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [Enter] Select  [q] Quit"))
	return b.String()
}

func (v *View) status(item Item) string {
	if item.Status == nil || v.store == nil {
		return ""
	}
	return item.Status(v.store)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected returns the currently selected index.
func (v *View) Selected() int {
	return v.selected
}

// Package settings provides the settings list view for the TUI.
package settings

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driving"
)

// keyColumn is the width of the setting name column.
const keyColumn = 34

// View lists every setting. Booleans toggle in place, scalars and lists are
// edited in a text field, and structured settings are read-only here.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	store  driving.SettingsStore
	ctx    context.Context

	keys     []domain.SettingKey
	selected int
	offset   int

	editing bool
	field   *input.Field

	message string
	err     error

	width  int
	height int
	ready  bool
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, km *keymap.KeyMap, store driving.SettingsStore) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	field := input.NewField(s, "Value", "")
	field.Blur()

	return &View{
		styles: s,
		keymap: km,
		store:  store,
		ctx:    context.Background(),
		keys:   domain.AllSettingKeys(),
		field:  field,
		width:  80,
		height: 24,
	}
}

// SetContext sets the context used for backend calls.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// Init initialises the settings view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingSaved:
		v.handleSaved(msg)
		return v, nil

	case messages.SettingsReloaded:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.message = "Settings reloaded"
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	if v.editing {
		var cmd tea.Cmd
		v.field, cmd = v.field.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v *View) handleSaved(msg messages.SettingSaved) {
	switch {
	case msg.Err == nil:
		v.err = nil
		v.message = "Saved " + msg.Key.String()
	case msg.RolledBack:
		v.message = ""
		v.err = fmt.Errorf("%s reverted: %w", msg.Key, msg.Err)
	default:
		v.message = ""
		v.err = fmt.Errorf("%s not saved: %w", msg.Key, msg.Err)
	}
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.editing {
		return v.handleEditKeys(msg)
	}

	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Back):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }

	case keymap.Matches(k, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
		}
		return v, nil

	case keymap.Matches(k, v.keymap.Down):
		if v.selected < len(v.keys)-1 {
			v.selected++
		}
		return v, nil

	case keymap.Matches(k, v.keymap.Select):
		return v, v.activate(v.SelectedKey())

	case keymap.Matches(k, v.keymap.Reset):
		key := v.SelectedKey()
		v.message = ""
		v.err = nil
		return v, messages.AwaitSaved(v.ctx, v.store.ResetSetting(v.ctx, key))

	case keymap.Matches(k, v.keymap.Reload):
		ctx, store := v.ctx, v.store
		return v, func() tea.Msg {
			return messages.SettingsReloaded{Err: store.RefreshSettings(ctx)}
		}
	}
	return v, nil
}

func (v *View) handleEditKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		v.stopEditing()
		return v, nil

	case tea.KeyEnter:
		key := v.SelectedKey()
		value, err := domain.ParseValue(key, v.field.Value())
		if err != nil {
			v.err = err
			return v, nil
		}
		v.stopEditing()
		v.message = ""
		v.err = nil
		return v, messages.AwaitSaved(v.ctx, v.store.UpdateSetting(v.ctx, key, value))
	}

	var cmd tea.Cmd
	v.field, cmd = v.field.Update(msg)
	return v, cmd
}

// activate toggles a boolean or opens the editor for key.
func (v *View) activate(key domain.SettingKey) tea.Cmd {
	v.message = ""
	v.err = nil

	kind, _ := domain.KindOf(key)
	current, _ := v.store.GetSetting(key)

	switch kind {
	case domain.KindBool:
		b, _ := current.AsBool()
		return messages.AwaitSaved(v.ctx, v.store.UpdateSetting(v.ctx, key, domain.Bool(!b)))

	case domain.KindString, domain.KindNumber, domain.KindOptionalString, domain.KindStringList:
		v.editing = true
		v.field.SetLabel(key.String())
		v.field.SetValue(editText(current))
		return v.field.Focus()

	default:
		v.err = fmt.Errorf("%s is edited from Providers & Models", key)
		return nil
	}
}

func (v *View) stopEditing() {
	v.editing = false
	v.field.Blur()
	v.field.Reset()
}

// editText returns the text a user edits for value.
func editText(value domain.Value) string {
	if value.IsNone() || value.IsZero() {
		return ""
	}
	return value.String()
}

// View renders the settings view.
func (v *View) View() string {
	if !v.ready {
		return "Loading settings..."
	}

	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n\n")

	snap := v.store.Snapshot().Redacted()
	rows := v.visibleRows()
	v.scrollTo(rows)

	end := v.offset + rows
	if end > len(v.keys) {
		end = len(v.keys)
	}
	for i := v.offset; i < end; i++ {
		b.WriteString(v.renderRow(i, snap))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if v.editing {
		b.WriteString(v.field.View())
		b.WriteString("\n")
		b.WriteString(v.styles.Help.Render("[Enter] Save  [Esc] Cancel"))
		b.WriteString("\n")
	}

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	} else if v.message != "" {
		b.WriteString(v.styles.Success.Render(v.message))
		b.WriteString("\n")
	}

	if !v.editing {
		b.WriteString(v.styles.Help.Render("[j/k] Navigate  [Enter] Edit  [r] Reset  [Ctrl+R] Reload  [Esc] Back"))
	}
	return b.String()
}

func (v *View) renderRow(i int, snap domain.Snapshot) string {
	key := v.keys[i]

	cursor := "  "
	name := v.styles.Normal.Render(padRight(key.String(), keyColumn))
	if i == v.selected {
		cursor = v.styles.Cursor.Render("> ")
		name = v.styles.Cursor.Render(padRight(key.String(), keyColumn))
	}

	value := truncate(snap[key].String(), v.width-keyColumn-16)
	line := cursor + name + v.styles.Normal.Render(value)
	if v.store.IsUpdating(key) {
		line += " " + v.styles.Pending.Render("(saving)")
	}
	return line
}

// visibleRows is the number of setting rows that fit the terminal.
func (v *View) visibleRows() int {
	rows := v.height - 10
	if rows < 5 {
		rows = 5
	}
	return rows
}

// scrollTo keeps the selected row inside the visible window.
func (v *View) scrollTo(rows int) {
	if v.selected < v.offset {
		v.offset = v.selected
	}
	if v.selected >= v.offset+rows {
		v.offset = v.selected - rows + 1
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-len(s))
}

func truncate(s string, width int) string {
	if width < 10 {
		width = 10
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.field.SetWidth(width)
}

// SelectedKey returns the highlighted setting.
func (v *View) SelectedKey() domain.SettingKey {
	return v.keys[v.selected]
}

// Editing reports whether the value editor is open.
func (v *View) Editing() bool {
	return v.editing
}

// Err returns the last error shown by the view.
func (v *View) Err() error {
	return v.err
}

// Message returns the last status message shown by the view.
func (v *View) Message() string {
	return v.message
}

// Reset clears transient view state.
func (v *View) Reset() {
	v.stopEditing()
	v.message = ""
	v.err = nil
}

// Package providers provides the post-processing provider and model view
// for the TUI.
package providers

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

// Mode is the interaction state of the view.
type Mode int

const (
	ModeList Mode = iota
	ModeAPIKey
	ModeBaseURL
	ModeModels
)

// View lists providers and edits their credentials and model selection.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	store  driving.SettingsStore
	ctx    context.Context

	mode          Mode
	selected      int
	modelSelected int
	loading       bool

	field *input.Field

	message string
	err     error

	width  int
	height int
	ready  bool
}

// NewView creates a new providers view.
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
		field:  field,
		width:  80,
		height: 24,
	}
}

// SetContext sets the context used for backend calls.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// Init positions the cursor on the selected provider.
func (v *View) Init() tea.Cmd {
	snap := v.store.Snapshot()
	current := snap.Text(domain.KeyPostProcessProviderID)
	for i, p := range snap.Providers() {
		if p.ID == current {
			v.selected = i
			break
		}
	}
	return nil
}

// Update handles messages for the providers view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingSaved:
		v.handleSaved(msg)
		return v, nil

	case messages.ModelsLoaded:
		v.handleModelsLoaded(msg)
		return v, nil

	case tea.KeyMsg:
		switch v.mode {
		case ModeAPIKey, ModeBaseURL:
			return v.handleEditKeys(msg)
		case ModeModels:
			return v.handleModelKeys(msg)
		case ModeList:
			return v.handleListKeys(msg)
		}
	}

	if v.mode == ModeAPIKey || v.mode == ModeBaseURL {
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

func (v *View) handleModelsLoaded(msg messages.ModelsLoaded) {
	provider, ok := v.SelectedProvider()
	if !ok || provider.ID != msg.ProviderID {
		return
	}
	v.loading = false

	switch {
	case msg.Err != nil:
		v.err = msg.Err
	case msg.Stale:
		v.message = "Model list changed while fetching; press r to try again"
	default:
		v.err = nil
		v.message = fmt.Sprintf("%d models available", len(msg.Models))
	}
	v.modelSelected = v.currentModelIndex(provider.ID)
}

func (v *View) handleListKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	providers := v.store.Snapshot().Providers()
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
		if v.selected < len(providers)-1 {
			v.selected++
		}
		return v, nil
	}

	provider, ok := v.SelectedProvider()
	if !ok {
		return v, nil
	}
	v.message = ""
	v.err = nil

	switch {
	case keymap.Matches(k, v.keymap.Select):
		pending := v.store.UpdateSetting(v.ctx, domain.KeyPostProcessProviderID, domain.String(provider.ID))
		return v, messages.AwaitSaved(v.ctx, pending)

	case keymap.Matches(k, v.keymap.APIKey):
		v.mode = ModeAPIKey
		v.field.SetLabel("API key for " + provider.Label)
		v.field.SetSecret(true)
		v.field.Reset()
		return v, v.field.Focus()

	case keymap.Matches(k, v.keymap.BaseURL):
		if !provider.AllowBaseURLEdit {
			v.err = fmt.Errorf("%w: %s", domain.ErrBaseURLNotEditable, provider.ID)
			return v, nil
		}
		v.mode = ModeBaseURL
		v.field.SetLabel("Base URL for " + provider.Label)
		v.field.SetSecret(false)
		v.field.SetValue(provider.BaseURL)
		return v, v.field.Focus()

	case keymap.Matches(k, v.keymap.Models):
		v.mode = ModeModels
		v.modelSelected = v.currentModelIndex(provider.ID)
		if _, cached := v.store.GetModels(provider.ID); cached {
			return v, nil
		}
		return v, v.refresh(provider.ID)
	}
	return v, nil
}

func (v *View) handleEditKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		v.stopEditing()
		return v, nil

	case tea.KeyEnter:
		provider, ok := v.SelectedProvider()
		if !ok {
			v.stopEditing()
			return v, nil
		}

		text := strings.TrimSpace(v.field.Value())
		var (
			pending driving.PendingUpdate
			err     error
		)
		if v.mode == ModeAPIKey {
			pending, err = v.store.SetProviderAPIKey(v.ctx, provider.ID, text)
		} else {
			pending, err = v.store.SetProviderBaseURL(v.ctx, provider.ID, text)
		}
		v.stopEditing()
		if err != nil {
			v.err = err
			return v, nil
		}
		return v, messages.AwaitSaved(v.ctx, pending)
	}

	var cmd tea.Cmd
	v.field, cmd = v.field.Update(msg)
	return v, cmd
}

func (v *View) handleModelKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	provider, ok := v.SelectedProvider()
	if !ok {
		v.mode = ModeList
		return v, nil
	}
	models, _ := v.store.GetModels(provider.ID)
	k := msg.String()

	switch {
	case keymap.Matches(k, v.keymap.Back):
		v.mode = ModeList
		v.loading = false
		return v, nil

	case keymap.Matches(k, v.keymap.Up):
		if v.modelSelected > 0 {
			v.modelSelected--
		}
		return v, nil

	case keymap.Matches(k, v.keymap.Down):
		if v.modelSelected < len(models)-1 {
			v.modelSelected++
		}
		return v, nil

	case keymap.Matches(k, v.keymap.Refresh):
		v.message = ""
		v.err = nil
		return v, v.refresh(provider.ID)

	case keymap.Matches(k, v.keymap.Select):
		if v.modelSelected >= len(models) {
			return v, nil
		}
		pending, err := v.store.SetProviderModel(v.ctx, provider.ID, models[v.modelSelected])
		if err != nil {
			v.err = err
			return v, nil
		}
		v.mode = ModeList
		v.message = ""
		v.err = nil
		return v, messages.AwaitSaved(v.ctx, pending)
	}
	return v, nil
}

// refresh fetches the model list of providerID in the background.
func (v *View) refresh(providerID string) tea.Cmd {
	v.loading = true
	ctx, store := v.ctx, v.store
	return func() tea.Msg {
		result, err := store.RefreshModels(ctx, providerID)
		if err != nil {
			return messages.ModelsLoaded{ProviderID: providerID, Err: err}
		}
		return messages.ModelsLoaded{ProviderID: providerID, Models: result.Models, Stale: result.Stale}
	}
}

func (v *View) stopEditing() {
	v.mode = ModeList
	v.field.Blur()
	v.field.Reset()
	v.field.SetSecret(false)
}

func (v *View) currentModelIndex(providerID string) int {
	models, _ := v.store.GetModels(providerID)
	current := v.store.Snapshot().StringMap(domain.KeyPostProcessModels)[providerID]
	for i, m := range models {
		if m == current {
			return i
		}
	}
	return 0
}

// View renders the providers view.
func (v *View) View() string {
	if !v.ready {
		return "Loading providers..."
	}

	var b strings.Builder
	switch v.mode {
	case ModeModels:
		v.renderModels(&b)
	case ModeList, ModeAPIKey, ModeBaseURL:
		v.renderProviders(&b)
	}

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	} else if v.message != "" {
		b.WriteString(v.styles.Success.Render(v.message))
		b.WriteString("\n")
	}
	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *View) renderProviders(b *strings.Builder) {
	b.WriteString(v.styles.Title.Render("Post-Processing Providers"))
	b.WriteString("\n\n")

	snap := v.store.Snapshot()
	current := snap.Text(domain.KeyPostProcessProviderID)
	keys := snap.StringMap(domain.KeyPostProcessAPIKeys)
	models := snap.StringMap(domain.KeyPostProcessModels)

	for i, p := range snap.Providers() {
		cursor := "  "
		label := v.styles.Normal.Render(p.Label)
		if i == v.selected {
			cursor = v.styles.Cursor.Render("> ")
			label = v.styles.Cursor.Render(p.Label)
		}
		marker := " "
		if p.ID == current {
			marker = v.styles.Success.Render("*")
		}
		fmt.Fprintf(b, "%s%s %s %s\n", cursor, marker, label, v.styles.Muted.Render("("+p.ID+")"))

		details := []string{p.BaseURL}
		switch {
		case keys[p.ID] != "":
			details = append(details, "key "+domain.MaskSecret(keys[p.ID]))
		case p.RequiresAPIKey:
			details = append(details, "no API key")
		}
		if models[p.ID] != "" {
			details = append(details, "model "+models[p.ID])
		}
		line := "      " + v.styles.Muted.Render(strings.Join(details, " | "))
		if v.store.IsUpdating(domain.KeyPostProcessAPIKeys) && i == v.selected {
			line += " " + v.styles.Pending.Render("(saving)")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if v.mode == ModeAPIKey || v.mode == ModeBaseURL {
		b.WriteString(v.field.View())
		b.WriteString("\n")
	}
}

func (v *View) renderModels(b *strings.Builder) {
	provider, _ := v.SelectedProvider()
	b.WriteString(v.styles.Title.Render("Models for " + provider.Label))
	b.WriteString("\n\n")

	if v.loading {
		b.WriteString(v.styles.Pending.Render("Fetching models..."))
		b.WriteString("\n\n")
		return
	}

	models, ok := v.store.GetModels(provider.ID)
	if !ok || len(models) == 0 {
		b.WriteString(v.styles.Muted.Render("No models available. Press r to fetch."))
		b.WriteString("\n\n")
		return
	}

	current := v.store.Snapshot().StringMap(domain.KeyPostProcessModels)[provider.ID]
	for i, m := range models {
		cursor := "  "
		name := v.styles.Normal.Render(m)
		if i == v.modelSelected {
			cursor = v.styles.Cursor.Render("> ")
			name = v.styles.Cursor.Render(m)
		}
		marker := " "
		if m == current {
			marker = v.styles.Success.Render("*")
		}
		fmt.Fprintf(b, "%s%s %s\n", cursor, marker, name)
	}
	b.WriteString("\n")
}

func (v *View) renderHelp() string {
	switch v.mode {
	case ModeAPIKey, ModeBaseURL:
		return v.styles.Help.Render("[Enter] Save  [Esc] Cancel")
	case ModeModels:
		return v.styles.Help.Render("[j/k] Navigate  [Enter] Use model  [r] Refresh  [Esc] Back")
	case ModeList:
	}
	return v.styles.Help.Render("[j/k] Navigate  [Enter] Use provider  [a] API key  [u] Base URL  [m] Models  [Esc] Back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.field.SetWidth(width)
}

// SelectedProvider returns the highlighted provider.
func (v *View) SelectedProvider() (domain.ProviderOption, bool) {
	providers := v.store.Snapshot().Providers()
	if v.selected < 0 || v.selected >= len(providers) {
		return domain.ProviderOption{}, false
	}
	return providers[v.selected], true
}

// Mode returns the current interaction mode.
func (v *View) Mode() Mode {
	return v.mode
}

// Loading reports whether a model refresh is in flight.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error shown by the view.
func (v *View) Err() error {
	return v.err
}

// Message returns the last status message shown by the view.
func (v *View) Message() string {
	return v.message
}

// Reset returns to the provider list and clears transient state.
func (v *View) Reset() {
	v.stopEditing()
	v.loading = false
	v.message = ""
	v.err = nil
}

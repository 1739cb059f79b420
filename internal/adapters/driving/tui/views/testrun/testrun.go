// Package testrun provides the transformation test view for the TUI.
package testrun

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/ports/driving"
)

// refreshInterval is how often the elapsed time is redrawn while running.
const refreshInterval = 100 * time.Millisecond

// errEmptyInput is shown when a run is started without sample text.
var errEmptyInput = errors.New("enter some sample text first")

// View runs the selected prompt against sample text.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	store  driving.SettingsStore
	ctx    context.Context

	field    *input.Field
	token    domain.Token
	interval time.Duration

	message string
	err     error

	width  int
	height int
	ready  bool
}

// NewView creates a new test run view.
func NewView(s *styles.Styles, km *keymap.KeyMap, store driving.SettingsStore) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:   s,
		keymap:   km,
		store:    store,
		ctx:      context.Background(),
		field:    input.NewField(s, "Input", "Text to post-process..."),
		interval: refreshInterval,
		width:    80,
		height:   24,
	}
}

// SetContext sets the context used for backend calls.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// Init focuses the input and resumes polling a run still in flight.
func (v *View) Init() tea.Cmd {
	cmds := []tea.Cmd{v.field.Focus()}
	if state := v.store.TestRunState(); state.Active() {
		v.token = state.Token
		cmds = append(cmds, messages.TickTestRun(state.Token, v.interval))
	}
	return tea.Batch(cmds...)
}

// Update handles messages for the test run view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.TestRunTick:
		state := v.store.TestRunState()
		if state.Token == msg.Token && state.Active() {
			return v, messages.TickTestRun(msg.Token, v.interval)
		}
		return v, nil

	case messages.TestRunFinished:
		v.handleFinished(msg)
		return v, nil

	case messages.SettingSaved:
		if msg.Err != nil {
			v.err = fmt.Errorf("%s not saved: %w", msg.Key, msg.Err)
		}
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	v.field, cmd = v.field.Update(msg)
	return v, cmd
}

func (v *View) handleFinished(msg messages.TestRunFinished) {
	if msg.Token != v.token {
		return
	}
	switch {
	case msg.Err != nil:
		v.err = msg.Err
	case msg.State.Token != msg.Token:
		v.message = "Run cancelled"
	}
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()

	switch {
	case keymap.Matches(k, v.keymap.Back):
		v.field.Blur()
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }

	case keymap.Matches(k, v.keymap.Cancel):
		if v.store.TestRunState().Active() {
			v.store.CancelTestRun()
			v.message = "Run cancelled"
		}
		return v, nil

	case keymap.Matches(k, v.keymap.NextPrompt):
		return v, v.nextPrompt()

	case keymap.Matches(k, v.keymap.Select):
		return v, v.begin()
	}

	var cmd tea.Cmd
	v.field, cmd = v.field.Update(msg)
	return v, cmd
}

// begin starts a run over the field text and returns the polling commands.
func (v *View) begin() tea.Cmd {
	v.message = ""
	v.err = nil

	text := strings.TrimSpace(v.field.Value())
	if text == "" {
		v.err = errEmptyInput
		return nil
	}

	token, err := v.store.BeginTestRun(v.ctx, text)
	if err != nil {
		v.err = err
		return nil
	}
	v.token = token

	ctx, store := v.ctx, v.store
	return tea.Batch(
		messages.TickTestRun(token, v.interval),
		func() tea.Msg {
			state, err := store.AwaitTestRun(ctx, token)
			return messages.TestRunFinished{Token: token, State: state, Err: err}
		},
	)
}

// nextPrompt selects the prompt after the current one.
func (v *View) nextPrompt() tea.Cmd {
	prompts := v.store.Prompts()
	if len(prompts) == 0 {
		v.err = errors.New("no prompts configured")
		return nil
	}

	next := 0
	if current, ok := v.store.Snapshot().SelectedPromptID(); ok {
		for i, p := range prompts {
			if p.ID == current {
				next = (i + 1) % len(prompts)
				break
			}
		}
	}

	id := prompts[next].ID
	v.err = nil
	v.message = "Prompt: " + prompts[next].Name
	pending := v.store.UpdateSetting(v.ctx, domain.KeyPostProcessSelectedPromptID, domain.OptionalString(&id))
	return messages.AwaitSaved(v.ctx, pending)
}

// View renders the test run view.
func (v *View) View() string {
	if !v.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Test Run"))
	b.WriteString("\n\n")

	snap := v.store.Snapshot()
	b.WriteString(v.renderConfig(snap))
	b.WriteString("\n")

	b.WriteString(v.field.View())
	b.WriteString("\n\n")

	b.WriteString(v.renderState(v.store.TestRunState()))

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	} else if v.message != "" {
		b.WriteString(v.styles.Muted.Render(v.message))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[Enter] Run  [Tab] Next prompt  [Ctrl+X] Cancel  [Esc] Back"))
	return b.String()
}

func (v *View) renderConfig(snap domain.Snapshot) string {
	var b strings.Builder

	providerID := snap.Text(domain.KeyPostProcessProviderID)
	label := providerID
	if p, ok := snap.Provider(providerID); ok {
		label = p.Label
	}
	model := snap.StringMap(domain.KeyPostProcessModels)[providerID]
	if model == "" {
		model = "(no model)"
	}
	fmt.Fprintf(&b, "%s %s / %s\n", v.styles.Subtitle.Render("Provider:"), label, model)

	prompt := "(none selected)"
	if id, ok := snap.SelectedPromptID(); ok {
		for _, p := range snap.Prompts() {
			if p.ID == id {
				prompt = p.Name
			}
		}
	}
	fmt.Fprintf(&b, "%s %s\n", v.styles.Subtitle.Render("Prompt:  "), prompt)

	if !snap.Bool(domain.KeyPostProcessEnabled) {
		b.WriteString(v.styles.Warning.Render("Post-processing is disabled."))
		b.WriteString("\n")
	}
	return b.String()
}

func (v *View) renderState(state domain.TestRunState) string {
	switch state.Status {
	case domain.TestRunRunning:
		return v.styles.Pending.Render(fmt.Sprintf("Running... %s", state.Elapsed)) + "\n"
	case domain.TestRunSucceeded:
		header := v.styles.Success.Render(fmt.Sprintf("%s in %s", state.Status.Description(), state.Elapsed))
		return header + "\n\n" + v.styles.Border.Render(state.Output) + "\n"
	case domain.TestRunFailed:
		reason := "unknown error"
		if state.Err != nil {
			reason = state.Err.Error()
		}
		return v.styles.Error.Render(fmt.Sprintf("Failed after %s: %s", state.Elapsed, reason)) + "\n"
	case domain.TestRunIdle:
	}
	return v.styles.Muted.Render("Enter sample text and press Enter to run the selected prompt.") + "\n"
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.field.SetWidth(width)
}

// Token returns the token of the last run started from this view.
func (v *View) Token() domain.Token {
	return v.token
}

// Err returns the last error shown by the view.
func (v *View) Err() error {
	return v.err
}

// Message returns the last status message shown by the view.
func (v *View) Message() string {
	return v.message
}

// Reset clears transient view state. A run in flight is left running.
func (v *View) Reset() {
	v.message = ""
	v.err = nil
}

package settings

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scribe/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/scribe/internal/core/domain"
	"github.com/custodia-labs/scribe/internal/core/services"
	"github.com/custodia-labs/scribe/internal/testutil"
)

func newTestView(t *testing.T, stored domain.Snapshot) (*View, *services.SettingsStore) {
	t.Helper()
	store, _ := testutil.NewSettingsStore(t, stored, nil)
	view := NewView(nil, nil, store)
	view.SetDimensions(300, 100)
	return view, store
}

func selectKey(t *testing.T, v *View, key domain.SettingKey) {
	t.Helper()
	for i, k := range v.keys {
		if k == key {
			v.selected = i
			return
		}
	}
	t.Fatalf("key %s not listed", key)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func saved(t *testing.T, cmd tea.Cmd) messages.SettingSaved {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(messages.SettingSaved)
	require.True(t, ok)
	return msg
}

func TestNewView(t *testing.T) {
	view, _ := newTestView(t, nil)

	assert.NotNil(t, view.styles)
	assert.NotNil(t, view.keymap)
	assert.Equal(t, domain.AllSettingKeys(), view.keys)
	assert.Equal(t, 0, view.selected)
	assert.False(t, view.Editing())
	assert.Nil(t, view.Init())
}

func TestView_Navigate(t *testing.T) {
	view, _ := newTestView(t, nil)

	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, view.selected)

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	view.Update(runes("j"))
	assert.Equal(t, 2, view.selected)

	view.Update(runes("k"))
	assert.Equal(t, 1, view.selected)

	view.selected = len(view.keys) - 1
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, len(view.keys)-1, view.selected)
}

func TestView_ToggleBool(t *testing.T) {
	view, store := newTestView(t, nil)
	selectKey(t, view, domain.KeyDebugMode)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	value, _ := store.GetSetting(domain.KeyDebugMode)
	assert.Equal(t, domain.Bool(true), value, "toggle is visible before the save completes")

	msg := saved(t, cmd)
	assert.NoError(t, msg.Err)

	view.Update(msg)
	assert.Equal(t, "Saved debug_mode", view.Message())
	assert.NoError(t, view.Err())
}

func TestView_ToggleBool_RolledBack(t *testing.T) {
	store, repo := testutil.NewSettingsStore(t, nil, nil)
	view := NewView(nil, nil, store)
	view.SetDimensions(300, 100)
	selectKey(t, view, domain.KeyDebugMode)
	repo.FailSaves(errors.New("disk full"))

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msg := saved(t, cmd)
	view.Update(msg)

	assert.True(t, msg.RolledBack)
	require.Error(t, view.Err())
	assert.Contains(t, view.Err().Error(), "debug_mode reverted")
	value, _ := store.GetSetting(domain.KeyDebugMode)
	assert.Equal(t, domain.Bool(false), value)
}

func TestView_EditNumber(t *testing.T) {
	view, store := newTestView(t, nil)
	selectKey(t, view, domain.KeyHistoryLimit)

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, view.Editing())
	assert.Equal(t, "5", view.field.Value())
	assert.Equal(t, "history_limit", view.field.Label())

	view.field.SetValue("12")
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, view.Editing())
	assert.NoError(t, saved(t, cmd).Err)
	value, _ := store.GetSetting(domain.KeyHistoryLimit)
	assert.Equal(t, domain.Number(12), value)
}

func TestView_EditTypesIntoField(t *testing.T) {
	view, _ := newTestView(t, nil)
	selectKey(t, view, domain.KeySelectedLanguage)

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view.field.Reset()
	view.Update(runes("d"))
	view.Update(runes("e"))

	assert.Equal(t, "de", view.field.Value())
	assert.True(t, view.Editing(), "navigation keys are typed while editing")
}

func TestView_EditInvalid(t *testing.T) {
	view, store := newTestView(t, nil)
	selectKey(t, view, domain.KeyHistoryLimit)

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view.field.SetValue("many")
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.True(t, view.Editing())
	assert.ErrorIs(t, view.Err(), domain.ErrInvalidInput)
	assert.False(t, store.IsUpdating(domain.KeyHistoryLimit))
}

func TestView_EditCancel(t *testing.T) {
	view, store := newTestView(t, nil)
	selectKey(t, view, domain.KeySelectedLanguage)

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view.field.SetValue("fr")
	view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, view.Editing())
	value, _ := store.GetSetting(domain.KeySelectedLanguage)
	assert.Equal(t, domain.String("auto"), value)
}

func TestView_EditRejectedByValidation(t *testing.T) {
	view, store := newTestView(t, nil)
	selectKey(t, view, domain.KeySoundTheme)

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view.field.SetValue("trumpet")
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	msg := saved(t, cmd)
	view.Update(msg)
	assert.ErrorIs(t, view.Err(), domain.ErrInvalidInput)
	value, _ := store.GetSetting(domain.KeySoundTheme)
	assert.Equal(t, domain.String("marimba"), value)
}

func TestView_StructuredSettingIsReadOnly(t *testing.T) {
	view, _ := newTestView(t, nil)
	selectKey(t, view, domain.KeyPostProcessPrompts)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.False(t, view.Editing())
	require.Error(t, view.Err())
	assert.Contains(t, view.Err().Error(), "Providers & Models")
}

func TestView_Reset(t *testing.T) {
	view, store := newTestView(t, domain.Snapshot{domain.KeyHistoryLimit: domain.Number(20)})
	selectKey(t, view, domain.KeyHistoryLimit)

	_, cmd := view.Update(runes("r"))

	assert.NoError(t, saved(t, cmd).Err)
	value, _ := store.GetSetting(domain.KeyHistoryLimit)
	assert.Equal(t, domain.Number(5), value)
}

func TestView_Reload(t *testing.T) {
	view, _ := newTestView(t, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	msg, ok := cmd().(messages.SettingsReloaded)
	require.True(t, ok)
	assert.NoError(t, msg.Err)

	view.Update(msg)
	assert.Equal(t, "Settings reloaded", view.Message())
}

func TestView_Back(t *testing.T) {
	view, _ := newTestView(t, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_View_NotReady(t *testing.T) {
	store, _ := testutil.NewSettingsStore(t, nil, nil)
	view := NewView(nil, nil, store)

	assert.Contains(t, view.View(), "Loading")
}

func TestView_View_MasksAPIKeys(t *testing.T) {
	view, _ := newTestView(t, domain.Snapshot{
		domain.KeyPostProcessAPIKeys: domain.StringMap(map[string]string{"openai": "sk-1234567890abcd"}),
	})

	output := view.View()

	assert.Contains(t, output, "Settings")
	assert.Contains(t, output, "debug_mode")
	assert.Contains(t, output, "post_process_api_keys")
	assert.NotContains(t, output, "sk-1234567890abcd")
}

func TestView_View_Editing(t *testing.T) {
	view, _ := newTestView(t, nil)
	selectKey(t, view, domain.KeyHistoryLimit)
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	output := view.View()

	assert.Contains(t, output, "history_limit")
	assert.Contains(t, output, "[Enter] Save")
}

func TestView_Reset_ClearsState(t *testing.T) {
	view, _ := newTestView(t, nil)
	selectKey(t, view, domain.KeyHistoryLimit)
	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view.err = errors.New("boom")

	view.Reset()

	assert.False(t, view.Editing())
	assert.NoError(t, view.Err())
	assert.Empty(t, view.Message())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 20))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

package domain

import (
	"fmt"
	"runtime"
	"slices"
	"sort"
	"time"
)

const unknownDescription = "Unknown"

// SettingKey names a single entry in the settings snapshot.
type SettingKey string

// String returns the string representation.
func (k SettingKey) String() string {
	return string(k)
}

// Known setting keys.
//
//nolint:gosec // G101: these are setting names, not credentials.
const (
	KeyPushToTalk              SettingKey = "push_to_talk"
	KeyAudioFeedback           SettingKey = "audio_feedback"
	KeyAudioFeedbackVolume     SettingKey = "audio_feedback_volume"
	KeySoundTheme              SettingKey = "sound_theme"
	KeyStartHidden             SettingKey = "start_hidden"
	KeyAutostartEnabled        SettingKey = "autostart_enabled"
	KeyUpdateChecksEnabled     SettingKey = "update_checks_enabled"
	KeySelectedModel           SettingKey = "selected_model"
	KeySelectedLanguage        SettingKey = "selected_language"
	KeyTranslateToEnglish      SettingKey = "translate_to_english"
	KeyOverlayPosition         SettingKey = "overlay_position"
	KeyDebugMode               SettingKey = "debug_mode"
	KeyLogLevel                SettingKey = "log_level"
	KeyCustomWords             SettingKey = "custom_words"
	KeyWordCorrectionThreshold SettingKey = "word_correction_threshold"
	KeyHistoryLimit            SettingKey = "history_limit"
	KeyPasteMethod             SettingKey = "paste_method"
	KeyClipboardHandling       SettingKey = "clipboard_handling"
	KeyMuteWhileRecording      SettingKey = "mute_while_recording"
	KeyAppendTrailingSpace     SettingKey = "append_trailing_space"
	KeyAppLanguage             SettingKey = "app_language"
	KeyExperimentalEnabled     SettingKey = "experimental_enabled"
	KeyAlwaysOnMicrophone      SettingKey = "always_on_microphone"
	KeySelectedMicrophone      SettingKey = "selected_microphone"
	KeyClamshellMicrophone     SettingKey = "clamshell_microphone"
	KeySelectedOutputDevice    SettingKey = "selected_output_device"
	KeyModelUnloadTimeout      SettingKey = "model_unload_timeout"
	KeyRecordingRetention      SettingKey = "recording_retention_period"
	KeyKeyboardImplementation  SettingKey = "keyboard_implementation"

	KeyPostProcessEnabled          SettingKey = "post_process_enabled"
	KeyPostProcessProviderID       SettingKey = "post_process_provider_id"
	KeyPostProcessProviders        SettingKey = "post_process_providers"
	KeyPostProcessAPIKeys          SettingKey = "post_process_api_keys"
	KeyPostProcessModels           SettingKey = "post_process_models"
	KeyPostProcessPrompts          SettingKey = "post_process_prompts"
	KeyPostProcessSelectedPromptID SettingKey = "post_process_selected_prompt_id"
	KeyPostProcessCustomModels     SettingKey = "post_process_custom_models"
)

// schema fixes the value kind of every known key.
var schema = map[SettingKey]ValueKind{
	KeyPushToTalk:              KindBool,
	KeyAudioFeedback:           KindBool,
	KeyAudioFeedbackVolume:     KindNumber,
	KeySoundTheme:              KindString,
	KeyStartHidden:             KindBool,
	KeyAutostartEnabled:        KindBool,
	KeyUpdateChecksEnabled:     KindBool,
	KeySelectedModel:           KindString,
	KeySelectedLanguage:        KindString,
	KeyTranslateToEnglish:      KindBool,
	KeyOverlayPosition:         KindString,
	KeyDebugMode:               KindBool,
	KeyLogLevel:                KindString,
	KeyCustomWords:             KindStringList,
	KeyWordCorrectionThreshold: KindNumber,
	KeyHistoryLimit:            KindNumber,
	KeyPasteMethod:             KindString,
	KeyClipboardHandling:       KindString,
	KeyMuteWhileRecording:      KindBool,
	KeyAppendTrailingSpace:     KindBool,
	KeyAppLanguage:             KindString,
	KeyExperimentalEnabled:     KindBool,
	KeyAlwaysOnMicrophone:      KindBool,
	KeySelectedMicrophone:      KindOptionalString,
	KeyClamshellMicrophone:     KindOptionalString,
	KeySelectedOutputDevice:    KindOptionalString,
	KeyModelUnloadTimeout:      KindString,
	KeyRecordingRetention:      KindString,
	KeyKeyboardImplementation:  KindString,

	KeyPostProcessEnabled:          KindBool,
	KeyPostProcessProviderID:       KindString,
	KeyPostProcessProviders:        KindProviders,
	KeyPostProcessAPIKeys:          KindStringMap,
	KeyPostProcessModels:           KindStringMap,
	KeyPostProcessPrompts:          KindPrompts,
	KeyPostProcessSelectedPromptID: KindOptionalString,
	KeyPostProcessCustomModels:     KindStringListMap,
}

// KindOf returns the value kind registered for key.
func KindOf(key SettingKey) (ValueKind, bool) {
	kind, ok := schema[key]
	return kind, ok
}

// AllSettingKeys returns every known key in lexical order.
func AllSettingKeys() []SettingKey {
	keys := make([]SettingKey, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ValidateValue checks that v has the kind registered for key and that
// enumerated or bounded keys hold an allowed value.
func ValidateValue(key SettingKey, v Value) error {
	kind, ok := schema[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	if v.Kind() != kind {
		return fmt.Errorf("%w: %s expects %s, got %s", ErrInvalidInput, key, kind, v.Kind())
	}

	switch key {
	case KeySoundTheme:
		return checkEnum(key, v, func(s string) bool { return SoundTheme(s).IsValid() })
	case KeyOverlayPosition:
		return checkEnum(key, v, func(s string) bool { return OverlayPosition(s).IsValid() })
	case KeyLogLevel:
		return checkEnum(key, v, func(s string) bool { return LogLevel(s).IsValid() })
	case KeyPasteMethod:
		return checkEnum(key, v, func(s string) bool { return PasteMethod(s).IsValid() })
	case KeyClipboardHandling:
		return checkEnum(key, v, func(s string) bool { return ClipboardHandling(s).IsValid() })
	case KeyModelUnloadTimeout:
		return checkEnum(key, v, func(s string) bool { return ModelUnloadTimeout(s).IsValid() })
	case KeyRecordingRetention:
		return checkEnum(key, v, func(s string) bool { return RetentionPeriod(s).IsValid() })
	case KeyKeyboardImplementation:
		return checkEnum(key, v, func(s string) bool { return KeyboardImplementation(s).IsValid() })
	case KeyAudioFeedbackVolume, KeyWordCorrectionThreshold:
		if n, _ := v.AsNumber(); n < 0 || n > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1", ErrInvalidInput, key)
		}
	case KeyHistoryLimit:
		if n, _ := v.AsNumber(); n < 0 || n != float64(int(n)) {
			return fmt.Errorf("%w: %s must be a non-negative whole number", ErrInvalidInput, key)
		}
	case KeyPostProcessPrompts:
		prompts, _ := v.AsPrompts()
		seen := make(map[string]bool, len(prompts))
		for _, p := range prompts {
			if p.ID == "" || seen[p.ID] {
				return fmt.Errorf("%w: prompt ids must be unique and non-empty", ErrInvalidInput)
			}
			seen[p.ID] = true
		}
	}
	return nil
}

func checkEnum(key SettingKey, v Value, valid func(string) bool) error {
	s, _ := v.AsString()
	if !valid(s) {
		return fmt.Errorf("%w: %q is not a valid %s", ErrInvalidInput, s, key)
	}
	return nil
}

// SoundTheme selects the audio feedback sample set.
type SoundTheme string

// Available sound themes.
const (
	SoundThemeMarimba SoundTheme = "marimba"
	SoundThemePop     SoundTheme = "pop"
	SoundThemeCustom  SoundTheme = "custom"
)

// IsValid returns true if the theme is recognised.
func (t SoundTheme) IsValid() bool {
	switch t {
	case SoundThemeMarimba, SoundThemePop, SoundThemeCustom:
		return true
	default:
		return false
	}
}

// OverlayPosition defines where the recording overlay is shown.
type OverlayPosition string

// Available overlay positions.
const (
	OverlayPositionNone   OverlayPosition = "none"
	OverlayPositionTop    OverlayPosition = "top"
	OverlayPositionBottom OverlayPosition = "bottom"
)

// IsValid returns true if the position is recognised.
func (p OverlayPosition) IsValid() bool {
	switch p {
	case OverlayPositionNone, OverlayPositionTop, OverlayPositionBottom:
		return true
	default:
		return false
	}
}

// LogLevel is the persisted file log level.
type LogLevel string

// Available log levels.
const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid returns true if the level is recognised.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// PasteMethod defines how transcribed text is inserted.
type PasteMethod string

// Available paste methods.
const (
	PasteMethodCtrlV      PasteMethod = "ctrl_v"
	PasteMethodDirect     PasteMethod = "direct"
	PasteMethodNone       PasteMethod = "none"
	PasteMethodShiftIns   PasteMethod = "shift_insert"
	PasteMethodCtrlShiftV PasteMethod = "ctrl_shift_v"
)

// IsValid returns true if the paste method is recognised.
func (m PasteMethod) IsValid() bool {
	switch m {
	case PasteMethodCtrlV, PasteMethodDirect, PasteMethodNone, PasteMethodShiftIns, PasteMethodCtrlShiftV:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the paste method.
func (m PasteMethod) Description() string {
	switch m {
	case PasteMethodCtrlV:
		return "Clipboard (Ctrl+V)"
	case PasteMethodDirect:
		return "Direct typing"
	case PasteMethodNone:
		return "Do not paste"
	case PasteMethodShiftIns:
		return "Clipboard (Shift+Insert)"
	case PasteMethodCtrlShiftV:
		return "Clipboard (Ctrl+Shift+V)"
	default:
		return unknownDescription
	}
}

// ClipboardHandling defines what happens to the clipboard after pasting.
type ClipboardHandling string

// Available clipboard handling modes.
const (
	ClipboardDontModify      ClipboardHandling = "dont_modify"
	ClipboardCopyToClipboard ClipboardHandling = "copy_to_clipboard"
)

// IsValid returns true if the mode is recognised.
func (c ClipboardHandling) IsValid() bool {
	return c == ClipboardDontModify || c == ClipboardCopyToClipboard
}

// ModelUnloadTimeout controls when an idle transcription model is unloaded.
type ModelUnloadTimeout string

// Available unload timeouts. Sec5 is meant for debugging.
const (
	UnloadNever       ModelUnloadTimeout = "never"
	UnloadImmediately ModelUnloadTimeout = "immediately"
	UnloadMin2        ModelUnloadTimeout = "min2"
	UnloadMin5        ModelUnloadTimeout = "min5"
	UnloadMin10       ModelUnloadTimeout = "min10"
	UnloadMin15       ModelUnloadTimeout = "min15"
	UnloadHour1       ModelUnloadTimeout = "hour1"
	UnloadSec5        ModelUnloadTimeout = "sec5"
)

// IsValid returns true if the timeout is recognised.
func (u ModelUnloadTimeout) IsValid() bool {
	_, _, ok := u.lookup()
	return ok
}

// Duration returns how long the model may sit idle. The second result is
// false for UnloadNever.
func (u ModelUnloadTimeout) Duration() (time.Duration, bool) {
	d, unload, _ := u.lookup()
	return d, unload
}

func (u ModelUnloadTimeout) lookup() (d time.Duration, unload, ok bool) {
	switch u {
	case UnloadNever:
		return 0, false, true
	case UnloadImmediately:
		return 0, true, true
	case UnloadSec5:
		return 5 * time.Second, true, true
	case UnloadMin2:
		return 2 * time.Minute, true, true
	case UnloadMin5:
		return 5 * time.Minute, true, true
	case UnloadMin10:
		return 10 * time.Minute, true, true
	case UnloadMin15:
		return 15 * time.Minute, true, true
	case UnloadHour1:
		return time.Hour, true, true
	default:
		return 0, false, false
	}
}

// RetentionPeriod controls how long saved recordings are kept.
type RetentionPeriod string

// Available retention periods.
const (
	RetentionNever         RetentionPeriod = "never"
	RetentionPreserveLimit RetentionPeriod = "preserve_limit"
	RetentionDays3         RetentionPeriod = "days3"
	RetentionWeeks2        RetentionPeriod = "weeks2"
	RetentionMonths3       RetentionPeriod = "months3"
)

// IsValid returns true if the period is recognised.
func (r RetentionPeriod) IsValid() bool {
	switch r {
	case RetentionNever, RetentionPreserveLimit, RetentionDays3, RetentionWeeks2, RetentionMonths3:
		return true
	default:
		return false
	}
}

// MaxAge returns the age after which a recording is removed. Zero means
// age does not apply: never keeps nothing and preserve_limit keeps the
// newest history_limit entries.
func (r RetentionPeriod) MaxAge() time.Duration {
	const day = 24 * time.Hour
	switch r {
	case RetentionDays3:
		return 3 * day
	case RetentionWeeks2:
		return 14 * day
	case RetentionMonths3:
		return 90 * day
	default:
		return 0
	}
}

// KeyboardImplementation selects the global shortcut backend.
type KeyboardImplementation string

// Available keyboard implementations.
const (
	KeyboardTauri     KeyboardImplementation = "tauri"
	KeyboardHandyKeys KeyboardImplementation = "handy_keys"
)

// IsValid returns true if the implementation is recognised.
func (k KeyboardImplementation) IsValid() bool {
	return k == KeyboardTauri || k == KeyboardHandyKeys
}

// DefaultKeyboardImplementation is handy_keys on macOS and tauri elsewhere.
func DefaultKeyboardImplementation() KeyboardImplementation {
	if runtime.GOOS == "darwin" {
		return KeyboardHandyKeys
	}
	return KeyboardTauri
}

// Prompt is a named post-processing template. The text may contain the
// ${output} placeholder, replaced by the transcription at run time.
type Prompt struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"prompt"`
}

// PromptOutputPlaceholder is substituted with the input text on a run.
const PromptOutputPlaceholder = "${output}"

// ProviderOption describes a post-processing provider. It is reference data
// surfaced by the backend.
type ProviderOption struct {
	ID               string `json:"id"`
	Label            string `json:"label"`
	BaseURL          string `json:"base_url"`
	AllowBaseURLEdit bool   `json:"allow_base_url_edit"`
	RequiresAPIKey   bool   `json:"requires_api_key"`
	ModelsEndpoint   string `json:"models_endpoint,omitempty"`
}

// Well-known provider identifiers.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderGroq       = "groq"
	ProviderCerebras   = "cerebras"
	ProviderOllama     = "ollama"
	ProviderLMStudio   = "lm_studio"
	ProviderCustom     = "custom"
)

// DefaultProviders returns the built-in provider list. Custom always comes last.
func DefaultProviders() []ProviderOption {
	return []ProviderOption{
		{ID: ProviderOpenAI, Label: "OpenAI", BaseURL: "https://api.openai.com/v1", RequiresAPIKey: true, ModelsEndpoint: "/models"},
		{ID: ProviderOpenRouter, Label: "OpenRouter", BaseURL: "https://openrouter.ai/api/v1", RequiresAPIKey: true, ModelsEndpoint: "/models"},
		{ID: ProviderAnthropic, Label: "Anthropic", BaseURL: "https://api.anthropic.com/v1", RequiresAPIKey: true, ModelsEndpoint: "/models"},
		{ID: ProviderGroq, Label: "Groq", BaseURL: "https://api.groq.com/openai/v1", RequiresAPIKey: true, ModelsEndpoint: "/models"},
		{ID: ProviderCerebras, Label: "Cerebras", BaseURL: "https://api.cerebras.ai/v1", RequiresAPIKey: true, ModelsEndpoint: "/models"},
		{ID: ProviderOllama, Label: "Ollama", BaseURL: "http://localhost:11434", AllowBaseURLEdit: true, ModelsEndpoint: "/api/tags"},
		{ID: ProviderLMStudio, Label: "LM Studio", BaseURL: "http://localhost:1234/v1", AllowBaseURLEdit: true, ModelsEndpoint: "/models"},
		{ID: ProviderCustom, Label: "Custom", BaseURL: "http://localhost:11434/v1", AllowBaseURLEdit: true, ModelsEndpoint: "/models"},
	}
}

// DefaultPrompts returns the built-in post-processing prompts.
func DefaultPrompts() []Prompt {
	return []Prompt{
		{
			ID:   "default_improve_transcriptions",
			Name: "Improve Transcriptions",
			Text: "Clean this transcript:\n" +
				"1. Fix spelling, capitalization, and punctuation errors\n" +
				"2. Convert number words to digits\n" +
				"3. Replace spoken punctuation with symbols\n" +
				"4. Remove filler words\n" +
				"5. Keep the language of the original\n\n" +
				"Preserve exact meaning and word order. Return only the cleaned transcript.\n\n" +
				"Transcript:\n${output}",
		},
		{
			ID:   "everyday_messaging",
			Name: "Everyday Messaging",
			Text: "Rewrite the text into a clean, casual message. Fix grammar and punctuation, " +
				"remove stutters and filler words, keep the tone natural. Return ONLY the refined text.\n\n" +
				"Input Text:\n\"\"\"\n${output}\n\"\"\"",
		},
		{
			ID:   "bullet_points",
			Name: "Bullet Points",
			Text: "Convert the input text into a concise list of bullet points capturing key facts, " +
				"action items and decisions. Return ONLY the bulleted list.\n\n" +
				"Input Text:\n\"\"\"\n${output}\n\"\"\"",
		},
		{
			ID:   "strict_proofread",
			Name: "Strict Proofread",
			Text: "Fix ONLY spelling, grammar, and punctuation errors. Do not change tone or word choice. " +
				"Return ONLY the corrected text.\n\n" +
				"Input Text:\n\"\"\"\n${output}\n\"\"\"",
		},
	}
}

// DefaultSnapshot returns the built-in settings.
func DefaultSnapshot() Snapshot {
	providers := DefaultProviders()
	apiKeys := make(map[string]string, len(providers))
	models := make(map[string]string, len(providers))
	for _, p := range providers {
		apiKeys[p.ID] = ""
		models[p.ID] = ""
	}

	return Snapshot{
		KeyPushToTalk:              Bool(true),
		KeyAudioFeedback:           Bool(false),
		KeyAudioFeedbackVolume:     Number(1.0),
		KeySoundTheme:              String(string(SoundThemeMarimba)),
		KeyStartHidden:             Bool(false),
		KeyAutostartEnabled:        Bool(false),
		KeyUpdateChecksEnabled:     Bool(true),
		KeySelectedModel:           String(""),
		KeySelectedLanguage:        String("auto"),
		KeyTranslateToEnglish:      Bool(false),
		KeyOverlayPosition:         String(string(OverlayPositionBottom)),
		KeyDebugMode:               Bool(false),
		KeyLogLevel:                String(string(LogLevelDebug)),
		KeyCustomWords:             StringList(nil),
		KeyWordCorrectionThreshold: Number(0.18),
		KeyHistoryLimit:            Number(5),
		KeyPasteMethod:             String(string(PasteMethodCtrlV)),
		KeyClipboardHandling:       String(string(ClipboardDontModify)),
		KeyMuteWhileRecording:      Bool(false),
		KeyAppendTrailingSpace:     Bool(false),
		KeyAppLanguage:             String("en"),
		KeyExperimentalEnabled:     Bool(false),
		KeyAlwaysOnMicrophone:      Bool(false),
		KeySelectedMicrophone:      OptionalString(nil),
		KeyClamshellMicrophone:     OptionalString(nil),
		KeySelectedOutputDevice:    OptionalString(nil),
		KeyModelUnloadTimeout:      String(string(UnloadNever)),
		KeyRecordingRetention:      String(string(RetentionPreserveLimit)),
		KeyKeyboardImplementation:  String(string(DefaultKeyboardImplementation())),

		KeyPostProcessEnabled:          Bool(false),
		KeyPostProcessProviderID:       String(ProviderOpenAI),
		KeyPostProcessProviders:        Providers(providers),
		KeyPostProcessAPIKeys:          StringMap(apiKeys),
		KeyPostProcessModels:           StringMap(models),
		KeyPostProcessPrompts:          Prompts(DefaultPrompts()),
		KeyPostProcessSelectedPromptID: OptionalString(nil),
		KeyPostProcessCustomModels:     StringListMap(nil),
	}
}

// EnsurePostProcessDefaults merges missing built-in providers, api-key and
// model slots, and default prompts into s. Reports whether s changed.
func EnsurePostProcessDefaults(s Snapshot) bool {
	changed := false

	providers := s.Providers()
	apiKeys := s.StringMap(KeyPostProcessAPIKeys)
	models := s.StringMap(KeyPostProcessModels)
	for _, def := range DefaultProviders() {
		if !slices.ContainsFunc(providers, func(p ProviderOption) bool { return p.ID == def.ID }) {
			providers = append(providers, def)
			changed = true
		}
		if _, ok := apiKeys[def.ID]; !ok {
			apiKeys[def.ID] = ""
			changed = true
		}
		if _, ok := models[def.ID]; !ok {
			models[def.ID] = ""
			changed = true
		}
	}

	prompts := s.Prompts()
	for _, def := range DefaultPrompts() {
		if !slices.ContainsFunc(prompts, func(p Prompt) bool { return p.ID == def.ID }) {
			prompts = append(prompts, def)
			changed = true
		}
	}

	if changed {
		s[KeyPostProcessProviders] = Providers(providers)
		s[KeyPostProcessAPIKeys] = StringMap(apiKeys)
		s[KeyPostProcessModels] = StringMap(models)
		s[KeyPostProcessPrompts] = Prompts(prompts)
	}
	return changed
}

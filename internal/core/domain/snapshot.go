package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Snapshot is the complete key/value settings view.
type Snapshot map[SettingKey]Value

// Clone returns a shallow copy. Values are immutable, so this is sufficient
// to detach the copy from the original.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return maps.Clone(s)
}

// Keys returns the keys present in the snapshot, sorted.
func (s Snapshot) Keys() []SettingKey {
	return slices.Sorted(maps.Keys(s))
}

// Bool returns the boolean at key, or false.
func (s Snapshot) Bool(key SettingKey) bool {
	b, _ := s[key].AsBool()
	return b
}

// Text returns the string (or set optional string) at key, or "".
func (s Snapshot) Text(key SettingKey) string {
	str, _ := s[key].AsString()
	return str
}

// StringMap returns a copy of the string map at key. Never nil.
func (s Snapshot) StringMap(key SettingKey) map[string]string {
	m, _ := s[key].AsStringMap()
	if m == nil {
		m = map[string]string{}
	}
	return m
}

// StringListMap returns a copy of the string list map at key. Never nil.
func (s Snapshot) StringListMap(key SettingKey) map[string][]string {
	m, _ := s[key].AsStringListMap()
	if m == nil {
		m = map[string][]string{}
	}
	return m
}

// Providers returns the configured provider options.
func (s Snapshot) Providers() []ProviderOption {
	p, _ := s[KeyPostProcessProviders].AsProviders()
	return p
}

// Provider looks up a provider option by id.
func (s Snapshot) Provider(id string) (ProviderOption, bool) {
	for _, p := range s.Providers() {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderOption{}, false
}

// Prompts returns the configured post-processing prompts.
func (s Snapshot) Prompts() []Prompt {
	p, _ := s[KeyPostProcessPrompts].AsPrompts()
	return p
}

// SelectedPromptID returns the selected prompt id, if any.
func (s Snapshot) SelectedPromptID() (string, bool) {
	return s[KeyPostProcessSelectedPromptID].AsString()
}

// MarshalJSON encodes the snapshot as a JSON object keyed by setting name.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]Value, len(s))
	for k, v := range s {
		out[string(k)] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a JSON object using the key schema. Unknown keys are
// skipped so that older builds can read newer files.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}

// DecodeSnapshot decodes a JSON object into a Snapshot, skipping unknown keys.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding settings: %w", ErrInvalidInput, err)
	}

	out := make(Snapshot, len(raw))
	for name, payload := range raw {
		key := SettingKey(name)
		if _, ok := KindOf(key); !ok {
			continue
		}
		v, err := DecodeValue(key, payload)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// MaskSecret renders a secret for display, keeping a short prefix and
// suffix of long values.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// Redacted returns a copy with every provider API key masked.
func (s Snapshot) Redacted() Snapshot {
	out := s.Clone()
	if _, ok := out[KeyPostProcessAPIKeys]; !ok {
		return out
	}
	keys := out.StringMap(KeyPostProcessAPIKeys)
	for id, secret := range keys {
		keys[id] = MaskSecret(secret)
	}
	out[KeyPostProcessAPIKeys] = StringMap(keys)
	return out
}

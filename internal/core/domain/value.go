package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// ValueKind identifies the shape carried by a Value.
type ValueKind int

// Supported value kinds.
const (
	KindInvalid ValueKind = iota
	KindBool
	KindString
	KindNumber
	KindOptionalString
	KindStringList
	KindPrompts
	KindProviders
	KindStringMap
	KindStringListMap
)

// String returns the string representation.
func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindOptionalString:
		return "optional string"
	case KindStringList:
		return "string list"
	case KindPrompts:
		return "prompt list"
	case KindProviders:
		return "provider list"
	case KindStringMap:
		return "string map"
	case KindStringListMap:
		return "string list map"
	default:
		return "invalid"
	}
}

// Value is a tagged setting value. Exactly one payload field is meaningful,
// selected by kind. Values are immutable once built: constructors copy their
// inputs and accessors return copies.
type Value struct {
	kind      ValueKind
	b         bool
	s         *string
	n         float64
	list      []string
	prompts   []Prompt
	providers []ProviderOption
	smap      map[string]string
	lmap      map[string][]string
}

// Bool builds a boolean value.
func Bool(v bool) Value {
	return Value{kind: KindBool, b: v}
}

// String builds a string value.
func String(v string) Value {
	return Value{kind: KindString, s: &v}
}

// Number builds a numeric value.
func Number(v float64) Value {
	return Value{kind: KindNumber, n: v}
}

// OptionalString builds an optional string value. A nil pointer means unset.
func OptionalString(v *string) Value {
	if v == nil {
		return Value{kind: KindOptionalString}
	}
	s := *v
	return Value{kind: KindOptionalString, s: &s}
}

// StringList builds an ordered string list value.
func StringList(v []string) Value {
	return Value{kind: KindStringList, list: slices.Clone(v)}
}

// Prompts builds an ordered prompt list value.
func Prompts(v []Prompt) Value {
	return Value{kind: KindPrompts, prompts: slices.Clone(v)}
}

// Providers builds an ordered provider list value.
func Providers(v []ProviderOption) Value {
	return Value{kind: KindProviders, providers: slices.Clone(v)}
}

// StringMap builds a string-to-string map value.
func StringMap(v map[string]string) Value {
	return Value{kind: KindStringMap, smap: maps.Clone(v)}
}

// StringListMap builds a string-to-string-list map value.
func StringListMap(v map[string][]string) Value {
	return Value{kind: KindStringListMap, lmap: cloneListMap(v)}
}

// Kind returns the value kind. The zero Value has KindInvalid.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsZero reports whether v is the zero Value.
func (v Value) IsZero() bool {
	return v.kind == KindInvalid
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsString returns the string payload of a string or a set optional string.
func (v Value) AsString() (string, bool) {
	if (v.kind != KindString && v.kind != KindOptionalString) || v.s == nil {
		return "", false
	}
	return *v.s, true
}

// IsNone reports whether v is an unset optional string.
func (v Value) IsNone() bool {
	return v.kind == KindOptionalString && v.s == nil
}

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) {
	return v.n, v.kind == KindNumber
}

// AsStringList returns a copy of the string list payload.
func (v Value) AsStringList() ([]string, bool) {
	return slices.Clone(v.list), v.kind == KindStringList
}

// AsPrompts returns a copy of the prompt list payload.
func (v Value) AsPrompts() ([]Prompt, bool) {
	return slices.Clone(v.prompts), v.kind == KindPrompts
}

// AsProviders returns a copy of the provider list payload.
func (v Value) AsProviders() ([]ProviderOption, bool) {
	return slices.Clone(v.providers), v.kind == KindProviders
}

// AsStringMap returns a copy of the string map payload.
func (v Value) AsStringMap() (map[string]string, bool) {
	return maps.Clone(v.smap), v.kind == KindStringMap
}

// AsStringListMap returns a copy of the string list map payload.
func (v Value) AsStringListMap() (map[string][]string, bool) {
	return cloneListMap(v.lmap), v.kind == KindStringListMap
}

// Equal reports whether two values have the same kind and payload.
// Nil and empty collections compare equal.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == other.b
	case KindString, KindOptionalString:
		if v.s == nil || other.s == nil {
			return v.s == nil && other.s == nil
		}
		return *v.s == *other.s
	case KindNumber:
		return v.n == other.n
	case KindStringList:
		return slices.Equal(v.list, other.list)
	case KindPrompts:
		return slices.Equal(v.prompts, other.prompts)
	case KindProviders:
		return slices.Equal(v.providers, other.providers)
	case KindStringMap:
		return maps.Equal(v.smap, other.smap)
	case KindStringListMap:
		return maps.EqualFunc(v.lmap, other.lmap, slices.Equal[[]string])
	default:
		return true
	}
}

// String renders the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return *v.s
	case KindOptionalString:
		if v.s == nil {
			return "(none)"
		}
		return *v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindStringList:
		return strings.Join(v.list, ", ")
	case KindPrompts:
		return fmt.Sprintf("%d prompts", len(v.prompts))
	case KindProviders:
		return fmt.Sprintf("%d providers", len(v.providers))
	case KindInvalid:
		return "(unset)"
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "(unprintable)"
		}
		return string(data)
	}
}

// MarshalJSON encodes the payload only; the kind is recovered from the key
// schema on decode.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindString, KindOptionalString:
		if v.s == nil {
			return []byte("null"), nil
		}
		return json.Marshal(*v.s)
	case KindNumber:
		return json.Marshal(v.n)
	case KindStringList:
		return json.Marshal(nonNil(v.list))
	case KindPrompts:
		return json.Marshal(nonNil(v.prompts))
	case KindProviders:
		return json.Marshal(nonNil(v.providers))
	case KindStringMap:
		if v.smap == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.smap)
	case KindStringListMap:
		if v.lmap == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.lmap)
	default:
		return nil, fmt.Errorf("%w: cannot encode invalid value", ErrInvalidInput)
	}
}

// DecodeValue decodes a JSON payload into the kind registered for key.
func DecodeValue(key SettingKey, raw []byte) (Value, error) {
	kind, ok := KindOf(key)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}

	var (
		v   Value
		err error
	)
	switch kind {
	case KindBool:
		var b bool
		err = json.Unmarshal(raw, &b)
		v = Bool(b)
	case KindString:
		var s string
		err = json.Unmarshal(raw, &s)
		v = String(s)
	case KindNumber:
		var n float64
		err = json.Unmarshal(raw, &n)
		v = Number(n)
	case KindOptionalString:
		var s *string
		err = json.Unmarshal(raw, &s)
		v = OptionalString(s)
	case KindStringList:
		var list []string
		err = json.Unmarshal(raw, &list)
		v = StringList(list)
	case KindPrompts:
		var prompts []Prompt
		err = json.Unmarshal(raw, &prompts)
		v = Prompts(prompts)
	case KindProviders:
		var providers []ProviderOption
		err = json.Unmarshal(raw, &providers)
		v = Providers(providers)
	case KindStringMap:
		var m map[string]string
		err = json.Unmarshal(raw, &m)
		v = StringMap(m)
	case KindStringListMap:
		var m map[string][]string
		err = json.Unmarshal(raw, &m)
		v = StringListMap(m)
	}
	if err != nil {
		return Value{}, fmt.Errorf("%w: decoding %s: %w", ErrInvalidInput, key, err)
	}
	return v, nil
}

// ParseValue converts user-entered text into the kind registered for key.
// Scalars use their natural text form, string lists are comma separated and
// structured kinds expect JSON.
func ParseValue(key SettingKey, text string) (Value, error) {
	kind, ok := KindOf(key)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}

	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s expects true or false", ErrInvalidInput, key)
		}
		return Bool(b), nil
	case KindNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s expects a number", ErrInvalidInput, key)
		}
		return Number(n), nil
	case KindString:
		return String(text), nil
	case KindOptionalString:
		if strings.TrimSpace(text) == "" {
			return OptionalString(nil), nil
		}
		return OptionalString(&text), nil
	case KindStringList:
		var list []string
		for _, part := range strings.Split(text, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
		return StringList(list), nil
	default:
		return DecodeValue(key, []byte(text))
	}
}

func cloneListMap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

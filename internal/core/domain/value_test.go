package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Equal(t *testing.T) {
	name := "p1"
	other := "p2"

	tests := []struct {
		name  string
		a, b  Value
		equal bool
	}{
		{"same bool", Bool(true), Bool(true), true},
		{"different bool", Bool(true), Bool(false), false},
		{"kind mismatch", Bool(true), String("true"), false},
		{"same string", String("a"), String("a"), true},
		{"number", Number(0.5), Number(0.5), true},
		{"none equals none", OptionalString(nil), OptionalString(nil), true},
		{"none vs set", OptionalString(nil), OptionalString(&name), false},
		{"set optional", OptionalString(&name), OptionalString(&other), false},
		{"nil and empty list", StringList(nil), StringList([]string{}), true},
		{"list order matters", StringList([]string{"a", "b"}), StringList([]string{"b", "a"}), false},
		{"nil and empty map", StringMap(nil), StringMap(map[string]string{}), true},
		{
			"list map",
			StringListMap(map[string][]string{"x": {"m1"}}),
			StringListMap(map[string][]string{"x": {"m1"}}),
			true,
		},
		{
			"prompts",
			Prompts([]Prompt{{ID: "a", Name: "A", Text: "t"}}),
			Prompts([]Prompt{{ID: "a", Name: "A", Text: "u"}}),
			false,
		},
		{"zero values", Value{}, Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
			assert.Equal(t, tt.equal, tt.b.Equal(tt.a))
		})
	}
}

func TestValue_Immutable(t *testing.T) {
	list := []string{"a"}
	v := StringList(list)
	list[0] = "changed"

	got, ok := v.AsStringList()
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, got)

	got[0] = "mutated"
	again, _ := v.AsStringList()
	assert.Equal(t, []string{"a"}, again)

	m := map[string][]string{"p": {"m"}}
	lm := StringListMap(m)
	m["p"][0] = "x"
	gotMap, _ := lm.AsStringListMap()
	assert.Equal(t, []string{"m"}, gotMap["p"])
}

func TestValue_AccessorKinds(t *testing.T) {
	_, ok := String("x").AsBool()
	assert.False(t, ok)

	_, ok = OptionalString(nil).AsString()
	assert.False(t, ok)

	s, ok := String("x").AsString()
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	assert.True(t, Value{}.IsZero())
	assert.Equal(t, KindInvalid, Value{}.Kind())
}

func TestDecodeValue_RoundTrip(t *testing.T) {
	defaults := DefaultSnapshot()
	for _, key := range AllSettingKeys() {
		data, err := json.Marshal(defaults[key])
		require.NoError(t, err, key)

		decoded, err := DecodeValue(key, data)
		require.NoError(t, err, key)
		assert.True(t, defaults[key].Equal(decoded), "round trip %s", key)
	}
}

func TestDecodeValue_Errors(t *testing.T) {
	_, err := DecodeValue(SettingKey("unknown"), []byte("true"))
	assert.True(t, errors.Is(err, ErrUnknownSetting))

	_, err = DecodeValue(KeyPushToTalk, []byte(`"yes"`))
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		key     SettingKey
		text    string
		want    Value
		wantErr bool
	}{
		{name: "bool", key: KeyPushToTalk, text: "false", want: Bool(false)},
		{name: "bad bool", key: KeyPushToTalk, text: "maybe", wantErr: true},
		{name: "number", key: KeyAudioFeedbackVolume, text: " 0.25 ", want: Number(0.25)},
		{name: "string keeps spaces", key: KeySelectedModel, text: " base ", want: String(" base ")},
		{name: "empty optional is none", key: KeyPostProcessSelectedPromptID, text: "", want: OptionalString(nil)},
		{name: "list", key: KeyCustomWords, text: "foo, bar,,baz", want: StringList([]string{"foo", "bar", "baz"})},
		{
			name: "json map",
			key:  KeyPostProcessModels,
			text: `{"openai":"gpt-4o-mini"}`,
			want: StringMap(map[string]string{"openai": "gpt-4o-mini"}),
		},
		{name: "bad json", key: KeyPostProcessModels, text: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue(tt.key, tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestSnapshot_JSON(t *testing.T) {
	s := Snapshot{
		KeyPushToTalk:    Bool(false),
		KeySelectedModel: String("small"),
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"push_to_talk":false,"selected_model":"small"}`, string(data))

	var decoded Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"push_to_talk":true,"legacy_key":1}`), &decoded))
	assert.Len(t, decoded, 1)
	assert.True(t, decoded.Bool(KeyPushToTalk))
}

func TestSnapshot_Clone(t *testing.T) {
	s := Snapshot{KeyPushToTalk: Bool(true)}
	c := s.Clone()
	c[KeyPushToTalk] = Bool(false)

	assert.True(t, s.Bool(KeyPushToTalk))
	assert.NotNil(t, Snapshot(nil).Clone())
}

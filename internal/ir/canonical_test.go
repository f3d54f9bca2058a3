package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Payload
		expected string
	}{
		{"empty", Payload{}, `{}`},
		{"nil", nil, `{}`},
		{"string", Payload{"a": raw(`"hello"`)}, `{"a":"hello"}`},
		{"int", Payload{"a": raw(`42`)}, `{"a":42}`},
		{"bool", Payload{"a": raw(`true`), "b": raw(`false`)}, `{"a":true,"b":false}`},
		{"null", Payload{"a": raw(`null`)}, `{"a":null}`},
		{"array", Payload{"a": raw(`[1, 2, "x"]`)}, `{"a":[1,2,"x"]}`},
		{"empty nested", Payload{"a": raw(`{}`), "b": raw(`[]`)}, `{"a":{},"b":[]}`},
		{"whitespace stripped", Payload{"a": raw(" {\n \"x\" : 1 }\n")}, `{"a":{"x":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	p := Payload{
		"zebra": raw(`1`),
		"alpha": raw(`2`),
		"beta":  raw(`3`),
	}

	result, err := MarshalCanonical(p)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":3,"zebra":1}`, string(result))
}

func TestMarshalCanonicalNestedOrderPreserved(t *testing.T) {
	// Only the top level is sorted. Nested members stay where they were.
	p := Payload{
		"z": raw(`{"b":1,"a":{"d":2,"c":3}}`),
		"a": raw(`[{"y":1,"x":2}]`),
	}

	result, err := MarshalCanonical(p)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[{"y":1,"x":2}],"z":{"b":1,"a":{"d":2,"c":3}}}`, string(result))
}

func TestMarshalCanonicalInsertionOrderIrrelevant(t *testing.T) {
	a := Payload{}
	require.NoError(t, a.Set("crop", "Rice"))
	require.NoError(t, a.Set("price", 3000))
	require.NoError(t, a.Set("quantity", 50))

	b := Payload{}
	require.NoError(t, b.Set("quantity", 50))
	require.NoError(t, b.Set("crop", "Rice"))
	require.NoError(t, b.Set("price", 3000))

	assert.Equal(t, MustMarshalCanonical(a), MustMarshalCanonical(b))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+FF61 vs U+1F600: UTF-8 puts U+FF61 first (0xEF < 0xF0), UTF-16
	// puts the emoji first (surrogate 0xD83D < 0xFF61).
	p := Payload{
		"\uFF61":     raw(`1`),
		"\U0001F600": raw(`2`),
		"a":          raw(`3`),
	}

	result, err := MarshalCanonical(p)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":3,\"\U0001F600\":2,\"\uFF61\":1}", string(result))
}

func TestMarshalCanonicalNumbers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3500.0", "3500"},
		{"3500", "3500"},
		{"-0", "0"},
		{"0.0", "0"},
		{"1.50", "1.5"},
		{"0.1", "0.1"},
		{"-42", "-42"},
		{"1e2", "100"},
		{"1E21", "1e+21"},
		{"1e-7", "1e-7"},
		{"0.000001", "0.000001"},
		{"123456789012", "123456789012"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			result, err := MarshalCanonical(Payload{"n": raw(tt.in)})
			require.NoError(t, err)
			assert.Equal(t, `{"n":`+tt.want+`}`, string(result))
		})
	}
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"quote and backslash", `a"b\c`, `"a\"b\\c"`},
		{"short escapes", "\b\f\n\r\t", `"\b\f\n\r\t"`},
		{"other control", "\x01\x1f", `"\u0001\u001f"`},
		{"html not escaped", "<a&b>", `"<a&b>"`},
		{"line separators kept", "\u2028\u2029", "\"\u2028\u2029\""},
		{"non-ascii kept", "धान", `"धान"`},
		{"slash kept", "a/b", `"a/b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Payload{}
			require.NoError(t, p.Set("s", tt.in))
			result, err := MarshalCanonical(p)
			require.NoError(t, err)
			assert.Equal(t, `{"s":`+tt.want+`}`, string(result))
		})
	}
}

func TestMarshalCanonicalEscapedKeys(t *testing.T) {
	result, err := MarshalCanonical(Payload{"a\"b": raw(`{"c\nd":1}`)})
	require.NoError(t, err)
	assert.Equal(t, `{"a\"b":{"c\nd":1}}`, string(result))
}

func TestMarshalCanonicalRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		value json.RawMessage
	}{
		{"empty", raw(``)},
		{"truncated", raw(`{"a":`)},
		{"trailing", raw(`1 2`)},
		{"overflow", raw(`1e400`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(Payload{"v": tt.value})
			assert.Error(t, err)
		})
	}
}

func TestMustMarshalCanonicalPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustMarshalCanonical(Payload{"v": raw(`{`)})
	})
}

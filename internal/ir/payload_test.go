package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload([]byte(` {"crop":"Rice","price":3000} `))
	require.NoError(t, err)
	assert.Len(t, p, 2)

	crop, ok := p.String("crop")
	assert.True(t, ok)
	assert.Equal(t, "Rice", crop)

	price, ok := p.Number("price")
	assert.True(t, ok)
	assert.Equal(t, float64(3000), price)
}

func TestParsePayloadRejectsNonObjects(t *testing.T) {
	for _, in := range []string{``, `null`, `[]`, `"x"`, `42`, `{"a":`} {
		t.Run(in, func(t *testing.T) {
			_, err := ParsePayload([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestParsePayloadEmptyObject(t *testing.T) {
	p, err := ParsePayload([]byte(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Empty(t, p)
}

func TestPayloadSet(t *testing.T) {
	p := Payload{}
	require.NoError(t, p.Set("s", "<b>"))
	require.NoError(t, p.Set("n", 3.5))
	require.NoError(t, p.Set("list", []string{"a", "b"}))
	require.NoError(t, p.Set("raw", json.RawMessage(`{"y":1,"x":2}`)))

	assert.Equal(t, `"<b>"`, string(p["s"]), "no HTML escaping")
	assert.Equal(t, `3.5`, string(p["n"]))
	assert.Equal(t, `["a","b"]`, string(p["list"]))
	assert.Equal(t, `{"y":1,"x":2}`, string(p["raw"]))

	assert.Error(t, p.Set("bad", json.RawMessage(`{`)))
	assert.Error(t, p.Set("chan", make(chan int)))
}

func TestPayloadAccessorsTypeMismatch(t *testing.T) {
	p := MustPayload(map[string]any{"crop": "Rice", "price": 3000})

	_, ok := p.String("price")
	assert.False(t, ok)
	_, ok = p.Number("crop")
	assert.False(t, ok)
	_, ok = p.Strings("crop")
	assert.False(t, ok)
	_, ok = p.String("missing")
	assert.False(t, ok)
}

func TestPayloadStrings(t *testing.T) {
	p := MustPayload(map[string]any{"documents": []string{"invoice.pdf", "permit.pdf"}})
	docs, ok := p.Strings("documents")
	require.True(t, ok)
	assert.Equal(t, []string{"invoice.pdf", "permit.pdf"}, docs)
}

func TestPayloadCloneIsDeep(t *testing.T) {
	p := Payload{"a": json.RawMessage(`1`)}
	c := p.Clone()
	c["a"][0] = '2'
	c["b"] = json.RawMessage(`3`)

	assert.Equal(t, `1`, string(p["a"]))
	assert.False(t, p.Has("b"))
	assert.Nil(t, Payload(nil).Clone())
}

func TestPayloadWithout(t *testing.T) {
	p := MustPayload(map[string]any{"id": "LIST-1", "crop": "Rice", "status": "LISTED"})
	out := p.Without(FieldID, FieldStatus)

	assert.Equal(t, []string{"crop"}, out.SortedKeys())
	assert.True(t, p.Has(FieldID), "original untouched")
	assert.NotNil(t, Payload(nil).Without("x"))
}

func TestPayloadEqual(t *testing.T) {
	a := Payload{"price": json.RawMessage(`3500.0`), "crop": json.RawMessage(`"Rice"`)}
	b := Payload{"crop": json.RawMessage(`"Rice"`), "price": json.RawMessage(`3500`)}
	c := Payload{"crop": json.RawMessage(`"Rice"`), "price": json.RawMessage(`3501`)}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestPayloadDecode(t *testing.T) {
	p := Payload{"price": json.RawMessage(`3000`), "loc": json.RawMessage(`{"v":"x"}`)}
	m, err := p.Decode()
	require.NoError(t, err)

	assert.Equal(t, json.Number("3000"), m["price"])
	assert.Equal(t, map[string]any{"v": "x"}, m["loc"])
}

func TestPayloadJSONRoundTripKeepsNestedOrder(t *testing.T) {
	in := `{"loc":{"village":"Ramnagar","district":"Nainital"},"crop":"Rice"}`
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(in), &p))

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"crop":"Rice","loc":{"village":"Ramnagar","district":"Nainital"}}`, string(out))

	var empty Payload
	out, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(out))
}

func TestCompareKeysUTF16(t *testing.T) {
	assert.Equal(t, 0, compareKeysUTF16("a", "a"))
	assert.Equal(t, -1, compareKeysUTF16("a", "b"))
	assert.Equal(t, -1, compareKeysUTF16("a", "ab"))
	assert.Equal(t, 1, compareKeysUTF16("b", "ab"))
	assert.Equal(t, -1, compareKeysUTF16("\U0001F600", "\uFF61"))
	assert.Equal(t, -1, compareKeysUTF16("Z", "a"), "uppercase sorts first")
}

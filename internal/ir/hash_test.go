package ir

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashKnownVectors(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		want    string
	}{
		{
			name:    "empty",
			payload: Payload{},
			want:    "44136fa355b3678a1146ad16f7e8649e94fb4fc21fe77e8310c060f61caaff8a",
		},
		{
			name:    "flat",
			payload: MustPayload(map[string]any{"price": 3000, "crop": "Rice"}),
			want:    "52175db156de9b724d16bd0e1412fca4f57a0a6485ec6e360f5d854bbe2c420b",
		},
		{
			name: "nested order kept",
			payload: Payload{
				"quantity": raw(`100`),
				"price":    raw(`3500.0`),
				"location": raw(`{"village":"Ramnagar","district":"Nainital"}`),
				"crop":     raw(`"Wheat"`),
			},
			want: "649382258f6cd6935ef0c59d7a64fca1f93fe859929e5850b5661670d3faacc4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ContentHash(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContentHashDeterminism(t *testing.T) {
	p := MustPayload(map[string]any{"crop": "Rice", "price": 3000})
	h1 := MustContentHash(p)
	h2 := MustContentHash(p.Clone())

	assert.Equal(t, h1, h2, "ContentHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestContentHashChangesWithContent(t *testing.T) {
	a := MustPayload(map[string]any{"crop": "Rice", "price": 3000})
	b := MustPayload(map[string]any{"crop": "Rice", "price": 3001})
	c := Payload{"crop": raw(`"Rice"`), "price": raw(`3000`), "x": raw(`{"b":1,"a":2}`)}
	d := Payload{"crop": raw(`"Rice"`), "price": raw(`3000`), "x": raw(`{"a":2,"b":1}`)}

	assert.NotEqual(t, MustContentHash(a), MustContentHash(b))
	assert.NotEqual(t, MustContentHash(c), MustContentHash(d), "nested key order is significant")
}

func TestContentHashError(t *testing.T) {
	_, err := ContentHash(Payload{"v": raw(`{`)})
	assert.Error(t, err)
	assert.Panics(t, func() { MustContentHash(Payload{"v": raw(`{`)}) })
}

func TestContentID(t *testing.T) {
	hash := "52175db156de9b724d16bd0e1412fca4f57a0a6485ec6e360f5d854bbe2c420b"
	id := ContentID(hash)

	assert.True(t, strings.HasPrefix(id, ContentIDPrefix))
	assert.Len(t, id, len(ContentIDPrefix)+contentIDLength)
	assert.Equal(t, "Qm52175db156de9b724d16bd0e1412fca4f57a0a6485ec", id)
	assert.Equal(t, "Qmabc", ContentID("abc"))
}

func TestTransactionRefKnownVector(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ref, err := TransactionRef(at, "LIST-0001", KindCreated)
	require.NoError(t, err)
	assert.Equal(t, "fd035d9d5d793a9103364ff2b1d6fa9948a303eaf9cbf982a78248f74e61cefe", ref)
}

func TestTransactionRefChangesWithInput(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	base, err := TransactionRef(at, "LIST-1", KindCreated)
	require.NoError(t, err)

	other := []struct {
		name string
		at   time.Time
		id   string
		kind Kind
	}{
		{"time", at.Add(time.Millisecond), "LIST-1", KindCreated},
		{"entity", at, "LIST-2", KindCreated},
		{"kind", at, "LIST-1", KindSold},
	}
	for _, tt := range other {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := TransactionRef(tt.at, tt.id, tt.kind)
			require.NoError(t, err)
			assert.NotEqual(t, base, ref)
		})
	}

	// Sub-millisecond differences are not part of the hashed material.
	same, err := TransactionRef(at.Add(time.Microsecond), "LIST-1", KindCreated)
	require.NoError(t, err)
	assert.Equal(t, base, same)
}

func TestBuyerRef(t *testing.T) {
	assert.Equal(t, "2b6f2deb864d072a4fe40b3c182fafd122de55067594c93cf1e6f2dfaa43dd61", BuyerRef("buyer-42"))
	assert.NotEqual(t, BuyerRef("buyer-42"), BuyerRef("buyer-43"))
	assert.NotEqual(t, BuyerRef("buyer-42"), Digest([]byte("buyer-42")), "domain separated")
}

func TestFormatTime(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	at := time.Date(2025, 3, 4, 10, 30, 0, 123456789, ist)
	assert.Equal(t, "2025-03-04T05:00:00.123Z", FormatTime(at))
}

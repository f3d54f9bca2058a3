package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindCreated, KindUpdated, KindSold, KindDelisted} {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("created").Valid())
	assert.False(t, Kind("").Valid())
}

func TestChangesContent(t *testing.T) {
	assert.True(t, LedgerEntry{Kind: KindCreated}.ChangesContent())
	assert.True(t, LedgerEntry{Kind: KindUpdated}.ChangesContent())
	assert.False(t, LedgerEntry{Kind: KindSold}.ChangesContent())
	assert.False(t, LedgerEntry{Kind: KindDelisted}.ChangesContent())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusListed.Terminal())
	assert.True(t, StatusSold.Terminal())
	assert.True(t, StatusDelisted.Terminal())
}

func TestIsIdentityField(t *testing.T) {
	assert.True(t, IsIdentityField("id"))
	assert.True(t, IsIdentityField("ownerId"))
	assert.True(t, IsIdentityField("status"))
	assert.False(t, IsIdentityField("price"))
}

func TestEntityCloneIsDeep(t *testing.T) {
	e := &Entity{
		ID:     "LIST-1",
		Fields: MustPayload(map[string]any{"crop": "Rice"}),
		Sale:   &SaleInfo{Documents: []string{"a.pdf"}},
		Delist: &DelistInfo{Reason: "spam"},
	}
	c := e.Clone()
	c.Fields["crop"] = raw(`"Wheat"`)
	c.Sale.Documents[0] = "b.pdf"
	c.Delist.Reason = "other"

	crop, _ := e.Fields.String("crop")
	assert.Equal(t, "Rice", crop)
	assert.Equal(t, "a.pdf", e.Sale.Documents[0])
	assert.Equal(t, "spam", e.Delist.Reason)
}

func TestEntityContentID(t *testing.T) {
	e := &Entity{CurrentHash: "abcdef"}
	assert.Equal(t, "Qmabcdef", e.ContentID())
}

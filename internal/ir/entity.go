package ir

import "time"

// Status is the lifecycle state of a projected entity.
type Status string

const (
	StatusListed   Status = "LISTED"
	StatusSold     Status = "SOLD"
	StatusDelisted Status = "DELISTED"
)

// Terminal reports whether the entity no longer accepts UPDATED or SOLD
// entries. Nothing moves an entity back to LISTED.
func (s Status) Terminal() bool {
	return s == StatusSold || s == StatusDelisted
}

// Well-known payload keys.
const (
	FieldID      = "id"
	FieldOwnerID = "ownerId"
	FieldStatus  = "status"

	FieldBuyerRef  = "buyerRef"
	FieldDocuments = "documents"
	FieldSoldAt    = "soldAt"
	FieldReason    = "reason"
)

// IdentityFields are fixed at CREATED and ignored by UPDATED merges.
var IdentityFields = []string{FieldID, FieldOwnerID, FieldStatus}

// IsIdentityField reports whether key is one of IdentityFields.
func IsIdentityField(key string) bool {
	for _, f := range IdentityFields {
		if f == key {
			return true
		}
	}
	return false
}

// SaleInfo is the metadata attached by a SOLD entry.
type SaleInfo struct {
	BuyerRef       string    `json:"buyerRef"`
	Documents      []string  `json:"documents"`
	SoldAt         time.Time `json:"soldAt"`
	TransactionRef string    `json:"transactionRef"`
}

// DelistInfo is the metadata attached by a DELISTED entry.
type DelistInfo struct {
	Reason         string    `json:"reason"`
	By             string    `json:"by"`
	At             time.Time `json:"at"`
	TransactionRef string    `json:"transactionRef"`
}

// Entity is the materialized view of one entityId.
//
// Fields holds exactly the hashable snapshot: creator-supplied fields plus
// id, ownerId and status. System data (hashes, timestamps, sale metadata)
// lives in the other struct fields and never enters Fields.
type Entity struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"ownerId"`
	Status      Status      `json:"status"`
	Fields      Payload     `json:"fields"`
	CurrentHash string      `json:"currentHash"`
	Version     int64       `json:"version"`
	CreatedSeq  int64       `json:"createdSeq"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	Sale        *SaleInfo   `json:"sale,omitempty"`
	Delist      *DelistInfo `json:"delist,omitempty"`
}

// ContentID returns the display identifier of the current hash.
func (e *Entity) ContentID() string {
	return ContentID(e.CurrentHash)
}

// Clone returns a deep copy of e.
func (e *Entity) Clone() *Entity {
	out := *e
	out.Fields = e.Fields.Clone()
	if e.Sale != nil {
		sale := *e.Sale
		sale.Documents = append([]string(nil), e.Sale.Documents...)
		out.Sale = &sale
	}
	if e.Delist != nil {
		delist := *e.Delist
		out.Delist = &delist
	}
	return &out
}

// VerificationResult reports whether an entity's hashable snapshot still
// hashes to the hash recorded by its last CREATED/UPDATED entry.
// Both hashes are always filled when the entity exists.
type VerificationResult struct {
	EntityID     string `json:"entityId"`
	Found        bool   `json:"found"`
	Verified     bool   `json:"verified"`
	ComputedHash string `json:"computedHash,omitempty"`
	StoredHash   string `json:"storedHash,omitempty"`
}

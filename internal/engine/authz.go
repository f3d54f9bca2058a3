package engine

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/marketledger/internal/ir"
)

// Caller identifies who is asking for a mutation.
// Identity comes from an external session system; the ledger only compares it.
type Caller struct {
	ID    string
	Admin bool
}

// NormalizeID canonicalizes an identity for comparison and storage:
// surrounding space trimmed, Unicode NFC.
func NormalizeID(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}

func isOwner(ent *ir.Entity, caller Caller) bool {
	id := NormalizeID(caller.ID)
	return id != "" && NormalizeID(ent.OwnerID) == id
}

// AuthorizeUpdate checks that caller may update ent.
// Ownership is checked before status.
func AuthorizeUpdate(ent *ir.Entity, caller Caller) error {
	if !isOwner(ent, caller) {
		return NewUnauthorizedError(ent.ID, ent.OwnerID, caller.ID)
	}
	if ent.Status != ir.StatusListed {
		return NewInvalidStateError(ent.ID, string(ent.Status), string(ir.StatusListed))
	}
	return nil
}

// AuthorizeSale checks that caller may mark ent as sold with documents.
// Ownership, then status, then evidence.
func AuthorizeSale(ent *ir.Entity, caller Caller, documents []string) error {
	if !isOwner(ent, caller) {
		return NewUnauthorizedError(ent.ID, ent.OwnerID, caller.ID)
	}
	if ent.Status != ir.StatusListed {
		return NewInvalidStateError(ent.ID, string(ent.Status), string(ir.StatusListed))
	}
	if len(cleanDocuments(documents)) == 0 {
		return NewMissingEvidenceError(ent.ID, ir.FieldDocuments)
	}
	return nil
}

// AuthorizeDelist checks that caller may delist ent.
// Only admins delist; owners cannot remove their own history.
func AuthorizeDelist(ent *ir.Entity, caller Caller, reason string) error {
	if !caller.Admin || NormalizeID(caller.ID) == "" {
		err := NewUnauthorizedError(ent.ID, ent.OwnerID, caller.ID)
		err.Message = "delisting requires the admin role"
		err.Details["role"] = "admin"
		return err
	}
	if ent.Status == ir.StatusDelisted {
		return NewInvalidStateError(ent.ID, string(ent.Status), "LISTED or SOLD")
	}
	if strings.TrimSpace(reason) == "" {
		return NewMissingEvidenceError(ent.ID, ir.FieldReason)
	}
	return nil
}

// cleanDocuments drops blank references.
func cleanDocuments(documents []string) []string {
	out := make([]string, 0, len(documents))
	for _, d := range documents {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

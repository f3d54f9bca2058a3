package engine

import (
	"context"
	"fmt"

	"github.com/roach88/marketledger/internal/ir"
	"github.com/roach88/marketledger/internal/projection"
)

// Verify recomputes the hash of a listing's projected snapshot and compares
// it with the hash recorded by its last CREATED or UPDATED entry.
//
// An unknown listing returns Found=false together with a NOT_FOUND error.
// A mismatch is reported through Verified=false, never as an error.
func (e *Engine) Verify(ctx context.Context, id string) (ir.VerificationResult, error) {
	id = NormalizeID(id)
	_, ent, err := e.load(ctx, id)
	if err != nil {
		return ir.VerificationResult{EntityID: id}, err
	}
	return VerifyProjected(ent)
}

// VerifyProjected verifies an already projected entity.
//
// The verifiable payload is the entity's snapshot fields with status put
// back to LISTED: SOLD and DELISTED entries leave the recorded hash alone,
// so it was computed while the listing was still LISTED.
func VerifyProjected(ent *ir.Entity) (ir.VerificationResult, error) {
	computed, err := ir.ContentHash(verifiablePayload(ent.Fields))
	if err != nil {
		return ir.VerificationResult{EntityID: ent.ID, Found: true}, NewInvalidPayloadError(ent.ID, err)
	}
	return ir.VerificationResult{
		EntityID:     ent.ID,
		Found:        true,
		Verified:     computed == ent.CurrentHash,
		ComputedHash: computed,
		StoredHash:   ent.CurrentHash,
	}, nil
}

func verifiablePayload(fields ir.Payload) ir.Payload {
	p := fields.Clone()
	if p == nil {
		return ir.Payload{}
	}
	if p.Has(ir.FieldStatus) {
		_ = p.Set(ir.FieldStatus, string(ir.StatusListed))
	}
	return p
}

// AuditProblem names what an audit found wrong with an entry.
type AuditProblem string

const (
	// ProblemPayloadHash means the stored payload no longer hashes to the
	// entry's recorded contentHash.
	ProblemPayloadHash AuditProblem = "payload_hash_mismatch"

	// ProblemSnapshotHash means the snapshot produced by replaying up to
	// this entry does not hash to the entry's contentHash.
	ProblemSnapshotHash AuditProblem = "snapshot_hash_mismatch"

	// ProblemSkipped means the projection ignored the entry.
	ProblemSkipped AuditProblem = "skipped"
)

// AuditFinding reports one entry that failed the audit.
type AuditFinding struct {
	Seq          int64        `json:"seq"`
	EntityID     string       `json:"entityId"`
	Kind         ir.Kind      `json:"kind"`
	Problem      AuditProblem `json:"problem"`
	Detail       string       `json:"detail,omitempty"`
	RecordedHash string       `json:"recordedHash,omitempty"`
	ComputedHash string       `json:"computedHash,omitempty"`
}

// AuditReport is the result of replaying the whole ledger.
type AuditReport struct {
	Entries  int            `json:"entries"`
	Entities int            `json:"entities"`
	Findings []AuditFinding `json:"findings"`
}

// OK reports whether the audit found nothing.
func (r *AuditReport) OK() bool {
	return len(r.Findings) == 0
}

// AuditLog replays the whole ledger and checks every entry:
//   - each entry's payload still hashes to its recorded contentHash
//   - after each CREATED/UPDATED entry, the projected snapshot hashes to
//     that entry's contentHash
//   - no entry was skipped by the projection
//
// Findings are returned in log order. Tampering is a finding, not an error.
func (e *Engine) AuditLog(ctx context.Context) (*AuditReport, error) {
	entries, err := e.store.ReadAll(ctx)
	if err != nil {
		return nil, NewStorageError("", err)
	}

	report := &AuditReport{Entries: len(entries), Findings: []AuditFinding{}}
	skippedSeen := 0

	state := e.projector.Fold(entries, func(entry ir.LedgerEntry, s *projection.State) {
		finding := func(problem AuditProblem, detail, computed string) {
			report.Findings = append(report.Findings, AuditFinding{
				Seq:          entry.Seq,
				EntityID:     entry.EntityID,
				Kind:         entry.Kind,
				Problem:      problem,
				Detail:       detail,
				RecordedHash: entry.ContentHash,
				ComputedHash: computed,
			})
		}

		if computed, err := ir.ContentHash(entry.Payload); err != nil {
			finding(ProblemPayloadHash, err.Error(), "")
		} else if computed != entry.ContentHash {
			finding(ProblemPayloadHash, "", computed)
		}

		if n := s.SkipCount(); n > skippedSeen {
			skippedSeen = n
			skipped := s.Skipped()
			finding(ProblemSkipped, skipped[n-1].Reason, "")
			return
		}

		if !entry.ChangesContent() {
			return
		}
		ent, ok := s.Get(entry.EntityID)
		if !ok {
			return
		}
		computed, err := ir.ContentHash(verifiablePayload(ent.Fields))
		if err != nil {
			finding(ProblemSnapshotHash, err.Error(), "")
			return
		}
		if computed != entry.ContentHash {
			finding(ProblemSnapshotHash, fmt.Sprintf("version %d", entry.Version), computed)
		}
	})

	report.Entities = state.Len()
	if !report.OK() {
		e.logger.Warn("ledger audit found problems", "findings", len(report.Findings))
	}
	return report, nil
}

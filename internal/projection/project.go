package projection

import (
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/marketledger/internal/ir"
)

// Reasons attached to skipped entries.
const (
	ReasonUnknownEntity  = "unknown_entity"
	ReasonTerminal       = "terminal_status"
	ReasonDuplicate      = "duplicate_create"
	ReasonUnknownKind    = "unknown_kind"
	ReasonAlreadyDelisted = "already_delisted"
)

// Skip records an entry the fold ignored.
type Skip struct {
	Seq      int64   `json:"seq"`
	EntityID string  `json:"entityId"`
	Kind     ir.Kind `json:"kind"`
	Reason   string  `json:"reason"`
}

// Projector folds ledger entries into entities.
type Projector struct {
	logger *slog.Logger
}

// NewProjector returns a projector that reports skipped entries to logger.
// A nil logger means slog.Default().
func NewProjector(logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{logger: logger}
}

// Project folds every entry into a State.
func Project(entries []ir.LedgerEntry) *State {
	return NewProjector(nil).Project(entries)
}

// ProjectEntity folds only the entries of entityID.
func ProjectEntity(entries []ir.LedgerEntry, entityID string) (*ir.Entity, bool) {
	return NewProjector(nil).ProjectEntity(entries, entityID)
}

// Project folds entries in slice order.
func (p *Projector) Project(entries []ir.LedgerEntry) *State {
	return p.Fold(entries, nil)
}

// Fold is Project with a hook: visit runs after each entry is applied and
// sees the state as of that entry. The state must not be modified.
func (p *Projector) Fold(entries []ir.LedgerEntry, visit func(ir.LedgerEntry, *State)) *State {
	s := newState()
	for _, e := range entries {
		p.apply(s, e)
		if visit != nil {
			visit(e, s)
		}
	}
	return s
}

// ProjectEntity folds the entries of one entity. Entries of other entities
// are ignored, so callers may pass either the full log or a pre-filtered one.
func (p *Projector) ProjectEntity(entries []ir.LedgerEntry, entityID string) (*ir.Entity, bool) {
	s := newState()
	for _, e := range entries {
		if e.EntityID == entityID {
			p.apply(s, e)
		}
	}
	return s.Get(entityID)
}

func (p *Projector) apply(s *State, e ir.LedgerEntry) {
	current := s.entities[e.EntityID]

	// Version tracks the entity's position in the log even when the entry
	// itself is skipped, so the next append claims the right version.
	if current != nil && e.Version > current.Version {
		current.Version = e.Version
	}

	switch e.Kind {
	case ir.KindCreated:
		if current != nil {
			p.skip(s, e, ReasonDuplicate)
			return
		}
		s.add(created(e))

	case ir.KindUpdated:
		if current == nil {
			p.skip(s, e, ReasonUnknownEntity)
			return
		}
		if current.Status.Terminal() {
			p.skip(s, e, ReasonTerminal)
			return
		}
		for k, v := range e.Payload {
			if ir.IsIdentityField(k) {
				continue
			}
			current.Fields[k] = slices.Clone(v)
		}
		current.CurrentHash = e.ContentHash
		current.UpdatedAt = e.RecordedAt

	case ir.KindSold:
		if current == nil {
			p.skip(s, e, ReasonUnknownEntity)
			return
		}
		if current.Status != ir.StatusListed {
			p.skip(s, e, ReasonTerminal)
			return
		}
		current.Sale = saleInfo(e)
		setStatus(current, ir.StatusSold)
		current.UpdatedAt = e.RecordedAt

	case ir.KindDelisted:
		if current == nil {
			p.skip(s, e, ReasonUnknownEntity)
			return
		}
		if current.Status == ir.StatusDelisted {
			p.skip(s, e, ReasonAlreadyDelisted)
			return
		}
		reason, _ := e.Payload.String(ir.FieldReason)
		current.Delist = &ir.DelistInfo{
			Reason:         reason,
			By:             e.Actor,
			At:             e.RecordedAt,
			TransactionRef: e.TransactionRef,
		}
		setStatus(current, ir.StatusDelisted)
		current.UpdatedAt = e.RecordedAt

	default:
		p.skip(s, e, ReasonUnknownKind)
	}
}

func (p *Projector) skip(s *State, e ir.LedgerEntry, reason string) {
	s.skipped = append(s.skipped, Skip{
		Seq:      e.Seq,
		EntityID: e.EntityID,
		Kind:     e.Kind,
		Reason:   reason,
	})
	p.logger.Warn("ledger entry skipped by projection",
		"entity_id", e.EntityID,
		"kind", e.Kind,
		"seq", e.Seq,
		"reason", reason,
	)
}

func created(e ir.LedgerEntry) *ir.Entity {
	fields := e.Payload.Clone()
	if fields == nil {
		fields = ir.Payload{}
	}

	owner, ok := fields.String(ir.FieldOwnerID)
	if !ok {
		owner = e.Actor
	}

	ent := &ir.Entity{
		ID:          e.EntityID,
		OwnerID:     owner,
		Fields:      fields,
		CurrentHash: e.ContentHash,
		Version:     e.Version,
		CreatedSeq:  e.Seq,
		CreatedAt:   e.RecordedAt,
		UpdatedAt:   e.RecordedAt,
	}
	setStatus(ent, ir.StatusListed)
	return ent
}

// setStatus moves the entity to status. The snapshot's status field follows
// only when the creator recorded one; the fold never adds keys that were not
// part of a hashed payload.
func setStatus(ent *ir.Entity, status ir.Status) {
	ent.Status = status
	if ent.Fields.Has(ir.FieldStatus) {
		_ = ent.Fields.Set(ir.FieldStatus, string(status))
	}
}

func saleInfo(e ir.LedgerEntry) *ir.SaleInfo {
	info := &ir.SaleInfo{
		SoldAt:         e.RecordedAt,
		TransactionRef: e.TransactionRef,
	}
	info.BuyerRef, _ = e.Payload.String(ir.FieldBuyerRef)
	if docs, ok := e.Payload.Strings(ir.FieldDocuments); ok {
		info.Documents = docs
	}
	if s, ok := e.Payload.String(ir.FieldSoldAt); ok {
		if at, err := time.Parse(ir.TimeFormat, s); err == nil {
			info.SoldAt = at
		}
	}
	return info
}

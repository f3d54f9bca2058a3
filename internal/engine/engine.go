package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/marketledger/internal/ir"
	"github.com/roach88/marketledger/internal/projection"
	"github.com/roach88/marketledger/internal/store"
)

// IDGenerator generates listing ids.
// Implemented by UUIDv7Generator (production) and
// testutil.SequentialIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// Validator checks listing fields before they are appended.
// Implemented by schema.Validator.
type Validator interface {
	// ValidateListing checks the complete field set of a new listing.
	ValidateListing(fields ir.Payload) error

	// ValidateUpdate checks only the fields present in an update.
	ValidateUpdate(fields ir.Payload) error
}

// Engine is the listing service: the only code path that appends to the
// ledger.
//
// Every mutation runs under a per-entity lock:
//  1. Read and project the entity's entries
//  2. Authorize against the projection
//  3. Append with Version = projected version + 1
//
// The store rejects the append if another process got there first, so the
// lock is only needed to keep writers in this process from wasting work.
//
// Thread-safety: all methods are safe for concurrent use.
type Engine struct {
	store     store.Ledger
	projector *projection.Projector
	ids       IDGenerator
	validator Validator
	logger    *slog.Logger
	locks     *keyedMutex
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithIDGenerator sets the generator used when Create gets no id.
// Default: UUIDv7Generator{}.
func WithIDGenerator(ids IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = ids
	}
}

// WithValidator enables payload validation. Default: none.
func WithValidator(v Validator) EngineOption {
	return func(e *Engine) {
		e.validator = v
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine over the given ledger.
func New(ledger store.Ledger, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  ledger,
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
		locks:  newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.projector = projection.NewProjector(e.logger)
	return e
}

// CreateRequest describes a new listing.
type CreateRequest struct {
	// ID is optional; a new id is generated when empty.
	ID string

	// Fields are the creator-supplied listing fields. id, ownerId and
	// status are set by the engine and overwritten if present.
	Fields ir.Payload
}

// UpdateRequest describes a change to a listing's mutable fields.
type UpdateRequest struct {
	ID     string
	Fields ir.Payload

	// ExpectedVersion, when non-zero, must equal the listing's current
	// version or the update fails with CONFLICT.
	ExpectedVersion int64
}

// SaleRequest closes a listing.
type SaleRequest struct {
	ID string

	// BuyerID is stored only as a domain-separated hash.
	BuyerID string

	// Documents are references to transaction evidence. At least one
	// non-blank reference is required.
	Documents []string
}

// DelistRequest removes a listing from the active set.
type DelistRequest struct {
	ID     string
	Reason string
}

// Create appends a CREATED entry and returns the new listing.
func (e *Engine) Create(ctx context.Context, caller Caller, req CreateRequest) (*ir.Entity, error) {
	owner := NormalizeID(caller.ID)
	if owner == "" {
		return nil, &LedgerError{
			Code:    ErrCodeUnauthorized,
			Message: "caller identity is required",
			Details: map[string]string{"caller": caller.ID},
		}
	}

	id := NormalizeID(req.ID)
	if id == "" {
		id = e.ids.Generate()
	}

	fields := req.Fields.Without(ir.IdentityFields...)
	if e.validator != nil {
		if err := e.validator.ValidateListing(fields); err != nil {
			return nil, e.reject(NewInvalidPayloadError(id, err))
		}
	}

	snapshot := fields.Clone()
	if err := setIdentity(snapshot, id, owner); err != nil {
		return nil, NewInvalidPayloadError(id, err)
	}

	unlock := e.locks.Lock(id)
	defer unlock()

	entries, err := e.store.ReadEntity(ctx, id)
	if err != nil {
		return nil, NewStorageError(id, err)
	}
	if len(entries) > 0 {
		return nil, e.reject(&LedgerError{
			Code:     ErrCodeConflict,
			Message:  "listing id already exists",
			EntityID: id,
		})
	}

	entry, err := e.append(ctx, ir.KindCreated, id, 1, snapshot, owner)
	if err != nil {
		return nil, err
	}
	return e.projectAfter(entries, entry)
}

// Update appends an UPDATED entry carrying the full post-update snapshot.
// Fields absent from req.Fields keep their projected values.
func (e *Engine) Update(ctx context.Context, caller Caller, req UpdateRequest) (*ir.Entity, error) {
	id := NormalizeID(req.ID)
	unlock := e.locks.Lock(id)
	defer unlock()

	entries, ent, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeUpdate(ent, caller); err != nil {
		return nil, e.reject(err)
	}
	if req.ExpectedVersion != 0 && req.ExpectedVersion != ent.Version {
		err := NewConflictError(ent.ID, nil)
		err.Details = map[string]string{
			"expected_version": fmt.Sprint(req.ExpectedVersion),
			"current_version":  fmt.Sprint(ent.Version),
		}
		return nil, e.reject(err)
	}

	delta := req.Fields.Without(ir.IdentityFields...)
	if len(delta) == 0 {
		return nil, e.reject(NewInvalidPayloadError(ent.ID, errors.New("no mutable fields to update")))
	}
	if e.validator != nil {
		if err := e.validator.ValidateUpdate(delta); err != nil {
			return nil, e.reject(NewInvalidPayloadError(ent.ID, err))
		}
	}

	snapshot := ent.Fields.Clone()
	for k, v := range delta {
		snapshot[k] = v
	}

	entry, err := e.append(ctx, ir.KindUpdated, ent.ID, ent.Version+1, snapshot, NormalizeID(caller.ID))
	if err != nil {
		return nil, err
	}
	return e.projectAfter(entries, entry)
}

// MarkSold appends a SOLD entry. The listing's current hash is unchanged.
func (e *Engine) MarkSold(ctx context.Context, caller Caller, req SaleRequest) (*ir.Entity, error) {
	id := NormalizeID(req.ID)
	unlock := e.locks.Lock(id)
	defer unlock()

	entries, ent, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeSale(ent, caller, req.Documents); err != nil {
		return nil, e.reject(err)
	}

	payload := ir.Payload{}
	if err := payload.Set(ir.FieldDocuments, cleanDocuments(req.Documents)); err != nil {
		return nil, NewInvalidPayloadError(ent.ID, err)
	}
	if buyer := NormalizeID(req.BuyerID); buyer != "" {
		if err := payload.Set(ir.FieldBuyerRef, ir.BuyerRef(buyer)); err != nil {
			return nil, NewInvalidPayloadError(ent.ID, err)
		}
	}

	entry, err := e.append(ctx, ir.KindSold, ent.ID, ent.Version+1, payload, NormalizeID(caller.ID))
	if err != nil {
		return nil, err
	}
	return e.projectAfter(entries, entry)
}

// Delist appends a DELISTED entry. Admin only.
func (e *Engine) Delist(ctx context.Context, caller Caller, req DelistRequest) (*ir.Entity, error) {
	id := NormalizeID(req.ID)
	unlock := e.locks.Lock(id)
	defer unlock()

	entries, ent, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeDelist(ent, caller, req.Reason); err != nil {
		return nil, e.reject(err)
	}

	payload := ir.Payload{}
	if err := payload.Set(ir.FieldReason, req.Reason); err != nil {
		return nil, NewInvalidPayloadError(ent.ID, err)
	}

	entry, err := e.append(ctx, ir.KindDelisted, ent.ID, ent.Version+1, payload, NormalizeID(caller.ID))
	if err != nil {
		return nil, err
	}
	return e.projectAfter(entries, entry)
}

// Get returns the projected listing.
func (e *Engine) Get(ctx context.Context, id string) (*ir.Entity, error) {
	_, ent, err := e.load(ctx, NormalizeID(id))
	return ent, err
}

// List projects the whole ledger and returns matching listings, most
// recently created first.
func (e *Engine) List(ctx context.Context, filter projection.Filter) ([]*ir.Entity, error) {
	entries, err := e.store.ReadAll(ctx)
	if err != nil {
		return nil, NewStorageError("", err)
	}
	if filter.OwnerID != "" {
		filter.OwnerID = NormalizeID(filter.OwnerID)
	}
	return e.projector.Project(entries).List(filter), nil
}

// History returns the entries of one listing in append order.
func (e *Engine) History(ctx context.Context, id string) ([]ir.LedgerEntry, error) {
	id = NormalizeID(id)
	entries, err := e.store.ReadEntity(ctx, id)
	if err != nil {
		return nil, NewStorageError(id, err)
	}
	if len(entries) == 0 {
		return nil, NewNotFoundError(id)
	}
	return entries, nil
}

// Log returns every entry in append order.
func (e *Engine) Log(ctx context.Context) ([]ir.LedgerEntry, error) {
	entries, err := e.store.ReadAll(ctx)
	if err != nil {
		return nil, NewStorageError("", err)
	}
	return entries, nil
}

// LogSince returns the entries with Seq greater than afterSeq.
func (e *Engine) LogSince(ctx context.Context, afterSeq int64) ([]ir.LedgerEntry, error) {
	entries, err := e.store.ReadSince(ctx, afterSeq)
	if err != nil {
		return nil, NewStorageError("", err)
	}
	return entries, nil
}

// load reads and projects one entity. id must already be normalized.
func (e *Engine) load(ctx context.Context, id string) ([]ir.LedgerEntry, *ir.Entity, error) {
	entries, err := e.store.ReadEntity(ctx, id)
	if err != nil {
		return nil, nil, NewStorageError(id, err)
	}
	ent, ok := e.projector.ProjectEntity(entries, id)
	if !ok {
		return nil, nil, NewNotFoundError(id)
	}
	return entries, ent, nil
}

// append hashes payload, appends the entry and maps store failures.
func (e *Engine) append(ctx context.Context, kind ir.Kind, id string, version int64, payload ir.Payload, actor string) (ir.LedgerEntry, error) {
	hash, err := ir.ContentHash(payload)
	if err != nil {
		return ir.LedgerEntry{}, NewInvalidPayloadError(id, err)
	}

	stored, err := e.store.Append(ctx, ir.LedgerEntry{
		Kind:        kind,
		EntityID:    id,
		Version:     version,
		Payload:     payload,
		ContentHash: hash,
		Actor:       actor,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrVersionConflict):
			return ir.LedgerEntry{}, e.reject(NewConflictError(id, err))
		case errors.Is(err, store.ErrInvalidEntry):
			return ir.LedgerEntry{}, NewInvalidPayloadError(id, err)
		default:
			e.logger.Error("ledger append failed",
				"entity_id", id,
				"kind", kind,
				"error", err,
			)
			return ir.LedgerEntry{}, NewStorageError(id, err)
		}
	}

	e.logger.Info("ledger entry appended",
		"entity_id", id,
		"kind", kind,
		"seq", stored.Seq,
		"version", stored.Version,
		"content_hash", stored.ContentHash,
	)
	return stored, nil
}

// projectAfter projects the entity including a freshly appended entry.
func (e *Engine) projectAfter(entries []ir.LedgerEntry, appended ir.LedgerEntry) (*ir.Entity, error) {
	all := append(entries[:len(entries):len(entries)], appended)
	ent, ok := e.projector.ProjectEntity(all, appended.EntityID)
	if !ok {
		return nil, NewNotFoundError(appended.EntityID)
	}
	return ent, nil
}

// reject logs a refused mutation and returns err unchanged.
func (e *Engine) reject(err error) error {
	var le *LedgerError
	if errors.As(err, &le) {
		e.logger.Warn("ledger mutation rejected",
			"entity_id", le.EntityID,
			"code", le.Code,
			"message", le.Message,
		)
	}
	return err
}

func setIdentity(p ir.Payload, id, owner string) error {
	if err := p.Set(ir.FieldID, id); err != nil {
		return err
	}
	if err := p.Set(ir.FieldOwnerID, owner); err != nil {
		return err
	}
	return p.Set(ir.FieldStatus, string(ir.StatusListed))
}

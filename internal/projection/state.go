package projection

import (
	"slices"

	"github.com/roach88/marketledger/internal/ir"
)

// State is the result of a fold.
// It is owned by the caller; nothing else holds a reference to it.
type State struct {
	entities map[string]*ir.Entity
	order    []string // discovery order: the order CREATED entries were seen
	skipped  []Skip
}

func newState() *State {
	return &State{entities: make(map[string]*ir.Entity)}
}

func (s *State) add(ent *ir.Entity) {
	s.entities[ent.ID] = ent
	s.order = append(s.order, ent.ID)
}

// Get returns the entity with the given id.
func (s *State) Get(entityID string) (*ir.Entity, bool) {
	ent, ok := s.entities[entityID]
	return ent, ok
}

// Len returns the number of projected entities, delisted ones included.
func (s *State) Len() int {
	return len(s.entities)
}

// Entities returns the id → entity map.
func (s *State) Entities() map[string]*ir.Entity {
	return s.entities
}

// Skipped returns the entries the fold ignored, in log order.
func (s *State) Skipped() []Skip {
	return slices.Clone(s.skipped)
}

// SkipCount returns how many entries the fold ignored so far.
func (s *State) SkipCount() int {
	return len(s.skipped)
}

// Filter narrows List.
type Filter struct {
	// Status keeps only entities in this status. Empty keeps every status
	// except DELISTED.
	Status ir.Status

	// ActiveOnly is shorthand for Status = LISTED.
	ActiveOnly bool

	// IncludeDelisted keeps DELISTED entities when Status is empty.
	IncludeDelisted bool

	// OwnerID keeps only entities created by this owner.
	OwnerID string
}

func (f Filter) keep(ent *ir.Entity) bool {
	status := f.Status
	if f.ActiveOnly {
		status = ir.StatusListed
	}
	switch {
	case status != "":
		if ent.Status != status {
			return false
		}
	case !f.IncludeDelisted && ent.Status == ir.StatusDelisted:
		return false
	}
	if f.OwnerID != "" && ent.OwnerID != f.OwnerID {
		return false
	}
	return true
}

// List returns matching entities, most recently created first.
func (s *State) List(f Filter) []*ir.Entity {
	out := make([]*ir.Entity, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		ent := s.entities[s.order[i]]
		if f.keep(ent) {
			out = append(out, ent)
		}
	}
	return out
}

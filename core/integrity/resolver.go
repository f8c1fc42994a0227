// Package integrity detects and repairs dangling relational references.
//
// The document store enforces no cross-collection integrity on delete, so a
// deleted user may still be listed on a classroom roster, a grade or an
// attendance record. This package is the facade callers go through instead
// of trusting raw references: every dereference re-checks existence against
// the store, and a dangling reference is healed in place according to the
// rules table.
//
// Beware: resolving is not read-only. A "read" through this package can
// mutate the store (clear a field, drop list entries, or cascade-delete the
// owning record) as a byproduct of healing.
package integrity

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// Owner is a record holding a single-valued governed reference.
type Owner interface {
	core.Record
	// RefID returns the referenced id for field, or "" when unset.
	RefID(field string) string
	ClearRef(field string)
}

// ListOwner is a record holding a multi-valued governed reference.
type ListOwner interface {
	core.Record
	// RefIDs returns the referenced ids for field, in stored order.
	RefIDs(field string) []string
	// SetRefIDs replaces the list with the surviving ids, preserving order.
	SetRefIDs(field string, ids []string)
}

// Resolution is the typed result of dereferencing a relational field, so
// callers can tell "no data" apart from "store unreachable" (the latter is
// returned as an error).
type Resolution int

const (
	Absent       Resolution = iota // field legitimately empty; a normal null
	Valid                          // target exists
	Repaired                       // dangling reference healed; treat as absent
	OwnerDeleted                   // required reference was dangling; owner cascade-deleted
)

// Resolver dereferences relational fields. A held reference is never
// trusted, even a materialized one: the target may have been deleted since
// the owner was loaded, so existence is checked fresh on every call.
type Resolver struct {
	store  core.Store
	engine *Engine
}

func NewResolver(store core.Store, engine *Engine) *Resolver {
	return &Resolver{store: store, engine: engine}
}

// Resolve dereferences a single-valued field on owner. A store failure is
// returned as an error and never triggers repair; only a definitive
// missing target counts as dangling.
func (r *Resolver) Resolve(ctx context.Context, owner Owner, field string) (Resolution, error) {
	rule, ok := RuleFor(owner.RecordKind(), field)
	if !ok || rule.Multi {
		return Absent, errors.Errorf("no single-valued integrity rule for %s.%s", owner.RecordKind(), field)
	}

	id := owner.RefID(field)
	if id == "" {
		return Absent, nil
	}

	exists, err := r.store.Exists(ctx, rule.Target, id)
	if err != nil {
		return Absent, errors.Wrapf(err, "checking %s %s existence", rule.Target, id)
	}
	if exists {
		return Valid, nil
	}

	outcome, err := r.engine.Repair(ctx, owner, field)
	if err != nil {
		return Absent, err
	}
	if rule.Required || outcome == OutcomeOwnerDeleted {
		return OwnerDeleted, nil
	}
	return Repaired, nil
}

// SafeList dereferences a multi-valued field on owner and returns the ids
// of the entries whose target still exists, in their original relative
// order. Dead entries are dropped from the owner's stored list; when any
// were dropped the owner is persisted exactly once. Reads on healthy data
// perform zero writes.
func (r *Resolver) SafeList(ctx context.Context, owner ListOwner, field string) ([]string, error) {
	rule, ok := RuleFor(owner.RecordKind(), field)
	if !ok || !rule.Multi {
		return nil, errors.Errorf("no multi-valued integrity rule for %s.%s", owner.RecordKind(), field)
	}

	ids := owner.RefIDs(field)
	valid := make([]string, 0, len(ids))
	var dropped int
	for _, id := range ids {
		exists, err := r.store.Exists(ctx, rule.Target, id)
		if err != nil {
			return nil, errors.Wrapf(err, "checking %s %s existence", rule.Target, id)
		}
		if exists {
			valid = append(valid, id)
		} else {
			dropped++
		}
	}

	if dropped > 0 {
		owner.SetRefIDs(field, valid)
		if err := r.store.Save(ctx, owner); err != nil {
			return nil, errors.Wrapf(err, "saving %s %s", owner.RecordKind(), owner.RecordID())
		}
		for i := 0; i < dropped; i++ {
			r.engine.emit(owner, field, OutcomeRemoved)
		}
	}
	return valid, nil
}

package integrity

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// Outcome reports what a repair did to the owning record.
type Outcome int

const (
	OutcomeNone         Outcome = iota // nothing left to repair
	OutcomeNulled                      // optional reference cleared, owner saved
	OutcomeRemoved                     // list entry dropped, owner saved
	OutcomeOwnerDeleted                // required reference dangling, owner cascade-deleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNulled:
		return "nulled"
	case OutcomeRemoved:
		return "removed"
	case OutcomeOwnerDeleted:
		return "owner_deleted"
	}
	return "none"
}

// Engine applies the repair policy from the rules table to an owner whose
// reference has been detected dangling. It is generic over owners: the
// policy lives in the table, not in per-entity branches.
type Engine struct {
	store core.Store
	sink  EventSink
}

func NewEngine(store core.Store, sink EventSink) *Engine {
	return &Engine{store: store, sink: sink}
}

// Repair heals a dangling single-valued reference: a required field means
// the owner is semantically invalid without it and is deleted outright; an
// optional field is cleared and the owner saved.
//
// Repair is idempotent. Concurrent requests may both detect the same
// dangling reference; repairing an owner whose field is already empty, or
// that is already gone from the store, returns OutcomeNone without error.
func (e *Engine) Repair(ctx context.Context, owner Owner, field string) (Outcome, error) {
	rule, ok := RuleFor(owner.RecordKind(), field)
	if !ok || rule.Multi {
		return OutcomeNone, errors.Errorf("no single-valued integrity rule for %s.%s", owner.RecordKind(), field)
	}

	if owner.RefID(field) == "" {
		return OutcomeNone, nil
	}

	exists, err := e.store.Exists(ctx, owner.RecordKind(), owner.RecordID())
	if err != nil {
		return OutcomeNone, errors.Wrapf(err, "checking %s %s existence", owner.RecordKind(), owner.RecordID())
	}
	if !exists {
		// a concurrent repair got here first
		return OutcomeNone, nil
	}

	if rule.Required {
		if err = e.store.Delete(ctx, owner); err != nil {
			return OutcomeNone, errors.Wrapf(err, "cascade-deleting %s %s", owner.RecordKind(), owner.RecordID())
		}
		e.emit(owner, field, OutcomeOwnerDeleted)
		return OutcomeOwnerDeleted, nil
	}

	owner.ClearRef(field)
	if err = e.store.Save(ctx, owner); err != nil {
		return OutcomeNone, errors.Wrapf(err, "saving %s %s", owner.RecordKind(), owner.RecordID())
	}
	e.emit(owner, field, OutcomeNulled)
	return OutcomeNulled, nil
}

func (e *Engine) emit(owner core.Record, field string, out Outcome) {
	if e.sink == nil {
		return
	}
	e.sink.Record(Event{
		Owner:   owner.RecordKind(),
		OwnerID: owner.RecordID(),
		Field:   field,
		Outcome: out,
	})
}

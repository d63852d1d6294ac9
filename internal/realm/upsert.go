package realm

import "fmt"

// CollisionPolicy decides what Upsert does when its predicate matches more
// than one record.
type CollisionPolicy int

const (
	// CollisionFail aborts the upsert with a COLLISION error; nothing is written.
	CollisionFail CollisionPolicy = iota
	// CollisionUseFirst merges into the earliest inserted match.
	CollisionUseFirst
	// CollisionUseLast merges into the latest inserted match.
	CollisionUseLast
)

func (p CollisionPolicy) String() string {
	switch p {
	case CollisionFail:
		return "fail"
	case CollisionUseFirst:
		return "use_first"
	case CollisionUseLast:
		return "use_last"
	default:
		return "unknown"
	}
}

// UpsertOutcome reports which path an upsert took.
type UpsertOutcome int

const (
	// Inserted means no record matched and obj was added.
	Inserted UpsertOutcome = iota + 1
	// Merged means obj was merged into the matching record.
	Merged
	// Skipped means the merge gate vetoed the merge. Not an error.
	Skipped
)

func (o UpsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Merged:
		return "merged"
	case Skipped:
		return "skipped"
	default:
		return "none"
	}
}

// MergeGate decides whether incoming may be merged into existing.
// It runs inside the merge transaction.
type MergeGate[T any] func(incoming, existing *T) bool

// Merger is implemented by entities that merge field by field. Without it
// the incoming value replaces the existing one wholesale; the record keeps
// its identity either way.
type Merger[T any] interface {
	MergeFrom(other *T)
}

// Upsert inserts obj unless pred matches an existing record, in which case
// obj is merged into that record.
//
// Matching runs on a fresh read session before the write is submitted, in
// insertion order. More than one match is resolved by policy. The chosen
// record is re-resolved inside the merge transaction; if it was deleted in
// between, Upsert fails with a RESOLUTION error and writes nothing.
func Upsert[T any](c *Coordinator, obj *T, pred Predicate[T], gate MergeGate[T], policy CollisionPolicy) (UpsertOutcome, error) {
	const op = "upsert"

	if obj == nil {
		return 0, c.fail(op, newError(ErrCodeValidation, op, "", "nil object", ErrEmptyHandle))
	}

	s := c.NewSession()
	matches, err := Query(s, pred)
	s.Close()
	if err != nil {
		return 0, c.fail(op, err)
	}

	var target Handle[T]
	switch {
	case len(matches) == 1:
		target = matches[0]
	case len(matches) > 1:
		switch policy {
		case CollisionUseFirst:
			target = matches[0]
		case CollisionUseLast:
			target = matches[len(matches)-1]
		default:
			return 0, c.fail(op, newError(ErrCodeCollision, op, matches[0].typ,
				fmt.Sprintf("%d records match", len(matches)), nil))
		}
	}

	return upsertInto(c, op, obj, target, gate, nil)
}

// UpsertByKey inserts obj unless a record with the same primary key exists,
// in which case obj is merged into it. T must declare exactly one primary key.
// Repeated upserts of one key converge on a single record.
func UpsertByKey[T any](c *Coordinator, obj *T, gate MergeGate[T]) (UpsertOutcome, error) {
	const op = "upsert_by_key"

	e, err := keyedEntityFor[T](c.reg, op)
	if err != nil {
		return 0, c.fail(op, err)
	}
	if obj == nil {
		return 0, c.fail(op, newError(ErrCodeValidation, op, e.Name, "nil object", ErrEmptyHandle))
	}
	key, _, err := e.KeyOf(obj)
	if err != nil {
		return 0, c.fail(op, newError(ErrCodeValidation, op, e.Name, "", err))
	}

	s := c.NewSession()
	target, _, err := Find[T](s, key)
	s.Close()
	if err != nil {
		return 0, c.fail(op, err)
	}

	// A record with this key may be committed between the lookup above and
	// the merge job; look again inside the job before inserting.
	relookup := func(tx *Txn) (Handle[T], bool, error) {
		return Lookup[T](tx, key)
	}
	return upsertInto(c, op, obj, target, gate, relookup)
}

// upsertInto runs the merge transaction. An empty target inserts obj unless
// relookup, when given, finds a record inside the transaction to merge into.
func upsertInto[T any](c *Coordinator, op string, obj *T, target Handle[T], gate MergeGate[T],
	relookup func(*Txn) (Handle[T], bool, error)) (UpsertOutcome, error) {
	var ref *Ref[T]
	if target.Managed() {
		var err error
		if ref, err = target.checkout(); err != nil {
			return 0, c.fail(op, newError(ErrCodeValidation, op, target.typ, "", err))
		}
	}

	if c.testHookAfterLookup != nil {
		c.testHookAfterLookup()
	}

	var outcome UpsertOutcome
	err := c.submit(op, func(tx *Txn) error {
		var live Handle[T]
		if ref == nil {
			found := false
			if relookup != nil {
				var err error
				if live, found, err = relookup(tx); err != nil {
					return err
				}
			}
			if !found {
				if _, err := Insert(tx, obj, ConflictFail); err != nil {
					return err
				}
				outcome = Inserted
				return nil
			}
		} else {
			var ok bool
			var err error
			if live, ok, err = ResolveIn(tx, ref); err != nil {
				return err
			}
			if !ok {
				return newError(ErrCodeResolution, op, target.typ,
					fmt.Sprintf("record %s deleted before merge", target.id), nil)
			}
		}

		if gate != nil && !gate(obj, live.obj) {
			outcome = Skipped
			return nil
		}
		merge(live.obj, obj)
		if err := Save(tx, live); err != nil {
			return err
		}
		outcome = Merged
		return nil
	})
	if err != nil {
		return 0, err
	}
	return outcome, nil
}

func merge[T any](existing, incoming *T) {
	if m, ok := any(existing).(Merger[T]); ok {
		m.MergeFrom(incoming)
		return
	}
	*existing = *incoming
}

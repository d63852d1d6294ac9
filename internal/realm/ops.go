package realm

// ConflictPolicy decides what Add does when the primary key already exists.
type ConflictPolicy int

const (
	// ConflictFail rejects the insert with a DUPLICATE_KEY error.
	ConflictFail ConflictPolicy = iota
	// ConflictOverwrite replaces the existing record's contents.
	ConflictOverwrite
)

func (p ConflictPolicy) String() string {
	switch p {
	case ConflictFail:
		return "fail"
	case ConflictOverwrite:
		return "overwrite"
	default:
		return "unknown"
	}
}

// Mutator edits a record in place. A nil argument means there was nothing to
// resolve: the record was deleted or the handle was not managed. Returning an
// error rolls the whole transaction back.
type Mutator[T any] func(obj *T) error

// Add inserts obj in its own transaction and returns a ref to the new record
// that the caller can resolve on its own session.
func Add[T any](c *Coordinator, obj *T, policy ConflictPolicy) (*Ref[T], error) {
	var ref *Ref[T]
	err := c.submit("add", func(tx *Txn) error {
		h, err := Insert(tx, obj, policy)
		if err != nil {
			return err
		}
		ref, err = h.checkout()
		return err
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// AddBatch inserts objs in order in one transaction. Any failure aborts the
// whole batch.
func AddBatch[T any](c *Coordinator, objs []*T, policy ConflictPolicy) error {
	return c.submit("add_batch", func(tx *Txn) error {
		for _, obj := range objs {
			if _, err := Insert(tx, obj, policy); err != nil {
				return err
			}
		}
		return nil
	})
}

// Write resolves h inside a transaction and applies mutate to it, saving the
// result. mutate receives nil when h is empty or unmanaged, or when the
// record was deleted after h was obtained; nothing is saved in that case.
func Write[T any](c *Coordinator, h Handle[T], mutate Mutator[T]) error {
	const op = "write"

	if mutate == nil {
		return c.fail(op, newError(ErrCodeValidation, op, h.typ, "nil mutator", nil))
	}

	var ref *Ref[T]
	if h.Managed() {
		var err error
		if ref, err = h.checkout(); err != nil {
			return c.fail(op, newError(ErrCodeValidation, op, h.typ, "", err))
		}
	}

	return c.submit(op, func(tx *Txn) error {
		live, ok, err := ResolveIn(tx, ref)
		if err != nil {
			return err
		}
		if !ok {
			return mutate(nil)
		}
		if err := mutate(live.obj); err != nil {
			return err
		}
		return Save(tx, live)
	})
}

// WriteWhere applies mutate to every record of type T currently matching
// pred, in one transaction, and returns how many were written. With no
// matches the transaction still runs and commits nothing.
func WriteWhere[T any](c *Coordinator, pred Predicate[T], mutate Mutator[T]) (int, error) {
	const op = "write_where"

	if mutate == nil {
		return 0, c.fail(op, newError(ErrCodeValidation, op, "", "nil mutator", nil))
	}

	var n int
	err := c.submit(op, func(tx *Txn) error {
		n = 0
		matches, err := Select(tx, pred)
		if err != nil {
			return err
		}
		for _, h := range matches {
			if err := mutate(h.obj); err != nil {
				return err
			}
			if err := Save(tx, h); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes the record behind h. A record that is already gone is not
// an error. Empty and unmanaged handles are VALIDATION errors.
func Delete[T any](c *Coordinator, h Handle[T]) error {
	const op = "delete"

	if !h.Managed() {
		return c.fail(op, newError(ErrCodeValidation, op, h.typ, "handle is not managed", ErrEmptyHandle))
	}
	ref, err := h.checkout()
	if err != nil {
		return c.fail(op, newError(ErrCodeValidation, op, h.typ, "", err))
	}

	return c.submit(op, func(tx *Txn) error {
		live, ok, err := ResolveIn(tx, ref)
		if err != nil || !ok {
			return err
		}
		_, err = Remove(tx, live)
		return err
	})
}

// DeleteWhere removes every record of type T matching pred and returns how
// many were removed.
func DeleteWhere[T any](c *Coordinator, pred Predicate[T]) (int, error) {
	var n int
	err := c.submit("delete_where", func(tx *Txn) error {
		n = 0
		matches, err := Select(tx, pred)
		if err != nil {
			return err
		}
		for _, h := range matches {
			ok, err := Remove(tx, h)
			if err != nil {
				return err
			}
			if ok {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteAll removes every record of type T and returns how many were removed.
func DeleteAll[T any](c *Coordinator) (int, error) {
	const op = "delete_all"

	var n int64
	err := c.submit(op, func(tx *Txn) error {
		e, err := entityFor[T](c.reg, op)
		if err != nil {
			return err
		}
		n, err = tx.tx.DeleteType(tx.ctx, e.Name)
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

package realm

// Partition splits hs into managed and unmanaged handles, preserving order.
// Empty handles are dropped.
func Partition[T any](hs []Handle[T]) (managed, unmanaged []Handle[T]) {
	for _, h := range hs {
		switch {
		case h.Managed():
			managed = append(managed, h)
		case !h.IsEmpty():
			unmanaged = append(unmanaged, h)
		}
	}
	return managed, unmanaged
}

// WriteBatch applies mutate to every handle in hs.
//
// Managed handles are resolved and saved in one transaction; records deleted
// since the handles were obtained are skipped. Unmanaged handles are then
// mutated in caller memory and inserted, overwriting by primary key, in a
// second transaction. The two transactions commit independently: a failure
// in the second leaves the first committed.
func WriteBatch[T any](c *Coordinator, hs []Handle[T], mutate Mutator[T]) error {
	const op = "write_batch"

	if mutate == nil {
		return c.fail(op, newError(ErrCodeValidation, op, "", "nil mutator", nil))
	}

	managed, unmanaged := Partition(hs)

	if len(managed) > 0 {
		refs, err := checkoutAll(managed)
		if err != nil {
			return c.fail(op, newError(ErrCodeValidation, op, managed[0].typ, "", err))
		}
		err = c.submit(op, func(tx *Txn) error {
			for _, ref := range refs {
				live, ok, err := ResolveIn(tx, ref)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				if err := mutate(live.obj); err != nil {
					return err
				}
				if err := Save(tx, live); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if len(unmanaged) == 0 {
		return nil
	}
	return c.submit(op, func(tx *Txn) error {
		for _, h := range unmanaged {
			if err := mutate(h.obj); err != nil {
				return err
			}
			if _, err := Insert(tx, h.obj, ConflictOverwrite); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteBatch removes the records behind the managed handles in hs in one
// transaction and returns how many were removed. Unmanaged and empty handles
// have nothing to delete and are ignored.
func DeleteBatch[T any](c *Coordinator, hs []Handle[T]) (int, error) {
	const op = "delete_batch"

	managed, _ := Partition(hs)
	refs, err := checkoutAll(managed)
	if err != nil {
		return 0, c.fail(op, newError(ErrCodeValidation, op, "", "", err))
	}

	var n int
	err = c.submit(op, func(tx *Txn) error {
		n = 0
		for _, ref := range refs {
			live, ok, err := ResolveIn(tx, ref)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			removed, err := Remove(tx, live)
			if err != nil {
				return err
			}
			if removed {
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

func checkoutAll[T any](hs []Handle[T]) ([]*Ref[T], error) {
	refs := make([]*Ref[T], 0, len(hs))
	for _, h := range hs {
		ref, err := h.checkout()
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

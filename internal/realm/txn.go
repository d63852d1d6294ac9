package realm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/stowage/internal/schema"
	"github.com/roach88/stowage/internal/store"
)

// Txn is the open transaction handed to a job. It is only valid inside the
// function it was passed to; handles produced from it die with it.
type Txn struct {
	ctx  context.Context
	tx   *store.Tx
	c    *Coordinator
	conf *confinement
}

func (t *Txn) owner() *confinement {
	return t.conf
}

// Context returns the context the transaction runs under.
func (t *Txn) Context() context.Context {
	return t.ctx
}

// entityFor looks up T, reporting unregistered types as VALIDATION errors.
func entityFor[T any](reg *schema.Registry, op string) (*schema.Entity, error) {
	e, err := schema.Lookup[T](reg)
	if err != nil {
		return nil, newError(ErrCodeValidation, op, "", "", err)
	}
	return e, nil
}

// keyedEntityFor is entityFor for key-based operations: T must declare
// exactly one primary key.
func keyedEntityFor[T any](reg *schema.Registry, op string) (*schema.Entity, error) {
	e, err := entityFor[T](reg, op)
	if err != nil {
		return nil, err
	}
	if _, err := e.KeyField(); err != nil {
		return nil, newError(ErrCodeValidation, op, e.Name, "", err)
	}
	return e, nil
}

// Insert persists obj inside tx and returns a handle owned by tx.
//
// With ConflictFail an existing record with the same primary key fails with a
// DUPLICATE_KEY error. With ConflictOverwrite the existing record keeps its
// identity and takes obj's contents.
func Insert[T any](tx *Txn, obj *T, policy ConflictPolicy) (Handle[T], error) {
	const op = "insert"

	e, err := entityFor[T](tx.c.reg, op)
	if err != nil {
		return Handle[T]{}, err
	}
	if obj == nil {
		return Handle[T]{}, newError(ErrCodeValidation, op, e.Name, "nil object", ErrEmptyHandle)
	}

	key, hasKey, err := e.KeyOf(obj)
	if err != nil {
		return Handle[T]{}, newError(ErrCodeValidation, op, e.Name, "", err)
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return Handle[T]{}, newError(ErrCodeValidation, op, e.Name, "encode", err)
	}

	row := store.Object{Type: e.Name, Key: key, HasKey: hasKey, Body: body}
	if hasKey && policy == ConflictOverwrite {
		existing, found, err := tx.tx.GetByKey(tx.ctx, e.Name, key)
		if err != nil {
			return Handle[T]{}, err
		}
		if found {
			row.ID = existing.ID
			if _, err := tx.tx.Update(tx.ctx, row); err != nil {
				return Handle[T]{}, err
			}
			return Handle[T]{conf: tx.conf, id: row.ID, typ: e.Name, obj: obj}, nil
		}
	}

	row.ID = tx.c.ids.Generate()
	id := row.ID
	_, err = tx.tx.Insert(tx.ctx, row)
	if errors.Is(err, store.ErrDuplicateKey) {
		return Handle[T]{}, newError(ErrCodeDuplicateKey, op, e.Name, fmt.Sprintf("key %q exists", key), err)
	}
	if err != nil {
		return Handle[T]{}, err
	}
	return Handle[T]{conf: tx.conf, id: id, typ: e.Name, obj: obj}, nil
}

// Lookup finds the record of type T whose primary key equals key.
func Lookup[T any](tx *Txn, key any) (Handle[T], bool, error) {
	const op = "lookup"

	e, err := keyedEntityFor[T](tx.c.reg, op)
	if err != nil {
		return Handle[T]{}, false, err
	}
	k, err := schema.CanonicalKey(key)
	if err != nil {
		return Handle[T]{}, false, newError(ErrCodeValidation, op, e.Name, "", err)
	}

	row, found, err := tx.tx.GetByKey(tx.ctx, e.Name, k)
	if err != nil || !found {
		return Handle[T]{}, false, err
	}
	h, err := decodeHandle[T](tx.conf, row)
	if err != nil {
		return Handle[T]{}, false, err
	}
	return h, true, nil
}

// Select returns every record of type T matching pred, in insertion order.
// A nil pred matches everything.
func Select[T any](tx *Txn, pred Predicate[T]) ([]Handle[T], error) {
	e, err := entityFor[T](tx.c.reg, "select")
	if err != nil {
		return nil, err
	}
	rows, err := tx.tx.Scan(tx.ctx, e.Name)
	if err != nil {
		return nil, err
	}
	return filterRows(tx.conf, rows, pred)
}

// Save writes the current contents of h back to the store.
// h must belong to tx. Saving a record deleted in this transaction is a
// RESOLUTION error.
func Save[T any](tx *Txn, h Handle[T]) error {
	const op = "save"

	obj, err := h.Get(tx)
	if err != nil {
		return newError(ErrCodeValidation, op, h.typ, "", err)
	}
	if obj == nil || !h.Managed() {
		return newError(ErrCodeValidation, op, h.typ, "handle is not managed", ErrEmptyHandle)
	}

	e, err := entityFor[T](tx.c.reg, op)
	if err != nil {
		return err
	}
	key, hasKey, err := e.KeyOf(obj)
	if err != nil {
		return newError(ErrCodeValidation, op, e.Name, "", err)
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return newError(ErrCodeValidation, op, e.Name, "encode", err)
	}

	found, err := tx.tx.Update(tx.ctx, store.Object{ID: h.id, Type: e.Name, Key: key, HasKey: hasKey, Body: body})
	if errors.Is(err, store.ErrDuplicateKey) {
		return newError(ErrCodeDuplicateKey, op, e.Name, fmt.Sprintf("key %q exists", key), err)
	}
	if err != nil {
		return err
	}
	if !found {
		return newError(ErrCodeResolution, op, e.Name, fmt.Sprintf("record %s is gone", h.id), nil)
	}
	return nil
}

// Remove deletes the record behind h. h must belong to tx.
// Returns false if the record was already gone.
func Remove[T any](tx *Txn, h Handle[T]) (bool, error) {
	const op = "remove"

	if _, err := h.Get(tx); err != nil {
		return false, newError(ErrCodeValidation, op, h.typ, "", err)
	}
	if !h.Managed() {
		return false, newError(ErrCodeValidation, op, h.typ, "handle is not managed", ErrEmptyHandle)
	}
	return tx.tx.Delete(tx.ctx, h.id)
}

// ResolveIn consumes ref inside tx. A record deleted since checkout resolves
// to (empty, false, nil). A nil ref also resolves to nothing.
func ResolveIn[T any](tx *Txn, ref *Ref[T]) (Handle[T], bool, error) {
	const op = "resolve"

	e, err := entityFor[T](tx.c.reg, op)
	if err != nil {
		return Handle[T]{}, false, err
	}
	h, ok, err := resolveRef(tx.ctx, tx.tx, e, tx.conf, ref)
	if err != nil {
		return Handle[T]{}, false, newError(ErrCodeResolution, op, e.Name, "", err)
	}
	return h, ok, nil
}

// filterRows decodes rows into handles owned by conf, keeping those pred accepts.
func filterRows[T any](conf *confinement, rows []store.Object, pred Predicate[T]) ([]Handle[T], error) {
	if pred == nil {
		pred = All[T]()
	}

	out := make([]Handle[T], 0, len(rows))
	for _, row := range rows {
		h, err := decodeHandle[T](conf, row)
		if err != nil {
			return nil, err
		}
		ok, err := pred.Match(h.obj)
		if err != nil {
			return nil, newError(ErrCodeValidation, "match", row.Type, "predicate", err)
		}
		if ok {
			out = append(out, h)
		}
	}
	return out, nil
}

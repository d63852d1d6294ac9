package realm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/roach88/stowage/internal/schema"
	"github.com/roach88/stowage/internal/store"
)

// confinement is the identity of one owner. Handles remember the
// confinement they were produced under and refuse every other owner.
type confinement struct {
	id     uint64
	kind   string
	closed atomic.Bool
}

func (c *confinement) String() string {
	return fmt.Sprintf("%s#%d", c.kind, c.id)
}

// Owner is the capability needed to dereference a managed Handle.
// Only *Session and *Txn implement it.
type Owner interface {
	owner() *confinement
}

// Handle is a reference to a record that is only usable by its owner.
//
// A Handle produced by a Session is dereferenced with that Session; one
// produced inside a transaction only with that *Txn, and only until the
// transaction ends. To use a record elsewhere, check out a Ref with
// Checkout and resolve it on the destination owner.
//
// Unmanaged handles wrap caller memory and have no owner.
// The zero Handle is the empty handle.
type Handle[T any] struct {
	conf *confinement
	id   string
	typ  string
	obj  *T
}

// Unmanaged wraps an object that is not (yet) persisted.
func Unmanaged[T any](obj *T) Handle[T] {
	return Handle[T]{obj: obj}
}

// IsEmpty reports whether h refers to nothing.
func (h Handle[T]) IsEmpty() bool {
	return h.obj == nil
}

// Managed reports whether h refers to a persisted record.
func (h Handle[T]) Managed() bool {
	return h.id != ""
}

// ID returns the record identity, or "" for unmanaged and empty handles.
func (h Handle[T]) ID() string {
	return h.id
}

// Get dereferences h on behalf of o.
//
// The empty handle yields (nil, nil). Unmanaged handles yield their object
// for any owner. Managed handles require the producing owner and fail with
// ErrConfined otherwise, or ErrInvalidated once the owner is closed.
func (h Handle[T]) Get(o Owner) (*T, error) {
	if h.obj == nil {
		return nil, nil
	}
	if h.conf == nil {
		return h.obj, nil
	}
	if o == nil || o.owner() != h.conf {
		return nil, fmt.Errorf("%s %s: %w", h.typ, h.id, ErrConfined)
	}
	if h.conf.closed.Load() {
		return nil, fmt.Errorf("%s %s: %w", h.typ, h.id, ErrInvalidated)
	}
	return h.obj, nil
}

// Checkout creates a single-use Ref for h. It must be called by h's owner.
// Unmanaged handles need no ref and return (nil, nil).
func (h Handle[T]) Checkout(o Owner) (*Ref[T], error) {
	if h.Managed() {
		if _, err := h.Get(o); err != nil {
			return nil, err
		}
	}
	return h.checkout()
}

// checkout is Checkout without the owner check. The coordinator uses it on
// the caller's side of a hand-off; the live object never crosses.
func (h Handle[T]) checkout() (*Ref[T], error) {
	if h.obj == nil && h.id == "" {
		return nil, ErrEmptyHandle
	}
	if !h.Managed() {
		return nil, nil
	}
	return &Ref[T]{
		token: uuid.NewString(),
		id:    h.id,
		typ:   h.typ,
	}, nil
}

// Ref is a transferable, single-use ticket for a record.
// It holds no live object and is safe to pass between goroutines.
type Ref[T any] struct {
	token string
	id    string
	typ   string
	used  atomic.Bool
}

// Token returns the ref's unique token.
func (r *Ref[T]) Token() string {
	return r.token
}

// ID returns the referenced record identity.
func (r *Ref[T]) ID() string {
	return r.id
}

// source is satisfied by *store.Store and *store.Tx.
type source interface {
	Get(ctx context.Context, id string) (store.Object, bool, error)
	GetByKey(ctx context.Context, typ, key string) (store.Object, bool, error)
	Scan(ctx context.Context, typ string) ([]store.Object, error)
}

// resolveRef consumes r and loads its record from src.
// A deleted record resolves to (zero, false, nil).
func resolveRef[T any](ctx context.Context, src source, e *schema.Entity, conf *confinement, r *Ref[T]) (Handle[T], bool, error) {
	if r == nil {
		return Handle[T]{}, false, nil
	}
	if !r.used.CompareAndSwap(false, true) {
		return Handle[T]{}, false, fmt.Errorf("ref %s: %w", r.token, ErrRefConsumed)
	}
	if r.typ != e.Name {
		return Handle[T]{}, false, fmt.Errorf("ref %s: type %s, want %s", r.token, r.typ, e.Name)
	}

	row, ok, err := src.Get(ctx, r.id)
	if err != nil || !ok {
		return Handle[T]{}, false, err
	}
	h, err := decodeHandle[T](conf, row)
	if err != nil {
		return Handle[T]{}, false, err
	}
	return h, true, nil
}

func decodeHandle[T any](conf *confinement, row store.Object) (Handle[T], error) {
	obj := new(T)
	if err := json.Unmarshal(row.Body, obj); err != nil {
		return Handle[T]{}, fmt.Errorf("decode %s %s: %w", row.Type, row.ID, err)
	}
	return Handle[T]{conf: conf, id: row.ID, typ: row.Type, obj: obj}, nil
}

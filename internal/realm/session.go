package realm

import (
	"context"
	"fmt"

	"github.com/roach88/stowage/internal/schema"
	"github.com/roach88/stowage/internal/store"
)

// Session is a read context confined to the goroutine that uses it.
//
// Reads go straight to the store outside any transaction. Objects a session
// has loaded are cached by identity and keep their loaded contents until
// Refresh, so a session may observe a stale view of records other writers
// have since changed. Rows deleted since loading disappear from scans.
//
// Not safe for concurrent use. Handles it produces are valid only with it
// and only until Close.
type Session struct {
	ctx   context.Context
	store *store.Store
	reg   *schema.Registry
	conf  *confinement
	cache map[string]any
}

// NewSession opens a read session. Safe to call from any goroutine.
func (c *Coordinator) NewSession() *Session {
	return &Session{
		ctx:   context.Background(),
		store: c.store,
		reg:   c.reg,
		conf:  &confinement{id: c.clock.Next(), kind: "session"},
		cache: make(map[string]any),
	}
}

func (s *Session) owner() *confinement {
	return s.conf
}

// Refresh drops cached objects so later reads see the latest committed state.
// Handles produced before Refresh stay valid but keep their old contents.
func (s *Session) Refresh() {
	clear(s.cache)
}

// Close invalidates every handle the session produced. Idempotent.
func (s *Session) Close() error {
	s.conf.closed.Store(true)
	s.cache = nil
	return nil
}

func (s *Session) check() error {
	if s.conf.closed.Load() {
		return fmt.Errorf("%s: %w", s.conf, ErrInvalidated)
	}
	return nil
}

// sessionHandle returns the cached object for row, decoding and caching it on first use.
func sessionHandle[T any](s *Session, row store.Object) (Handle[T], error) {
	if cached, ok := s.cache[row.ID].(*T); ok {
		return Handle[T]{conf: s.conf, id: row.ID, typ: row.Type, obj: cached}, nil
	}
	h, err := decodeHandle[T](s.conf, row)
	if err != nil {
		return Handle[T]{}, err
	}
	s.cache[row.ID] = h.obj
	return h, nil
}

// Get loads the record of type T with the given identity.
func Get[T any](s *Session, id string) (Handle[T], bool, error) {
	if err := s.check(); err != nil {
		return Handle[T]{}, false, err
	}
	e, err := entityFor[T](s.reg, "get")
	if err != nil {
		return Handle[T]{}, false, err
	}

	row, found, err := s.store.Get(s.ctx, id)
	if err != nil || !found || row.Type != e.Name {
		return Handle[T]{}, false, err
	}
	h, err := sessionHandle[T](s, row)
	if err != nil {
		return Handle[T]{}, false, err
	}
	return h, true, nil
}

// Find loads the record of type T whose primary key equals key.
// T must declare exactly one primary key.
func Find[T any](s *Session, key any) (Handle[T], bool, error) {
	const op = "find"

	if err := s.check(); err != nil {
		return Handle[T]{}, false, err
	}
	e, err := keyedEntityFor[T](s.reg, op)
	if err != nil {
		return Handle[T]{}, false, err
	}
	k, err := schema.CanonicalKey(key)
	if err != nil {
		return Handle[T]{}, false, newError(ErrCodeValidation, op, e.Name, "", err)
	}

	row, found, err := s.store.GetByKey(s.ctx, e.Name, k)
	if err != nil || !found {
		return Handle[T]{}, false, err
	}
	h, err := sessionHandle[T](s, row)
	if err != nil {
		return Handle[T]{}, false, err
	}
	return h, true, nil
}

// Query returns the records of type T matching pred in insertion order.
// A nil pred matches everything.
func Query[T any](s *Session, pred Predicate[T]) ([]Handle[T], error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	e, err := entityFor[T](s.reg, "query")
	if err != nil {
		return nil, err
	}
	if pred == nil {
		pred = All[T]()
	}

	rows, err := s.store.Scan(s.ctx, e.Name)
	if err != nil {
		return nil, err
	}

	out := make([]Handle[T], 0, len(rows))
	for _, row := range rows {
		h, err := sessionHandle[T](s, row)
		if err != nil {
			return nil, err
		}
		ok, err := pred.Match(h.obj)
		if err != nil {
			return nil, newError(ErrCodeValidation, "query", e.Name, "predicate", err)
		}
		if ok {
			out = append(out, h)
		}
	}
	return out, nil
}

// Count returns the number of committed records of type T.
func Count[T any](s *Session) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	e, err := entityFor[T](s.reg, "count")
	if err != nil {
		return 0, err
	}
	return s.store.Count(s.ctx, e.Name)
}

// Resolve consumes ref on s, returning a handle owned by s.
// A record deleted since checkout resolves to (empty, false, nil).
func Resolve[T any](s *Session, ref *Ref[T]) (Handle[T], bool, error) {
	const op = "resolve"

	if err := s.check(); err != nil {
		return Handle[T]{}, false, err
	}
	e, err := entityFor[T](s.reg, op)
	if err != nil {
		return Handle[T]{}, false, err
	}
	h, ok, err := resolveRef(s.ctx, s.store, e, s.conf, ref)
	if err != nil {
		return Handle[T]{}, false, newError(ErrCodeResolution, op, e.Name, "", err)
	}
	if ok {
		s.cache[h.id] = h.obj
	}
	return h, ok, nil
}

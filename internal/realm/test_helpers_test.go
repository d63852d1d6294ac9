package realm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stowage/internal/schema"
	"github.com/roach88/stowage/internal/store"
)

// entry has a single string primary key.
type entry struct {
	Key   string `json:"key" stowage:"pk"`
	Value int    `json:"value"`
}

// note has no primary key.
type note struct {
	Text string `json:"text"`
	Tag  string `json:"tag"`
}

// pair declares two primary keys, which key-based operations reject.
type pair struct {
	A string `json:"a" stowage:"pk"`
	B string `json:"b" stowage:"pk"`
}

// counter merges by accumulating hits.
type counter struct {
	Key  string `json:"key" stowage:"pk"`
	Hits int    `json:"hits"`
}

func (c *counter) MergeFrom(other *counter) {
	c.Hits += other.Hits
}

// unregistered is never passed to schema.Register.
type unregistered struct {
	ID string `stowage:"pk"`
}

func newTestRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	schema.MustRegister[entry](reg)
	schema.MustRegister[note](reg)
	schema.MustRegister[pair](reg)
	schema.MustRegister[counter](reg)
	return reg
}

// createTestCoordinator opens a store in a temp dir and starts a coordinator
// over it. Both are closed at test cleanup.
func createTestCoordinator(t *testing.T, opts ...Option) (*Coordinator, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	opts = append([]Option{WithIDGenerator(NewFixedGenerator("obj"))}, opts...)
	c := New(st, newTestRegistry(t), opts...)

	t.Cleanup(func() {
		c.Close()
		st.Close()
	})
	return c, st
}

// mustAdd inserts obj and returns its handle on s.
func mustAdd[T any](t *testing.T, c *Coordinator, s *Session, obj *T) Handle[T] {
	t.Helper()
	ref, err := Add(c, obj, ConflictFail)
	require.NoError(t, err)
	h, ok, err := Resolve(s, ref)
	require.NoError(t, err)
	require.True(t, ok)
	return h
}

// count returns the committed record count for T through a fresh session.
func count[T any](t *testing.T, c *Coordinator) int {
	t.Helper()
	s := c.NewSession()
	defer s.Close()
	n, err := Count[T](s)
	require.NoError(t, err)
	return n
}

// load returns the committed value of the record with key through a fresh session.
func load(t *testing.T, c *Coordinator, key string) (entry, bool) {
	t.Helper()
	s := c.NewSession()
	defer s.Close()
	h, ok, err := Find[entry](s, key)
	require.NoError(t, err)
	if !ok {
		return entry{}, false
	}
	obj, err := h.Get(s)
	require.NoError(t, err)
	return *obj, true
}

// hits returns the committed hit count of the counter with key.
func hits(t *testing.T, c *Coordinator, key string) int {
	t.Helper()
	s := c.NewSession()
	defer s.Close()
	h, ok, err := Find[counter](s, key)
	require.NoError(t, err)
	require.True(t, ok, "counter %q", key)
	obj, err := h.Get(s)
	require.NoError(t, err)
	return obj.Hits
}

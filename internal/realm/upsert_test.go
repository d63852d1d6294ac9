package realm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func byKey(key string) Predicate[entry] {
	return Where(func(e *entry) bool { return e.Key == key })
}

func alwaysMerge(_, _ *entry) bool { return true }

func TestUpsert_MergesSingleMatch(t *testing.T) {
	c, _ := createTestCoordinator(t)

	_, err := Add(c, &entry{Key: "K1", Value: 1}, ConflictFail)
	require.NoError(t, err)

	out, err := Upsert(c, &entry{Key: "K1", Value: 2}, byKey("K1"), alwaysMerge, CollisionFail)
	require.NoError(t, err)
	assert.Equal(t, Merged, out)

	got, _ := load(t, c, "K1")
	assert.Equal(t, 2, got.Value)
	assert.Equal(t, 1, count[entry](t, c))
}

func TestUpsert_InsertsWithoutMatch(t *testing.T) {
	c, _ := createTestCoordinator(t)

	out, err := Upsert(c, &entry{Key: "K1", Value: 1}, byKey("K1"), nil, CollisionFail)
	require.NoError(t, err)
	assert.Equal(t, Inserted, out)
	assert.Equal(t, 1, count[entry](t, c))
}

func TestUpsert_GateVeto(t *testing.T) {
	c, _ := createTestCoordinator(t)

	_, err := Add(c, &entry{Key: "K1", Value: 5}, ConflictFail)
	require.NoError(t, err)

	onlyGreater := func(incoming, existing *entry) bool { return incoming.Value > existing.Value }

	out, err := Upsert(c, &entry{Key: "K1", Value: 3}, byKey("K1"), onlyGreater, CollisionFail)
	require.NoError(t, err, "a veto is not a failure")
	assert.Equal(t, Skipped, out)

	got, _ := load(t, c, "K1")
	assert.Equal(t, 5, got.Value)
}

func TestUpsert_CollisionFail(t *testing.T) {
	c, _ := createTestCoordinator(t)

	require.NoError(t, AddBatch(c, []*note{{Text: "a", Tag: "x"}, {Text: "b", Tag: "x"}}, ConflictFail))

	out, err := Upsert(c, &note{Text: "new", Tag: "x"},
		Where(func(n *note) bool { return n.Tag == "x" }), nil, CollisionFail)
	require.Error(t, err)
	assert.True(t, IsCollisionError(err))
	assert.Zero(t, out)
	assert.Equal(t, 2, count[note](t, c))
}

func TestUpsert_CollisionDeterminism(t *testing.T) {
	c, _ := createTestCoordinator(t)

	require.NoError(t, AddBatch(c, []*note{
		{Text: "first", Tag: "x"},
		{Text: "second", Tag: "x"},
		{Text: "third", Tag: "x"},
	}, ConflictFail))
	tagX := Where(func(n *note) bool { return n.Tag == "x" })

	texts := func() []string {
		s := c.NewSession()
		defer s.Close()
		hs, err := Query[note](s, nil)
		require.NoError(t, err)
		var out []string
		for _, h := range hs {
			obj, err := h.Get(s)
			require.NoError(t, err)
			out = append(out, obj.Text)
		}
		return out
	}

	// Fail leaves all three untouched.
	_, err := Upsert(c, &note{Text: "nope", Tag: "x"}, tagX, nil, CollisionFail)
	require.True(t, IsCollisionError(err))
	assert.Equal(t, []string{"first", "second", "third"}, texts())

	// UseFirst keeps hitting the same record.
	for i := 0; i < 3; i++ {
		out, err := Upsert(c, &note{Text: fmt.Sprintf("first-%d", i), Tag: "x"}, tagX, nil, CollisionUseFirst)
		require.NoError(t, err)
		assert.Equal(t, Merged, out)
	}
	assert.Equal(t, []string{"first-2", "second", "third"}, texts())

	out, err := Upsert(c, &note{Text: "last", Tag: "x"}, tagX, nil, CollisionUseLast)
	require.NoError(t, err)
	assert.Equal(t, Merged, out)
	assert.Equal(t, []string{"first-2", "second", "last"}, texts())
	assert.Equal(t, 3, count[note](t, c))
}

func TestUpsert_ConcurrentDeleteIsResolutionError(t *testing.T) {
	c, _ := createTestCoordinator(t)

	_, err := Add(c, &entry{Key: "K1", Value: 1}, ConflictFail)
	require.NoError(t, err)

	// Delete the record after the upsert has picked it but before it writes.
	c.testHookAfterLookup = func() {
		_, err := DeleteWhere(c, byKey("K1"))
		require.NoError(t, err)
	}

	out, err := Upsert(c, &entry{Key: "K1", Value: 2}, byKey("K1"), nil, CollisionFail)
	require.Error(t, err)
	assert.True(t, IsResolutionError(err))
	assert.Zero(t, out)
	assert.Equal(t, 0, count[entry](t, c), "the failed merge must not re-insert")
}

func TestUpsertByKey_Idempotent(t *testing.T) {
	c, _ := createTestCoordinator(t)

	for i := 1; i <= 5; i++ {
		out, err := UpsertByKey(c, &entry{Key: "K1", Value: i}, nil)
		require.NoError(t, err)
		if i == 1 {
			assert.Equal(t, Inserted, out)
		} else {
			assert.Equal(t, Merged, out)
		}
	}

	got, _ := load(t, c, "K1")
	assert.Equal(t, 5, got.Value)
	assert.Equal(t, 1, count[entry](t, c))
}

func TestUpsertByKey_UsesMerger(t *testing.T) {
	c, _ := createTestCoordinator(t)

	for i := 0; i < 3; i++ {
		_, err := UpsertByKey(c, &counter{Key: "page", Hits: 2}, nil)
		require.NoError(t, err)
	}

	s := c.NewSession()
	defer s.Close()
	h, ok, err := Find[counter](s, "page")
	require.NoError(t, err)
	require.True(t, ok)
	obj, err := h.Get(s)
	require.NoError(t, err)
	assert.Equal(t, 6, obj.Hits)
}

func TestUpsertByKey_RequiresSingleKey(t *testing.T) {
	c, _ := createTestCoordinator(t)

	_, err := UpsertByKey(c, &note{Text: "x"}, nil)
	assert.True(t, IsValidationError(err), "type without a key")

	_, err = UpsertByKey(c, &pair{A: "a", B: "b"}, nil)
	assert.True(t, IsValidationError(err), "type with two keys")

	_, err = UpsertByKey(c, &unregistered{ID: "x"}, nil)
	assert.True(t, IsValidationError(err))

	assert.Equal(t, 0, count[note](t, c))
	assert.Equal(t, 0, count[pair](t, c))
}

func TestUpsertByKey_ConcurrentDistinctKeys(t *testing.T) {
	c, _ := createTestCoordinator(t)

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			_, err := UpsertByKey(c, &counter{Key: fmt.Sprintf("K%d", i%4), Hits: 1}, nil)
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 4, count[counter](t, c))
	for i := 0; i < 4; i++ {
		assert.Equal(t, 4, hits(t, c, fmt.Sprintf("K%d", i)))
	}
}

func TestUpsertByKey_ConcurrentSameKey(t *testing.T) {
	c, _ := createTestCoordinator(t)

	const n = 32
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := UpsertByKey(c, &counter{Key: "page", Hits: 1}, nil)
			return err
		})
	}
	require.NoError(t, g.Wait(), "first-time upserts of one key must converge, not collide")

	assert.Equal(t, 1, count[counter](t, c))
	assert.Equal(t, n, hits(t, c, "page"))
}

func TestUpsertByKey_RecordAddedAfterLookup(t *testing.T) {
	c, _ := createTestCoordinator(t)

	// Another writer commits the key after the upsert saw no record.
	c.testHookAfterLookup = func() {
		c.testHookAfterLookup = nil
		_, err := Add(c, &counter{Key: "page", Hits: 5}, ConflictFail)
		require.NoError(t, err)
	}

	out, err := UpsertByKey(c, &counter{Key: "page", Hits: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, Merged, out)
	assert.Equal(t, 1, count[counter](t, c))
	assert.Equal(t, 6, hits(t, c, "page"))
}

func TestUpsertByKey_RecordAddedAfterLookupGateVeto(t *testing.T) {
	c, _ := createTestCoordinator(t)

	c.testHookAfterLookup = func() {
		c.testHookAfterLookup = nil
		_, err := Add(c, &entry{Key: "K1", Value: 9}, ConflictFail)
		require.NoError(t, err)
	}

	never := func(_, _ *entry) bool { return false }
	out, err := UpsertByKey(c, &entry{Key: "K1", Value: 1}, never)
	require.NoError(t, err)
	assert.Equal(t, Skipped, out)

	got, _ := load(t, c, "K1")
	assert.Equal(t, 9, got.Value)
}

func TestUpsertByKey_EmptyKey(t *testing.T) {
	c, _ := createTestCoordinator(t)

	for i := 1; i <= 3; i++ {
		out, err := UpsertByKey(c, &entry{Key: "", Value: i}, nil)
		require.NoError(t, err)
		if i == 1 {
			assert.Equal(t, Inserted, out)
		} else {
			assert.Equal(t, Merged, out)
		}
	}

	got, ok := load(t, c, "")
	require.True(t, ok, "the empty string is a valid key")
	assert.Equal(t, 3, got.Value)
	assert.Equal(t, 1, count[entry](t, c))

	_, err := Add(c, &entry{Key: "", Value: 4}, ConflictFail)
	assert.True(t, IsDuplicateKeyError(err))

	_, err = Add(c, &entry{Key: "", Value: 5}, ConflictOverwrite)
	require.NoError(t, err)
	got, _ = load(t, c, "")
	assert.Equal(t, 5, got.Value)
	assert.Equal(t, 1, count[entry](t, c))
}

func TestCollection(t *testing.T) {
	c, _ := createTestCoordinator(t)
	entries := For[entry](c)

	_, err := entries.Add(&entry{Key: "a", Value: 1}, ConflictFail)
	require.NoError(t, err)
	out, err := entries.UpsertByKey(&entry{Key: "a", Value: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, Merged, out)

	s := c.NewSession()
	defer s.Close()
	h, ok, err := entries.Find(s, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, entries.Write(h, func(e *entry) error {
		e.Value++
		return nil
	}))

	got, _ := load(t, c, "a")
	assert.Equal(t, 3, got.Value)

	n, err := entries.DeleteAll()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

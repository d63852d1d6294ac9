package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(n int64) *int64 { return &n }

func TestSortEntries(t *testing.T) {
	entries := []Entry{
		{Key: "z"},
		{Key: "m", Priority: ptr(2)},
		{Key: "a"},
		{Key: "b", Priority: ptr(2)},
		{Key: "q", Priority: ptr(-1)},
	}

	sortEntries(entries)

	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	assert.Equal(t, []string{"q", "b", "m", "a", "z"}, keys)
}

func TestEntry_MergeFrom(t *testing.T) {
	existing := &Entry{Key: "k", Value: "old", Rev: 4, Priority: ptr(3)}

	existing.MergeFrom(&Entry{Key: "k", Value: "new", Rev: 1})
	assert.Equal(t, "new", existing.Value)
	assert.Equal(t, int64(5), existing.Rev)
	assert.Equal(t, ptr(3), existing.Priority, "unset incoming priority keeps the old one")

	incoming := &Entry{Key: "k", Value: "newer", Priority: ptr(7)}
	existing.MergeFrom(incoming)
	assert.Equal(t, ptr(7), existing.Priority)

	*incoming.Priority = 9
	assert.Equal(t, int64(7), *existing.Priority, "priority is copied, not aliased")
}

func TestEntry_PriorityText(t *testing.T) {
	assert.Equal(t, "-", (&Entry{}).priorityText())
	assert.Equal(t, "12", (&Entry{Priority: ptr(12)}).priorityText())
}

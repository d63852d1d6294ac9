package cli

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/roach88/stowage/internal/optional"
)

// Entry is the record type the CLI stores: a keyed string value with an
// optional priority that orders listings.
type Entry struct {
	Key      string `json:"key" stowage:"pk"`
	Value    string `json:"value"`
	Rev      int64  `json:"rev"`
	Priority *int64 `json:"priority,omitempty"`
}

// EntityName pins the stored type name.
func (Entry) EntityName() string { return "entry" }

// MergeFrom takes other's value, and its priority when set, and bumps Rev.
func (e *Entry) MergeFrom(other *Entry) {
	e.Value = other.Value
	if other.Priority != nil {
		p := *other.Priority
		e.Priority = &p
	}
	e.Rev++
}

func (e *Entry) priorityText() string {
	if e.Priority == nil {
		return "-"
	}
	return strconv.FormatInt(*e.Priority, 10)
}

// sortEntries orders by priority ascending with unset priorities last, then by key.
func sortEntries(entries []Entry) {
	var byPriority optional.Comparator[int64]
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := byPriority.Compare(optional.FromPtr(a.Priority), optional.FromPtr(b.Priority)); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
}

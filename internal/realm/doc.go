// Package realm serializes every write to a store through one goroutine and
// keeps live record handles confined to the context that loaded them.
//
// # Writer
//
// A Coordinator owns the only goroutine that opens transactions. Add, Write,
// Delete, Upsert and friends submit a job, block until it commits or rolls
// back, and return an error value; nothing panics past the coordinator.
// Jobs run strictly in arrival order.
//
// # Handles and refs
//
// Records are read through a Session (or a *Txn inside a job) and come back
// as Handle[T]. A handle can be dereferenced only by its owner:
//
//	s := c.NewSession()
//	h, _, _ := realm.Find[Entry](s, "K1")
//	e, err := h.Get(s)       // ok
//	e, err = h.Get(other)    // ErrConfined
//
// Moving a record to another owner goes through a Ref: check it out on the
// origin, resolve it once on the destination. A ref to a record deleted in
// the meantime resolves to nothing.
//
// # Upsert
//
// Upsert merges into the record a predicate selects, or inserts when nothing
// matches; CollisionPolicy handles multiple matches. UpsertByKey does the
// same by primary key. A MergeGate may veto the merge.
package realm

// Package store provides SQLite-backed durable storage for stowage objects.
//
// Every persisted object is one row of the objects table:
//   - seq:     INTEGER insertion order, the stable order of every scan
//   - id:      object identity (UUIDv7 text), never reused
//   - type:    registered entity name
//   - pk:      canonical primary key, NULL for types without one
//   - body:    JSON encoding of the object
//   - version: bumped on every update
//
// (type, pk) is unique when pk is set.
//
// # Deterministic Scans
//
// All multi-row reads include ORDER BY seq ASC so callers observe records in
// insertion order. Collision policies rely on this order.
//
// # Database Configuration
//
//   - WAL mode: readers do not block the writer
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// The store does not serialize writers itself. Callers that mutate must go
// through a single writer (see package realm); Tx is not safe for concurrent use.
package store

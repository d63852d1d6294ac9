package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestObject builds an object; an empty key means the type has none.
// Use createKeyedObject for a real empty-string key.
func createTestObject(id, typ, key, body string) Object {
	return Object{
		ID:     id,
		Type:   typ,
		Key:    key,
		HasKey: key != "",
		Body:   []byte(body),
	}
}

func createKeyedObject(id, typ, key, body string) Object {
	obj := createTestObject(id, typ, key, body)
	obj.HasKey = true
	return obj
}

// insertCommitted writes objects in one committed transaction.
func insertCommitted(t *testing.T, s *Store, objs ...Object) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	defer tx.Rollback()
	for _, obj := range objs {
		if _, err := tx.Insert(ctx, obj); err != nil {
			t.Fatalf("Insert(%s) failed: %v", obj.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
}

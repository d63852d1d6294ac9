package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateKey is returned when an insert collides with an existing
// (type, pk) pair or object id.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrTxDone is returned by operations on a committed or rolled back Tx.
var ErrTxDone = errors.New("transaction already finished")

// Tx is one atomic unit of mutation.
// Not safe for concurrent use.
type Tx struct {
	tx   *sql.Tx
	done bool
}

// Insert adds a new object row and returns its seq.
// A collision on (type, pk) or id returns an error wrapping ErrDuplicateKey.
func (t *Tx) Insert(ctx context.Context, obj Object) (int64, error) {
	if t.done {
		return 0, ErrTxDone
	}

	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO objects (id, type, pk, body)
		VALUES (?, ?, ?, ?)
	`,
		obj.ID,
		obj.Type,
		nullKey(obj),
		string(obj.Body),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert %s %q: %w", obj.Type, obj.Key, ErrDuplicateKey)
		}
		return 0, fmt.Errorf("insert %s: %w", obj.Type, err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s: last insert id: %w", obj.Type, err)
	}
	return seq, nil
}

// Update replaces the key and body of the object with obj.ID and bumps its
// version. Returns false if no such object exists.
func (t *Tx) Update(ctx context.Context, obj Object) (bool, error) {
	if t.done {
		return false, ErrTxDone
	}

	result, err := t.tx.ExecContext(ctx, `
		UPDATE objects
		SET pk = ?, body = ?, version = version + 1
		WHERE id = ?
	`, nullKey(obj), string(obj.Body), obj.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("update %s %q: %w", obj.ID, obj.Key, ErrDuplicateKey)
		}
		return false, fmt.Errorf("update %s: %w", obj.ID, err)
	}

	return affected(result, "update")
}

// Delete removes one object by id. Returns false if it did not exist.
func (t *Tx) Delete(ctx context.Context, id string) (bool, error) {
	if t.done {
		return false, ErrTxDone
	}

	result, err := t.tx.ExecContext(ctx, `DELETE FROM objects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", id, err)
	}
	return affected(result, "delete")
}

// DeleteType removes every object of the given types and returns the count.
func (t *Tx) DeleteType(ctx context.Context, types ...string) (int64, error) {
	if t.done {
		return 0, ErrTxDone
	}
	if len(types) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types)), ",")
	args := make([]any, len(types))
	for i, typ := range types {
		args[i] = typ
	}

	result, err := t.tx.ExecContext(ctx,
		`DELETE FROM objects WHERE type IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete types %v: %w", types, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete types: rows affected: %w", err)
	}
	return n, nil
}

// Get reads one object by id inside the transaction.
func (t *Tx) Get(ctx context.Context, id string) (Object, bool, error) {
	if t.done {
		return Object{}, false, ErrTxDone
	}
	return getObject(ctx, t.tx, id)
}

// GetByKey reads one object by type and canonical primary key.
func (t *Tx) GetByKey(ctx context.Context, typ, key string) (Object, bool, error) {
	if t.done {
		return Object{}, false, ErrTxDone
	}
	return getObjectByKey(ctx, t.tx, typ, key)
}

// Scan returns every object of a type in seq order.
func (t *Tx) Scan(ctx context.Context, typ string) ([]Object, error) {
	if t.done {
		return nil, ErrTxDone
	}
	return scanType(ctx, t.tx, typ)
}

// Commit makes the transaction's changes durable.
func (t *Tx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards the transaction. No-op if already finished.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// nullKey stores NULL only for keyless objects; an empty string is a real key.
func nullKey(obj Object) sql.NullString {
	return sql.NullString{String: obj.Key, Valid: obj.HasKey}
}

func affected(result sql.Result, op string) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n > 0, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Object is one stored row.
type Object struct {
	Seq     int64
	ID      string
	Type    string
	Key     string // canonical primary key, meaningful only when HasKey
	HasKey  bool   // false for types without a primary key (stored as NULL)
	Body    []byte // JSON
	Version int64
}

// querier is satisfied by *sql.DB and *sql.Tx so reads share one code path
// inside and outside transactions.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectObject = `SELECT seq, id, type, pk, body, version FROM objects`

// Get reads one committed object by id.
// Returns ok=false if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (Object, bool, error) {
	return getObject(ctx, s.db, id)
}

// GetByKey reads one committed object by type and canonical primary key.
func (s *Store) GetByKey(ctx context.Context, typ, key string) (Object, bool, error) {
	return getObjectByKey(ctx, s.db, typ, key)
}

// Scan returns every committed object of a type in seq order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) Scan(ctx context.Context, typ string) ([]Object, error) {
	return scanType(ctx, s.db, typ)
}

// Count returns the number of committed objects of a type.
func (s *Store) Count(ctx context.Context, typ string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM objects WHERE type = ?`, typ).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", typ, err)
	}
	return n, nil
}

func getObject(ctx context.Context, q querier, id string) (Object, bool, error) {
	row := q.QueryRowContext(ctx, selectObject+` WHERE id = ?`, id)
	obj, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Object{}, false, nil
	}
	if err != nil {
		return Object{}, false, fmt.Errorf("get %s: %w", id, err)
	}
	return obj, true, nil
}

func getObjectByKey(ctx context.Context, q querier, typ, key string) (Object, bool, error) {
	row := q.QueryRowContext(ctx, selectObject+` WHERE type = ? AND pk = ?`, typ, key)
	obj, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Object{}, false, nil
	}
	if err != nil {
		return Object{}, false, fmt.Errorf("get %s %q: %w", typ, key, err)
	}
	return obj, true, nil
}

func scanType(ctx context.Context, q querier, typ string) ([]Object, error) {
	rows, err := q.QueryContext(ctx, selectObject+`
		WHERE type = ?
		ORDER BY seq ASC
	`, typ)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", typ, err)
	}
	defer rows.Close()

	objects := []Object{}
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", typ, err)
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", typ, err)
	}
	return objects, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanObject(s scanner) (Object, error) {
	var (
		obj  Object
		key  sql.NullString
		body string
	)
	if err := s.Scan(&obj.Seq, &obj.ID, &obj.Type, &key, &body, &obj.Version); err != nil {
		return Object{}, err
	}
	obj.Key = key.String
	obj.HasKey = key.Valid
	obj.Body = []byte(body)
	return obj, nil
}

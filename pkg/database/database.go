// Package database defines the storage contract the filesystem, key-value
// and tool-call layers are built on: a command-executing store returning
// ordered rows, plus a flat key namespace for small opaque blobs. Concrete
// backends live in the postgres and sqlite subpackages; callers depend only
// on the Store interface and pick a backend at construction time.
package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNoRows is returned by QueryRow when the statement produced no rows.
	ErrNoRows = errors.New("database: no rows in result set")

	// ErrUniqueViolation is wrapped into errors caused by a uniqueness
	// constraint, regardless of backend. Callers detect it with errors.Is.
	ErrUniqueViolation = errors.New("database: unique constraint violation")
)

// Row is one result row: column name to raw byte value. Columns that were
// NULL are absent from the map. Typed accessors parse the raw bytes.
type Row map[string][]byte

func (r Row) Has(column string) bool {
	_, ok := r[column]
	return ok
}

func (r Row) Bytes(column string) ([]byte, error) {
	v, ok := r[column]
	if !ok {
		return nil, fmt.Errorf("database: missing column %q", column)
	}
	return v, nil
}

func (r Row) String(column string) (string, error) {
	v, err := r.Bytes(column)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (r Row) Int64(column string) (int64, error) {
	s, err := r.String(column)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("database: column %q is not an int64: %w", column, err)
	}
	return n, nil
}

func (r Row) Uint32(column string) (uint32, error) {
	s, err := r.String(column)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("database: column %q is not a uint32: %w", column, err)
	}
	return uint32(n), nil
}

func (r Row) Float64(column string) (float64, error) {
	s, err := r.String(column)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("database: column %q is not a float64: %w", column, err)
	}
	return f, nil
}

// Store is the data-store collaborator. Statements use $1-style positional
// parameters; values are always bound, never interpolated into the command
// text. Implementations are safe for concurrent use, and a transaction
// started by WithTransaction is carried through the context so that nested
// Exec/Query calls join it.
type Store interface {
	// Exec runs a statement and reports the number of affected rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Query runs a statement and returns its ordered result rows.
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)

	// QueryRow runs a statement expected to produce at most one row.
	// Returns ErrNoRows when it produced none.
	QueryRow(ctx context.Context, sql string, args ...any) (Row, error)

	// Put stores value under key in the flat namespace, replacing any
	// previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Get retrieves the value stored under key. The boolean reports whether
	// the key was present; an empty stored value is still present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Delete removes key from the flat namespace. Missing keys are not an
	// error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present in the flat namespace.
	Exists(ctx context.Context, key string) (bool, error)

	// Scan returns the sorted set of keys beginning with prefix.
	Scan(ctx context.Context, prefix string) ([]string, error)

	// WithTransaction runs fn inside a single transaction. The transaction
	// is attached to the context passed to fn; store calls made with that
	// context execute inside it. fn returning an error rolls back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases the underlying connections.
	Close()
}

// Package postgres implements the database.Store contract on top of a
// pgx/v5 connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentfs/agentfs/internal/config"
	"github.com/agentfs/agentfs/pkg/database"
	"github.com/agentfs/agentfs/pkg/logging"
	"github.com/agentfs/agentfs/pkg/logging/slogext"
)

// uniqueViolationCode is the PostgreSQL error code for unique_violation.
const uniqueViolationCode = "23505"

type txKey struct{}

// client is the subset of pgxpool.Pool and pgx.Tx the store needs.
type client interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Store struct {
	pool *pgxpool.Pool
}

var _ database.Store = (*Store)(nil)

// New opens a connection pool and verifies connectivity.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	const op = "postgres.New"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		logger.Error("Failed to create connection pool", slogext.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Failed to connect to database", slogext.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("Connected to database")
	return &Store{pool: pool}, nil
}

// MustNew is New that panics on failure, for use in main.
func MustNew(ctx context.Context, cfg config.DatabaseConfig) *Store {
	s, err := New(ctx, cfg)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Store) Close() {
	s.pool.Close()
}

// clientFromContext returns the transaction attached to ctx, if any,
// otherwise the pool.
func (s *Store) clientFromContext(ctx context.Context) client {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

func (s *Store) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	db := s.clientFromContext(ctx)
	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, wrapError(err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Query(ctx context.Context, sql string, args ...any) ([]database.Row, error) {
	db := s.clientFromContext(ctx)
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()

	var out []database.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, wrapError(err)
		}

		row := make(database.Row, len(fields))
		for i, fd := range fields {
			b, ok := rawBytes(values[i])
			if ok {
				row[string(fd.Name)] = b
			}
		}
		out = append(out, row)
	}

	if err = rows.Err(); err != nil {
		return nil, wrapError(err)
	}

	return out, nil
}

func (s *Store) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	rows, err := s.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, database.ErrNoRows
	}
	return rows[0], nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value
	`
	_, err := s.Exec(ctx, query, key, value)
	return err
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row, err := s.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	value, err := row.Bytes("value")
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	return err
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	row, err := s.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM kv_store WHERE key = $1) AS present`, key)
	if err != nil {
		return false, err
	}

	present, err := row.String("present")
	if err != nil {
		return false, err
	}
	return present == "true" || present == "t", nil
}

func (s *Store) Scan(ctx context.Context, prefix string) ([]string, error) {
	query := `
		SELECT key FROM kv_store
		WHERE substr(key, 1, length($1::text)) = $1
		ORDER BY key
	`
	rows, err := s.Query(ctx, query, prefix)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		key, err := row.String("key")
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// WithTransaction executes fn inside a transaction carried through the
// context. A nested call joins the transaction already in flight.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapError(err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err = fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return wrapError(err)
	}
	return nil
}

// wrapError tags unique constraint violations with the backend-neutral
// sentinel so callers need not know pgconn.
func wrapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("%v: %w", err, database.ErrUniqueViolation)
	}
	return err
}

// rawBytes converts a pgx-decoded value into the raw byte representation the
// Row contract requires. NULLs report ok=false and are omitted from the row.
func rawBytes(v any) ([]byte, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case []byte:
		return t, true
	case string:
		return []byte(t), true
	case int64:
		return strconv.AppendInt(nil, t, 10), true
	case int32:
		return strconv.AppendInt(nil, int64(t), 10), true
	case int16:
		return strconv.AppendInt(nil, int64(t), 10), true
	case int:
		return strconv.AppendInt(nil, int64(t), 10), true
	case uint32:
		return strconv.AppendUint(nil, uint64(t), 10), true
	case float64:
		return strconv.AppendFloat(nil, t, 'g', -1, 64), true
	case float32:
		return strconv.AppendFloat(nil, float64(t), 'g', -1, 32), true
	case bool:
		return strconv.AppendBool(nil, t), true
	case time.Time:
		return strconv.AppendInt(nil, t.Unix(), 10), true
	case pgtype.Numeric:
		// Aggregates like AVG produce numeric; surface it as a float.
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil, false
		}
		return strconv.AppendFloat(nil, f.Float64, 'g', -1, 64), true
	default:
		return []byte(fmt.Sprintf("%v", v)), true
	}
}

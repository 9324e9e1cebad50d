// Package sqlite implements the database.Store contract on top of a
// zombiezen.com/go/sqlite connection pool. It is the zero-dependency
// deployment option and the backend used by the test suites (":memory:").
package sqlite

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/agentfs/agentfs/pkg/database"
	"github.com/agentfs/agentfs/pkg/logging"
	"github.com/agentfs/agentfs/pkg/logging/slogext"
)

type connKey struct{}

type Store struct {
	pool *sqlitex.Pool
	path string
}

var _ database.Store = (*Store)(nil)

// New opens a fixed-size connection pool. ":memory:" is accepted as a
// shorthand for a single-connection shared-cache in-memory database.
func New(ctx context.Context, path string) (*Store, error) {
	const op = "sqlite.New"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	if path == "" {
		return nil, fmt.Errorf("%s: path is required", op)
	}

	poolSize := runtime.NumCPU()
	if poolSize < 4 {
		poolSize = 4
	}

	// The bare ":memory:" URI opens a separate database per connection, which
	// the pool rejects; the shared-cache form keeps it one database.
	uri := path
	if path == ":memory:" {
		uri = "file::memory:?mode=memory&cache=shared"
		poolSize = 1
	}

	pool, err := sqlitex.NewPool(uri, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		logger.Error("Failed to open sqlite pool", slogext.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("Opened sqlite database", "path", path, "pool_size", poolSize)
	return &Store{pool: pool, path: path}, nil
}

// MustNew is New that panics on failure, for use in main.
func MustNew(ctx context.Context, path string) *Store {
	s, err := New(ctx, path)
	if err != nil {
		panic(err)
	}
	return s
}

func prepareConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite: applying %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) Close() {
	_ = s.pool.Close()
}

// withConn runs fn with the connection attached to ctx if a transaction is
// in flight, otherwise with a connection borrowed from the pool.
func (s *Store) withConn(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	if conn, ok := ctx.Value(connKey{}).(*sqlite.Conn); ok {
		return fn(conn)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	return fn(conn)
}

func (s *Store) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	var affected int64
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		opts := &sqlitex.ExecOptions{Named: namedArgs(args)}
		if err := sqlitex.Execute(conn, sql, opts); err != nil {
			return wrapError(err)
		}
		affected = int64(conn.Changes())
		return nil
	})
	return affected, err
}

func (s *Store) Query(ctx context.Context, sql string, args ...any) ([]database.Row, error) {
	var out []database.Row
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		opts := &sqlitex.ExecOptions{
			Named: namedArgs(args),
			ResultFunc: func(stmt *sqlite.Stmt) error {
				out = append(out, rowFromStmt(stmt))
				return nil
			},
		}
		if err := sqlitex.Execute(conn, sql, opts); err != nil {
			return wrapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
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
		DO UPDATE SET value = excluded.value
	`
	_, err := s.Exec(ctx, query, key, value)
	return err
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row, err := s.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key)
	if err != nil {
		if err == database.ErrNoRows {
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

	present, err := row.Int64("present")
	if err != nil {
		return false, err
	}
	return present != 0, nil
}

func (s *Store) Scan(ctx context.Context, prefix string) ([]string, error) {
	query := `
		SELECT key FROM kv_store
		WHERE substr(key, 1, length($1)) = $1
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

// WithTransaction executes fn inside an immediate transaction on a single
// connection carried through the context. A nested call joins the
// transaction already in flight.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(connKey{}).(*sqlite.Conn); ok {
		return fn(ctx)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return wrapError(err)
	}
	defer endFn(&err)

	txCtx := context.WithValue(ctx, connKey{}, conn)
	err = fn(txCtx)
	return err
}

// wrapError tags unique constraint violations with the backend-neutral
// sentinel so callers need not know sqlite result codes.
func wrapError(err error) error {
	code := sqlite.ErrCode(err)
	if code == sqlite.ResultConstraintUnique || code == sqlite.ResultConstraintPrimaryKey {
		return fmt.Errorf("%v: %w", err, database.ErrUniqueViolation)
	}
	return err
}

// namedArgs maps positional arguments onto $1..$n parameter names.
func namedArgs(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	named := make(map[string]any, len(args))
	for i, arg := range args {
		named["$"+strconv.Itoa(i+1)] = normalizeArg(arg)
	}
	return named
}

// normalizeArg converts argument values into the types the sqlite binder
// accepts directly.
func normalizeArg(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	case *int64:
		if t == nil {
			return nil
		}
		return *t
	default:
		return v
	}
}

// rowFromStmt copies the current result row into the backend-neutral form.
// NULL columns are omitted.
func rowFromStmt(stmt *sqlite.Stmt) database.Row {
	row := make(database.Row, stmt.ColumnCount())
	for i := 0; i < stmt.ColumnCount(); i++ {
		name := stmt.ColumnName(i)
		switch stmt.ColumnType(i) {
		case sqlite.TypeNull:
			// absent
		case sqlite.TypeInteger:
			row[name] = strconv.AppendInt(nil, stmt.ColumnInt64(i), 10)
		case sqlite.TypeFloat:
			row[name] = strconv.AppendFloat(nil, stmt.ColumnFloat(i), 'g', -1, 64)
		case sqlite.TypeBlob:
			buf := make([]byte, stmt.ColumnLen(i))
			stmt.ColumnBytes(i, buf)
			row[name] = buf
		default:
			row[name] = []byte(stmt.ColumnText(i))
		}
	}
	return row
}

package sqlite

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/agentfs/agentfs/internal/models"
	"github.com/agentfs/agentfs/pkg/logging"
	"github.com/agentfs/agentfs/pkg/logging/slogext"
)

// AUTOINCREMENT keeps rowids monotonic: ids of deleted inodes and tool calls
// are never handed out again.
const schema = `
CREATE TABLE IF NOT EXISTS fs_inode (
	ino   INTEGER PRIMARY KEY AUTOINCREMENT,
	mode  INTEGER NOT NULL,
	uid   INTEGER NOT NULL DEFAULT 0,
	gid   INTEGER NOT NULL DEFAULT 0,
	size  INTEGER NOT NULL DEFAULT 0,
	atime INTEGER NOT NULL,
	mtime INTEGER NOT NULL,
	ctime INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fs_dentry (
	name       TEXT    NOT NULL,
	parent_ino INTEGER NOT NULL,
	ino        INTEGER NOT NULL,
	PRIMARY KEY (parent_ino, name)
);

CREATE INDEX IF NOT EXISTS fs_dentry_ino_idx ON fs_dentry (ino);

CREATE TABLE IF NOT EXISTS fs_symlink (
	ino    INTEGER PRIMARY KEY,
	target TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS fs_content (
	ino      INTEGER NOT NULL,
	"offset" INTEGER NOT NULL,
	data     BLOB    NOT NULL,
	PRIMARY KEY (ino, "offset")
);

CREATE TABLE IF NOT EXISTS kv_store (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS tool_calls (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT    NOT NULL,
	params       TEXT,
	result       TEXT,
	error        TEXT,
	status       TEXT    NOT NULL DEFAULT 'pending',
	started_at   INTEGER NOT NULL,
	completed_at INTEGER,
	duration_ms  INTEGER
);

CREATE INDEX IF NOT EXISTS tool_calls_name_idx ON tool_calls (name);
`

// Bootstrap creates the schema when missing and seeds the root inode.
func (s *Store) Bootstrap(ctx context.Context) error {
	const op = "sqlite.Store.Bootstrap"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, schema, nil)
	})
	if err != nil {
		logger.Error("Failed to apply schema", slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().Unix()
	seedRoot := `
		INSERT OR IGNORE INTO fs_inode (ino, mode, uid, gid, size, atime, mtime, ctime)
		VALUES ($1, $2, 0, 0, 0, $3, $3, $3)
	`
	if _, err := s.Exec(ctx, seedRoot, models.RootIno, int64(models.DefaultDirMode), now); err != nil {
		logger.Error("Failed to seed root inode", slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Debug("Schema ready")
	return nil
}

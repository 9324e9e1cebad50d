package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/agentfs/agentfs/internal/models"
	"github.com/agentfs/agentfs/pkg/logging"
	"github.com/agentfs/agentfs/pkg/logging/slogext"
)

// statements are executed one by one: pgx extended protocol does not accept
// multi-statement strings.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS fs_inode (
		ino   BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		mode  BIGINT NOT NULL,
		uid   BIGINT NOT NULL DEFAULT 0,
		gid   BIGINT NOT NULL DEFAULT 0,
		size  BIGINT NOT NULL DEFAULT 0,
		atime BIGINT NOT NULL,
		mtime BIGINT NOT NULL,
		ctime BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fs_dentry (
		name       TEXT   NOT NULL,
		parent_ino BIGINT NOT NULL,
		ino        BIGINT NOT NULL,
		PRIMARY KEY (parent_ino, name)
	)`,
	`CREATE INDEX IF NOT EXISTS fs_dentry_ino_idx ON fs_dentry (ino)`,
	`CREATE TABLE IF NOT EXISTS fs_symlink (
		ino    BIGINT PRIMARY KEY,
		target TEXT   NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fs_content (
		ino      BIGINT NOT NULL,
		"offset" BIGINT NOT NULL,
		data     BYTEA  NOT NULL,
		PRIMARY KEY (ino, "offset")
	)`,
	`CREATE TABLE IF NOT EXISTS kv_store (
		key   TEXT  PRIMARY KEY,
		value BYTEA NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tool_calls (
		id           BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		name         TEXT   NOT NULL,
		params       TEXT,
		result       TEXT,
		error        TEXT,
		status       TEXT   NOT NULL DEFAULT 'pending',
		started_at   BIGINT NOT NULL,
		completed_at BIGINT,
		duration_ms  BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS tool_calls_name_idx ON tool_calls (name)`,
}

// Bootstrap creates the schema when missing and seeds the root inode. The
// inode id sequence is advanced past the root so generated ids start above it
// and are never handed out twice.
func (s *Store) Bootstrap(ctx context.Context) error {
	const op = "postgres.Store.Bootstrap"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	for _, stmt := range schemaStatements {
		if _, err := s.Exec(ctx, stmt); err != nil {
			logger.Error("Failed to apply schema statement", slogext.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	now := time.Now().Unix()
	seedRoot := `
		INSERT INTO fs_inode (ino, mode, uid, gid, size, atime, mtime, ctime)
		VALUES ($1, $2, 0, 0, 0, $3, $3, $3)
		ON CONFLICT (ino) DO NOTHING
	`
	if _, err := s.Exec(ctx, seedRoot, models.RootIno, int64(models.DefaultDirMode), now); err != nil {
		logger.Error("Failed to seed root inode", slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	advance := `
		SELECT setval(
			pg_get_serial_sequence('fs_inode', 'ino'),
			GREATEST((SELECT MAX(ino) FROM fs_inode), $1::bigint)
		)
	`
	if _, err := s.Query(ctx, advance, models.RootIno); err != nil {
		logger.Error("Failed to advance inode sequence", slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Debug("Schema ready")
	return nil
}

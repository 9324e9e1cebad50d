package repository

import (
	"context"
	"fmt"

	"github.com/agentfs/agentfs/pkg/database"
)

// chunkSize is the maximum number of bytes stored in one fs_content row.
// Writes are whole-file today; chunking keeps the door open for ranged
// reads without a schema change.
const chunkSize = 64 << 10

type ContentRepository interface {
	// Get returns the full content for ino, assembling chunks in offset
	// order. An inode with no chunks is an empty file.
	Get(ctx context.Context, ino int64) ([]byte, error)
	// Set replaces the entire content for ino.
	Set(ctx context.Context, ino int64, data []byte) error
	// Delete removes all content for ino. Called when the link count
	// reaches zero.
	Delete(ctx context.Context, ino int64) error
}

type contentRepository struct {
	db database.Store
}

func NewContentRepository(db database.Store) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) Get(ctx context.Context, ino int64) ([]byte, error) {
	const op = "repository.contentRepository.Get"

	query := `
		SELECT data
		FROM fs_content
		WHERE ino = $1
		ORDER BY "offset"
	`

	rows, err := r.db.Query(ctx, query, ino)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data := []byte{}
	for _, row := range rows {
		chunk, err := row.Bytes("data")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		data = append(data, chunk...)
	}

	return data, nil
}

func (r *contentRepository) Set(ctx context.Context, ino int64, data []byte) error {
	const op = "repository.contentRepository.Set"

	deleteQuery := `
		DELETE FROM fs_content
		WHERE ino = $1
	`
	if _, err := r.db.Exec(ctx, deleteQuery, ino); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	insertQuery := `
		INSERT INTO fs_content (ino, "offset", data)
		VALUES ($1, $2, $3)
	`
	for offset := 0; offset < len(data); offset += chunkSize {
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := r.db.Exec(ctx, insertQuery, ino, int64(offset), data[offset:end]); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

func (r *contentRepository) Delete(ctx context.Context, ino int64) error {
	const op = "repository.contentRepository.Delete"

	query := `
		DELETE FROM fs_content
		WHERE ino = $1
	`

	_, err := r.db.Exec(ctx, query, ino)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

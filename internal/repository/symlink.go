package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentfs/agentfs/pkg/database"
)

type SymlinkRepository interface {
	// Set stores the literal target string for ino. Targets are write-once:
	// a symlink's target never changes after creation.
	Set(ctx context.Context, ino int64, target string) error
	// Get returns the target for ino. The boolean reports whether a target
	// record exists.
	Get(ctx context.Context, ino int64) (string, bool, error)
	Delete(ctx context.Context, ino int64) error
}

type symlinkRepository struct {
	db database.Store
}

func NewSymlinkRepository(db database.Store) SymlinkRepository {
	return &symlinkRepository{db: db}
}

func (r *symlinkRepository) Set(ctx context.Context, ino int64, target string) error {
	const op = "repository.symlinkRepository.Set"

	query := `
		INSERT INTO fs_symlink (ino, target)
		VALUES ($1, $2)
	`

	_, err := r.db.Exec(ctx, query, ino, target)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *symlinkRepository) Get(ctx context.Context, ino int64) (string, bool, error) {
	const op = "repository.symlinkRepository.Get"

	query := `
		SELECT target
		FROM fs_symlink
		WHERE ino = $1
	`

	row, err := r.db.QueryRow(ctx, query, ino)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	target, err := row.String("target")
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	return target, true, nil
}

func (r *symlinkRepository) Delete(ctx context.Context, ino int64) error {
	const op = "repository.symlinkRepository.Delete"

	query := `
		DELETE FROM fs_symlink
		WHERE ino = $1
	`

	_, err := r.db.Exec(ctx, query, ino)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentfs/agentfs/internal/models"
	"github.com/agentfs/agentfs/pkg/database"
)

type DirectoryRepository interface {
	// Lookup returns the inode bound to name under parentIno, or 0 when no
	// such dentry exists.
	Lookup(ctx context.Context, parentIno int64, name string) (int64, error)
	CreateEntry(ctx context.Context, parentIno int64, name string, ino int64) error
	DeleteEntry(ctx context.Context, parentIno int64, name string) error
	// ListNames returns the names bound under parentIno, sorted.
	ListNames(ctx context.Context, parentIno int64) ([]string, error)
	ListEntries(ctx context.Context, parentIno int64) ([]models.Dirent, error)
	IsEmpty(ctx context.Context, dirIno int64) (bool, error)
	Exists(ctx context.Context, parentIno int64, name string) (bool, error)
}

type directoryRepository struct {
	db database.Store
}

func NewDirectoryRepository(db database.Store) DirectoryRepository {
	return &directoryRepository{db: db}
}

func (r *directoryRepository) Lookup(ctx context.Context, parentIno int64, name string) (int64, error) {
	const op = "repository.directoryRepository.Lookup"

	query := `
		SELECT ino
		FROM fs_dentry
		WHERE parent_ino = $1 AND name = $2
	`

	row, err := r.db.QueryRow(ctx, query, parentIno, name)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	ino, err := row.Int64("ino")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return ino, nil
}

func (r *directoryRepository) CreateEntry(ctx context.Context, parentIno int64, name string, ino int64) error {
	const op = "repository.directoryRepository.CreateEntry"

	query := `
		INSERT INTO fs_dentry (name, parent_ino, ino)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.Exec(ctx, query, name, parentIno, ino)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *directoryRepository) DeleteEntry(ctx context.Context, parentIno int64, name string) error {
	const op = "repository.directoryRepository.DeleteEntry"

	query := `
		DELETE FROM fs_dentry
		WHERE parent_ino = $1 AND name = $2
	`

	_, err := r.db.Exec(ctx, query, parentIno, name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *directoryRepository) ListNames(ctx context.Context, parentIno int64) ([]string, error) {
	const op = "repository.directoryRepository.ListNames"

	query := `
		SELECT name
		FROM fs_dentry
		WHERE parent_ino = $1
		ORDER BY name
	`

	rows, err := r.db.Query(ctx, query, parentIno)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		name, err := row.String("name")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		names = append(names, name)
	}

	return names, nil
}

func (r *directoryRepository) ListEntries(ctx context.Context, parentIno int64) ([]models.Dirent, error) {
	const op = "repository.directoryRepository.ListEntries"

	query := `
		SELECT name, ino
		FROM fs_dentry
		WHERE parent_ino = $1
		ORDER BY name
	`

	rows, err := r.db.Query(ctx, query, parentIno)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entries := make([]models.Dirent, 0, len(rows))
	for _, row := range rows {
		var dirent models.Dirent
		if dirent.Name, err = row.String("name"); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if dirent.Ino, err = row.Int64("ino"); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		entries = append(entries, dirent)
	}

	return entries, nil
}

func (r *directoryRepository) IsEmpty(ctx context.Context, dirIno int64) (bool, error) {
	const op = "repository.directoryRepository.IsEmpty"

	query := `
		SELECT COUNT(*) AS count
		FROM fs_dentry
		WHERE parent_ino = $1
	`

	row, err := r.db.QueryRow(ctx, query, dirIno)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	count, err := row.Int64("count")
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return count == 0, nil
}

func (r *directoryRepository) Exists(ctx context.Context, parentIno int64, name string) (bool, error) {
	const op = "repository.directoryRepository.Exists"

	ino, err := r.Lookup(ctx, parentIno, name)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ino != 0, nil
}

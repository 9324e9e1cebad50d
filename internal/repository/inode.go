package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentfs/agentfs/internal/models"
	"github.com/agentfs/agentfs/pkg/database"
)

type InodeRepository interface {
	// Create inserts a new inode and returns its store-generated id.
	// Ids are monotonic and never reused, even after deletion.
	Create(ctx context.Context, inode *models.Inode) (int64, error)
	Get(ctx context.Context, ino int64) (*models.Inode, error)
	UpdateSize(ctx context.Context, ino int64, size int64, mtime int64) error
	// Touch records an access time without changing anything else.
	Touch(ctx context.Context, ino int64, atime int64) error
	Delete(ctx context.Context, ino int64) error
	// LinkCount counts the dentries referencing ino.
	LinkCount(ctx context.Context, ino int64) (uint32, error)
}

type inodeRepository struct {
	db database.Store
}

func NewInodeRepository(db database.Store) InodeRepository {
	return &inodeRepository{db: db}
}

func (r *inodeRepository) Create(ctx context.Context, inode *models.Inode) (int64, error) {
	const op = "repository.inodeRepository.Create"

	query := `
		INSERT INTO fs_inode (mode, uid, gid, size, atime, mtime, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ino
	`

	row, err := r.db.QueryRow(ctx, query,
		int64(inode.Mode),
		int64(inode.UID),
		int64(inode.GID),
		inode.Size,
		inode.Atime,
		inode.Mtime,
		inode.Ctime,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	ino, err := row.Int64("ino")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return ino, nil
}

func (r *inodeRepository) Get(ctx context.Context, ino int64) (*models.Inode, error) {
	const op = "repository.inodeRepository.Get"

	query := `
		SELECT ino, mode, uid, gid, size, atime, mtime, ctime
		FROM fs_inode
		WHERE ino = $1
	`

	row, err := r.db.QueryRow(ctx, query, ino)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	inode, err := scanInode(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return inode, nil
}

func (r *inodeRepository) UpdateSize(ctx context.Context, ino int64, size int64, mtime int64) error {
	const op = "repository.inodeRepository.UpdateSize"

	query := `
		UPDATE fs_inode
		SET size = $1, mtime = $2
		WHERE ino = $3
	`

	_, err := r.db.Exec(ctx, query, size, mtime, ino)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *inodeRepository) Touch(ctx context.Context, ino int64, atime int64) error {
	const op = "repository.inodeRepository.Touch"

	query := `
		UPDATE fs_inode
		SET atime = $1
		WHERE ino = $2
	`

	_, err := r.db.Exec(ctx, query, atime, ino)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *inodeRepository) Delete(ctx context.Context, ino int64) error {
	const op = "repository.inodeRepository.Delete"

	query := `
		DELETE FROM fs_inode
		WHERE ino = $1
	`

	_, err := r.db.Exec(ctx, query, ino)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *inodeRepository) LinkCount(ctx context.Context, ino int64) (uint32, error) {
	const op = "repository.inodeRepository.LinkCount"

	query := `
		SELECT COUNT(*) AS count
		FROM fs_dentry
		WHERE ino = $1
	`

	row, err := r.db.QueryRow(ctx, query, ino)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	count, err := row.Uint32("count")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func scanInode(row database.Row) (*models.Inode, error) {
	var inode models.Inode
	var err error

	if inode.Ino, err = row.Int64("ino"); err != nil {
		return nil, err
	}
	if inode.Mode, err = row.Uint32("mode"); err != nil {
		return nil, err
	}
	if inode.UID, err = row.Uint32("uid"); err != nil {
		return nil, err
	}
	if inode.GID, err = row.Uint32("gid"); err != nil {
		return nil, err
	}
	if inode.Size, err = row.Int64("size"); err != nil {
		return nil, err
	}
	if inode.Atime, err = row.Int64("atime"); err != nil {
		return nil, err
	}
	if inode.Mtime, err = row.Int64("mtime"); err != nil {
		return nil, err
	}
	if inode.Ctime, err = row.Int64("ctime"); err != nil {
		return nil, err
	}

	return &inode, nil
}

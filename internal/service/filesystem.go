package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentfs/agentfs/internal/models"
	"github.com/agentfs/agentfs/internal/pkg/fserrors"
	"github.com/agentfs/agentfs/internal/repository"
	"github.com/agentfs/agentfs/pkg/database"
	"github.com/agentfs/agentfs/pkg/logging"
	"github.com/agentfs/agentfs/pkg/logging/slogext"
)

// maxSymlinkDepth bounds symlink resolution for read-through operations,
// matching the kernel's ELOOP limit.
const maxSymlinkDepth = 40

// FileSystemService is the virtual filesystem facade. Every operation
// normalizes and sandboxes its path(s) against the mount point before
// touching storage, so callers can never address anything outside it.
//
// Operations returning optionals follow the repository convention: a nil
// result with a nil error means the path did not resolve.
type FileSystemService interface {
	// WriteFile replaces the content of the file at path, creating it (and
	// its dentry) when absent. The parent directory must already exist.
	WriteFile(ctx context.Context, path string, content []byte) error
	// ReadFile returns the content of the file at path, following symlinks.
	// nil means the path did not resolve; an empty file yields empty bytes.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// Exists reports whether the dentry chain resolves. A symlink whose
	// target is dangling still exists.
	Exists(ctx context.Context, path string) (bool, error)
	// ReadDir returns the sorted child names of the directory at path, or
	// nil when the directory does not resolve.
	ReadDir(ctx context.Context, path string) ([]string, error)
	Mkdir(ctx context.Context, path string) error
	// Remove unlinks the file or empty directory at path. When the last
	// link is removed, content, symlink target and inode are purged with it.
	Remove(ctx context.Context, path string) error
	// Stat follows symlinks; Lstat resolves exactly one hop.
	Stat(ctx context.Context, path string) (*models.Stats, error)
	Lstat(ctx context.Context, path string) (*models.Stats, error)
	// Symlink stores target verbatim at linkPath. The target is never
	// validated against existence.
	Symlink(ctx context.Context, target string, linkPath string) error
	// ReadLink returns the stored target of the symlink at path. The
	// boolean reports whether the path resolved at all.
	ReadLink(ctx context.Context, path string) (string, bool, error)
}

type fileSystemService struct {
	db          database.Store
	mountPath   string
	inodeRepo   repository.InodeRepository
	dirRepo     repository.DirectoryRepository
	contentRepo repository.ContentRepository
	symlinkRepo repository.SymlinkRepository
}

func NewFileSystemService(
	db database.Store,
	mountPath string,
	inodeRepo repository.InodeRepository,
	dirRepo repository.DirectoryRepository,
	contentRepo repository.ContentRepository,
	symlinkRepo repository.SymlinkRepository,
) FileSystemService {
	return &fileSystemService{
		db:          db,
		mountPath:   mountPath,
		inodeRepo:   inodeRepo,
		dirRepo:     dirRepo,
		contentRepo: contentRepo,
		symlinkRepo: symlinkRepo,
	}
}

func now() int64 {
	return time.Now().Unix()
}

// resolvePath walks the dentry chain of a canonical path, one store lookup
// per level. No caching: agent workspaces are shallow and correctness under
// concurrent mutation beats saved round-trips.
func (s *fileSystemService) resolvePath(ctx context.Context, canonical string) (int64, bool, error) {
	segments := splitPath(canonical)
	if len(segments) == 0 {
		return models.RootIno, true, nil
	}

	current := models.RootIno
	for _, segment := range segments {
		ino, err := s.dirRepo.Lookup(ctx, current, segment)
		if err != nil {
			return 0, false, err
		}
		if ino == 0 {
			return 0, false, nil
		}
		current = ino
	}

	return current, true, nil
}

// followForRead resolves canonical to its terminal inode, following up to
// maxSymlinkDepth symlink hops; one more symlink past the bound is an error.
// A missing dentry at any hop means the path does not resolve.
func (s *fileSystemService) followForRead(ctx context.Context, canonical string) (int64, bool, error) {
	current := canonical

	for hop := 0; ; hop++ {
		ino, found, err := s.resolvePath(ctx, current)
		if err != nil {
			return 0, false, err
		}
		if !found {
			return 0, false, nil
		}

		inode, err := s.inodeRepo.Get(ctx, ino)
		if err != nil {
			return 0, false, err
		}
		if inode == nil {
			return 0, false, nil
		}

		if !inode.IsSymlink() {
			return ino, true, nil
		}
		if hop == maxSymlinkDepth {
			return 0, false, fserrors.InvalidPath(canonical, "too many levels of symbolic links")
		}

		target, ok, err := s.symlinkRepo.Get(ctx, ino)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			return 0, false, fserrors.InvalidPath(current, "symlink has no target")
		}

		current = joinPath(current, target)
	}
}

func (s *fileSystemService) buildStats(ctx context.Context, inode *models.Inode) (*models.Stats, error) {
	nlink, err := s.inodeRepo.LinkCount(ctx, inode.Ino)
	if err != nil {
		return nil, err
	}

	return &models.Stats{
		Ino:   inode.Ino,
		Mode:  inode.Mode,
		Nlink: nlink,
		UID:   inode.UID,
		GID:   inode.GID,
		Size:  inode.Size,
		Atime: inode.Atime,
		Mtime: inode.Mtime,
		Ctime: inode.Ctime,
	}, nil
}

func (s *fileSystemService) WriteFile(ctx context.Context, path string, content []byte) error {
	const op = "service.fileSystemService.WriteFile"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("WriteFile", slog.String("path", path), slog.Int("size", len(content)))

	canonical := sandboxPath(s.mountPath, path)
	segments := splitPath(canonical)
	if len(segments) == 0 {
		return fserrors.InvalidPath(canonical, "cannot write to root directory")
	}

	name := segments[len(segments)-1]
	parent := parentPath(canonical)

	err := s.db.WithTransaction(ctx, func(ctx context.Context) error {
		parentIno, found, err := s.resolvePath(ctx, parent)
		if err != nil {
			return err
		}
		if !found {
			return fserrors.DirectoryNotFound(parent)
		}

		ino, found, err := s.resolvePath(ctx, canonical)
		if err != nil {
			return err
		}

		ts := now()
		if found {
			logger.Debug("Replacing content in place", slog.Int64("ino", ino))
			if err := s.contentRepo.Set(ctx, ino, content); err != nil {
				return err
			}
			return s.inodeRepo.UpdateSize(ctx, ino, int64(len(content)), ts)
		}

		ino, err = s.inodeRepo.Create(ctx, &models.Inode{
			Mode:  models.DefaultFileMode,
			Size:  int64(len(content)),
			Atime: ts,
			Mtime: ts,
			Ctime: ts,
		})
		if err != nil {
			return err
		}

		if err := s.dirRepo.CreateEntry(ctx, parentIno, name, ino); err != nil {
			return err
		}

		logger.Debug("Created file", slog.Int64("ino", ino), slog.String("name", name))
		return s.contentRepo.Set(ctx, ino, content)
	})
	if err != nil {
		return s.mapMutationError(logger, op, canonical, err)
	}

	return nil
}

func (s *fileSystemService) ReadFile(ctx context.Context, path string) ([]byte, error) {
	const op = "service.fileSystemService.ReadFile"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("ReadFile", slog.String("path", path))

	canonical := sandboxPath(s.mountPath, path)

	ino, found, err := s.followForRead(ctx, canonical)
	if err != nil {
		return nil, s.mapReadError(logger, op, err)
	}
	if !found {
		return nil, nil
	}

	data, err := s.contentRepo.Get(ctx, ino)
	if err != nil {
		return nil, s.mapReadError(logger, op, err)
	}

	// Access time only; a failed touch never fails the read.
	if err := s.inodeRepo.Touch(ctx, ino, now()); err != nil {
		logger.Debug("Failed to update atime", slogext.Err(err))
	}

	return data, nil
}

func (s *fileSystemService) Exists(ctx context.Context, path string) (bool, error) {
	const op = "service.fileSystemService.Exists"

	canonical := sandboxPath(s.mountPath, path)

	_, found, err := s.resolvePath(ctx, canonical)
	if err != nil {
		logger := logging.GetLoggerFromContextWithOp(ctx, op)
		return false, s.mapReadError(logger, op, err)
	}

	return found, nil
}

func (s *fileSystemService) ReadDir(ctx context.Context, path string) ([]string, error) {
	const op = "service.fileSystemService.ReadDir"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("ReadDir", slog.String("path", path))

	canonical := sandboxPath(s.mountPath, path)

	ino, found, err := s.resolvePath(ctx, canonical)
	if err != nil {
		return nil, s.mapReadError(logger, op, err)
	}
	if !found {
		return nil, nil
	}

	names, err := s.dirRepo.ListNames(ctx, ino)
	if err != nil {
		return nil, s.mapReadError(logger, op, err)
	}

	return names, nil
}

func (s *fileSystemService) Mkdir(ctx context.Context, path string) error {
	const op = "service.fileSystemService.Mkdir"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Mkdir", slog.String("path", path))

	canonical := sandboxPath(s.mountPath, path)
	segments := splitPath(canonical)
	if len(segments) == 0 {
		return fserrors.InvalidPath(canonical, "cannot create root directory")
	}

	name := segments[len(segments)-1]
	parent := parentPath(canonical)

	err := s.db.WithTransaction(ctx, func(ctx context.Context) error {
		parentIno, found, err := s.resolvePath(ctx, parent)
		if err != nil {
			return err
		}
		if !found {
			return fserrors.DirectoryNotFound(parent)
		}

		exists, err := s.dirRepo.Exists(ctx, parentIno, name)
		if err != nil {
			return err
		}
		if exists {
			return fserrors.PathExists(canonical)
		}

		ts := now()
		ino, err := s.inodeRepo.Create(ctx, &models.Inode{
			Mode:  models.DefaultDirMode,
			Atime: ts,
			Mtime: ts,
			Ctime: ts,
		})
		if err != nil {
			return err
		}

		logger.Debug("Created directory", slog.Int64("ino", ino), slog.String("name", name))
		return s.dirRepo.CreateEntry(ctx, parentIno, name, ino)
	})
	if err != nil {
		return s.mapMutationError(logger, op, canonical, err)
	}

	return nil
}

func (s *fileSystemService) Remove(ctx context.Context, path string) error {
	const op = "service.fileSystemService.Remove"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Remove", slog.String("path", path))

	canonical := sandboxPath(s.mountPath, path)
	segments := splitPath(canonical)
	if len(segments) == 0 {
		return fserrors.InvalidPath(canonical, "cannot remove root directory")
	}

	name := segments[len(segments)-1]
	parent := parentPath(canonical)

	err := s.db.WithTransaction(ctx, func(ctx context.Context) error {
		parentIno, found, err := s.resolvePath(ctx, parent)
		if err != nil {
			return err
		}
		if !found {
			return fserrors.FileNotFound(canonical)
		}

		ino, err := s.dirRepo.Lookup(ctx, parentIno, name)
		if err != nil {
			return err
		}
		if ino == 0 {
			return fserrors.FileNotFound(canonical)
		}
		if ino == models.RootIno {
			return fserrors.InvalidPath(canonical, "cannot remove root directory")
		}

		inode, err := s.inodeRepo.Get(ctx, ino)
		if err != nil {
			return err
		}
		if inode != nil && inode.IsDirectory() {
			empty, err := s.dirRepo.IsEmpty(ctx, ino)
			if err != nil {
				return err
			}
			if !empty {
				return fserrors.InvalidPath(canonical, "directory not empty")
			}
		}

		if err := s.dirRepo.DeleteEntry(ctx, parentIno, name); err != nil {
			return err
		}

		nlink, err := s.inodeRepo.LinkCount(ctx, ino)
		if err != nil {
			return err
		}
		if nlink > 0 {
			logger.Debug("Inode still referenced", slog.Int64("ino", ino), slog.Uint64("nlink", uint64(nlink)))
			return nil
		}

		// Last link gone: purge content, symlink target and the inode row.
		if err := s.contentRepo.Delete(ctx, ino); err != nil {
			return err
		}
		if err := s.symlinkRepo.Delete(ctx, ino); err != nil {
			return err
		}
		if err := s.inodeRepo.Delete(ctx, ino); err != nil {
			return err
		}

		logger.Debug("Purged inode", slog.Int64("ino", ino))
		return nil
	})
	if err != nil {
		return s.mapMutationError(logger, op, canonical, err)
	}

	return nil
}

func (s *fileSystemService) Stat(ctx context.Context, path string) (*models.Stats, error) {
	const op = "service.fileSystemService.Stat"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	canonical := sandboxPath(s.mountPath, path)

	ino, found, err := s.followForRead(ctx, canonical)
	if err != nil {
		return nil, s.mapReadError(logger, op, err)
	}
	if !found {
		return nil, nil
	}

	inode, err := s.inodeRepo.Get(ctx, ino)
	if err != nil {
		return nil, s.mapReadError(logger, op, err)
	}
	if inode == nil {
		return nil, nil
	}

	stats, err := s.buildStats(ctx, inode)
	if err != nil {
		return nil, s.mapReadError(logger, op, err)
	}

	return stats, nil
}

func (s *fileSystemService) Lstat(ctx context.Context, path string) (*models.Stats, error) {
	const op = "service.fileSystemService.Lstat"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	canonical := sandboxPath(s.mountPath, path)

	ino, found, err := s.resolvePath(ctx, canonical)
	if err != nil {
		return nil, s.mapReadError(logger, op, err)
	}
	if !found {
		return nil, nil
	}

	inode, err := s.inodeRepo.Get(ctx, ino)
	if err != nil {
		return nil, s.mapReadError(logger, op, err)
	}
	if inode == nil {
		return nil, nil
	}

	stats, err := s.buildStats(ctx, inode)
	if err != nil {
		return nil, s.mapReadError(logger, op, err)
	}

	return stats, nil
}

func (s *fileSystemService) Symlink(ctx context.Context, target string, linkPath string) error {
	const op = "service.fileSystemService.Symlink"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Symlink", slog.String("target", target), slog.String("link_path", linkPath))

	canonical := sandboxPath(s.mountPath, linkPath)
	segments := splitPath(canonical)
	if len(segments) == 0 {
		return fserrors.InvalidPath(canonical, "cannot create symlink at root")
	}

	name := segments[len(segments)-1]
	parent := parentPath(canonical)

	err := s.db.WithTransaction(ctx, func(ctx context.Context) error {
		parentIno, found, err := s.resolvePath(ctx, parent)
		if err != nil {
			return err
		}
		if !found {
			return fserrors.DirectoryNotFound(parent)
		}

		exists, err := s.dirRepo.Exists(ctx, parentIno, name)
		if err != nil {
			return err
		}
		if exists {
			return fserrors.PathExists(canonical)
		}

		ts := now()
		ino, err := s.inodeRepo.Create(ctx, &models.Inode{
			Mode:  models.DefaultSymlinkMode,
			Size:  int64(len(target)),
			Atime: ts,
			Mtime: ts,
			Ctime: ts,
		})
		if err != nil {
			return err
		}

		if err := s.symlinkRepo.Set(ctx, ino, target); err != nil {
			return err
		}

		logger.Debug("Created symlink", slog.Int64("ino", ino), slog.String("name", name))
		return s.dirRepo.CreateEntry(ctx, parentIno, name, ino)
	})
	if err != nil {
		return s.mapMutationError(logger, op, canonical, err)
	}

	return nil
}

func (s *fileSystemService) ReadLink(ctx context.Context, path string) (string, bool, error) {
	const op = "service.fileSystemService.ReadLink"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("ReadLink", slog.String("path", path))

	canonical := sandboxPath(s.mountPath, path)

	ino, found, err := s.resolvePath(ctx, canonical)
	if err != nil {
		return "", false, s.mapReadError(logger, op, err)
	}
	if !found {
		return "", false, nil
	}

	inode, err := s.inodeRepo.Get(ctx, ino)
	if err != nil {
		return "", false, s.mapReadError(logger, op, err)
	}
	if inode == nil {
		return "", false, nil
	}
	if !inode.IsSymlink() {
		return "", false, fserrors.InvalidPath(canonical, "not a symbolic link")
	}

	target, ok, err := s.symlinkRepo.Get(ctx, ino)
	if err != nil {
		return "", false, s.mapReadError(logger, op, err)
	}
	if !ok {
		return "", false, fserrors.InvalidPath(canonical, "symlink has no target")
	}

	return target, true, nil
}

// mapMutationError folds transaction results into the error taxonomy. A
// uniqueness violation on (parent_ino, name) means a concurrent writer won
// the race for the same binding; it surfaces as PathExists.
func (s *fileSystemService) mapMutationError(logger *slog.Logger, op, canonical string, err error) error {
	var fsErr *fserrors.Error
	if errors.As(err, &fsErr) {
		return err
	}
	if errors.Is(err, database.ErrUniqueViolation) {
		logger.Debug("Concurrent writer won the binding", slog.String("path", canonical))
		return fserrors.PathExists(canonical)
	}
	logger.Error("Store operation failed", slogext.Err(err))
	return fmt.Errorf("%s: %w", op, fserrors.Database(err))
}

// mapReadError passes domain errors through and wraps store failures.
func (s *fileSystemService) mapReadError(logger *slog.Logger, op string, err error) error {
	var fsErr *fserrors.Error
	if errors.As(err, &fsErr) {
		return err
	}
	logger.Error("Store operation failed", slogext.Err(err))
	return fmt.Errorf("%s: %w", op, fserrors.Database(err))
}

package jsonstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fclairamb/commonkit/internal/apperrors"
)

// Write stores v at path atomically.
//
// The document is serialized first, then written to a temporary file in the
// same directory, synced to disk and renamed over path. On failure the
// temporary file is removed and path keeps its previous content. A document
// larger than the size cap is refused, since reads would not return it.
func (s *Store) Write(ctx context.Context, path string, v any) error {
	data, err := marshal(v, true)
	if err != nil {
		return apperrors.NewPathError(apperrors.ErrWrite, path, err)
	}

	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return apperrors.NewPathError(apperrors.ErrTooLarge, path,
			fmt.Errorf("%d bytes, limit %d", len(data), s.maxSize))
	}

	s.logger.DebugContext(ctx, "writing document", "path", path, "size", len(data))

	if err := s.writeFileAtomic(path, data); err != nil {
		s.logger.DebugContext(ctx, "write document failed", "path", path, "error", err)
		return apperrors.NewPathError(apperrors.ErrWrite, path, err)
	}

	s.logger.DebugContext(ctx, "write document complete", "path", path)
	return nil
}

// writeFileAtomic replaces path with data through a temp file and a rename.
func (s *Store) writeFileAtomic(path string, data []byte) error {
	return s.replaceAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}, targetMode(path))
}

// replaceAtomic fills a temp file next to path with fill, then renames it over path.
func (s *Store) replaceAtomic(path string, fill func(io.Writer) error, mode fs.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			err = errors.Join(err, removeIfExists(tmpPath))
		}
	}()

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true

	if s.syncDir {
		if err := syncDirectory(dir); err != nil {
			// The rename already happened, the document is complete.
			s.logger.Warn("directory sync failed", "dir", dir, "error", err)
		}
	}

	return nil
}

// targetMode keeps the permissions of an existing file, defaulting to filePerm.
func targetMode(path string) fs.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return filePerm
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove temp file: %w", err)
	}
	return nil
}

// syncDirectory flushes directory metadata so the rename survives a crash.
func syncDirectory(dir string) error {
	d, err := os.Open(dir) //nolint:gosec // dir derives from a caller path
	if err != nil {
		return fmt.Errorf("open dir for sync: %w", err)
	}
	defer func() { _ = d.Close() }()

	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}

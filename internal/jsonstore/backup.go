package jsonstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

const (
	// backupTimeFormat is fixed width so file names sort chronologically.
	backupTimeFormat = "20060102T150405"
	backupExt        = ".bak"
)

// Backup copies the document at path using the store's retention settings.
// When update backups are disabled, only the new backup is kept.
func (s *Store) Backup(ctx context.Context, path string) (string, error) {
	return s.BackupTo(ctx, path, s.backupKeep, s.backupDir)
}

// BackupTo copies the document at path to dir as <name>.<timestamp>.bak and
// deletes older backups beyond the newest keep, so keep+1 files remain. An
// empty dir means the document's own directory.
func (s *Store) BackupTo(ctx context.Context, path string, keep int, dir string) (string, error) {
	if dir == "" {
		dir = filepath.Dir(path)
	}
	if keep < 0 {
		keep = 0
	}

	name := filepath.Base(path)
	target := filepath.Join(dir, name+"."+s.now().UTC().Format(backupTimeFormat)+backupExt)

	s.logger.DebugContext(ctx, "creating backup", "path", path, "backup", target)

	if err := s.copyFile(path, target); err != nil {
		return "", fmt.Errorf("backup %s: %w", path, err)
	}

	s.prune(ctx, dir, name, target, keep)

	s.logger.DebugContext(ctx, "backup complete", "path", path, "backup", target)
	return target, nil
}

// ListBackups returns the backups of the document named name in dir, newest first.
func ListBackups(dir, name string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	prefix := name + "."
	var backups []string
	for _, entry := range entries {
		entryName := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(entryName, prefix) || !strings.HasSuffix(entryName, backupExt) {
			continue
		}
		if len(entryName) <= len(prefix)+len(backupExt) {
			continue
		}
		backups = append(backups, filepath.Join(dir, entryName))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

// prune keeps the newest keep older backups next to created and removes the
// rest. Failures are logged only.
func (s *Store) prune(ctx context.Context, dir, name, created string, keep int) {
	backups, err := ListBackups(dir, name)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list backups", "dir", dir, "error", err)
		return
	}

	older := slices.DeleteFunc(backups, func(b string) bool { return b == created })
	if len(older) <= keep {
		return
	}

	for _, old := range older[keep:] {
		if err := os.Remove(old); err != nil {
			s.logger.WarnContext(ctx, "failed to remove old backup", "backup", old, "error", err)
			continue
		}
		s.logger.DebugContext(ctx, "removed old backup", "backup", old)
	}
}

// copyFile copies src to dst atomically, keeping mode and modification time.
func (s *Store) copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // path is caller controlled
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	err = s.replaceAtomic(dst, func(w io.Writer) error {
		_, copyErr := io.Copy(w, in)
		return copyErr
	}, info.Mode().Perm())
	if err != nil {
		return err
	}

	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		s.logger.Debug("failed to preserve backup mtime", "backup", dst, "error", err)
	}

	return nil
}

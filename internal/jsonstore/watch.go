package jsonstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change describes an observed modification of a watched document.
type Change struct {
	Path        string
	Fingerprint string // Empty when the document was removed
	Previous    string // Empty when the document did not exist before
	Removed     bool
}

// Watch calls fn every time the bytes of the document at path change,
// until ctx is canceled.
//
// The parent directory is watched rather than the file itself, because an
// atomic write replaces the file and a watch on the old inode would go
// silent. Bursts of events are coalesced over the store's watch delay.
func (s *Store) Watch(ctx context.Context, path string, fn func(Change)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	last, err := s.fileTag(path)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "watching document", "path", path, "etag", last)

	name := filepath.Base(path)
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "stopped watching document", "path", path)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			s.logger.DebugContext(ctx, "document event", "path", path, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(s.watchDelay)
			} else {
				timer.Reset(s.watchDelay)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			tag, err := s.fileTag(path)
			if err != nil {
				s.logger.WarnContext(ctx, "failed to fingerprint document", "path", path, "error", err)
				continue
			}
			if tag == last {
				continue
			}
			fn(Change{Path: path, Fingerprint: tag, Previous: last, Removed: tag == ""})
			last = tag

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.WarnContext(ctx, "error watching document", "path", path, "error", err)
		}
	}
}

// fileTag fingerprints the file at path, returning "" when it does not exist.
func (s *Store) fileTag(path string) (string, error) {
	tag, err := FingerprintFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return tag, nil
}

package jsonstore

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/copystructure"

	"github.com/fclairamb/commonkit/internal/apperrors"
)

// UpdateFunc computes the next version of a document from the current one.
// It may be called several times with different inputs and must not have
// side effects. Returning nil is a programming error.
type UpdateFunc func(current any) (any, error)

// Update applies fn to the document at path and writes the result back.
//
// Each attempt reads the current document, hands a deep copy to fn, and
// compares fingerprints: an unchanged document is returned without writing.
// Otherwise the result is written atomically and read back; if the read-back
// fingerprint differs, another writer won the race and the attempt is retried
// after the retry delay. When every attempt loses, an ExhaustedError is returned.
//
// Updates of one path through the same Store run one at a time; the retry
// loop covers writers in other processes or other Stores.
func (s *Store) Update(ctx context.Context, path string, fn UpdateFunc) (any, error) {
	mu := s.pathLock(path)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		next, done, err := s.tryUpdate(ctx, path, fn, attempt)
		if err != nil || done {
			return next, err
		}

		if attempt == s.maxRetries {
			break
		}

		s.logger.WarnContext(ctx, "document changed during update, retrying",
			"path", path,
			"attempt", attempt,
			"max_attempts", s.maxRetries,
			"delay", s.retryDelay)

		if err := sleep(ctx, s.retryDelay); err != nil {
			return nil, err
		}
	}

	return nil, &apperrors.ExhaustedError{Path: path, Attempts: s.maxRetries}
}

// tryUpdate runs one read-modify-write-verify cycle.
// done is false when the write could not be confirmed.
func (s *Store) tryUpdate(ctx context.Context, path string, fn UpdateFunc, attempt int) (any, bool, error) {
	current, err := s.Read(ctx, path, s.readDef)
	if err != nil {
		return nil, false, err
	}

	input, err := deepCopy(current)
	if err != nil {
		return nil, false, fmt.Errorf("copy document %s: %w", path, err)
	}

	next, err := fn(input)
	if err != nil {
		return nil, false, err
	}
	if next == nil {
		return nil, false, apperrors.NewPathError(apperrors.ErrNilUpdate, path, nil)
	}

	oldTag, err := FingerprintValue(current)
	if err != nil {
		return nil, false, fmt.Errorf("fingerprint current %s: %w", path, err)
	}
	newTag, err := FingerprintValue(next)
	if err != nil {
		return nil, false, fmt.Errorf("fingerprint update %s: %w", path, err)
	}

	if oldTag == newTag {
		s.logger.DebugContext(ctx, "update is a no-op", "path", path, "etag", newTag)
		return next, true, nil
	}

	if s.backupKeep > 0 {
		found, err := exists(path)
		if err != nil {
			return nil, false, fmt.Errorf("stat %s: %w", path, err)
		}
		if found {
			if _, err := s.BackupTo(ctx, path, s.backupKeep, s.backupDir); err != nil {
				return nil, false, err
			}
		}
	}

	if err := s.Write(ctx, path, next); err != nil {
		return nil, false, err
	}

	if s.afterWrite != nil {
		s.afterWrite(path)
	}

	confirmed, err := s.confirm(ctx, path, newTag)
	if err != nil {
		return nil, false, err
	}
	if !confirmed {
		return nil, false, nil
	}

	s.logger.DebugContext(ctx, "update committed", "path", path, "attempt", attempt, "etag", newTag)
	return next, true, nil
}

// confirm reads the document back and checks it still carries want.
// A document that cannot be read or parsed counts as a lost race.
func (s *Store) confirm(ctx context.Context, path, want string) (bool, error) {
	value, err := s.Read(ctx, path, nil)
	if err != nil {
		s.logger.DebugContext(ctx, "confirmation read failed", "path", path, "error", err)
		return false, nil //nolint:nilerr // treated as a conflict and retried
	}

	got, err := FingerprintValue(value)
	if err != nil {
		return false, fmt.Errorf("fingerprint %s: %w", path, err)
	}

	return got == want, nil
}

// deepCopy returns a copy of a decoded document sharing no maps or slices with v.
func deepCopy(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return copystructure.Copy(v)
}

// sleep waits for d or until ctx is canceled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

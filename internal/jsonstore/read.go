package jsonstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fclairamb/commonkit/internal/apperrors"
)

// Read returns the JSON document stored at path.
//
// A missing file yields def. A file larger than the size cap or holding
// invalid JSON yields def too, unless the store is strict, in which case an
// ErrTooLarge or ErrParse error is returned. Other I/O failures are always
// returned.
func (s *Store) Read(ctx context.Context, path string, def any) (any, error) {
	s.logger.DebugContext(ctx, "reading document", "path", path)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.DebugContext(ctx, "document does not exist", "path", path)
			return def, nil
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if s.maxSize > 0 && info.Size() > s.maxSize {
		s.logger.DebugContext(ctx, "document exceeds size cap", "path", path, "size", info.Size(), "max_size", s.maxSize)
		if s.strict {
			return nil, apperrors.NewPathError(apperrors.ErrTooLarge, path,
				fmt.Errorf("%d bytes, limit %d", info.Size(), s.maxSize))
		}
		return def, nil
	}

	data, err := s.readBounded(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Removed between stat and open.
			return def, nil
		}
		if errors.Is(err, apperrors.ErrTooLarge) && !s.strict {
			return def, nil
		}
		return nil, err
	}

	var value any
	if err := decode(bytes.NewReader(data), &value); err != nil {
		s.logger.DebugContext(ctx, "document is not valid JSON", "path", path, "error", err)
		if s.strict {
			return nil, apperrors.NewPathError(apperrors.ErrParse, path, err)
		}
		return def, nil
	}

	s.logger.DebugContext(ctx, "read document complete", "path", path, "size", len(data))
	return value, nil
}

// readBounded reads the whole file, refusing to go past the size cap if the
// file grew after it was stat'ed.
func (s *Store) readBounded(path string) ([]byte, error) {
	file, err := os.Open(path) //nolint:gosec // path is caller controlled
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var reader io.Reader = file
	if s.maxSize > 0 {
		reader = io.LimitReader(file, s.maxSize+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, apperrors.NewPathError(apperrors.ErrTooLarge, path,
			fmt.Errorf("grew past limit %d while reading", s.maxSize))
	}

	return data, nil
}

// Package jsonstore persists JSON documents on the local filesystem.
//
// Writes go through a temporary file in the target directory followed by a
// rename, so readers only ever see a complete document. Updates use an
// optimistic read-modify-write-verify loop across processes, are serialized
// per path within one Store, and can rotate timestamped backups before each
// effective write.
package jsonstore

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// File and directory permissions.
	dirPerm  = 0750 // Directory permissions: rwxr-x---
	filePerm = 0600 // File permissions: rw-------

	// Defaults.
	defaultMaxSize    = 64 << 20 // 64 MiB
	defaultMaxRetries = 5
	defaultRetryDelay = 50 * time.Millisecond
	defaultWatchDelay = 100 * time.Millisecond
)

// Store reads, writes and updates JSON documents.
// A Store is safe for concurrent use and must not be copied.
type Store struct {
	logger     *slog.Logger
	maxSize    int64
	strict     bool
	maxRetries int
	retryDelay time.Duration
	readDef    any
	backupKeep int
	backupDir  string
	syncDir    bool
	watchDelay time.Duration
	now        func() time.Time

	// locks holds one *sync.Mutex per cleaned document path.
	locks sync.Map

	// afterWrite runs between the write and the confirmation read of an update.
	afterWrite func(path string)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger for the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithMaxSize sets the largest document size, in bytes, the reader accepts.
// Zero or negative disables the cap.
func WithMaxSize(n int64) Option {
	return func(s *Store) {
		s.maxSize = n
	}
}

// WithStrict makes the reader surface size and parse errors instead of
// falling back to the default value.
func WithStrict(strict bool) Option {
	return func(s *Store) {
		s.strict = strict
	}
}

// WithMaxRetries sets how many attempts an update makes before giving up.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryDelay sets the pause between two update attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.retryDelay = d
		}
	}
}

// WithReadDefault sets the value an update starts from when the document does not exist.
func WithReadDefault(v any) Option {
	return func(s *Store) {
		s.readDef = v
	}
}

// WithBackup enables a backup before each effective update, keeping the new
// copy plus the newest keep older ones in dir. An empty dir means the document's directory.
func WithBackup(keep int, dir string) Option {
	return func(s *Store) {
		s.backupKeep = keep
		s.backupDir = dir
	}
}

// WithSyncDir also fsyncs the parent directory after each rename.
func WithSyncDir(enabled bool) Option {
	return func(s *Store) {
		s.syncDir = enabled
	}
}

// WithWatchDelay sets the debounce delay used by Watch.
func WithWatchDelay(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.watchDelay = d
		}
	}
}

// WithClock overrides the time source used for backup timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store.
func New(opts ...Option) *Store {
	store := &Store{
		logger:     slog.Default(),
		maxSize:    defaultMaxSize,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		watchDelay: defaultWatchDelay,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// MaxRetries returns the number of attempts an update makes.
func (s *Store) MaxRetries() int {
	return s.maxRetries
}

// BackupKeep returns the backup retention count, zero when update backups are disabled.
func (s *Store) BackupKeep() int {
	return s.backupKeep
}

// pathLock returns the mutex serializing updates of path in this Store.
func (s *Store) pathLock(path string) *sync.Mutex {
	key := filepath.Clean(path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex) //nolint:forcetypeassert // only *sync.Mutex is stored
}

// exists reports whether path names an existing file.
func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Package store keeps a directory of JSON documents, optionally versioned with git.
package store

import (
	"context"
	"time"

	"github.com/fclairamb/commonkit/internal/jsonstore"
)

// FileInfo represents document metadata.
type FileInfo struct {
	Path    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// FileStatus is the git status of one path in the repository.
type FileStatus struct {
	Path     string
	Staging  string
	Worktree string
}

// Store abstracts document and history operations.
// Document names are relative to the store root.
//
//nolint:interfacebloat // Store needs all these methods for complete document/git operations
type Store interface {
	// Document operations
	Read(ctx context.Context, name string, def any) (any, error)
	Write(ctx context.Context, name string, v any) error
	Update(ctx context.Context, name string, fn jsonstore.UpdateFunc) (any, error)
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context, dir string) ([]FileInfo, error)
	Backup(ctx context.Context, name string) (string, error)

	// History operations
	Status(ctx context.Context) ([]FileStatus, error)
	Commit(ctx context.Context, message string) (bool, error)
	Push(ctx context.Context) error
	Pull(ctx context.Context) error
}

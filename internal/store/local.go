package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/fclairamb/commonkit/internal/apperrors"
	"github.com/fclairamb/commonkit/internal/jsonstore"
)

const (
	gitignoreName    = ".gitignore"
	gitignoreContent = "*.bak\n.*.tmp\n"

	// File and directory permissions.
	dirPerm  = 0750 // Directory permissions: rwxr-x---
	filePerm = 0600 // File permissions: rw-------
)

// LocalStore implements Store on a local directory, with git history unless disabled.
type LocalStore struct {
	rootPath     string
	repo         *git.Repository
	docs         *jsonstore.Store
	history      bool
	mu           sync.RWMutex
	logger       *slog.Logger
	remoteConfig *RemoteConfig
}

var _ Store = (*LocalStore)(nil)

// LocalStoreOption configures LocalStore.
type LocalStoreOption func(*LocalStore)

// WithLogger sets a custom logger for the store.
func WithLogger(l *slog.Logger) LocalStoreOption {
	return func(s *LocalStore) {
		s.logger = l
	}
}

// WithRemoteConfig sets the remote git configuration.
func WithRemoteConfig(cfg *RemoteConfig) LocalStoreOption {
	return func(s *LocalStore) {
		s.remoteConfig = cfg
	}
}

// WithDocumentStore sets the JSON store used for document operations.
func WithDocumentStore(docs *jsonstore.Store) LocalStoreOption {
	return func(s *LocalStore) {
		s.docs = docs
	}
}

// WithHistory enables or disables the git repository. Enabled by default.
func WithHistory(enabled bool) LocalStoreOption {
	return func(s *LocalStore) {
		s.history = enabled
	}
}

// NewLocalStore creates a new local store at the given path.
func NewLocalStore(path string, opts ...LocalStoreOption) (*LocalStore, error) {
	store := &LocalStore{
		rootPath: path,
		history:  true,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(store)
	}

	if store.docs == nil {
		store.docs = jsonstore.New(jsonstore.WithLogger(store.logger))
	}

	if !store.history {
		if err := os.MkdirAll(path, dirPerm); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
		return store, nil
	}

	repo, err := store.initializeRepository(path)
	if err != nil {
		return nil, err
	}
	store.repo = repo

	if err := store.ensureGitignore(); err != nil {
		return nil, err
	}

	return store, nil
}

// Root returns the store's root directory.
func (s *LocalStore) Root() string {
	return s.rootPath
}

// resolve maps a document name to its path under the root.
func (s *LocalStore) resolve(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || !filepath.IsLocal(clean) {
		return "", apperrors.NewPathError(apperrors.ErrPathOutsideRoot, name, nil)
	}
	return filepath.Join(s.rootPath, clean), nil
}

// Read reads a document, returning def when it does not exist.
func (s *LocalStore) Read(ctx context.Context, name string, def any) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fullPath, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "reading document", "name", name)
	return s.docs.Read(ctx, fullPath, def)
}

// Write replaces a document.
func (s *LocalStore) Write(ctx context.Context, name string, v any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fullPath, err := s.resolve(name)
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "writing document", "name", name)
	return s.docs.Write(ctx, fullPath, v)
}

// Update applies fn to a document with the JSON store's optimistic update loop.
func (s *LocalStore) Update(ctx context.Context, name string, fn jsonstore.UpdateFunc) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fullPath, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "updating document", "name", name)
	return s.docs.Update(ctx, fullPath, fn)
}

// Backup copies a document next to itself (or to the configured backup directory).
func (s *LocalStore) Backup(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fullPath, err := s.resolve(name)
	if err != nil {
		return "", err
	}

	return s.docs.Backup(ctx, fullPath)
}

// Fingerprint hashes the bytes of a document.
func (s *LocalStore) Fingerprint(_ context.Context, name string) (string, error) {
	fullPath, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	return jsonstore.FingerprintFile(fullPath)
}

// Watch calls fn for every change of a document until ctx is canceled.
// Change paths are absolute.
func (s *LocalStore) Watch(ctx context.Context, name string, fn func(jsonstore.Change)) error {
	fullPath, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), dirPerm); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	return s.docs.Watch(ctx, fullPath, fn)
}

// Exists checks if a document exists.
func (s *LocalStore) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fullPath, err := s.resolve(name)
	if err != nil {
		return false, err
	}

	s.logger.DebugContext(ctx, "checking document exists", "name", name)

	_, err = os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// List lists the documents and subdirectories of dir, skipping hidden entries and backups.
func (s *LocalStore) List(ctx context.Context, dir string) ([]FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.logger.DebugContext(ctx, "listing directory", "dir", dir)

	fullPath := s.rootPath
	if dir != "" && dir != "." {
		var err error
		if fullPath, err = s.resolve(dir); err != nil {
			return nil, err
		}
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".bak") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.ToSlash(filepath.Join(dir, name)),
			IsDir:   entry.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	s.logger.DebugContext(ctx, "list directory complete", "dir", dir, "count", len(files))
	return files, nil
}

// Delete deletes a document. Deleting a missing document is not an error.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fullPath, err := s.resolve(name)
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "deleting document", "name", name)

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete document %s: %w", name, err)
	}
	return nil
}

// IsRemoteEnabled returns true if remote git operations are configured.
func (s *LocalStore) IsRemoteEnabled() bool {
	return s.history && s.remoteConfig.IsEnabled()
}

// RemoteConfig returns the remote configuration.
func (s *LocalStore) RemoteConfig() *RemoteConfig {
	return s.remoteConfig
}

// Status returns the paths that differ from the last commit.
func (s *LocalStore) Status(_ context.Context) ([]FileStatus, error) {
	if !s.history {
		return nil, apperrors.ErrHistoryDisabled
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	worktree, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	result := make([]FileStatus, 0, len(status))
	for path, st := range status {
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		result = append(result, FileStatus{
			Path:     path,
			Staging:  string(rune(st.Staging)),
			Worktree: string(rune(st.Worktree)),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })

	return result, nil
}

// Commit stages every change and creates a commit.
// It returns false when there was nothing to commit.
func (s *LocalStore) Commit(ctx context.Context, message string) (bool, error) {
	if !s.history {
		return false, apperrors.ErrHistoryDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	worktree, err := s.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("get worktree: %w", err)
	}

	// Stage all changes in the worktree (equivalent to git add -A)
	if addErr := worktree.AddWithOptions(&git.AddOptions{All: true}); addErr != nil {
		return false, fmt.Errorf("git add: %w", addErr)
	}

	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("get status: %w", err)
	}

	hasChanges := false
	for _, st := range status {
		if st.Staging != git.Unmodified && st.Staging != git.Untracked {
			hasChanges = true
			break
		}
	}

	if !hasChanges {
		s.logger.DebugContext(ctx, "nothing to commit")
		return false, nil
	}

	authorName := defaultAuthorName
	authorEmail := defaultAuthorEmail
	if s.remoteConfig != nil {
		authorName = s.remoteConfig.User
		authorEmail = s.remoteConfig.Email
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	s.logger.InfoContext(ctx, "committed changes", "hash", hash.String(), "message", message)
	return true, nil
}

// Pull fetches and merges changes from the remote repository.
func (s *LocalStore) Pull(ctx context.Context) error {
	if !s.history {
		return apperrors.ErrHistoryDisabled
	}
	if !s.IsRemoteEnabled() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	auth, err := s.remoteConfig.Auth()
	if err != nil {
		return err
	}

	worktree, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}

	s.logger.InfoContext(ctx, "pulling from remote", "url", s.remoteConfig.RedactedURL(), "branch", s.remoteConfig.Branch)

	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName:    remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(s.remoteConfig.Branch),
		Auth:          auth,
	})
	if err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			s.logger.InfoContext(ctx, "already up to date")
			return nil
		}
		if isEmptyRemote(err) {
			s.logger.InfoContext(ctx, "remote repository is empty, nothing to pull")
			return nil
		}
		return fmt.Errorf("pull: %w", err)
	}

	s.logger.InfoContext(ctx, "pull complete")
	return nil
}

// Push pushes local commits to the remote repository.
func (s *LocalStore) Push(ctx context.Context) error {
	if !s.history {
		return apperrors.ErrHistoryDisabled
	}
	if !s.IsRemoteEnabled() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	auth, err := s.remoteConfig.Auth()
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "pushing to remote", "url", s.remoteConfig.RedactedURL(), "branch", s.remoteConfig.Branch)

	err = s.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		Auth:       auth,
	})
	if err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			s.logger.InfoContext(ctx, "nothing to push")
			return nil
		}
		return fmt.Errorf("push: %w", err)
	}

	s.logger.InfoContext(ctx, "push complete")
	return nil
}

// ensureGitignore keeps backups and in-flight temporary files out of the history.
func (s *LocalStore) ensureGitignore() error {
	path := filepath.Join(s.rootPath, gitignoreName)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(gitignoreContent), filePerm); err != nil {
		return fmt.Errorf("write %s: %w", gitignoreName, err)
	}
	return nil
}

// initializeRepository initializes a git repository, either by cloning from remote or creating locally.
func (s *LocalStore) initializeRepository(path string) (*git.Repository, error) {
	_, statErr := os.Stat(path)
	dirExists := statErr == nil

	if s.remoteConfig.IsEnabled() && !dirExists {
		return s.cloneFromRemote(path)
	}

	return s.openOrCreateLocalRepo(path)
}

// cloneFromRemote clones a repository from the remote URL.
func (s *LocalStore) cloneFromRemote(path string) (*git.Repository, error) {
	s.logger.Info("cloning from remote", "url", s.remoteConfig.RedactedURL(), "branch", s.remoteConfig.Branch)

	auth, err := s.remoteConfig.Auth()
	if err != nil {
		return nil, err
	}

	repo, err := git.PlainClone(path, false, &git.CloneOptions{
		URL:           s.remoteConfig.URL,
		Auth:          auth,
		ReferenceName: plumbing.NewBranchReferenceName(s.remoteConfig.Branch),
		SingleBranch:  true,
	})
	if err == nil {
		s.logger.Info("clone complete")
		return repo, nil
	}

	if !isEmptyRemote(err) {
		return nil, fmt.Errorf("clone repository: %w", err)
	}

	s.logger.Info("remote repository is empty, initializing locally")
	if err := os.MkdirAll(path, dirPerm); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	return s.initNewRepo(path)
}

// openOrCreateLocalRepo opens an existing repository or creates a new one.
func (s *LocalStore) openOrCreateLocalRepo(path string) (*git.Repository, error) {
	if err := os.MkdirAll(path, dirPerm); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	repo, err := git.PlainOpen(path)
	if err == nil {
		return s.ensureRemoteConfigured(repo)
	}

	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open git repo: %w", err)
	}

	return s.initNewRepo(path)
}

// initNewRepo initializes a new git repository and optionally adds remote.
func (s *LocalStore) initNewRepo(path string) (*git.Repository, error) {
	repo, err := git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init git repo: %w", err)
	}

	if s.remoteConfig.IsEnabled() {
		if err := s.addRemoteToRepo(repo); err != nil {
			return nil, err
		}
	}

	return repo, nil
}

// ensureRemoteConfigured ensures the remote is configured in an existing repository.
func (s *LocalStore) ensureRemoteConfigured(repo *git.Repository) (*git.Repository, error) {
	if !s.remoteConfig.IsEnabled() {
		return repo, nil
	}

	if _, err := repo.Remote(remoteName); err == nil {
		return repo, nil
	}

	s.logger.Info("adding remote origin to existing repo", "url", s.remoteConfig.RedactedURL())
	if err := s.addRemoteToRepo(repo); err != nil {
		return nil, err
	}

	return repo, nil
}

// addRemoteToRepo adds the origin remote to a repository.
func (s *LocalStore) addRemoteToRepo(repo *git.Repository) error {
	_, err := repo.CreateRemote(&config.RemoteConfig{
		Name: remoteName,
		URLs: []string{s.remoteConfig.URL},
	})
	if err != nil {
		return fmt.Errorf("add remote origin: %w", err)
	}
	return nil
}

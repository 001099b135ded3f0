package store

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/fclairamb/commonkit/internal/apperrors"
)

// StorageMode defines the storage mode for git operations.
type StorageMode string

const (
	// StorageModeAuto automatically detects the storage mode based on configuration.
	StorageModeAuto StorageMode = ""
	// StorageModeLocal uses local-only storage (no remote operations).
	StorageModeLocal StorageMode = "local"
	// StorageModeRemote uses remote storage (pull/push enabled).
	StorageModeRemote StorageMode = "remote"

	remoteName         = "origin"
	tokenUsername      = "oauth2"
	defaultSSHUser     = "git"
	defaultBranch      = "main"
	defaultAuthorName  = "commonkit"
	defaultAuthorEmail = "commonkit@localhost"
)

// RemoteConfig holds configuration for remote git operations.
type RemoteConfig struct {
	Storage  StorageMode // Storage mode: "local", "remote", or auto-detect (CK_GIT_STORAGE)
	URL      string      // Remote git repository URL (CK_GIT_URL)
	Password string      // Password/token for HTTPS auth (CK_GIT_PASSWORD)
	Branch   string      // Target branch (CK_GIT_BRANCH)
	User     string      // Commit author name (CK_GIT_USER)
	Email    string      // Commit author email (CK_GIT_EMAIL)
	Push     *bool       // Push to remote after commits (CK_GIT_PUSH), nil means auto-detect
}

// NewRemoteConfig creates a RemoteConfig, filling in default branch and author.
func NewRemoteConfig(storage, remoteURL, password, branch, user, email string, push *bool) *RemoteConfig {
	cfg := &RemoteConfig{
		Storage:  StorageMode(strings.ToLower(storage)),
		URL:      remoteURL,
		Password: password,
		Branch:   branch,
		User:     user,
		Email:    email,
		Push:     push,
	}

	if cfg.Branch == "" {
		cfg.Branch = defaultBranch
	}
	if cfg.User == "" {
		cfg.User = defaultAuthorName
	}
	if cfg.Email == "" {
		cfg.Email = defaultAuthorEmail
	}

	return cfg
}

// AuthKind names how the remote is authenticated.
type AuthKind string

const (
	// AuthNone is used for local file remotes, which need no credentials.
	AuthNone AuthKind = "none"
	// AuthSSHAgent uses the keys of the running ssh-agent.
	AuthSSHAgent AuthKind = "ssh-agent"
	// AuthToken sends CK_GIT_PASSWORD as an HTTP basic auth token.
	AuthToken AuthKind = "token"
	// AuthTokenMissing is an HTTP(S) remote without CK_GIT_PASSWORD.
	AuthTokenMissing AuthKind = "token-missing"
)

// EffectiveStorageMode returns the effective storage mode after auto-detection:
// an explicit Storage wins, otherwise a configured URL means remote.
func (c *RemoteConfig) EffectiveStorageMode() StorageMode {
	switch {
	case c == nil:
		return StorageModeLocal
	case c.Storage == StorageModeLocal, c.Storage == StorageModeRemote:
		return c.Storage
	case c.URL != "":
		return StorageModeRemote
	default:
		return StorageModeLocal
	}
}

// IsEnabled returns true if remote operations should be used.
func (c *RemoteConfig) IsEnabled() bool {
	return c.EffectiveStorageMode() == StorageModeRemote && c.URL != ""
}

// IsPushEnabled returns true if push to remote is enabled.
// When CK_GIT_PUSH is not explicitly set, defaults to true if CK_GIT_URL is set.
func (c *RemoteConfig) IsPushEnabled() bool {
	if c == nil {
		return false
	}
	if c.Push != nil {
		return *c.Push
	}
	return c.URL != ""
}

// AuthKind reports which credentials Auth would use. SSH covers the scp-like
// user@host:path form as well as ssh:// URLs.
func (c *RemoteConfig) AuthKind() AuthKind {
	ep, err := c.endpoint()
	if err != nil {
		return AuthNone
	}
	return c.authKindOf(ep)
}

func (c *RemoteConfig) authKindOf(ep *transport.Endpoint) AuthKind {
	switch ep.Protocol {
	case "file":
		return AuthNone
	case "ssh":
		return AuthSSHAgent
	}
	if c.Password == "" {
		return AuthTokenMissing
	}
	return AuthToken
}

// RedactedURL returns the remote URL without any password it embeds, for logs and errors.
func (c *RemoteConfig) RedactedURL() string {
	if c == nil {
		return ""
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.User == nil {
		return c.URL
	}
	if _, hasPassword := u.User.Password(); !hasPassword {
		return c.URL
	}
	u.User = url.User(u.User.Username())
	return u.String()
}

// Auth returns the credentials for the remote: the ssh-agent for SSH URLs
// (as the user named in the URL, "git" otherwise), the CK_GIT_PASSWORD token
// for HTTP(S) URLs, and nil for local paths.
func (c *RemoteConfig) Auth() (transport.AuthMethod, error) {
	ep, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	switch c.authKindOf(ep) {
	case AuthNone:
		return nil, nil //nolint:nilnil // go-git accepts a nil AuthMethod
	case AuthSSHAgent:
		user := ep.User
		if user == "" {
			user = defaultSSHUser
		}
		auth, err := ssh.NewSSHAgentAuth(user)
		if err != nil {
			return nil, apperrors.NewRemoteError(apperrors.ErrRemoteAuth, c.RedactedURL(), err)
		}
		return auth, nil
	case AuthTokenMissing:
		return nil, apperrors.NewRemoteError(apperrors.ErrRemoteAuth, c.RedactedURL(), apperrors.ErrHTTPSPasswordRequired)
	default:
		return &http.BasicAuth{Username: tokenUsername, Password: c.Password}, nil
	}
}

func (c *RemoteConfig) endpoint() (*transport.Endpoint, error) {
	if c == nil || c.URL == "" {
		return nil, apperrors.ErrRemoteNotConfigured
	}
	ep, err := transport.NewEndpoint(c.URL)
	if err != nil {
		return nil, apperrors.NewRemoteError(apperrors.ErrInvalidRemoteURL, c.RedactedURL(), err)
	}
	return ep, nil
}

// RemoteStatus is what Check saw on the remote.
type RemoteStatus struct {
	Refs      int  // references advertised by the remote
	Empty     bool // the remote has no commits yet
	HasBranch bool // the configured branch exists on the remote
}

// Check lists the remote references to verify that the remote answers with the
// configured credentials. An empty remote counts as reachable.
func (c *RemoteConfig) Check(ctx context.Context, logger *slog.Logger) (*RemoteStatus, error) {
	if !c.IsEnabled() {
		return nil, apperrors.ErrRemoteNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}

	auth, err := c.Auth()
	if err != nil {
		return nil, err
	}

	redacted := c.RedactedURL()
	logger.DebugContext(ctx, "checking remote", "url", redacted, "auth", c.AuthKind())

	rem := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{Name: remoteName, URLs: []string{c.URL}})
	refs, err := rem.ListContext(ctx, &git.ListOptions{Auth: auth})
	switch {
	case isEmptyRemote(err):
		logger.InfoContext(ctx, "remote is empty", "url", redacted)
		return &RemoteStatus{Empty: true}, nil
	case err != nil:
		return nil, apperrors.NewRemoteError(apperrors.ErrRemoteUnreachable, redacted, err)
	}

	status := &RemoteStatus{Refs: len(refs)}
	branch := plumbing.NewBranchReferenceName(c.Branch)
	for _, ref := range refs {
		if ref.Name() == branch {
			status.HasBranch = true
			break
		}
	}

	logger.DebugContext(ctx, "remote reachable", "url", redacted, "refs", status.Refs, "branch_found", status.HasBranch)
	return status, nil
}

// isEmptyRemote reports whether err means the remote has no commits yet.
func isEmptyRemote(err error) bool {
	return errors.Is(err, transport.ErrEmptyRemoteRepository)
}

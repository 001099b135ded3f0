package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fclairamb/commonkit/internal/apperrors"
	"github.com/fclairamb/commonkit/internal/jsonstore"
	"github.com/fclairamb/commonkit/internal/store"
)

func environ(vars ...string) Option {
	return WithEnviron(func() []string { return vars })
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", environ())
	require.NoError(t, err)

	assert.Equal(t, LogFormatText, cfg.Log.Format)
	assert.Equal(t, "data", cfg.Store.Dir)
	assert.Equal(t, int64(64<<20), cfg.Store.MaxSize)
	assert.Equal(t, 5, cfg.Store.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.Store.RetryDelay)
	assert.True(t, cfg.Store.History)
	assert.Equal(t, 10*time.Second, cfg.IMDB.Timeout)
	assert.Equal(t, "main", cfg.Git.Branch)
}

func TestLoad_Layers(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "commonkit.yaml")
	content := "store:\n  dir: /srv/docs\n  max_retries: 9\n  backup_keep: 3\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path, environ(
		"CK_STORE_MAX_RETRIES=2",
		"CK_STORE_RETRY_DELAY=1s",
		"CK_GIT_URL=git@example.com:docs.git",
		"CK_GIT_PUSH=false",
		"CK_LOG_FORMAT=JSON",
		"OTHER_STORE_DIR=/ignored",
	))
	require.NoError(t, err)

	assert.Equal(t, "/srv/docs", cfg.Store.Dir, "file overrides defaults")
	assert.Equal(t, 2, cfg.Store.MaxRetries, "env overrides file")
	assert.Equal(t, 3, cfg.Store.BackupKeep)
	assert.Equal(t, time.Second, cfg.Store.RetryDelay)
	assert.Equal(t, LogFormatJSON, cfg.Log.Format)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	remote := cfg.Remote()
	assert.Equal(t, store.StorageModeRemote, remote.EffectiveStorageMode())
	assert.False(t, remote.IsPushEnabled())
	assert.Equal(t, "main", remote.Branch)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  string
	}{
		{name: "log format", env: "CK_LOG_FORMAT=xml"},
		{name: "log level", env: "CK_LOG_LEVEL=loud"},
		{name: "push flag", env: "CK_GIT_PUSH=maybe"},
		{name: "retry count", env: "CK_STORE_MAX_RETRIES=many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load("", environ(tt.env))
			require.Error(t, err)
		})
	}

	_, err := Load("", environ("CK_LOG_FORMAT=xml"))
	require.ErrorIs(t, err, apperrors.ErrInvalidLogFormat)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), environ())
	require.Error(t, err)
}

func TestDocumentOptions(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", environ("CK_STORE_BACKUP_KEEP=4", "CK_STORE_MAX_RETRIES=7"))
	require.NoError(t, err)

	docs := jsonstore.New(cfg.DocumentOptions(slog.Default())...)
	assert.Equal(t, 7, docs.MaxRetries())
	assert.Equal(t, 4, docs.BackupKeep())
}

func TestTransformEnv(t *testing.T) {
	t.Parallel()

	key, value := transformEnv("CK_STORE_BACKUP_DIR", "/tmp/backups")
	assert.Equal(t, "store.backup_dir", key)
	assert.Equal(t, "/tmp/backups", value)
}

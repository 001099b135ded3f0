// Package config loads the application configuration from defaults, an
// optional YAML file and CK_ environment variables, in that order.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/fclairamb/commonkit/internal/apperrors"
	"github.com/fclairamb/commonkit/internal/jsonstore"
	"github.com/fclairamb/commonkit/internal/store"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "CK_"

// LogFormat represents the log output format.
type LogFormat string

const (
	// LogFormatText is the human-readable text format (default).
	LogFormatText LogFormat = "text"
	// LogFormatJSON is the JSON-formatted structured logs.
	LogFormatJSON LogFormat = "json"
)

// Config is the complete application configuration.
type Config struct {
	Log   LogConfig   `koanf:"log"`
	Store StoreConfig `koanf:"store"`
	Git   GitConfig   `koanf:"git"`
	IMDB  IMDBConfig  `koanf:"imdb"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Format LogFormat `koanf:"format"`
	Level  string    `koanf:"level"`
}

// StoreConfig configures the document store.
type StoreConfig struct {
	Dir        string        `koanf:"dir"`
	MaxSize    int64         `koanf:"max_size"`
	Strict     bool          `koanf:"strict"`
	MaxRetries int           `koanf:"max_retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`
	BackupKeep int           `koanf:"backup_keep"`
	BackupDir  string        `koanf:"backup_dir"`
	SyncDir    bool          `koanf:"sync_dir"`
	History    bool          `koanf:"history"`
	WatchDelay time.Duration `koanf:"watch_delay"`
}

// GitConfig configures the document history remote.
type GitConfig struct {
	Storage  string `koanf:"storage"`
	URL      string `koanf:"url"`
	Password string `koanf:"password"`
	Branch   string `koanf:"branch"`
	User     string `koanf:"user"`
	Email    string `koanf:"email"`
	Push     string `koanf:"push"` // Empty means auto-detect
}

// IMDBConfig configures the title lookup client.
type IMDBConfig struct {
	BaseURL      string        `koanf:"base_url"`
	Timeout      time.Duration `koanf:"timeout"`
	RateInterval time.Duration `koanf:"rate_interval"`
}

func defaults() map[string]any {
	return map[string]any{
		"log.format":         string(LogFormatText),
		"log.level":          "info",
		"store.dir":          "data",
		"store.max_size":     64 << 20,
		"store.strict":       false,
		"store.max_retries":  5,
		"store.retry_delay":  "50ms",
		"store.backup_keep":  0,
		"store.backup_dir":   "",
		"store.sync_dir":     false,
		"store.history":      true,
		"store.watch_delay":  "100ms",
		"git.branch":         "main",
		"imdb.base_url":      "https://v3.sg.media-imdb.com/suggestion/x/",
		"imdb.timeout":       "10s",
		"imdb.rate_interval": "200ms",
	}
}

type loadOptions struct {
	environ func() []string
}

// Option configures Load.
type Option func(*loadOptions)

// WithEnviron replaces os.Environ as the source of environment variables.
func WithEnviron(fn func() []string) Option {
	return func(o *loadOptions) {
		o.environ = fn
	}
}

// Load builds the configuration. An empty path skips the YAML file layer.
func Load(path string, opts ...Option) (*Config, error) {
	options := &loadOptions{environ: os.Environ}
	for _, opt := range opts {
		opt(options)
	}

	konfig := koanf.New(".")

	if err := konfig.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := konfig.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := konfig.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
		EnvironFunc:   options.environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := konfig.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// transformEnv maps CK_STORE_MAX_RETRIES to store.max_retries: the first
// underscore separates the section from the key.
func transformEnv(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.Replace(key, "_", ".", 1), value
}

// Validate checks the values that cannot be checked by their type.
func (c *Config) Validate() error {
	c.Log.Format = LogFormat(strings.ToLower(string(c.Log.Format)))
	switch c.Log.Format {
	case LogFormatText, LogFormatJSON:
	case "":
		c.Log.Format = LogFormatText
	default:
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidLogFormat, c.Log.Format)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	if _, err := c.Git.PushSetting(); err != nil {
		return err
	}

	return nil
}

// SlogLevel parses the configured level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return level, fmt.Errorf("log level %q: %w", c.Level, err)
	}
	return level, nil
}

// PushSetting returns nil when push should be auto-detected.
func (c GitConfig) PushSetting() (*bool, error) {
	if c.Push == "" {
		return nil, nil //nolint:nilnil // nil means auto-detect
	}
	push, err := strconv.ParseBool(c.Push)
	if err != nil {
		return nil, fmt.Errorf("git push %q: %w", c.Push, err)
	}
	return &push, nil
}

// Remote builds the git remote configuration.
func (c *Config) Remote() *store.RemoteConfig {
	push, _ := c.Git.PushSetting()
	return store.NewRemoteConfig(c.Git.Storage, c.Git.URL, c.Git.Password, c.Git.Branch, c.Git.User, c.Git.Email, push)
}

// DocumentOptions returns the JSON store options matching the store section.
func (c *Config) DocumentOptions(logger *slog.Logger) []jsonstore.Option {
	opts := []jsonstore.Option{
		jsonstore.WithLogger(logger),
		jsonstore.WithMaxSize(c.Store.MaxSize),
		jsonstore.WithStrict(c.Store.Strict),
		jsonstore.WithMaxRetries(c.Store.MaxRetries),
		jsonstore.WithRetryDelay(c.Store.RetryDelay),
		jsonstore.WithSyncDir(c.Store.SyncDir),
		jsonstore.WithWatchDelay(c.Store.WatchDelay),
	}
	if c.Store.BackupKeep > 0 {
		opts = append(opts, jsonstore.WithBackup(c.Store.BackupKeep, c.Store.BackupDir))
	}
	return opts
}

// Package cmd provides the CLI commands for commonkit.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/fclairamb/commonkit/internal/apperrors"
	"github.com/fclairamb/commonkit/internal/config"
	"github.com/fclairamb/commonkit/internal/imdb"
	"github.com/fclairamb/commonkit/internal/jsonstore"
	"github.com/fclairamb/commonkit/internal/store"
	"github.com/fclairamb/commonkit/internal/timing"
	"github.com/fclairamb/commonkit/internal/version"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// configKey is the context key for the loaded configuration.
	configKey contextKey = "config"

	logTimeFormat = "15:04:05.000"
)

// verboseFlag is the shared verbose flag for all commands.
var verboseFlag = &cli.BoolFlag{
	Name:  "verbose",
	Usage: "Enable verbose logging",
}

// NewApp creates the CLI application.
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "commonkit",
		Usage:   "Keep JSON documents safe on disk, plus a few everyday helpers",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				Sources: cli.EnvVars(config.EnvPrefix + "CONFIG"),
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Document directory (overrides store.dir)",
			},
			verboseFlag,
		},
		Before: setup,
		Commands: []*cli.Command{
			docCommand(),
			repoCommand(),
			imdbCommand(),
			mathCommand(),
			convertCommand(),
			validateCommand(),
		},
	}
}

// setup loads the configuration and installs the global logger.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}

	if dir := cmd.String("dir"); dir != "" {
		cfg.Store.Dir = dir
	}

	setupLogging(cmd, cfg.Log)

	return context.WithValue(ctx, configKey, cfg), nil
}

// setupLogging configures the global logger based on the verbose flag and the log section.
func setupLogging(cmd *cli.Command, logCfg config.LogConfig) {
	level, err := logCfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	switch logCfg.Format {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	default:
		handler = tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
			Level:      level,
			TimeFormat: logTimeFormat,
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		})
	}

	slog.SetDefault(slog.New(handler))

	if level == slog.LevelDebug {
		slog.Debug("Verbose logging enabled")
	}
}

// configFrom returns the configuration loaded by setup, or the defaults.
func configFrom(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg, nil
	}
	return config.Load("")
}

// openStore creates the document store from the configuration.
func openStore(ctx context.Context) (*store.LocalStore, error) {
	cfg, err := configFrom(ctx)
	if err != nil {
		return nil, err
	}

	docs := jsonstore.New(cfg.DocumentOptions(slog.Default())...)

	st, err := store.NewLocalStore(cfg.Store.Dir,
		store.WithLogger(slog.Default()),
		store.WithRemoteConfig(cfg.Remote()),
		store.WithDocumentStore(docs),
		store.WithHistory(cfg.Store.History),
	)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	slog.DebugContext(ctx, "store opened", "dir", cfg.Store.Dir, "mode", cfg.Remote().EffectiveStorageMode())
	return st, nil
}

// newIMDBClient creates the title lookup client from the configuration.
func newIMDBClient(ctx context.Context) (*imdb.Client, error) {
	cfg, err := configFrom(ctx)
	if err != nil {
		return nil, err
	}

	return imdb.NewClient(
		imdb.WithLogger(slog.Default()),
		imdb.WithBaseURL(cfg.IMDB.BaseURL),
		imdb.WithTimeout(cfg.IMDB.Timeout),
		imdb.WithRateInterval(cfg.IMDB.RateInterval),
	), nil
}

// measured wraps an action so its duration is logged.
func measured(name string, action cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		return timing.Measure(ctx, slog.Default(), name, func(ctx context.Context) error {
			return action(ctx, cmd)
		})
	}
}

// requireArgs checks that at least len(names) positional arguments were given.
func requireArgs(cmd *cli.Command, names ...string) error {
	if cmd.Args().Len() < len(names) {
		return fmt.Errorf("%w: %s", apperrors.ErrArgumentRequired, strings.Join(names, " "))
	}
	return nil
}

// joinedArgs returns every positional argument joined by spaces.
func joinedArgs(cmd *cli.Command, name string) (string, error) {
	if err := requireArgs(cmd, name); err != nil {
		return "", err
	}
	return strings.Join(cmd.Args().Slice(), " "), nil
}

// output returns where command results are written.
func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// input returns where command input is read from.
func input(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}

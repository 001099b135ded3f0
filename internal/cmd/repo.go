package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/fclairamb/commonkit/internal/apperrors"
)

func repoCommand() *cli.Command {
	return &cli.Command{
		Name:  "repo",
		Usage: "Manage the git history of the document directory",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show documents changed since the last commit",
				Action: measured("repo status", runRepoStatus),
			},
			{
				Name:  "commit",
				Usage: "Commit every pending change (and push when enabled)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "message",
						Aliases: []string{"m"},
						Usage:   "Commit message",
					},
				},
				Action: measured("repo commit", runRepoCommit),
			},
			{
				Name:   "push",
				Usage:  "Push commits to the remote",
				Action: measured("repo push", runRepoPush),
			},
			{
				Name:   "pull",
				Usage:  "Pull changes from the remote",
				Action: measured("repo pull", runRepoPull),
			},
			{
				Name:  "remote",
				Usage: "Inspect the remote configuration",
				Commands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Show the remote configuration",
						Action: runRemoteShow,
					},
					{
						Name:   "test",
						Usage:  "Check that the remote answers with the configured credentials",
						Action: measured("remote test", runRemoteTest),
					},
				},
			},
		},
	}
}

func runRepoStatus(ctx context.Context, cmd *cli.Command) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	entries, err := st.Status(ctx)
	if err != nil {
		return err
	}

	displayStatus(output(cmd), entries)
	return nil
}

func runRepoCommit(ctx context.Context, cmd *cli.Command) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	message := cmd.String("message")
	if message == "" {
		message = "[commonkit] update at " + time.Now().Format(time.RFC3339)
	}

	committed, err := st.Commit(ctx, message)
	if err != nil {
		return err
	}
	if !committed {
		displayLines(output(cmd), "Nothing to commit")
		return nil
	}

	if st.IsRemoteEnabled() && st.RemoteConfig().IsPushEnabled() {
		if err := st.Push(ctx); err != nil {
			return fmt.Errorf("push to remote: %w", err)
		}
	}

	return nil
}

func runRepoPush(ctx context.Context, _ *cli.Command) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	if !st.IsRemoteEnabled() {
		return apperrors.ErrRemoteNotConfiguredSetURL
	}

	if err := st.Push(ctx); err != nil {
		return err
	}

	slog.InfoContext(ctx, "pushed to remote", "url", st.RemoteConfig().RedactedURL())
	return nil
}

func runRepoPull(ctx context.Context, _ *cli.Command) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	if !st.IsRemoteEnabled() {
		return apperrors.ErrRemoteNotConfiguredSetURL
	}

	if err := st.Pull(ctx); err != nil {
		return err
	}

	slog.InfoContext(ctx, "pulled from remote", "url", st.RemoteConfig().RedactedURL())
	return nil
}

func runRemoteShow(ctx context.Context, cmd *cli.Command) error {
	cfg, err := configFrom(ctx)
	if err != nil {
		return err
	}

	displayRemoteConfig(output(cmd), cfg.Remote(), cfg.Store.Dir)
	return nil
}

func runRemoteTest(ctx context.Context, cmd *cli.Command) error {
	cfg, err := configFrom(ctx)
	if err != nil {
		return err
	}

	remote := cfg.Remote()
	if !remote.IsEnabled() {
		return apperrors.ErrRemoteNotConfiguredSetURL
	}

	return displayRemoteCheck(ctx, output(cmd), remote)
}

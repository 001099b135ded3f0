package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/fclairamb/commonkit/internal/apperrors"
	"github.com/fclairamb/commonkit/internal/jsonstore"
)

const stdinArg = "-"

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json or yaml",
		Value:   formatJSON,
	}
}

func docCommand() *cli.Command {
	return &cli.Command{
		Name:  "doc",
		Usage: "Read and edit JSON documents",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print a document",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{
						Name:  "default",
						Usage: "JSON value printed when the document is missing or unreadable",
						Value: "null",
					},
				},
				Action: measured("doc get", runDocGet),
			},
			{
				Name:      "put",
				Usage:     "Replace a document with a JSON value (read from stdin when omitted or '-')",
				ArgsUsage: "<name> [json]",
				Action:    measured("doc put", runDocPut),
			},
			{
				Name:      "set",
				Usage:     "Set a key of an object document; values that are not JSON are stored as strings",
				ArgsUsage: "<name> <key> <value>",
				Action:    measured("doc set", runDocSet),
			},
			{
				Name:      "unset",
				Usage:     "Remove a key from an object document",
				ArgsUsage: "<name> <key>",
				Action:    measured("doc unset", runDocUnset),
			},
			{
				Name:      "append",
				Usage:     "Append a value to an array document",
				ArgsUsage: "<name> <value>",
				Action:    measured("doc append", runDocAppend),
			},
			{
				Name:      "backup",
				Usage:     "Copy a document to a timestamped backup and prune old ones",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "keep",
						Usage: "Number of older backups to retain next to the new one (overrides store.backup_keep)",
					},
				},
				Action: measured("doc backup", runDocBackup),
			},
			{
				Name:      "fingerprint",
				Usage:     "Print the fingerprint of a document, or of a JSON value with --json",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "json",
						Usage: "Fingerprint this JSON value instead of a document",
					},
				},
				Action: measured("doc fingerprint", runDocFingerprint),
			},
			{
				Name:      "watch",
				Usage:     "Print every change of a document until interrupted",
				ArgsUsage: "<name>",
				Action:    runDocWatch,
			},
			{
				Name:      "list",
				Usage:     "List documents",
				ArgsUsage: "[dir]",
				Action:    measured("doc list", runDocList),
			},
			{
				Name:      "delete",
				Usage:     "Delete a document",
				ArgsUsage: "<name>",
				Action:    measured("doc delete", runDocDelete),
			},
		},
	}
}

func runDocGet(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "<name>"); err != nil {
		return err
	}

	def, err := parseJSON(cmd.String("default"))
	if err != nil {
		return fmt.Errorf("invalid --default: %w", err)
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	doc, err := st.Read(ctx, cmd.Args().First(), def)
	if err != nil {
		return err
	}

	return printDocument(output(cmd), doc, cmd.String("format"))
}

func runDocPut(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "<name>"); err != nil {
		return err
	}

	raw := cmd.Args().Get(1)
	if raw == "" || raw == stdinArg {
		data, err := io.ReadAll(input(cmd))
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		raw = string(data)
	}

	value, err := parseJSON(raw)
	if err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	name := cmd.Args().First()
	if err := st.Write(ctx, name, value); err != nil {
		return err
	}

	slog.InfoContext(ctx, "document written", "name", name)
	return nil
}

func runDocSet(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "<name>", "<key>", "<value>"); err != nil {
		return err
	}

	key := cmd.Args().Get(1)
	value := parseValue(cmd.Args().Get(2))

	return editDocument(ctx, cmd, func(current any) (any, error) {
		obj, err := asObject(current)
		if err != nil {
			return nil, err
		}
		obj[key] = value
		return obj, nil
	})
}

func runDocUnset(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "<name>", "<key>"); err != nil {
		return err
	}

	key := cmd.Args().Get(1)

	return editDocument(ctx, cmd, func(current any) (any, error) {
		obj, err := asObject(current)
		if err != nil {
			return nil, err
		}
		delete(obj, key)
		return obj, nil
	})
}

func runDocAppend(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "<name>", "<value>"); err != nil {
		return err
	}

	value := parseValue(cmd.Args().Get(1))

	return editDocument(ctx, cmd, func(current any) (any, error) {
		switch list := current.(type) {
		case nil:
			return []any{value}, nil
		case []any:
			return append(list, value), nil
		default:
			return nil, apperrors.ErrNotAnArray
		}
	})
}

// editDocument updates the named document with fn and prints the result.
func editDocument(ctx context.Context, cmd *cli.Command, fn jsonstore.UpdateFunc) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	doc, err := st.Update(ctx, cmd.Args().First(), fn)
	if err != nil {
		return err
	}

	return printDocument(output(cmd), doc, formatJSON)
}

func runDocBackup(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "<name>"); err != nil {
		return err
	}

	if cmd.IsSet("keep") {
		cfg, err := configFrom(ctx)
		if err != nil {
			return err
		}
		cfg.Store.BackupKeep = cmd.Int("keep")
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	name := cmd.Args().First()
	created, err := st.Backup(ctx, name)
	if err != nil {
		return err
	}

	backups, err := jsonstore.ListBackups(filepath.Dir(created), filepath.Base(name))
	if err != nil {
		return err
	}

	displayBackups(output(cmd), created, backups)
	return nil
}

func runDocFingerprint(ctx context.Context, cmd *cli.Command) error {
	if cmd.IsSet("json") {
		value, err := parseJSON(cmd.String("json"))
		if err != nil {
			return err
		}
		sum, err := jsonstore.FingerprintValue(value)
		if err != nil {
			return err
		}
		displayLines(output(cmd), sum)
		return nil
	}

	if err := requireArgs(cmd, "<name>"); err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	sum, err := st.Fingerprint(ctx, cmd.Args().First())
	if err != nil {
		return err
	}

	displayLines(output(cmd), sum)
	return nil
}

func runDocWatch(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "<name>"); err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	w := output(cmd)
	return st.Watch(ctx, cmd.Args().First(), func(change jsonstore.Change) {
		displayChange(w, change)
	})
}

func runDocList(ctx context.Context, cmd *cli.Command) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	dir := cmd.Args().First()
	if dir == "" {
		dir = "."
	}

	files, err := st.List(ctx, dir)
	if err != nil {
		return err
	}

	displayFileList(output(cmd), files)
	return nil
}

func runDocDelete(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "<name>"); err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}

	name := cmd.Args().First()
	if err := st.Delete(ctx, name); err != nil {
		return err
	}

	slog.InfoContext(ctx, "document deleted", "name", name)
	return nil
}

// parseJSON decodes a single JSON value, keeping numbers exact.
func parseJSON(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrParse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON value", apperrors.ErrParse)
	}
	return value, nil
}

// parseValue decodes raw as JSON, falling back to the raw string.
func parseValue(raw string) any {
	if value, err := parseJSON(raw); err == nil {
		return value
	}
	return raw
}

// asObject returns current as an object; a missing document is an empty object.
func asObject(current any) (map[string]any, error) {
	switch obj := current.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return obj, nil
	default:
		return nil, apperrors.ErrNotAnObject
	}
}

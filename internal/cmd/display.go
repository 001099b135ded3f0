package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/fclairamb/commonkit/internal/imdb"
	"github.com/fclairamb/commonkit/internal/jsonstore"
	"github.com/fclairamb/commonkit/internal/store"
	"github.com/fclairamb/commonkit/internal/units"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// printDocument writes v as indented JSON or as YAML.
func printDocument(w io.Writer, v any, format string) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plain(v)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case formatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

// plain replaces json.Number values with int64 or float64 so YAML prints
// them as numbers rather than strings.
func plain(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = plain(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// displayRemoteConfig displays the remote git configuration.
//
//nolint:forbidigo // CLI user output function
func displayRemoteConfig(w io.Writer, cfg *store.RemoteConfig, dir string) {
	fmt.Fprintln(w, "Remote Git Configuration")
	fmt.Fprintln(w)

	effectiveMode := cfg.EffectiveStorageMode()
	if cfg.Storage == "" {
		fmt.Fprintf(w, "Storage:  %s (auto-detected)\n", effectiveMode)
	} else {
		fmt.Fprintf(w, "Storage:  %s\n", effectiveMode)
	}
	fmt.Fprintf(w, "Dir:      %s\n", dir)

	if effectiveMode == store.StorageModeLocal {
		fmt.Fprintln(w, "\nRemote operations disabled (local-only mode)")
		if cfg.URL != "" {
			fmt.Fprintf(w, "URL:      %s (ignored due to CK_GIT_STORAGE=local)\n", cfg.URL)
		}
		return
	}

	if cfg.URL == "" {
		fmt.Fprintln(w, "\nRemote: not configured (set CK_GIT_URL to enable)")
		return
	}

	fmt.Fprintf(w, "URL:      %s\n", cfg.RedactedURL())
	switch kind := cfg.AuthKind(); kind {
	case store.AuthSSHAgent:
		fmt.Fprintln(w, "Auth:     SSH (using ssh-agent)")
	case store.AuthToken:
		fmt.Fprintln(w, "Auth:     HTTPS (token configured)")
	case store.AuthTokenMissing:
		fmt.Fprintln(w, "Auth:     HTTPS (WARNING: CK_GIT_PASSWORD not set)")
	default:
		fmt.Fprintf(w, "Auth:     %s\n", kind)
	}
	fmt.Fprintf(w, "Branch:   %s\n", cfg.Branch)
	fmt.Fprintf(w, "User:     %s\n", cfg.User)
	fmt.Fprintf(w, "Email:    %s\n", cfg.Email)
	fmt.Fprintf(w, "Push:     %t\n", cfg.IsPushEnabled())
}

// displayRemoteCheck checks the remote and displays what it advertises.
//
//nolint:forbidigo // CLI user output function
func displayRemoteCheck(ctx context.Context, w io.Writer, cfg *store.RemoteConfig) error {
	fmt.Fprintf(w, "Checking %s...\n", cfg.RedactedURL())

	status, err := cfg.Check(ctx, slog.Default())
	if err != nil {
		return err
	}

	switch {
	case status.Empty:
		fmt.Fprintln(w, "Remote reachable (empty repository)")
	case status.HasBranch:
		fmt.Fprintf(w, "Remote reachable: %d refs, branch %q found\n", status.Refs, cfg.Branch)
	default:
		fmt.Fprintf(w, "Remote reachable: %d refs, branch %q not found\n", status.Refs, cfg.Branch)
	}
	return nil
}

// displayStatus displays the pending changes of the document directory.
//
//nolint:forbidigo // CLI user output function
func displayStatus(w io.Writer, entries []store.FileStatus) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Nothing to commit, working tree clean")
		return
	}

	fmt.Fprintf(w, "%d changed file(s):\n", len(entries))
	for _, entry := range entries {
		fmt.Fprintf(w, "  %c%c %s\n", statusCode(entry.Staging), statusCode(entry.Worktree), entry.Path)
	}
}

func statusCode(code string) rune {
	if code == "" {
		return ' '
	}
	return rune(code[0])
}

// displayFileList displays the entries of a directory.
//
//nolint:forbidigo // CLI user output function
func displayFileList(w io.Writer, files []store.FileInfo) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return
	}

	for _, file := range files {
		if file.IsDir {
			fmt.Fprintf(w, "  %s/\n", file.Path)
			continue
		}
		fmt.Fprintf(w, "  %-40s %10s  %s\n", file.Path, units.Size(file.Size), formatTimeSince(file.ModTime))
	}
}

// displayBackups displays the backups of a document, newest first.
//
//nolint:forbidigo // CLI user output function
func displayBackups(w io.Writer, created string, backups []string) {
	fmt.Fprintf(w, "Backup created: %s\n", created)
	if len(backups) > 1 {
		fmt.Fprintf(w, "Retained backups: %d\n", len(backups))
		for _, backup := range backups {
			fmt.Fprintf(w, "  - %s\n", backup)
		}
	}
}

// displayChange displays one observed document change.
//
//nolint:forbidigo // CLI user output function
func displayChange(w io.Writer, change jsonstore.Change) {
	switch {
	case change.Removed:
		fmt.Fprintf(w, "removed  %s\n", change.Path)
	case change.Previous == "":
		fmt.Fprintf(w, "created  %s %s\n", change.Path, change.Fingerprint)
	default:
		fmt.Fprintf(w, "changed  %s %s -> %s\n", change.Path, change.Previous, change.Fingerprint)
	}
}

// displayTitle displays the summary of a title.
//
//nolint:forbidigo // CLI user output function
func displayTitle(w io.Writer, title *imdb.Title) {
	name := title.Title
	if title.Year > 0 {
		name = fmt.Sprintf("%s (%d)", title.Title, title.Year)
	}

	fmt.Fprintf(w, "%s\n", name)
	fmt.Fprintf(w, "  ID:    %s\n", title.ID)
	fmt.Fprintf(w, "  Type:  %s\n", title.Type)
	fmt.Fprintf(w, "  URL:   %s\n", title.URL)
	if title.ImageURL != "" {
		fmt.Fprintf(w, "  Image: %s\n", title.ImageURL)
	}
}

// displayLines writes one value per line.
//
//nolint:forbidigo // CLI user output function
func displayLines(w io.Writer, lines ...string) {
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

// formatTimeSince formats a time in a human-readable way.
func formatTimeSince(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

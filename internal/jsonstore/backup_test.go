package jsonstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ts string) func() time.Time {
	return func() time.Time {
		t, err := time.Parse(backupTimeFormat, ts)
		if err != nil {
			panic(err)
		}
		return t
	}
}

func TestBackup_NameAndContent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	writeRaw(t, path, `{"theme": "dark"}`)
	require.NoError(t, os.Chmod(path, 0o640))
	mtime := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	store := newTestStore(t, WithClock(fixedClock("20240115T153000")))
	got, err := store.Backup(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "settings.json.20240115T153000.bak"), got)
	assert.Equal(t, `{"theme": "dark"}`, readRaw(t, got))

	info, err := os.Stat(got)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	assert.True(t, info.ModTime().Equal(mtime))
	assert.Empty(t, tempFiles(t, dir))
}

func TestBackup_Rotation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	writeRaw(t, path, `{"v": 6}`)

	prior := []string{
		"doc.json.20240101T000000.bak",
		"doc.json.20240102T000000.bak",
		"doc.json.20240103T000000.bak",
		"doc.json.20240104T000000.bak",
		"doc.json.20240105T000000.bak",
	}
	for _, name := range prior {
		writeRaw(t, filepath.Join(dir, name), `{}`)
	}
	// Unrelated files must survive.
	writeRaw(t, filepath.Join(dir, "other.json.20240101T000000.bak"), `{}`)
	writeRaw(t, filepath.Join(dir, "doc.json.bak"), `{}`)

	store := newTestStore(t, WithClock(fixedClock("20240106T000000")))
	created, err := store.BackupTo(context.Background(), path, 2, "")
	require.NoError(t, err)

	backups, err := ListBackups(dir, "doc.json")
	require.NoError(t, err)
	assert.Equal(t, []string{
		created,
		filepath.Join(dir, "doc.json.20240105T000000.bak"),
		filepath.Join(dir, "doc.json.20240104T000000.bak"),
	}, backups)
	assert.NoFileExists(t, filepath.Join(dir, "doc.json.20240103T000000.bak"))

	assert.FileExists(t, filepath.Join(dir, "other.json.20240101T000000.bak"))
	assert.FileExists(t, filepath.Join(dir, "doc.json.bak"))
}

func TestBackup_KeepZeroKeepsOnlyNew(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	writeRaw(t, path, `1`)
	writeRaw(t, filepath.Join(dir, "doc.json.20200101T000000.bak"), `0`)

	store := newTestStore(t, WithClock(fixedClock("20240101T000000")))
	created, err := store.BackupTo(context.Background(), path, 0, "")
	require.NoError(t, err)

	backups, err := ListBackups(dir, "doc.json")
	require.NoError(t, err)
	assert.Equal(t, []string{created}, backups)
}

func TestBackup_CustomDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	writeRaw(t, path, `[]`)
	backupDir := filepath.Join(dir, "history", "doc")

	store := newTestStore(t, WithBackup(3, backupDir))
	created, err := store.Backup(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, backupDir, filepath.Dir(created))
	assert.Equal(t, `[]`, readRaw(t, created))
}

func TestBackup_MissingSource(t *testing.T) {
	t.Parallel()

	_, err := newTestStore(t).Backup(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestListBackups_MissingDirectory(t *testing.T) {
	t.Parallel()

	backups, err := ListBackups(filepath.Join(t.TempDir(), "nope"), "doc.json")
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestBackup_NewerBackupDoesNotEvictCreated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	writeRaw(t, path, `1`)
	// A backup newer than the clock must not push the new one out.
	writeRaw(t, filepath.Join(dir, "doc.json.20990101T000000.bak"), `0`)

	store := newTestStore(t, WithClock(fixedClock("20240101T000000")))
	created, err := store.BackupTo(context.Background(), path, 1, "")
	require.NoError(t, err)

	assert.FileExists(t, created)
	assert.FileExists(t, filepath.Join(dir, "doc.json.20990101T000000.bak"))
}

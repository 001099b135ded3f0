package jsonstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fclairamb/commonkit/internal/apperrors"
)

func TestWrite_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
	}{
		{name: "empty object", value: map[string]any{}},
		{name: "empty array", value: []any{}},
		{name: "nested object", value: map[string]any{"a": 1, "b": []any{1, 2, 3}}},
		{name: "string", value: "string"},
		{name: "number", value: 42},
		{name: "null", value: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := newTestStore(t)
			path := filepath.Join(t.TempDir(), "doc.json")

			require.NoError(t, store.Write(ctx, path, tt.value))

			got, err := store.Read(ctx, path, "default")
			require.NoError(t, err)
			assert.Equal(t, canonical(t, tt.value), canonical(t, got))
		})
	}
}

func TestWrite_CreatesParentDirectories(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "deep", "nested", "doc.json")
	require.NoError(t, newTestStore(t).Write(context.Background(), path, map[string]any{"ok": true}))

	assert.JSONEq(t, `{"ok": true}`, readRaw(t, path))
}

func TestWrite_Permissions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("new file is private", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(dir, "new.json")
		require.NoError(t, store.Write(ctx, path, 1))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("existing mode is kept", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(dir, "shared.json")
		writeRaw(t, path, "1")
		require.NoError(t, os.Chmod(path, 0o640))

		require.NoError(t, store.Write(ctx, path, 2))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	})
}

func TestWrite_NoTempFilesLeft(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := newTestStore(t, WithSyncDir(true))
	for i := range 5 {
		require.NoError(t, store.Write(context.Background(), filepath.Join(dir, "doc.json"), i))
	}

	assert.Empty(t, tempFiles(t, dir))
}

func TestWrite_SerializationFailureKeepsOriginal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	writeRaw(t, path, `{"v": 1}`)

	err := newTestStore(t).Write(context.Background(), path, map[string]any{"ch": make(chan int)})
	require.ErrorIs(t, err, apperrors.ErrWrite)

	assert.Equal(t, `{"v": 1}`, readRaw(t, path))
	assert.Empty(t, tempFiles(t, dir))
}

func TestWrite_RefusesDocumentOverSizeCap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	writeRaw(t, path, `{"v": 1}`)

	err := newTestStore(t, WithMaxSize(16)).Write(context.Background(), path, strings.Repeat("x", 64))
	require.ErrorIs(t, err, apperrors.ErrTooLarge)

	assert.Equal(t, `{"v": 1}`, readRaw(t, path))
	assert.Empty(t, tempFiles(t, dir))
}

func TestWrite_InterruptedWriteKeepsOriginal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	writeRaw(t, path, `{"v": 1}`)

	errInterrupted := errors.New("writer killed")
	err := newTestStore(t).replaceAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte(`{"v": 2, "half`))
		return errInterrupted
	}, filePerm)
	require.ErrorIs(t, err, errInterrupted)

	assert.Equal(t, `{"v": 1}`, readRaw(t, path))
	assert.Empty(t, tempFiles(t, dir))
}

func TestWrite_RenameFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "occupied")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "child"), 0o750))

	err := newTestStore(t).Write(context.Background(), target, map[string]any{"a": 1})
	require.ErrorIs(t, err, apperrors.ErrWrite)

	var pathErr *apperrors.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, target, pathErr.Path)
	assert.Empty(t, tempFiles(t, dir))
}

package jsonstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fclairamb/commonkit/internal/apperrors"
)

func TestRead_MissingFileReturnsDefault(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	got, err := store.Read(context.Background(), "/nonexistent/path.json", []any{})
	require.NoError(t, err)
	assert.Equal(t, []any{}, got)
}

func TestRead_DecodesNumbersExactly(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "doc.json")
	writeRaw(t, path, `{"a": 1, "big": 12345678901234567890, "b": [1, 2.50]}`)

	got, err := newTestStore(t).Read(context.Background(), path, nil)
	require.NoError(t, err)

	want := map[string]any{
		"a":   json.Number("1"),
		"big": json.Number("12345678901234567890"),
		"b":   []any{json.Number("1"), json.Number("2.50")},
	}
	assert.Equal(t, want, got)
}

func TestRead_TooLarge(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "big.json")
	writeRaw(t, path, `"`+strings.Repeat("x", 100)+`"`)

	t.Run("lenient returns default", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t, WithMaxSize(10))
		got, err := store.Read(context.Background(), path, "fallback")
		require.NoError(t, err)
		assert.Equal(t, "fallback", got)
	})

	t.Run("strict returns error", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t, WithMaxSize(10), WithStrict(true))
		_, err := store.Read(context.Background(), path, "fallback")
		require.ErrorIs(t, err, apperrors.ErrTooLarge)

		var pathErr *apperrors.PathError
		require.ErrorAs(t, err, &pathErr)
		assert.Equal(t, path, pathErr.Path)
	})

	t.Run("no cap reads everything", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t, WithMaxSize(0))
		got, err := store.Read(context.Background(), path, nil)
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("x", 100), got)
	})
}

func TestRead_ParseError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "truncated object", content: `{"a": 1`},
		{name: "not json", content: `hello`},
		{name: "trailing data", content: `{"a": 1} {"b": 2}`},
		{name: "empty file", content: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "bad.json")
			writeRaw(t, path, tt.content)

			got, err := newTestStore(t).Read(context.Background(), path, map[string]any{})
			require.NoError(t, err)
			assert.Equal(t, map[string]any{}, got)

			_, err = newTestStore(t, WithStrict(true)).Read(context.Background(), path, nil)
			require.ErrorIs(t, err, apperrors.ErrParse)
		})
	}
}

func TestRead_DirectoryIsAnError(t *testing.T) {
	t.Parallel()

	_, err := newTestStore(t).Read(context.Background(), t.TempDir(), nil)
	require.Error(t, err)
}

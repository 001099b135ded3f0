package jsonstore

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintValue_Deterministic(t *testing.T) {
	t.Parallel()

	values := []any{
		nil,
		true,
		42,
		3.5,
		"string",
		[]any{1, "two", nil},
		map[string]any{"a": 1, "b": []any{1, 2, 3}},
		map[string]any{"nested": map[string]any{"z": 1, "a": map[string]any{"y": 2, "b": 3}}},
	}

	for _, v := range values {
		first, err := FingerprintValue(v)
		require.NoError(t, err)
		second, err := FingerprintValue(v)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Len(t, first, sha256.Size*2)
	}
}

func TestFingerprintValue_KeyOrderIndependent(t *testing.T) {
	t.Parallel()

	type ordered struct {
		Zeta  int            `json:"zeta"`
		Alpha map[string]int `json:"alpha"`
	}

	a := map[string]any{"zeta": 1, "alpha": map[string]any{"y": 2, "x": 1}}
	b := ordered{Zeta: 1, Alpha: map[string]int{"x": 1, "y": 2}}

	tagA, err := FingerprintValue(a)
	require.NoError(t, err)
	tagB, err := FingerprintValue(b)
	require.NoError(t, err)

	assert.Equal(t, tagA, tagB)
}

func TestFingerprintValue_DetectsChange(t *testing.T) {
	t.Parallel()

	tagA, err := FingerprintValue(map[string]any{"a": 1})
	require.NoError(t, err)
	tagB, err := FingerprintValue(map[string]any{"a": 2})
	require.NoError(t, err)

	assert.NotEqual(t, tagA, tagB)
}

func TestCanonical_Format(t *testing.T) {
	t.Parallel()

	got := canonical(t, map[string]any{"b": "<tag>", "a": []any{1, 2}})
	assert.Equal(t, `{"a":[1,2],"b":"<tag>"}`, got)
}

func TestFingerprint_Dispatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	content := "{ \"a\" : 1 }\n"
	writeRaw(t, path, content)

	sum := sha256.Sum256([]byte(content))
	want := hex.EncodeToString(sum[:])

	t.Run("existing file hashes raw bytes", func(t *testing.T) {
		t.Parallel()
		got, err := Fingerprint(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("missing path hashes the string value", func(t *testing.T) {
		t.Parallel()
		missing := filepath.Join(dir, "missing.json")
		got, err := Fingerprint(missing)
		require.NoError(t, err)
		byValue, err := FingerprintValue(missing)
		require.NoError(t, err)
		assert.Equal(t, byValue, got)
	})

	t.Run("directory hashes the string value", func(t *testing.T) {
		t.Parallel()
		got, err := Fingerprint(dir)
		require.NoError(t, err)
		byValue, err := FingerprintValue(dir)
		require.NoError(t, err)
		assert.Equal(t, byValue, got)
	})
}

func TestFingerprintFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := FingerprintFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestFingerprintValue_Unserializable(t *testing.T) {
	t.Parallel()

	_, err := FingerprintValue(make(chan int))
	require.Error(t, err)
}

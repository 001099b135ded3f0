package jsonstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

const hashChunkSize = 32 << 10

var errTrailingData = errors.New("unexpected data after JSON value")

// Fingerprint returns the hex SHA-256 digest of v.
// A string naming an existing regular file is hashed as raw file bytes;
// any other value, including a string path that does not exist, is hashed
// through its canonical JSON form.
func Fingerprint(v any) (string, error) {
	if path, ok := v.(string); ok {
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return FingerprintFile(path)
		}
	}
	return FingerprintValue(v)
}

// FingerprintFile returns the hex SHA-256 digest of the file's exact bytes.
func FingerprintFile(path string) (string, error) {
	file, err := os.Open(path) //nolint:gosec // path is caller controlled
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	hasher := sha256.New()
	if _, err := io.CopyBuffer(hasher, file, make([]byte, hashChunkSize)); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// FingerprintValue returns the hex SHA-256 digest of v's canonical JSON form.
func FingerprintValue(v any) (string, error) {
	data, err := Canonical(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Canonical serializes v with sorted object keys, no insignificant
// whitespace, no HTML escaping and numbers kept as written.
//
// Structs and typed maps are first marshaled, then decoded back into generic
// values so that the key order no longer depends on the Go type.
func Canonical(v any) ([]byte, error) {
	raw, err := marshal(v, false)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := decode(bytes.NewReader(raw), &generic); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	return marshal(generic, false)
}

// marshal encodes v without HTML escaping, optionally indented.
func marshal(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	if !indent {
		return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
	}
	return buf.Bytes(), nil
}

// decode reads exactly one JSON value, keeping numbers as json.Number.
func decode(r io.Reader, out *any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

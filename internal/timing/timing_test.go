package timing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestMeasure(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferLogger()
	called := false
	err := Measure(context.Background(), logger, "work", func(context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	if !called {
		t.Error("expected fn to be called")
	}
	if out := buf.String(); !strings.Contains(out, `"operation":"work"`) || !strings.Contains(out, `"duration"`) {
		t.Errorf("unexpected log output: %s", out)
	}
}

func TestTimed_Error(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferLogger()
	errBoom := errors.New("boom")
	got, err := Timed(context.Background(), logger, "fail", func(context.Context) (int, error) {
		return 7, errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got != 7 {
		t.Errorf("expected partial result 7, got %d", got)
	}
	if !strings.Contains(buf.String(), "operation failed") {
		t.Errorf("expected failure log, got %s", buf.String())
	}
}

func TestTraced(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferLogger()
	got, err := Traced(context.Background(), logger, "double", []any{21}, func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Traced failed: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}

	out := buf.String()
	for _, want := range []string{`"msg":"calling"`, `"args":[21]`, `"msg":"returned"`, `"result":42`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

// Package timing logs how long an operation takes.
package timing

import (
	"context"
	"log/slog"
	"time"
)

// Measure runs fn and logs its duration at debug level.
func Measure(ctx context.Context, logger *slog.Logger, name string, fn func(context.Context) error) error {
	_, err := Timed(ctx, logger, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Timed runs fn and logs its duration at debug level.
func Timed[T any](ctx context.Context, logger *slog.Logger, name string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	result, err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		logger.DebugContext(ctx, "operation failed", "operation", name, "duration", elapsed, "error", err)
		return result, err
	}

	logger.DebugContext(ctx, "operation complete", "operation", name, "duration", elapsed)
	return result, nil
}

// Traced logs the call, then its result and duration.
func Traced[T any](ctx context.Context, logger *slog.Logger, name string, args []any, fn func(context.Context) (T, error)) (T, error) {
	logger.DebugContext(ctx, "calling", "operation", name, "args", args)

	result, err := Timed(ctx, logger, name, fn)
	if err != nil {
		return result, err
	}

	logger.DebugContext(ctx, "returned", "operation", name, "result", result)
	return result, nil
}

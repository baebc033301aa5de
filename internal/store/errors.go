package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	maxRetries     = 3
	retryBaseDelay = 100 * time.Millisecond
)

// IsConflictError reports whether err is a SQLITE_BUSY or "database is
// locked" error. Both are transient and worth retrying.
func IsConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// withRetry runs fn, retrying conflict errors with exponential backoff
// (100ms, 200ms). Other errors are returned immediately.
func withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil || !IsConflictError(err) {
			return err
		}
		if i == maxRetries-1 {
			break
		}

		delay := retryBaseDelay * time.Duration(1<<i)
		slog.Debug("SQLite conflict, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", op, maxRetries, err)
}

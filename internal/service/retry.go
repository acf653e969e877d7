package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skvortsov/storefront/internal/repo"
)

const (
	maxAttempts  = 3
	retryBackoff = 50 * time.Millisecond
)

// isTransient reports whether a storage error is worth another attempt.
// Terminal outcomes (not found, insufficient stock, validation) never match.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "busy") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "serialization") ||
		strings.Contains(msg, "connection")
}

// withRetry runs fn up to maxAttempts times, backing off between attempts.
// Only optimistic-write conflicts and transient storage failures are retried;
// everything else surfaces immediately.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, repo.ErrTxConflict) && !isTransient(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("canceled: %w", ErrUnavailable)
		case <-time.After(time.Duration(attempt+1) * retryBackoff):
		}
	}
	if errors.Is(err, repo.ErrTxConflict) {
		return fmt.Errorf("retries exhausted: %w", ErrConflict)
	}
	return fmt.Errorf("storage failed after %d attempts: %w", maxAttempts, ErrUnavailable)
}

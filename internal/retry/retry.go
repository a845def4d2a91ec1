package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jobsift/jobsift/internal/ai"
	"github.com/jobsift/jobsift/internal/model"
)

// Backend is a decorator that retries transient failures with exponential
// backoff and jitter before delegating to the wrapped ai.Backend.
type Backend struct {
	inner      ai.Backend
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewBackend wraps an ai.Backend with retry logic.
// maxRetries is the number of additional attempts after the first failure (default: 2).
// baseDelay is the delay before the first retry (default: 5s), doubled on each subsequent retry.
func NewBackend(inner ai.Backend, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Backend {
	return &Backend{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Complete attempts the request, retrying on transient errors. Wrapping order
// matters: when the inner backend is paced, every retry attempt goes through
// the pacer again.
func (b *Backend) Complete(ctx context.Context, req ai.Request) (string, error) {
	raw, err := b.inner.Complete(ctx, req)
	if err == nil {
		return raw, nil
	}

	if !isRetryable(err) {
		return "", err
	}

	var lastErr error = err
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		delay := b.backoffDelay(attempt, lastErr)

		b.logger.Warn("retrying after transient error",
			"attempt", attempt,
			"max_retries", b.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		raw, err = b.inner.Complete(ctx, req)
		if err == nil {
			return raw, nil
		}

		if !isRetryable(err) {
			return "", err
		}
		lastErr = err
	}

	return "", lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (b *Backend) backoffDelay(attempt int, err error) time.Duration {
	var backendErr *model.BackendError
	if errors.As(err, &backendErr) && backendErr.RetryAfter > 0 {
		return backendErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := b.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	// Apply ±30% jitter
	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return delay
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation — never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var backendErr *model.BackendError
	if errors.As(err, &backendErr) {
		// 429 Too Many Requests — retryable.
		if backendErr.StatusCode == 429 {
			return true
		}
		// 5xx — retryable.
		if backendErr.StatusCode >= 500 {
			return true
		}
		// 4xx (not 429) — not retryable.
		return false
	}

	// Non-HTTP errors (network, DNS, etc.) — retryable.
	return true
}

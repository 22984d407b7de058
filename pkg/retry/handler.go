package retry

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rohmanhakim/sync-cache/pkg/failure"
	"github.com/rohmanhakim/sync-cache/pkg/timeutil"
)

// Retry executes the provided function with retry logic.
// It will retry the function up to MaxAttempts times, applying exponential
// backoff with jitter between attempts. Only retryable errors will trigger
// a retry; a non-retryable error returns immediately.
//
// The lock-wait path of the cache service drives this: acquiring a held
// lock is a retryable outcome, so waiting callers poll through here with
// seed-reproducible pacing.
//
// Type parameter T represents the return type of the function being retried.
func Retry[T any](retryParam RetryParam, fn func() (T, failure.ClassifiedError)) (T, failure.ClassifiedError) {
	var lastErr failure.ClassifiedError
	var zero T

	if retryParam.MaxAttempts < 1 {
		return zero, &RetryError{
			Message:   "max attempt cannot be 0",
			Cause:     ErrZeroAttempt,
			Retryable: true,
		}
	}

	// Initialize random number generator with the provided seed
	rng := rand.New(rand.NewSource(retryParam.RandomSeed))

	for attempt := 1; attempt <= retryParam.MaxAttempts; attempt++ {
		result, err := fn()

		// Success case: no error
		if err == nil {
			return result, nil
		}

		lastErr = err

		// If not retryable, return immediately
		if !isErrorRetryable(err) {
			return zero, err
		}

		// If this was the last attempt, break and return exhausted error
		if attempt == retryParam.MaxAttempts {
			break
		}

		// Compute delay for the next retry using exponential backoff with jitter
		backoffDelay := timeutil.ExponentialBackoffDelay(
			attempt,
			retryParam.Jitter,
			*rng,
			retryParam.BackoffParam,
		)

		time.Sleep(backoffDelay)
	}

	// Return the "zero value" of T and the final error when reached max attempts
	return zero, &RetryError{
		Message:   fmt.Sprintf("exhausted %d attempts. Last error: %v", retryParam.MaxAttempts, lastErr),
		Cause:     ErrExhaustedAttempts,
		Retryable: true, // This is recoverable at caller level
	}
}

// isErrorRetryable checks if an error should be retried.
// Errors that expose IsRetryable decide for themselves; errors that do not
// are retried by default, matching the recoverable-by-default posture of
// per-entry cache failures.
func isErrorRetryable(err failure.ClassifiedError) bool {
	type hasRetryable interface {
		IsRetryable() bool
	}

	if r, ok := err.(hasRetryable); ok {
		return r.IsRetryable()
	}

	return true
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nao1215/ingestcas/internal/model"
)

// RetryPolicy describes how often and how patiently a unit is retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts. Values below one are
	// treated as one, which means no retry.
	MaxAttempts int

	// Backoff is the delay before the first retry. Each further retry
	// doubles the delay.
	Backoff time.Duration

	// MaxBackoff caps the delay. Zero means no cap.
	MaxBackoff time.Duration
}

// NoRetry runs every unit exactly once.
var NoRetry = RetryPolicy{MaxAttempts: 1}

// Do calls fn until it succeeds, isRetryable rejects its error, or the
// attempts are used up. It returns the number of attempts made and the
// last error. A cancelled context stops the wait between attempts; the
// error returned then is the last error of fn joined with ctx.Err().
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error, isRetryable func(error) bool) (int, error) {
	maxAttempts := max(p.MaxAttempts, 1)

	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || attempt >= maxAttempts || !isRetryable(err) {
			return attempt, err
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

// delay returns the wait after the given (1-based) failed attempt.
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.Backoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// resultError adapts a status-tagged result to the error-based RetryPolicy.
type resultError struct {
	status     model.Status
	category   model.ErrorCategory
	statusCode int
	message    string
}

// Error implements the error interface.
func (e *resultError) Error() string {
	return fmt.Sprintf("%s: %s", e.status, e.message)
}

// errorFromResult returns nil for a successful result.
func errorFromResult(status model.Status, category model.ErrorCategory, statusCode int, message string) error {
	if status.IsSuccess() {
		return nil
	}
	return &resultError{status: status, category: category, statusCode: statusCode, message: message}
}

// IsRetryableResult reports whether a failed unit may succeed when tried
// again. Download, fetch and network failures are retried unless they were
// cancelled; HTTP status failures only for 5xx, 408 and 429. Validation,
// parsing, hashing and storage failures are never retried.
func IsRetryableResult(err error) bool {
	var re *resultError
	if !errors.As(err, &re) {
		return false
	}
	if re.category == model.CategoryCancelled || re.category == model.CategoryValidation {
		return false
	}
	if re.statusCode != 0 {
		return re.statusCode >= http.StatusInternalServerError ||
			re.statusCode == http.StatusTooManyRequests ||
			re.statusCode == http.StatusRequestTimeout
	}
	switch re.status {
	case model.StatusFailedDownload, model.StatusFailedFetch, model.StatusFailedNetwork:
		return re.category == model.CategoryNetwork
	default:
		return false
	}
}

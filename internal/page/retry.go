package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"syscall"
	"time"
)

const maxBackoff = 5 * time.Second

// StatusError is a page request answered with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
}

// WithRetry sets how often a transient failure is retried and the first
// backoff delay, which doubles per attempt.
func (f *Fetcher) WithRetry(maxRetries int, baseDelay time.Duration) *Fetcher {
	f.maxRetries = max(maxRetries, 0)
	f.baseDelay = baseDelay
	return f
}

// retryable reports rate limiting, server errors and dropped connections.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func (f *Fetcher) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(float64(f.baseDelay) * math.Pow(2, float64(attempt)))
	if delay > maxBackoff {
		delay = maxBackoff
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

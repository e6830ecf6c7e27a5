package webclient

import (
	"context"
	"net/http"
	"time"
)

const maxDelay = 30 * time.Second

// AttemptFunc performs one request and reports its status, body and error.
type AttemptFunc func() (status int, body []byte, err error)

// Retryable reports whether a status should be attempted again. Status 0
// means the request never got a response.
func Retryable(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}

// DoWithRetry runs fn until it succeeds, returns a non-retryable status, or
// runs out of attempts. The delay doubles between attempts up to 30s.
func DoWithRetry(ctx context.Context, attempts int, initialDelay time.Duration, fn AttemptFunc) (int, []byte, error) {
	if attempts <= 0 {
		attempts = 1
	}
	if initialDelay <= 0 {
		initialDelay = 2 * time.Second
	}
	delay := initialDelay
	for i := 0; i < attempts; i++ {
		status, body, err := fn()
		if err == nil && !Retryable(status) {
			return status, body, nil
		}
		if err != nil && !Retryable(status) {
			return status, body, err
		}
		if i == attempts-1 {
			return status, body, err
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return status, body, ctx.Err()
		case <-t.C:
		}
		if delay < maxDelay {
			delay *= 2
		}
	}
	return 0, nil, context.DeadlineExceeded
}

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrTimeout marks an operation abandoned after exceeding the policy
// timeout. It is distinct from other transient failures so callers can tell
// "took too long" apart from "remote said no".
var ErrTimeout = errors.New("operation timed out")

// StatusError carries the HTTP status of a failed remote call so the retry
// classification can decide whether the failure is transient.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("remote returned %d", e.Code)
}

type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

type Policy struct {
	opts   Options
	logger *logrus.Logger
}

func NewPolicy(opts Options, logger *logrus.Logger) *Policy {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	return &Policy{opts: opts, logger: logger}
}

// Execute runs op with a pessimistic timeout and bounded retries. The
// timeout is enforced by abandoning the goroutine running op, not by asking
// it to stop: some of the SDK calls underneath ignore cooperative
// cancellation, and the caller must not hang with them.
func (p *Policy) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// IsTransient reports whether err is worth retrying: timeouts, connection
// level failures, and 429/502/503/504 responses. Any other 4xx is a caller
// mistake and is never retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case 429, 502, 503, 504:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

// Do is Execute for operations that produce a value. Each attempt delivers
// its value and error over its own channel, so an abandoned attempt that
// finishes late cannot touch the result returned to the caller.
func Do[T any](ctx context.Context, p *Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= p.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.opts.RetryDelay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
			p.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"error":   lastErr.Error(),
			}).Debug("retrying operation")
		}

		value, err := runWithTimeout(ctx, p.opts.Timeout, op)
		if err == nil {
			return value, nil
		}
		if errors.Is(err, context.Canceled) {
			return zero, err
		}
		if !IsTransient(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

type attemptResult[T any] struct {
	value T
	err   error
}

func runWithTimeout[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so the abandoned goroutine can still deliver its result
	// and exit after we stop waiting.
	done := make(chan attemptResult[T], 1)
	go func() {
		value, err := op(opCtx)
		done <- attemptResult[T]{value: value, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w: %v", ErrTimeout, res.err)
		}
		return res.value, res.err
	case <-opCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}

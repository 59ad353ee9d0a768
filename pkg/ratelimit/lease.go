package ratelimit

import "time"

// Lease is the decision for a single acquisition attempt. It is consumed
// immediately by the caller and never persisted.
type Lease struct {
	Acquired bool
	// Remaining permits left in the current window. Negative values are
	// clamped to zero. Only meaningful when the store was reachable.
	Remaining int64
	// RetryAfter is the time until the current window resets. Zero when
	// the lease was acquired.
	RetryAfter time.Duration
}

func acquiredLease(remaining int64) Lease {
	if remaining < 0 {
		remaining = 0
	}
	return Lease{Acquired: true, Remaining: remaining}
}

func rejectedLease(retryAfter time.Duration) Lease {
	return Lease{Acquired: false, RetryAfter: retryAfter}
}

package ratelimit

import (
	"context"
	_ "embed"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/thrustCoder/gamer-uncle-sub001/pkg/infra/cache"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/infra/prometheus"
)

//go:embed fixed_window.lua
var fixedWindowScript string

const keyScheme = "ratelimit"

type Policy struct {
	Name          string
	Limit         int64
	Window        time.Duration
	MinRetryAfter time.Duration
}

type Opts struct {
	TimeProvider func() time.Time
	// SyncTimeout bounds the blocking AttemptAcquire path.
	SyncTimeout time.Duration
	// ProbeInterval is how often a limiter whose store is marked
	// unavailable sends a real increment anyway to find out whether the
	// store has come back.
	ProbeInterval time.Duration
}

// FixedWindowLimiter enforces one global fixed-window quota per partition
// across every instance sharing the Redis store. The counter increment and
// the expiry of a freshly created window happen in a single server-side
// script; that atomicity is the only thing preventing over-admission, so no
// client-side read-check-increment sequence is ever used.
//
// The limiter keeps no per-instance statistics: the counter is shared, so
// any one process's view of it would be meaningless.
type FixedWindowLimiter struct {
	store         cache.Client
	policy        Policy
	script        *redis.Script
	logger        *logrus.Logger
	timeProvider  func() time.Time
	syncTimeout   time.Duration
	probeInterval time.Duration
	lastProbe     atomic.Int64
}

func NewFixedWindowLimiter(
	store cache.Client,
	policy Policy,
	logger *logrus.Logger,
	opts *Opts,
) *FixedWindowLimiter {
	if policy.Window <= 0 {
		policy.Window = time.Minute
	}
	if policy.MinRetryAfter <= 0 {
		policy.MinRetryAfter = time.Second
	}
	if policy.Name == "" {
		policy.Name = "default"
	}

	timeProvider := time.Now
	syncTimeout := 5 * time.Second
	probeInterval := 10 * time.Second
	if opts != nil && opts.TimeProvider != nil {
		timeProvider = opts.TimeProvider
	}
	if opts != nil && opts.SyncTimeout > 0 {
		syncTimeout = opts.SyncTimeout
	}
	if opts != nil && opts.ProbeInterval > 0 {
		probeInterval = opts.ProbeInterval
	}

	return &FixedWindowLimiter{
		store:         store,
		policy:        policy,
		script:        redis.NewScript(fixedWindowScript),
		logger:        logger,
		timeProvider:  timeProvider,
		syncTimeout:   syncTimeout,
		probeInterval: probeInterval,
	}
}

// WindowKey returns the store key for partition's current window. Calls
// within the same window return the same key; that is what lets concurrent
// increments coalesce onto one counter.
func (l *FixedWindowLimiter) WindowKey(partition string) string {
	index := l.timeProvider().UnixMilli() / l.policy.Window.Milliseconds()
	return fmt.Sprintf("%s:%s:%s:%d", keyScheme, l.policy.Name, partition, index)
}

// Acquire attempts to take permits from partition's current window. It
// fails open: when the store is unreachable the request is admitted rather
// than letting a rate-limit outage become a service outage. While the store
// is marked unavailable, one request per ProbeInterval still runs the
// increment script so a recovered store puts the limiter back in charge
// without waiting for unrelated cache traffic.
func (l *FixedWindowLimiter) Acquire(ctx context.Context, partition string, permits int64) Lease {
	if permits <= 0 {
		permits = 1
	}

	if !l.store.Available() && !l.shouldProbe() {
		l.logger.Debug("rate limit store unavailable, admitting request")
		prometheus.RateLimitDecisions.WithLabelValues("fail_open").Inc()
		return acquiredLease(0)
	}

	key := l.WindowKey(partition)
	res, err := l.store.RunScript(ctx, l.script, []string{key}, permits, l.policy.Window.Milliseconds())
	if err != nil {
		l.logger.WithError(err).WithField("key", key).
			Warn("rate limit increment failed, admitting request")
		prometheus.RateLimitDecisions.WithLabelValues("fail_open").Inc()
		return acquiredLease(0)
	}

	count, ok := res.(int64)
	if !ok {
		l.logger.WithField("key", key).Warn("unexpected rate limit script result, admitting request")
		prometheus.RateLimitDecisions.WithLabelValues("fail_open").Inc()
		return acquiredLease(0)
	}

	if count <= l.policy.Limit {
		prometheus.RateLimitDecisions.WithLabelValues("acquired").Inc()
		return acquiredLease(l.policy.Limit - count)
	}

	prometheus.RateLimitDecisions.WithLabelValues("rejected").Inc()
	return rejectedLease(l.retryAfter())
}

// AttemptAcquire is the synchronous entry point for callers outside an
// async pipeline. It shares Acquire's window formula, so both paths always
// agree on partitioning.
func (l *FixedWindowLimiter) AttemptAcquire(partition string, permits int64) Lease {
	ctx, cancel := context.WithTimeout(context.Background(), l.syncTimeout)
	defer cancel()
	return l.Acquire(ctx, partition, permits)
}

// shouldProbe rations recovery attempts against a dead store to one per
// probeInterval so fail-open stays cheap during an outage.
func (l *FixedWindowLimiter) shouldProbe() bool {
	now := l.timeProvider().UnixNano()
	last := l.lastProbe.Load()
	if now-last < l.probeInterval.Nanoseconds() {
		return false
	}
	return l.lastProbe.CompareAndSwap(last, now)
}

func (l *FixedWindowLimiter) retryAfter() time.Duration {
	now := l.timeProvider()
	windowMillis := l.policy.Window.Milliseconds()
	elapsed := now.UnixMilli() % windowMillis
	remaining := time.Duration(windowMillis-elapsed) * time.Millisecond
	if remaining < l.policy.MinRetryAfter {
		remaining = l.policy.MinRetryAfter
	}
	return remaining
}

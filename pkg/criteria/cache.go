package criteria

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
	"golang.org/x/sync/singleflight"

	"github.com/thrustCoder/gamer-uncle-sub001/pkg/common"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/infra/prometheus"
)

// RemoteStore is the distributed tier contract. The infra cache client
// satisfies it; it stays optional and every failure against it is absorbed.
type RemoteStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
}

type Statistics struct {
	L1Hits  uint64  `json:"l1_hits"`
	L2Hits  uint64  `json:"l2_hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

type Options struct {
	Environment string
	LocalSize   int
	LocalTTL    time.Duration
	RemoteTTL   time.Duration
}

// Cache is the two-tier read-through cache mapping a normalized query to a
// previously extracted criteria payload. The local LRU answers first; the
// shared Redis tier is a pure performance layer whose unavailability only
// costs hit rate, never correctness.
type Cache struct {
	local       *lru.LRU[string, string]
	remote      RemoteStore
	logger      *logrus.Logger
	environment string
	remoteTTL   time.Duration

	l1Hits atomic.Uint64
	l2Hits atomic.Uint64
	misses atomic.Uint64

	group singleflight.Group
}

// NewCache builds the two-tier cache. remote may be nil for local-only
// operation.
func NewCache(opts Options, remote RemoteStore, logger *logrus.Logger) *Cache {
	if opts.LocalSize <= 0 {
		opts.LocalSize = 1024
	}
	if opts.LocalTTL <= 0 {
		opts.LocalTTL = common.CriteriaLocalCacheTTL
	}
	if opts.RemoteTTL <= 0 {
		opts.RemoteTTL = common.CriteriaRedisCacheTTL
	}
	if opts.Environment == "" {
		opts.Environment = "dev"
	}
	return &Cache{
		local:       lru.NewLRU[string, string](opts.LocalSize, nil, opts.LocalTTL),
		remote:      remote,
		logger:      logger,
		environment: opts.Environment,
		remoteTTL:   opts.RemoteTTL,
	}
}

// Get returns the cached payload for query, checking the local tier first
// and promoting distributed-tier hits into it. A miss, or any distributed
// tier failure, returns ok=false; Get never returns an error to the caller.
func (c *Cache) Get(ctx context.Context, query string) (string, bool) {
	key := cacheKey(c.environment, query)

	if value, ok := c.local.Get(key); ok {
		c.l1Hits.Add(1)
		prometheus.CriteriaCacheHits.WithLabelValues("l1").Inc()
		return value, true
	}

	if c.remote != nil {
		value, err := c.remote.Get(ctx, key)
		switch {
		case err == nil && value != "":
			c.l2Hits.Add(1)
			prometheus.CriteriaCacheHits.WithLabelValues("l2").Inc()
			c.local.Add(key, value)
			return value, true
		case err != nil && !errors.Is(err, redis.Nil):
			c.logger.WithError(err).WithField("key", key).
				Debug("distributed cache unavailable, degrading to local tier")
		}
	}

	c.misses.Add(1)
	prometheus.CriteriaCacheMisses.Inc()
	return "", false
}

// Set writes the payload to the local tier and, best effort, to the
// distributed tier with its longer TTL. Empty or non-JSON payloads are
// skipped so a bad extraction result cannot poison the cache.
func (c *Cache) Set(ctx context.Context, query, value string) {
	if value == "" {
		return
	}
	if err := fastjson.Validate(value); err != nil {
		c.logger.WithError(err).Debug("skipping cache write for malformed criteria payload")
		return
	}

	key := cacheKey(c.environment, query)
	c.local.Add(key, value)

	if c.remote == nil {
		return
	}
	if err := c.remote.Set(ctx, key, value, c.remoteTTL); err != nil {
		c.logger.WithError(err).WithField("key", key).
			Warn("failed to write criteria to distributed cache")
	}
}

// Resolve returns the cached payload for query or, on a miss, runs extract
// once per key across concurrent callers and caches the result.
func (c *Cache) Resolve(
	ctx context.Context,
	query string,
	extract func(ctx context.Context) (string, error),
) (string, error) {
	if value, ok := c.Get(ctx, query); ok {
		return value, nil
	}

	key := cacheKey(c.environment, query)
	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		if cached, ok := c.local.Get(key); ok {
			return cached, nil
		}
		extracted, err := extract(ctx)
		if err != nil {
			return "", err
		}
		c.Set(ctx, query, extracted)
		return extracted, nil
	})
	if err != nil {
		return "", err
	}
	payload, ok := value.(string)
	if !ok {
		return "", errors.New("unexpected cache value type")
	}
	return payload, nil
}

func (c *Cache) Statistics() Statistics {
	stats := Statistics{
		L1Hits: c.l1Hits.Load(),
		L2Hits: c.l2Hits.Load(),
		Misses: c.misses.Load(),
	}
	total := stats.L1Hits + stats.L2Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.L1Hits+stats.L2Hits) / float64(total)
	}
	return stats
}

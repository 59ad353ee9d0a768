package criteria_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrustCoder/gamer-uncle-sub001/pkg/criteria"
)

const testPayload = `{"players":4,"maxDurationMinutes":60}`

type fakeRemoteStore struct {
	mu      sync.Mutex
	data    map[string]string
	failing bool
	gets    int
	sets    int
}

func newFakeRemoteStore() *fakeRemoteStore {
	return &fakeRemoteStore{data: make(map[string]string)}
}

func (s *fakeRemoteStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.failing {
		return "", errors.New("connection refused")
	}
	return s.data[key], nil
}

func (s *fakeRemoteStore) Set(_ context.Context, key string, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.failing {
		return errors.New("connection refused")
	}
	s.data[key] = value
	return nil
}

func (s *fakeRemoteStore) fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = true
}

func newTestCache(remote criteria.RemoteStore) *criteria.Cache {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return criteria.NewCache(criteria.Options{Environment: "test"}, remote, logger)
}

func TestCache_ReadAfterWrite(t *testing.T) {
	cache := newTestCache(nil)

	cache.Set(context.Background(), "games for 4 players", testPayload)
	value, ok := cache.Get(context.Background(), "games for 4 players")

	require.True(t, ok)
	assert.Equal(t, testPayload, value)
}

func TestCache_NormalizedQueriesShareEntry(t *testing.T) {
	cache := newTestCache(nil)

	cache.Set(context.Background(), "Games For 4 Players", testPayload)
	value, ok := cache.Get(context.Background(), "games for 4 players")

	require.True(t, ok)
	assert.Equal(t, testPayload, value)

	value, ok = cache.Get(context.Background(), "  GAMES  FOR 4 PLAYERS ")
	require.True(t, ok)
	assert.Equal(t, testPayload, value)
}

func TestCache_RemoteHitBackfillsLocalTier(t *testing.T) {
	remote := newFakeRemoteStore()

	// First instance populates both tiers.
	first := newTestCache(remote)
	first.Set(context.Background(), "coop games", testPayload)
	require.Equal(t, 1, remote.sets)

	// A fresh instance has a cold local tier, so the first lookup comes
	// from the shared store and must be promoted.
	second := newTestCache(remote)
	value, ok := second.Get(context.Background(), "coop games")
	require.True(t, ok)
	assert.Equal(t, testPayload, value)

	// With the shared store down, the promoted entry still answers.
	remote.fail()
	value, ok = second.Get(context.Background(), "coop games")
	require.True(t, ok)
	assert.Equal(t, testPayload, value)

	stats := second.Statistics()
	assert.Equal(t, uint64(1), stats.L1Hits)
	assert.Equal(t, uint64(1), stats.L2Hits)
	assert.Equal(t, uint64(0), stats.Misses)
}

func TestCache_RemoteFailuresNeverPropagate(t *testing.T) {
	remote := newFakeRemoteStore()
	remote.fail()
	cache := newTestCache(remote)

	assert.NotPanics(t, func() {
		cache.Set(context.Background(), "party games", testPayload)
	})

	// Local write still succeeded.
	value, ok := cache.Get(context.Background(), "party games")
	require.True(t, ok)
	assert.Equal(t, testPayload, value)

	// Unknown keys degrade to a plain miss.
	_, ok = cache.Get(context.Background(), "unknown query")
	assert.False(t, ok)
}

func TestCache_EmptyValueIsNotCached(t *testing.T) {
	remote := newFakeRemoteStore()
	cache := newTestCache(remote)

	cache.Set(context.Background(), "two player games", "")

	_, ok := cache.Get(context.Background(), "two player games")
	assert.False(t, ok)
	assert.Equal(t, 0, remote.sets)
}

func TestCache_MalformedPayloadIsNotCached(t *testing.T) {
	remote := newFakeRemoteStore()
	cache := newTestCache(remote)

	cache.Set(context.Background(), "two player games", "{not json")

	_, ok := cache.Get(context.Background(), "two player games")
	assert.False(t, ok)
	assert.Equal(t, 0, remote.sets)
}

func TestCache_HitRateIsZeroWithoutLookups(t *testing.T) {
	cache := newTestCache(nil)

	stats := cache.Statistics()
	assert.Zero(t, stats.L1Hits)
	assert.Zero(t, stats.L2Hits)
	assert.Zero(t, stats.Misses)
	assert.Zero(t, stats.HitRate)
}

func TestCache_StatisticsTrackHitsAndMisses(t *testing.T) {
	cache := newTestCache(nil)

	cache.Set(context.Background(), "catan", testPayload)
	cache.Get(context.Background(), "catan")
	cache.Get(context.Background(), "catan")
	cache.Get(context.Background(), "missing")

	stats := cache.Statistics()
	assert.Equal(t, uint64(2), stats.L1Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.0001)
}

func TestCache_ResolveExtractsOnceAndCaches(t *testing.T) {
	cache := newTestCache(nil)

	var calls atomic.Int64
	extract := func(context.Context) (string, error) {
		calls.Add(1)
		return testPayload, nil
	}

	value, err := cache.Resolve(context.Background(), "family games", extract)
	require.NoError(t, err)
	assert.Equal(t, testPayload, value)

	value, err = cache.Resolve(context.Background(), "Family  Games", extract)
	require.NoError(t, err)
	assert.Equal(t, testPayload, value)

	assert.Equal(t, int64(1), calls.Load())
}

func TestCache_ResolvePropagatesExtractionError(t *testing.T) {
	cache := newTestCache(nil)

	extractErr := errors.New("agent unavailable")
	_, err := cache.Resolve(context.Background(), "family games", func(context.Context) (string, error) {
		return "", extractErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, extractErr)

	// The failure was not cached.
	_, ok := cache.Get(context.Background(), "family games")
	assert.False(t, ok)
}

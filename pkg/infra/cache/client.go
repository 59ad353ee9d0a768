package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Client wraps the shared Redis store used by the criteria cache's
// distributed tier and by the rate limiter's window counters.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	RunScript(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) (interface{}, error)
	Available() bool
	Ping(ctx context.Context) error
	RedisClient() *redis.Client
}

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	TLS      bool
}

type client struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	available   atomic.Bool
}

func NewClient(config Config, logger *logrus.Logger) (Client, error) {
	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	}
	if config.TLS {
		options.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	return NewClientWithRedis(redis.NewClient(options), logger)
}

// NewClientWithRedis wires an already-constructed Redis client. Connectivity
// is probed once here; the availability flag tracks it from then on.
func NewClientWithRedis(redisClient *redis.Client, logger *logrus.Logger) (Client, error) {
	c := &client{
		redisClient: redisClient,
		logger:      logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unreachable, distributed tier degraded")
		c.available.Store(false)
		return c, nil
	}

	logger.WithField("addr", redisClient.Options().Addr).Info("redis connected successfully")
	c.available.Store(true)
	return c, nil
}

func (c *client) Get(ctx context.Context, key string) (string, error) {
	res, err := c.redisClient.Get(ctx, key).Result()
	c.observe(err)
	return res, err
}

func (c *client) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := c.redisClient.Set(ctx, key, value, expiration).Err()
	c.observe(err)
	return err
}

func (c *client) Delete(ctx context.Context, key string) error {
	err := c.redisClient.Del(ctx, key).Err()
	c.observe(err)
	return err
}

func (c *client) RunScript(
	ctx context.Context,
	script *redis.Script,
	keys []string,
	args ...interface{},
) (interface{}, error) {
	res, err := script.Run(ctx, c.redisClient, keys, args...).Result()
	c.observe(err)
	return res, err
}

// Available reports the outcome of the most recent round trip. Callers use
// it to skip the store entirely while it is known to be down.
func (c *client) Available() bool {
	return c.available.Load()
}

func (c *client) Ping(ctx context.Context) error {
	err := c.redisClient.Ping(ctx).Err()
	c.observe(err)
	return err
}

func (c *client) RedisClient() *redis.Client {
	return c.redisClient
}

func (c *client) observe(err error) {
	if err == nil || errors.Is(err, redis.Nil) {
		c.available.Store(true)
		return
	}
	c.available.Store(false)
}

package middleware

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/thrustCoder/gamer-uncle-sub001/pkg/common"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/ratelimit"
)

// RateLimiter is the slice of the fixed-window limiter this middleware
// needs; tests substitute a fake.
type RateLimiter interface {
	AttemptAcquire(partition string, permits int64) ratelimit.Lease
}

type rateLimitMiddleware struct {
	limiter RateLimiter
	limit   int64
	logger  *logrus.Logger
}

func NewRateLimitMiddleware(limiter RateLimiter, limit int64, logger *logrus.Logger) Middleware {
	return &rateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		logger:  logger,
	}
}

func (m *rateLimitMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		partition := clientIP(c)
		c.Locals(string(common.ClientIPContextKey), partition)

		// Fiber handlers run on a synchronous pipeline, so the blocking
		// acquisition path is used here.
		lease := m.limiter.AttemptAcquire(partition, 1)

		c.Set("X-RateLimit-Limit", strconv.FormatInt(m.limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(lease.Remaining, 10))

		if lease.Acquired {
			return c.Next()
		}

		retryAfter := int64(math.Ceil(lease.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

		m.logger.WithFields(logrus.Fields{
			"client_ip":   partition,
			"retry_after": retryAfter,
		}).Info("rate limit exceeded")

		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":               "too many requests",
			"retry_after_seconds": retryAfter,
		})
	}
}

// clientIP resolves the partition key from common proxy headers, falling
// back to the connection address.
func clientIP(c *fiber.Ctx) string {
	ipHeaders := []string{
		"X-Real-IP",
		"X-Forwarded-For",
		"True-Client-IP",
		"CF-Connecting-IP",
	}
	for _, header := range ipHeaders {
		if ip := c.Get(header); ip != "" {
			return ip
		}
	}
	return c.IP()
}

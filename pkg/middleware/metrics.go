package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/thrustCoder/gamer-uncle-sub001/pkg/common"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/infra/prometheus"
)

type metricsMiddleware struct {
	logger *logrus.Logger
}

func NewMetricsMiddleware(logger *logrus.Logger) Middleware {
	return &metricsMiddleware{logger: logger}
}

func (m *metricsMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		c.Locals(string(common.LatencyContextKey), start)

		err := c.Next()

		elapsed := float64(time.Since(start).Milliseconds())
		status := c.Response().StatusCode()
		path := c.Route().Path

		prometheus.RequestTotal.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		prometheus.RequestLatency.WithLabelValues(path).Observe(elapsed)

		return err
	}
}

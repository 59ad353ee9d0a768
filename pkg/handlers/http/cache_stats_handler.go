package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/thrustCoder/gamer-uncle-sub001/pkg/criteria"
)

type cacheStatsHandler struct {
	logger *logrus.Logger
	cache  *criteria.Cache
}

func NewCacheStatsHandler(logger *logrus.Logger, cache *criteria.Cache) Handler {
	return &cacheStatsHandler{logger: logger, cache: cache}
}

func (h *cacheStatsHandler) Handle(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.cache.Statistics())
}

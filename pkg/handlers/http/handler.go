package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(c *fiber.Ctx) error
}

type HandlerTransport struct {
	RecommendationHandler Handler
	CacheStatsHandler     Handler
}

package router

import (
	"github.com/gofiber/fiber/v2"

	handlers "github.com/thrustCoder/gamer-uncle-sub001/pkg/handlers/http"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/middleware"
)

type apiRouter struct {
	middlewareTransport *middleware.Transport
	handlerTransport    handlers.HandlerTransport
}

func NewApiRouter(
	middlewareTransport *middleware.Transport,
	handlerTransport handlers.HandlerTransport,
) ServerRouter {
	return &apiRouter{
		middlewareTransport: middlewareTransport,
		handlerTransport:    handlerTransport,
	}
}

func (r *apiRouter) BuildRoutes(router *fiber.App) error {
	router.Use(r.middlewareTransport.PanicRecoverMiddleware.Middleware())
	router.Use(r.middlewareTransport.RequestIDMiddleware.Middleware())
	router.Use(r.middlewareTransport.MetricsMiddleware.Middleware())

	v1 := router.Group("/api/v1")
	{
		recommendations := v1.Group("/recommendations")
		if r.middlewareTransport.RateLimitMiddleware != nil {
			recommendations.Use(r.middlewareTransport.RateLimitMiddleware.Middleware())
		}
		recommendations.Post("", r.handlerTransport.RecommendationHandler.Handle)

		v1.Get("/cache/stats", r.handlerTransport.CacheStatsHandler.Handle)
	}

	return nil
}

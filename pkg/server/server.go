package server

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/thrustCoder/gamer-uncle-sub001/pkg/config"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/server/router"
)

type Server interface {
	Run() error
	Shutdown() error
}

type ApiServer struct {
	config *config.Config
	logger *logrus.Logger
	router *fiber.App
}

func NewApiServer(cfg *config.Config, logger *logrus.Logger) *ApiServer {
	r := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReduceMemoryUsage:     true,
		Network:               fiber.NetworkTCP,
		BodyLimit:             1 * 1024 * 1024,
		ReadTimeout:           60 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	r.Server().NoDefaultServerHeader = true
	r.Server().NoDefaultDate = true

	return &ApiServer{
		config: cfg,
		logger: logger,
		router: r,
	}
}

func (s *ApiServer) WithRouters(routers ...router.ServerRouter) *ApiServer {
	for _, r := range routers {
		if err := r.BuildRoutes(s.router); err != nil {
			s.logger.WithError(err).Error("failed to build routes")
		}
	}
	return s
}

func (s *ApiServer) Run() error {
	s.setupHealthCheck()
	s.setupMetricsEndpoint()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.WithField("addr", addr).Info("starting api server")
	return s.router.Listen(addr)
}

func (s *ApiServer) Shutdown() error {
	return s.router.Shutdown()
}

// App exposes the underlying fiber app for tests.
func (s *ApiServer) App() *fiber.App {
	return s.router
}

func (s *ApiServer) setupHealthCheck() {
	s.router.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
}

func (s *ApiServer) setupMetricsEndpoint() {
	if !s.config.Metrics.Enabled {
		s.logger.Info("prometheus metrics are disabled by configuration")
		return
	}

	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s.router.Get("/metrics", func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	})
}

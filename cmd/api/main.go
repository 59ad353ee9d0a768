package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/thrustCoder/gamer-uncle-sub001/pkg/config"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/criteria"
	handlers "github.com/thrustCoder/gamer-uncle-sub001/pkg/handlers/http"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/infra/agent"
	infraCache "github.com/thrustCoder/gamer-uncle-sub001/pkg/infra/cache"
	infraLogger "github.com/thrustCoder/gamer-uncle-sub001/pkg/infra/logger"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/infra/prometheus"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/middleware"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/ratelimit"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/resilience"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/server"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/server/router"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.NewLogger()

	if err := config.Load("./config"); err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}
	cfg := config.GetConfig()

	prometheus.Initialize()

	// The shared store is a performance and coordination layer, not a hard
	// dependency: an unreachable Redis leaves the service running with a
	// local-only cache and a fail-open limiter.
	redisClient, err := infraCache.NewClient(infraCache.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TLS:      cfg.Redis.TLS,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize redis client")
	}

	criteriaCache := criteria.NewCache(criteria.Options{
		Environment: cfg.Server.Environment,
		LocalSize:   cfg.Cache.LocalSize,
		LocalTTL:    time.Duration(cfg.Cache.LocalTTLMinutes) * time.Minute,
		RemoteTTL:   time.Duration(cfg.Cache.RedisTTLMinutes) * time.Minute,
	}, redisClient, logger)

	policy := resilience.NewPolicy(resilience.Options{
		Timeout:    time.Duration(cfg.Resilience.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.Resilience.MaxRetries,
		RetryDelay: time.Duration(cfg.Resilience.RetryDelayMs) * time.Millisecond,
	}, logger)

	agentClient := agent.NewHTTPClient(agent.Config{
		Endpoint:           cfg.Agent.Endpoint,
		BreakerMaxFailures: cfg.Agent.BreakerMaxFailures,
		BreakerTimeout:     time.Duration(cfg.Agent.BreakerTimeoutSecs) * time.Second,
	}, policy, logger)

	middlewareTransport := &middleware.Transport{
		RequestIDMiddleware:    middleware.NewRequestIDMiddleware(),
		PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(logger),
		MetricsMiddleware:      middleware.NewMetricsMiddleware(logger),
	}

	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewFixedWindowLimiter(redisClient, ratelimit.Policy{
			Name:          "per_ip",
			Limit:         cfg.RateLimit.Requests,
			Window:        cfg.RateLimitWindow(),
			MinRetryAfter: time.Duration(cfg.RateLimit.MinRetryAfterSeconds) * time.Second,
		}, logger, nil)
		middlewareTransport.RateLimitMiddleware = middleware.NewRateLimitMiddleware(
			limiter, cfg.RateLimit.Requests, logger,
		)
	}

	handlerTransport := handlers.HandlerTransport{
		RecommendationHandler: handlers.NewRecommendationHandler(logger, criteriaCache, agentClient),
		CacheStatsHandler:     handlers.NewCacheStatsHandler(logger, criteriaCache),
	}

	apiServer := server.NewApiServer(cfg, logger).
		WithRouters(router.NewApiRouter(middlewareTransport, handlerTransport))

	go func() {
		if err := apiServer.Run(); err != nil {
			logger.WithError(err).Fatal("api server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := apiServer.Shutdown(); err != nil {
		logger.WithError(err).Error("error during shutdown")
	}
}

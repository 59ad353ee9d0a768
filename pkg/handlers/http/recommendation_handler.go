package http

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/thrustCoder/gamer-uncle-sub001/pkg/criteria"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/infra/agent"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/resilience"
)

type recommendationRequest struct {
	Query string `json:"query"`
}

type recommendationResponse struct {
	Criteria json.RawMessage `json:"criteria"`
}

type recommendationHandler struct {
	logger *logrus.Logger
	cache  *criteria.Cache
	agent  agent.Client
}

func NewRecommendationHandler(
	logger *logrus.Logger,
	cache *criteria.Cache,
	agentClient agent.Client,
) Handler {
	return &recommendationHandler{
		logger: logger,
		cache:  cache,
		agent:  agentClient,
	}
}

// Handle resolves the structured criteria for a natural-language game
// query, serving repeated queries from the cache instead of calling the
// extraction agent again.
func (h *recommendationHandler) Handle(c *fiber.Ctx) error {
	var req recommendationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if criteria.Normalize(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query is required",
		})
	}

	payload, err := h.cache.Resolve(c.UserContext(), req.Query, func(ctx context.Context) (string, error) {
		return h.agent.ExtractCriteria(ctx, req.Query)
	})
	if err != nil {
		h.logger.WithError(err).WithField("query", req.Query).
			Error("criteria extraction failed")
		if errors.Is(err, resilience.ErrTimeout) {
			return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
				"error": "criteria extraction timed out",
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "criteria extraction failed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(recommendationResponse{
		Criteria: json.RawMessage(payload),
	})
}

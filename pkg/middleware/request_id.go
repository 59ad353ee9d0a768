package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/thrustCoder/gamer-uncle-sub001/pkg/common"
)

type requestIDMiddleware struct{}

func NewRequestIDMiddleware() Middleware {
	return &requestIDMiddleware{}
}

func (m *requestIDMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(common.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Locals(string(common.RequestIDContextKey), requestID)
		c.Set(common.RequestIDHeader, requestID)
		return c.Next()
	}
}

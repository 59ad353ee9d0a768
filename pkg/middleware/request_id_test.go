package middleware_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrustCoder/gamer-uncle-sub001/pkg/common"
	"github.com/thrustCoder/gamer-uncle-sub001/pkg/middleware"
)

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.NewRequestIDMiddleware().Middleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	id := resp.Header.Get(common.RequestIDHeader)
	require.NotEmpty(t, id)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}

func TestRequestIDMiddleware_PreservesIncomingID(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.NewRequestIDMiddleware().Middleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(common.RequestIDHeader, "incoming-id")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "incoming-id", resp.Header.Get(common.RequestIDHeader))
}

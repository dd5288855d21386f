package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the correlation ID between services.
	RequestIDHeader = "X-Request-ID"
	// RequestIDLocalKey is where the ID is stashed in Fiber's locals.
	RequestIDLocalKey = "request_id"
)

// RequestID ensures every request carries a correlation ID: the incoming
// X-Request-ID is reused when present, otherwise a fresh UUID is minted.
// The ID is stored in locals for the logger and echoed on the response.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(RequestIDLocalKey, id)
		c.Set(RequestIDHeader, id)

		return c.Next()
	}
}

package middleware

import (
	"github.com/gofiber/fiber/v2"
)

const (
	// UserIDHeader carries the already-validated requester identity, set by the
	// authentication layer in front of this service.
	UserIDHeader = "X-User-ID"
	// UserIDLocalKey is the key used to store the requester id in Fiber's context locals.
	UserIDLocalKey = "user_id"
)

// Identity is a middleware that requires every request to carry a requester
// identity. The value is trusted as-is: credential checking happens upstream,
// this service only consumes its output. Requests without an identity are
// rejected before any handler runs.
func Identity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(UserIDHeader)
		if id == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing user identity")
		}

		c.Locals(UserIDLocalKey, id)

		return c.Next()
	}
}

// UserID extracts the requester id stored by Identity. Empty when the
// middleware did not run.
func UserID(c *fiber.Ctx) string {
	if v, ok := c.Locals(UserIDLocalKey).(string); ok {
		return v
	}
	return ""
}

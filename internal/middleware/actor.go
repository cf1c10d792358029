package middleware

import (
	"bazaar-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const actorHeader = "X-Actor-Id"
const actorLocal = "actor_id"

// Actor extracts the caller's opaque account id from the X-Actor-Id header.
// Identity is issued by an external account system; this core never verifies
// it beyond uuid shape.
func Actor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(actorHeader)
		if raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				c.Locals(actorLocal, id)
			}
		}
		return c.Next()
	}
}

// RequireActor rejects requests without a well-formed actor id.
func RequireActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals(actorLocal).(uuid.UUID); !ok {
			return response.Error(c, "Missing or invalid "+actorHeader+" header", fiber.StatusUnauthorized, nil)
		}
		return c.Next()
	}
}

// GetActorID returns the actor id from context.
func GetActorID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(actorLocal).(uuid.UUID)
	return id, ok
}

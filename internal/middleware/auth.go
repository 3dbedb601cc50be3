package middleware

import (
	"certhub-backend/internal/application/policies"
	"certhub-backend/internal/pkg/constants"
	"certhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth rejects requests without a session user.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := GetActor(c); !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// GetUser returns the raw session user (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// GetActor builds the core-service caller from the session user. Sessions
// carrying an unknown role are treated as anonymous.
func GetActor(c *fiber.Ctx) (policies.Actor, bool) {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return policies.Actor{}, false
	}
	idStr, _ := m["user_id"].(string)
	role, _ := m["role"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil || !constants.IsValidRole(role) {
		return policies.Actor{}, false
	}
	return policies.Actor{UserID: id, Role: role}, true
}

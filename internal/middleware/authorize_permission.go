package middleware

import (
	"certhub-backend/internal/pkg/constants"
	"certhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthorizePermission lets the request through only when the session role
// holds every listed permission. Services still run their own policy checks
// on the concrete resource.
func AuthorizePermission(permissions ...string) fiber.Handler {
	for _, p := range permissions {
		if len(constants.PermissionRoles[p]) == 0 {
			panic("middleware: permission " + p + " has no roles")
		}
	}
	return func(c *fiber.Ctx) error {
		actor, ok := GetActor(c)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		for _, p := range permissions {
			if !constants.AllowedRole(p, actor.Role) {
				Logger(c).Debug().Str("permission", p).Msg("permission denied")
				return response.Forbidden(c, "User is Forbidden from performing this action")
			}
		}
		return c.Next()
	}
}

package middleware

import (
	"certhub-backend/internal/application/policies"
	"certhub-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Actor returns the session actor. Routes behind RequireAuth always have one;
// elsewhere the zero Actor is returned, which no policy grants anything.
func Actor(c *fiber.Ctx) policies.Actor {
	a, _ := GetActor(c)
	return a
}

// ParamUUID parses a path parameter as a UUID.
func ParamUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, domain.Invalid(name, "must be a UUID")
	}
	return id, nil
}

// BodyParser wraps c.BodyParser with a validation error.
func BodyParser(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return domain.Invalid("", "invalid request body")
	}
	return nil
}

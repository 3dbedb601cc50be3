package students

import (
	"certhub-backend/internal/application/students"
	"certhub-backend/internal/middleware"
	"certhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *students.Service
}

// Create POST /api/v1/students
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in students.CreateInput
	if err := middleware.BodyParser(c, &in); err != nil {
		return err
	}
	st, err := h.Service.Create(c.Context(), middleware.Actor(c), in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Student created", st, nil)
}

// List GET /api/v1/students
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.List(c.Context(), middleware.Actor(c))
	if err != nil {
		return err
	}
	return response.Success(c, "Students fetched", list, fiber.Map{"count": len(list)})
}

package templates

import (
	"certhub-backend/internal/application/templates"
	"certhub-backend/internal/domain"
	"certhub-backend/internal/middleware"
	"certhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *templates.Service
}

// List GET /api/v1/templates
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.ListAvailable(c.Context(), middleware.Actor(c))
	if err != nil {
		return err
	}
	return response.Success(c, "Templates fetched", list, nil)
}

// Create POST /api/v1/admin/templates
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in templates.CreateInput
	if err := middleware.BodyParser(c, &in); err != nil {
		return err
	}
	t, err := h.Service.Create(c.Context(), middleware.Actor(c), in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Template created", t, nil)
}

// UpdateLayout PUT /api/v1/admin/templates/:id/layout
func (h *Handlers) UpdateLayout(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	var layout domain.LayoutConfig
	if err := middleware.BodyParser(c, &layout); err != nil {
		return err
	}
	t, err := h.Service.UpdateLayout(c.Context(), middleware.Actor(c), id, layout)
	if err != nil {
		return err
	}
	return response.Success(c, "Layout updated", t, nil)
}

type dealersRequest struct {
	DealerIDs []uuid.UUID `json:"dealer_ids"`
}

// AssignDealers PUT /api/v1/admin/templates/:id/dealers
// An empty list opens the template to every dealer.
func (h *Handlers) AssignDealers(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	var req dealersRequest
	if err := middleware.BodyParser(c, &req); err != nil {
		return err
	}
	t, err := h.Service.AssignDealers(c.Context(), middleware.Actor(c), id, req.DealerIDs)
	if err != nil {
		return err
	}
	return response.Success(c, "Template dealers updated", t, nil)
}

// Render GET /api/v1/certificates/:id/render
func (h *Handlers) Render(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	doc, err := h.Service.Render(c.Context(), middleware.Actor(c), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Certificate rendered", doc, nil)
}

package programs

import (
	"certhub-backend/internal/application/programs"
	"certhub-backend/internal/middleware"
	"certhub-backend/internal/pkg/i18n"
	"certhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *programs.Service
}

type programView struct {
	ProgramID     string            `json:"program_id"`
	Name          string            `json:"name"`
	Names         map[string]string `json:"names"`
	DurationHours int               `json:"duration_hours"`
	DefaultPrice  decimal.Decimal   `json:"default_price"`
	IsActive      bool              `json:"is_active"`
}

// List GET /api/v1/programs
// Name is resolved for the request's Accept-Language; Names has every entry.
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.List(c.Context(), middleware.Actor(c))
	if err != nil {
		return err
	}
	lang := i18n.Lang(c.Get(fiber.HeaderAcceptLanguage))
	out := make([]programView, 0, len(list))
	for _, p := range list {
		out = append(out, programView{
			ProgramID:     p.ProgramID.String(),
			Name:          p.Name.Resolve(lang),
			Names:         p.Name,
			DurationHours: p.DurationHours,
			DefaultPrice:  p.DefaultPrice,
			IsActive:      p.IsActive,
		})
	}
	return response.Success(c, "Programs fetched", out, nil)
}

// Create POST /api/v1/admin/programs
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in programs.CreateInput
	if err := middleware.BodyParser(c, &in); err != nil {
		return err
	}
	p, err := h.Service.Create(c.Context(), middleware.Actor(c), in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Program created", p, nil)
}

type priceRequest struct {
	DefaultPrice decimal.Decimal `json:"default_price"`
}

// UpdatePrice PATCH /api/v1/admin/programs/:id/price
func (h *Handlers) UpdatePrice(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	var req priceRequest
	if err := middleware.BodyParser(c, &req); err != nil {
		return err
	}
	p, err := h.Service.UpdatePrice(c.Context(), middleware.Actor(c), id, req.DefaultPrice)
	if err != nil {
		return err
	}
	return response.Success(c, "Price updated", p, nil)
}

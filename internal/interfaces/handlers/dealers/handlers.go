package dealers

import (
	"certhub-backend/internal/application/dealers"
	"certhub-backend/internal/middleware"
	"certhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	Service *dealers.Service
	Rdb     *redis.Client
}

// Register POST /api/v1/dealers/register
func (h *Handlers) Register(c *fiber.Ctx) error {
	var in dealers.RegisterInput
	if err := middleware.BodyParser(c, &in); err != nil {
		return err
	}
	u, err := h.Service.Register(c.Context(), in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Registration received, awaiting approval", fiber.Map{
		"user_id":     u.UserID,
		"email":       u.Email,
		"is_approved": u.IsApproved,
	}, nil)
}

// List GET /api/v1/admin/dealers
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.Service.List(c.Context(), middleware.Actor(c))
	if err != nil {
		return err
	}
	return response.Success(c, "Dealers fetched", list, nil)
}

// Update PATCH /api/v1/admin/dealers/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	var in dealers.UpdateInput
	if err := middleware.BodyParser(c, &in); err != nil {
		return err
	}
	u, err := h.Service.Update(c.Context(), middleware.Actor(c), id, in)
	if err != nil {
		return err
	}
	// A disabled or unapproved dealer loses any session it still holds.
	if h.Rdb != nil && (!u.IsActive || !u.IsApproved) {
		n, err := middleware.RevokeUserSessions(c.UserContext(), h.Rdb, u.UserID)
		if err != nil {
			middleware.Logger(c).Warn().Err(err).Str("dealer_id", u.UserID.String()).Msg("session revoke failed")
		} else if n > 0 {
			middleware.Logger(c).Info().Int("sessions", n).Str("dealer_id", u.UserID.String()).Msg("dealer sessions revoked")
		}
	}
	return response.Success(c, "Dealer updated", u, nil)
}

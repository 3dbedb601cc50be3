package ledger

import (
	"errors"

	"certhub-backend/internal/application/ledger"
	"certhub-backend/internal/domain"
	"certhub-backend/internal/middleware"
	"certhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *ledger.Service
}

// Balance GET /api/v1/ledger/balance
func (h *Handlers) Balance(c *fiber.Ctx) error {
	actor := middleware.Actor(c)
	bal, err := h.Service.Balance(c.Context(), actor.UserID)
	if err != nil {
		return err
	}
	return response.Success(c, "Balance fetched", fiber.Map{"balance": bal.StringFixed(2)}, nil)
}

// Transactions GET /api/v1/ledger/transactions?type=&status=&page=&limit=
// Admins may pass user_id to read a dealer's log.
func (h *Handlers) Transactions(c *fiber.Ctx) error {
	userID, err := h.subject(c)
	if err != nil {
		return err
	}
	page, err := h.Service.History(c.Context(), userID, ledger.HistoryFilter{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
	})
	if err != nil {
		return err
	}
	return response.Paginated(c, "Transactions fetched", page.Items, page.Total, page.Page, page.Limit)
}

// Audit GET /api/v1/ledger/audit
func (h *Handlers) Audit(c *fiber.Ctx) error {
	userID, err := h.subject(c)
	if err != nil {
		return err
	}
	res, err := h.Service.Audit(c.Context(), userID)
	if err != nil {
		return err
	}
	return response.Success(c, "Ledger audited", res, nil)
}

type finalizeRequest struct {
	Status string `json:"status"`
}

// Finalize POST /api/v1/admin/transactions/:id/finalize
func (h *Handlers) Finalize(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	var req finalizeRequest
	if err := middleware.BodyParser(c, &req); err != nil {
		return err
	}
	t, err := h.Service.FinalizeByActor(c.Context(), middleware.Actor(c), id, req.Status)
	if err != nil {
		if t != nil && errors.Is(err, domain.ErrAlreadyFinalized) {
			return response.Error(c, err.Error(), fiber.StatusConflict, fiber.Map{"transaction": t})
		}
		return err
	}
	return response.Success(c, "Transaction finalized", t, nil)
}

type creditRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Credit POST /api/v1/admin/dealers/:id/credit
func (h *Handlers) Credit(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	var req creditRequest
	if err := middleware.BodyParser(c, &req); err != nil {
		return err
	}
	t, err := h.Service.Credit(c.Context(), middleware.Actor(c), id, req.Amount, req.Description)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Balance credited", t, nil)
}

func (h *Handlers) subject(c *fiber.Ctx) (uuid.UUID, error) {
	actor := middleware.Actor(c)
	raw := c.Query("user_id")
	if raw == "" {
		return actor.UserID, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Invalid("user_id", "must be a UUID")
	}
	if !h.Service.Policy.CanAccessOwnedBy(actor, id) {
		return uuid.Nil, domain.ErrForbidden
	}
	return id, nil
}

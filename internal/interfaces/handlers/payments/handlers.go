package payments

import (
	"encoding/json"
	"strings"

	"certhub-backend/internal/application/payments"
	"certhub-backend/internal/domain"
	"certhub-backend/internal/middleware"
	"certhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *payments.Service
}

// Packages GET /api/v1/payments/packages
func (h *Handlers) Packages(c *fiber.Ctx) error {
	list, err := h.Service.Packages(c.Context())
	if err != nil {
		return err
	}
	return response.Success(c, "Packages fetched", list, nil)
}

// CreatePackage POST /api/v1/admin/packages
func (h *Handlers) CreatePackage(c *fiber.Ctx) error {
	var in payments.PackageInput
	if err := middleware.BodyParser(c, &in); err != nil {
		return err
	}
	p, err := h.Service.CreatePackage(c.Context(), middleware.Actor(c), in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Package created", p, nil)
}

type cardRequest struct {
	PackageID uuid.UUID `json:"package_id"`
	payments.Card
}

// Card POST /api/v1/payments/card
// On success the body carries the 3-D Secure redirect. A gateway failure still
// returns the pending transaction in error.details.
func (h *Handlers) Card(c *fiber.Ctx) error {
	var req cardRequest
	if err := middleware.BodyParser(c, &req); err != nil {
		return err
	}
	res, err := h.Service.Initiate(c.Context(), middleware.Actor(c), req.PackageID, req.Card)
	if err != nil {
		if res != nil {
			return response.Error(c, err.Error(), middleware.StatusFor(err), fiber.Map{"transaction": res.Transaction})
		}
		return err
	}
	return response.SuccessCreated(c, "Payment initiated", res, nil)
}

type wireRequest struct {
	PackageID uuid.UUID `json:"package_id"`
}

// WireTransfer POST /api/v1/payments/wire-transfer
func (h *Handlers) WireTransfer(c *fiber.Ctx) error {
	var req wireRequest
	if err := middleware.BodyParser(c, &req); err != nil {
		return err
	}
	t, err := h.Service.RequestWireTransfer(c.Context(), middleware.Actor(c), req.PackageID)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Wire transfer recorded, awaiting approval", t, nil)
}

type callbackJSON struct {
	OrderID       string          `json:"order_id"`
	ResultCode    json.RawMessage `json:"result_code"`
	ResultMessage string          `json:"result_message"`
}

// rawCode accepts result_code as "1" or 1.
func rawCode(m json.RawMessage) string {
	var s string
	if json.Unmarshal(m, &s) == nil {
		return s
	}
	return string(m)
}

// readCallback extracts the order id, raw result code and message from a JSON
// or form-encoded gateway notification.
func readCallback(c *fiber.Ctx) (orderID, code, message string, err error) {
	ct := strings.ToLower(string(c.Request().Header.ContentType()))
	switch {
	case strings.HasPrefix(ct, fiber.MIMEApplicationJSON):
		var body callbackJSON
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return body.OrderID, "", "", domain.Invalid("body", "malformed JSON")
		}
		return body.OrderID, rawCode(body.ResultCode), body.ResultMessage, nil
	case strings.HasPrefix(ct, fiber.MIMEApplicationForm), strings.HasPrefix(ct, fiber.MIMEMultipartForm):
		return c.FormValue("order_id"), c.FormValue("result_code"), c.FormValue("result_message"), nil
	}
	return "", "", "", domain.Invalid("content_type", "expected JSON or form data")
}

// Callback POST /api/v1/payments/callback
// Always answers 303 to the result page; the outcome is in its query string.
// A payload that cannot be read never settles the transaction.
func (h *Handlers) Callback(c *fiber.Ctx) error {
	orderID, raw, message, err := readCallback(c)
	if err != nil {
		return c.Redirect(h.Service.RejectCallback(orderID, err), fiber.StatusSeeOther)
	}
	code, err := payments.ParseResultCode(raw)
	if err != nil {
		return c.Redirect(h.Service.RejectCallback(orderID, err), fiber.StatusSeeOther)
	}
	dest := h.Service.HandleCallback(c.Context(), payments.Callback{
		CorrelationID: orderID,
		ResultCode:    code,
		ResultMessage: message,
	})
	return c.Redirect(dest, fiber.StatusSeeOther)
}

package verify

import (
	"strings"

	"certhub-backend/internal/application/verification"
	"certhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *verification.Service
}

// Verify GET /api/v1/verify/:hash?lang=
// Public. The training name is in the certificate's language unless lang asks
// for another one.
func (h *Handlers) Verify(c *fiber.Ctx) error {
	v, err := h.Service.Verify(c.Context(), c.Params("hash"))
	if err != nil {
		return err
	}
	if lang := strings.ToLower(c.Query("lang")); lang != "" {
		out := *v
		out.TrainingName = v.TrainingNames.Resolve(lang)
		return response.Success(c, "Certificate verified", out, nil)
	}
	return response.Success(c, "Certificate verified", v, nil)
}

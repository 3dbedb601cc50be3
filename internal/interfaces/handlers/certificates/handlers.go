package certificates

import (
	"errors"
	"time"

	"certhub-backend/internal/application/issuance"
	"certhub-backend/internal/domain"
	"certhub-backend/internal/middleware"
	"certhub-backend/internal/pkg/i18n"
	"certhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const dateLayout = "2006-01-02"

type Handlers struct {
	Service *issuance.Service
	Rdb     *redis.Client
}

type issueRequest struct {
	StudentID         uuid.UUID `json:"student_id"`
	TrainingProgramID uuid.UUID `json:"training_program_id"`
	TemplateID        uuid.UUID `json:"template_id"`
	IssueDate         string    `json:"issue_date"`
	Language          string    `json:"certificate_language"`
	StartDate         string    `json:"start_date"`
	EndDate           string    `json:"end_date"`
	DurationHours     *int      `json:"duration_hours"`
}

func (r issueRequest) input() (issuance.IssueInput, error) {
	in := issuance.IssueInput{
		StudentID:         r.StudentID,
		TrainingProgramID: r.TrainingProgramID,
		TemplateID:        r.TemplateID,
		Language:          r.Language,
		DurationHours:     r.DurationHours,
	}
	if r.IssueDate != "" {
		d, err := time.Parse(dateLayout, r.IssueDate)
		if err != nil {
			return in, domain.Invalid("issue_date", "expected YYYY-MM-DD")
		}
		in.IssueDate = d
	}
	var err error
	if in.StartDate, err = optionalDate("start_date", r.StartDate); err != nil {
		return in, err
	}
	if in.EndDate, err = optionalDate("end_date", r.EndDate); err != nil {
		return in, err
	}
	return in, nil
}

func optionalDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, domain.Invalid(field, "expected YYYY-MM-DD")
	}
	return &d, nil
}

// Issue POST /api/v1/certificates
// Failures carry a message in the caller's Accept-Language (tr or en).
func (h *Handlers) Issue(c *fiber.Ctx) error {
	lang := i18n.Lang(c.Get(fiber.HeaderAcceptLanguage))
	fail := func(err error) error {
		status := middleware.StatusFor(err)
		if status >= fiber.StatusInternalServerError {
			middleware.ReportServerError(c, h.Rdb, err)
		}
		return response.Error(c, i18n.Message(err, lang), status, fiber.Map{"code": errorCode(err)})
	}

	var req issueRequest
	if err := middleware.BodyParser(c, &req); err != nil {
		return fail(err)
	}
	in, err := req.input()
	if err != nil {
		return fail(err)
	}
	cert, err := h.Service.Issue(c.Context(), middleware.Actor(c), in)
	if err != nil {
		return fail(err)
	}
	return response.SuccessCreated(c, "Certificate issued", cert, nil)
}

// List GET /api/v1/certificates?page=&limit=
func (h *Handlers) List(c *fiber.Ctx) error {
	page, err := h.Service.List(c.Context(), middleware.Actor(c), c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return response.Paginated(c, "Certificates fetched", page.Items, page.Total, page.Page, page.Limit)
}

// Get GET /api/v1/certificates/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		return err
	}
	cert, err := h.Service.Get(c.Context(), middleware.Actor(c), id)
	if err != nil {
		return err
	}
	return response.Success(c, "Certificate fetched", cert, nil)
}

var codes = []struct {
	err  error
	code string
}{
	{domain.ErrInsufficientBalance, "insufficient_balance"},
	{domain.ErrForbidden, "forbidden"},
	{domain.ErrNotFound, "not_found"},
	{domain.ErrValidation, "validation_failed"},
	{domain.ErrDuplicateKeyCollision, "duplicate_key_collision"},
}

// errorCode gives clients a language-independent key next to the localized text.
func errorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

package response

import (
	"github.com/gofiber/fiber/v2"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// SuccessBody is the envelope for every 2xx JSON answer.
type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

// ErrorBody is the envelope for every error answer, including ones built by the
// global error handler and the CORS/permission middleware.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

// PageMeta describes one page of a list endpoint.
type PageMeta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	HasMore bool  `json:"has_more"`
}

func orEmpty(v interface{}) interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v
}

func send(c *fiber.Ctx, code int, message string, data, metadata interface{}) error {
	return c.Status(code).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: orEmpty(metadata),
	})
}

func Success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return send(c, fiber.StatusOK, message, data, metadata)
}

func SuccessCreated(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return send(c, fiber.StatusCreated, message, data, metadata)
}

// Paginated sends items with a PageMeta built from total, page and limit.
func Paginated(c *fiber.Ctx, message string, items interface{}, total int64, page, limit int) error {
	return send(c, fiber.StatusOK, message, items, PageMeta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: int64(page*limit) < total,
	})
}

func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error: ErrorDetail{
			Message:    message,
			StatusCode: statusCode,
			Details:    orEmpty(details),
		},
	})
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, message, fiber.StatusUnauthorized, nil)
}

func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, message, fiber.StatusForbidden, nil)
}

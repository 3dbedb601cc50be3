package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"certhub-backend/internal/domain"
	"certhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const errorLogSize = 50

var statusByError = []struct {
	err  error
	code int
}{
	{domain.ErrValidation, fiber.StatusBadRequest},
	{domain.ErrNotFound, fiber.StatusNotFound},
	{domain.ErrForbidden, fiber.StatusForbidden},
	{domain.ErrInsufficientBalance, fiber.StatusPaymentRequired},
	{domain.ErrGatewayRejected, fiber.StatusPaymentRequired},
	{domain.ErrAlreadyFinalized, fiber.StatusConflict},
	{domain.ErrQuotaExceeded, fiber.StatusConflict},
	{domain.ErrInvalidTransition, fiber.StatusConflict},
	{domain.ErrBackgroundAssetMissing, fiber.StatusUnprocessableEntity},
	{domain.ErrGatewayUnreachable, fiber.StatusBadGateway},
	{domain.ErrDuplicateKeyCollision, fiber.StatusInternalServerError},
}

// StatusFor maps domain sentinels to HTTP codes. Unknown errors are 500.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	for _, s := range statusByError {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return fiber.StatusInternalServerError
}

// NewErrorHandler returns the global error handler. 5xx errors are pushed to
// the Redis error log read by /health/errors when rdb is set.
func NewErrorHandler(rdb *redis.Client) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := StatusFor(err)
		message := err.Error()
		details := map[string]interface{}{}
		var ve *domain.ValidationError
		if errors.As(err, &ve) && ve.Field != "" {
			details["field"] = ve.Field
		}

		if code >= fiber.StatusInternalServerError {
			ReportServerError(c, rdb, err)
			var fe *fiber.Error
			if !errors.As(err, &fe) && !errors.Is(err, domain.ErrGatewayUnreachable) {
				message = "Internal Server Error"
			}
		}
		return response.Error(c, message, code, details)
	}
}

// ErrorHandler is the handler without an error log.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return NewErrorHandler(nil)(c, err)
}

// ReportServerError logs err and, when rdb is set, pushes it to the error log.
// Handlers that write their own error body call it for 5xx responses.
func ReportServerError(c *fiber.Ctx, rdb *redis.Client, err error) {
	Logger(c).Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	if rdb != nil {
		recordError(rdb, c, err)
	}
}

func recordError(rdb *redis.Client, c *fiber.Ctx, err error) {
	b, _ := json.Marshal(map[string]interface{}{
		"time":     time.Now(),
		"method":   c.Method(),
		"path":     c.OriginalURL(),
		"message":  err.Error(),
		"trace_id": GetTraceID(c),
	})
	ctx := context.Background()
	_, _ = rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, KeyErrorLog, b)
		p.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1)
		return nil
	})
}

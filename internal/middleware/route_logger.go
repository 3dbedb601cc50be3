package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RouteLogger writes one line per request. 5xx answers log at warn; the error
// handler logs the cause separately.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = StatusFor(err)
		}
		level := zerolog.InfoLevel
		switch {
		case status >= fiber.StatusInternalServerError:
			level = zerolog.WarnLevel
		case status >= fiber.StatusBadRequest:
			level = zerolog.DebugLevel
		}
		Logger(c).WithLevel(level).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("took", time.Since(start)).
			Msg("request")
		return err
	}
}

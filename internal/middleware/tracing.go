package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	traceIDHeader = "X-Trace-Id"
	traceIDLocal  = "trace_id"
	loggerLocal   = "req_logger"
)

// Tracing assigns each request a trace ID, reusing an inbound X-Trace-Id when
// it parses as a UUID, and stores a logger tagged with the trace ID and, when a
// session is present, the acting user.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := c.Get(traceIDHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.New().String()
		}
		c.Locals(traceIDLocal, traceID)
		c.Set(traceIDHeader, traceID)

		lc := log.With().Str("trace_id", traceID)
		if actor, ok := GetActor(c); ok {
			lc = lc.Str("user_id", actor.UserID.String()).Str("role", actor.Role)
		}
		l := lc.Logger()
		c.Locals(loggerLocal, &l)
		return c.Next()
	}
}

func GetTraceID(c *fiber.Ctx) string {
	if id, ok := c.Locals(traceIDLocal).(string); ok {
		return id
	}
	return ""
}

// Logger returns the request logger, or the global one outside Tracing.
func Logger(c *fiber.Ctx) *zerolog.Logger {
	if l, ok := c.Locals(loggerLocal).(*zerolog.Logger); ok {
		return l
	}
	return &log.Logger
}

package middleware

import (
	"strings"

	"certhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	corsAllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Accept-Language, X-Trace-Id, dev-password"
)

// CORSConfig controls which browser origins may call the API.
type CORSConfig struct {
	AllowedSuffix  string // dealer panel host suffix, e.g. .certhub.com.tr
	DevPassword    string
	AllowLocalhost bool
}

func (cfg CORSConfig) allows(c *fiber.Ctx, origin string) bool {
	o := strings.ToLower(origin)
	if cfg.AllowedSuffix != "" && strings.HasSuffix(o, strings.ToLower(cfg.AllowedSuffix)) {
		return true
	}
	if cfg.AllowLocalhost && (strings.HasPrefix(o, "http://localhost:") || strings.HasPrefix(o, "http://127.0.0.1:")) {
		return true
	}
	return cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword
}

// CORS answers preflights for allowed origins and rejects other cross-origin
// calls. Requests without an Origin header (QR scans, the payment gateway's
// callback, curl) pass through untouched.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}
		if !cfg.allows(c, origin) {
			return response.Forbidden(c, "Not allowed by CORS")
		}

		c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
		c.Set(fiber.HeaderAccessControlExposeHeaders, traceIDHeader)
		c.Vary(fiber.HeaderOrigin)
		if c.Method() == fiber.MethodOptions {
			c.Set(fiber.HeaderAccessControlAllowMethods, corsAllowMethods)
			c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

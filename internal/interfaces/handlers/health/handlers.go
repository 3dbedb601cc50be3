package health

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	healthsvc "certhub-backend/internal/application/health"
	"certhub-backend/internal/middleware"
	"certhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const serviceName = "certhub-api"

type Handlers struct {
	Rdb            *redis.Client
	DB             healthsvc.DBPinger
	Upstreams         []healthsvc.Upstream
	HealthAdminKey string
}

func (h *Handlers) collect(c *fiber.Ctx) healthsvc.CollectResult {
	return healthsvc.CollectHealth(c.Context(), h.Rdb, h.DB, h.Upstreams...)
}

// Reset GET /reset?key= clears request stats and restarts the uptime clock.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	key := c.Query("key")
	if h.HealthAdminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.HealthAdminKey)) != 1 {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	ctx := c.Context()
	_, err := h.Rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
			middleware.KeyResCount, middleware.KeyLastReq, middleware.KeyErrorLog)
		p.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0)
		return nil
	})
	if err != nil {
		return err
	}
	middleware.Logger(c).Info().Msg("health stats reset")
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

// JSON GET /health/json. With ?strict=1 an unhealthy result answers 503 so
// load balancers can act on it.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := h.collect(c)
	code := fiber.StatusOK
	if c.QueryBool("strict") && result.Status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"service":      serviceName,
		"status":       result.Status,
		"checked_at":   time.Now().UTC(),
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
	})
}

// Errors GET /health/errors?limit= returns the newest logged 5xx errors.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 50 {
		limit = 50
	}
	entries, err := h.Rdb.LRange(c.Context(), middleware.KeyErrorLog, 0, int64(limit-1)).Result()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON([]interface{}{})
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, s := range entries {
		var m map[string]interface{}
		if json.Unmarshal([]byte(s), &m) == nil {
			out = append(out, m)
		}
	}
	return c.JSON(out)
}

// Dashboard GET /
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := healthsvc.RenderDashboard(&buf, h.collect(c)); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

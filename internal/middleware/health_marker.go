package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys for request stats, read back by the health service.
const (
	KeyReqTotal  = "health:global:req_total"
	KeyReqErrors = "health:global:req_errors"
	KeyResTime   = "health:global:res_time_total"
	KeyResCount  = "health:global:res_count"
	KeyStartTime = "health:global:start_time"
	KeyLastReq   = "health:global:last_request"
	KeyErrorLog  = "health:global:error_log"
)

func unmetered(path string) bool {
	return path == "/" || path == "/reset" ||
		strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon")
}

// HealthMarker counts API traffic in Redis for the health dashboard. Redis
// failures are ignored so stats never fail a request.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil || unmetered(c.Path()) {
			return c.Next()
		}

		start := time.Now()
		last, _ := json.Marshal(map[string]interface{}{
			"time":   start,
			"ip":     c.IP(),
			"path":   c.OriginalURL(),
			"method": c.Method(),
		})

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = StatusFor(err)
		}
		ctx := context.Background()
		_, _ = rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, KeyLastReq, last, 0)
			p.Incr(ctx, KeyReqTotal)
			p.Incr(ctx, KeyResCount)
			p.IncrByFloat(ctx, KeyResTime, float64(time.Since(start).Milliseconds()))
			if status >= fiber.StatusInternalServerError {
				p.Incr(ctx, KeyReqErrors)
			}
			return nil
		})
		return err
	}
}

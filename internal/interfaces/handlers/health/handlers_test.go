package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"certhub-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminKey = "test-admin-key"

func newApp(t *testing.T) (*fiber.App, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	h := &Handlers{Rdb: rdb, HealthAdminKey: adminKey}
	app := fiber.New()
	app.Get("/", h.Dashboard)
	app.Get("/reset", h.Reset)
	app.Get("/health/json", h.JSON)
	app.Get("/health/errors", h.Errors)
	return app, rdb
}

func get(t *testing.T, app *fiber.App, path string) (int, []byte) {
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestReset(t *testing.T) {
	app, rdb := newApp(t)
	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, middleware.KeyReqTotal, "5", 0).Err())

	for _, path := range []string{"/reset", "/reset?key=wrong"} {
		code, body := get(t, app, path)
		assert.Equal(t, fiber.StatusForbidden, code, path)
		assert.Contains(t, string(body), `"message":"Unauthorized"`)
	}
	assert.Equal(t, "5", rdb.Get(ctx, middleware.KeyReqTotal).Val())

	code, body := get(t, app, "/reset?key="+adminKey)
	require.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, string(body), "Stats reset successfully")
	assert.EqualValues(t, 0, rdb.Exists(ctx, middleware.KeyReqTotal).Val())
	assert.EqualValues(t, 1, rdb.Exists(ctx, middleware.KeyStartTime).Val())
}

func TestResetWithoutConfiguredKey(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	app := fiber.New()
	app.Get("/reset", (&Handlers{Rdb: rdb}).Reset)

	code, _ := get(t, app, "/reset?key=")
	assert.Equal(t, fiber.StatusForbidden, code)
}

func TestJSON(t *testing.T) {
	app, _ := newApp(t)

	code, body := get(t, app, "/health/json")
	require.Equal(t, fiber.StatusOK, code)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "certhub-api", out["service"])
	// no database pinger is configured
	assert.Equal(t, "issue", out["status"])
	for _, k := range []string{"checked_at", "runtime", "traffic", "dependencies"} {
		assert.Contains(t, out, k)
	}

	code, _ = get(t, app, "/health/json?strict=1")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
}

func TestErrors(t *testing.T) {
	app, rdb := newApp(t)

	code, body := get(t, app, "/health/errors")
	require.Equal(t, fiber.StatusOK, code)
	assert.JSONEq(t, `[]`, string(body))

	ctx := context.Background()
	rdb.LPush(ctx, middleware.KeyErrorLog, `{"message":"older"}`, "not json", `{"message":"newest"}`)

	_, body = get(t, app, "/health/errors")
	var all []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &all))
	require.Len(t, all, 2)
	assert.Equal(t, "newest", all[0]["message"])

	_, body = get(t, app, "/health/errors?limit=1")
	var one []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &one))
	assert.Len(t, one, 1)
}

func TestDashboard(t *testing.T) {
	app, _ := newApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	html := string(body)
	for _, want := range []string{"CertHub", "System Issues Detected", "/health/json", "/health/errors"} {
		assert.Contains(t, html, want)
	}
}

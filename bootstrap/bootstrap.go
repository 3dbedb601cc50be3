package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"certhub-backend/internal/config"
	"certhub-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// App bundles the HTTP app with the connections it was built over. It lives
// outside internal/ so the serverless entry point can import it.
type App struct {
	Config *config.Config
	Fiber  *fiber.App
	DB     *gorm.DB
	Rdb    *redis.Client
}

// ConfigureLogging switches zerolog to console output outside production.
func ConfigureLogging(env string) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if env == "production" {
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	ConfigureLogging(cfg.Env)

	app, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("app create: %w", err)
	}
	return &App{Config: cfg, Fiber: app, DB: db, Rdb: rdb}, nil
}

// Check pings Postgres and Redis.
func (a *App) Check(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := a.Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

func (a *App) Close() {
	_ = a.Rdb.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

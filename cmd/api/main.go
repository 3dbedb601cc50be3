package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"certhub-backend/bootstrap"

	"github.com/rs/zerolog/log"
)

func main() {
	a, err := bootstrap.New()
	if err != nil {
		log.Fatal().Err(err).Msg("startup")
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = a.Check(ctx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("dependency check failed")
	}
	log.Info().Msg("postgres and redis connected")

	port := a.Config.Port
	go func() {
		log.Info().Str("port", port).Str("env", a.Config.Env).Str("health", "http://localhost:"+port+"/health/json").Msg("server running")
		if err := a.Fiber.Listen(":" + port); err != nil {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
	if err := a.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

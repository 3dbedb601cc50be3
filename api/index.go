package handler

import (
	"net/http"
	"sync"

	"certhub-backend/bootstrap"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog/log"
)

var (
	once    sync.Once
	serve   http.HandlerFunc
	initErr error
)

// Handler is the serverless entry point; every path is rewritten here. The
// app is built on the first request and reused while the instance stays warm.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		a, err := bootstrap.New()
		if err != nil {
			initErr = err
			log.Error().Err(err).Msg("serverless startup failed")
			return
		}
		serve = adaptor.FiberApp(a.Fiber)
	})
	if initErr != nil {
		http.Error(w, `{"status":"error","error":{"message":"Service unavailable","statusCode":503}}`, http.StatusServiceUnavailable)
		return
	}
	r.RequestURI = r.URL.String()
	serve(w, r)
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/calendar/internal/middleware"
)

// NewRouter builds the API handler. Every POST, whatever its path, goes to
// dispatcher.Dispatch; any other method gets the generic failure response.
//
// Middleware chain (applied in order):
//  1. RequestID, RealIP
//  2. WithRequestLogging(logger)
//  3. Recoverer: a panicking handler yields 500 instead of a dropped connection
//  4. CORS(dispatcher.AllowedOrigin): answers preflight requests
func NewRouter(dispatcher *Dispatcher, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(dispatcher.AllowedOrigin))

	r.NotFound(dispatcher.Reject)
	r.MethodNotAllowed(dispatcher.Reject)
	r.Post("/*", dispatcher.Dispatch)

	return r
}

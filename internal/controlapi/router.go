// Package controlapi implements the REST management surface standing in for
// the D-Bus interfaces the spec treats as external (spec §4.4, §6.5-6.7):
// authentication, terminus status, and the numeric-effecter power-cap
// setter.
package controlapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/openbmc-go/pldmd/internal/controlapi/auth"
	"github.com/openbmc-go/pldmd/internal/controlapi/handlers"
	apimiddleware "github.com/openbmc-go/pldmd/internal/controlapi/middleware"
	"github.com/openbmc-go/pldmd/internal/effecter"
	"github.com/openbmc-go/pldmd/internal/logger"
)

// Store is the slice of internal/store.Store the control API depends on.
type Store interface {
	handlers.UserStore
	handlers.TerminusStore
	handlers.EffecterAuditStore
	handlers.Healthchecker
}

// NewRouter builds the chi router serving every control-API endpoint.
//
// Routes:
//   - GET  /health, /health/ready                     unauthenticated
//   - POST /api/v1/auth/login                         unauthenticated
//   - GET  /api/v1/auth/me                             authenticated
//   - GET  /api/v1/termini, /api/v1/termini/{tid}      authenticated
//   - GET  /api/v1/effecters/{id}/audit                authenticated
//   - PUT  /api/v1/effecters/{id}/power-cap            authenticated, admin
func NewRouter(store Store, jwtSvc *auth.Service, writer *effecter.Writer, reg *effecter.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(store)
	r.Get("/health", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	authHandler := handlers.NewAuthHandler(store, jwtSvc)
	terminusHandler := handlers.NewTerminusHandler(store)
	effecterHandler := handlers.NewEffecterHandler(writer, reg, store)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(apimiddleware.JWTAuth(jwtSvc))

			r.Get("/auth/me", authHandler.Me)

			r.Route("/termini", func(r chi.Router) {
				r.Get("/", terminusHandler.List)
				r.Get("/{tid}", terminusHandler.Get)
			})

			r.Route("/effecters/{id}", func(r chi.Router) {
				r.Get("/audit", effecterHandler.ListAudit)

				r.Group(func(r chi.Router) {
					r.Use(apimiddleware.RequireAdmin())
					r.Put("/power-cap", effecterHandler.SetPowerCap)
				})
			})
		})
	})

	return r
}

// requestLogger logs every request at INFO, health probes at DEBUG to avoid
// polluting logs with probe traffic.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		}
		if r.URL.Path == "/health" || r.URL.Path == "/health/ready" {
			logger.Debug("controlapi: request completed", args...)
		} else {
			logger.Info("controlapi: request completed", args...)
		}
	})
}

// Package server wires the HTTP handlers into a chi router.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/haneul-lab/lobbychat/internal/logging"
)

// Routes configures the application routes: health check, the WebSocket
// endpoint, the HTTP auth surface, and optionally a metrics scrape
// endpoint.
func (g *Gateway) Routes(metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(g.log))

	r.Get("/", g.HealthHandler)
	r.Get("/ws", g.ServeWS)
	r.Post("/signup", g.SignupHandler)
	r.Post("/login", g.LoginHandler)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	return r
}

// requestLogger logs one line per HTTP request. The WebSocket endpoint is
// skipped: its connection outlives the request and is logged by the hub.
func requestLogger(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/ws" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start).String(),
			)
		})
	}
}

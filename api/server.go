/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboard tooling

ROUTE GROUPS:
  /api/metrics/*   Compute turnover and tenure tables from posted data
  /api/runs/*      Browse the pipeline run journal
  /api/health      Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.
  Deploy behind the company proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Metric computation routes
		r.Route("/metrics", func(r chi.Router) {
			r.Post("/turnover", h.ComputeTurnover)
			r.Post("/tenure", h.ComputeTenure)
		})

		// Run journal routes
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.ListRuns)
			r.Get("/{id}", h.GetRun)
			r.Get("/{id}/exports", h.ListRunExports)
		})

		r.Get("/health", h.Health)
	})

	// Minimal index for operators hitting the root in a browser.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>People Analytics</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>People Analytics API</h1>
<h2>Endpoints</h2>
<ul>
<li><code>POST /api/metrics/turnover</code> - Compute turnover table</li>
<li><code>POST /api/metrics/tenure</code> - Compute tenure table</li>
<li><a href="/api/runs">/api/runs</a> - Recent pipeline runs</li>
<li><a href="/api/health">/api/health</a> - Health check</li>
</ul>
</body>
</html>`))
	})

	return r
}

// Package app wires middleware, routes and readiness probes into the HTTP
// handler served by cmd/server.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/algoprep/algoprep-api/internal/adapter/httpserver"
	"github.com/algoprep/algoprep-api/internal/adapter/observability"
	"github.com/algoprep/algoprep-api/internal/config"
	"github.com/algoprep/algoprep-api/internal/domain"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming
// spaces. If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server, ready *Readiness) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(90 * time.Second))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Public auth endpoints, rate limited harder than the rest.
	r.Group(func(pr chi.Router) {
		pr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
		pr.Post("/v1/auth/register", srv.RegisterHandler())
		pr.Post("/v1/auth/login", srv.LoginHandler())
	})

	// Everything else requires a bearer token.
	r.Group(func(ar chi.Router) {
		ar.Use(httpserver.RequireAuth(srv.Tokens))
		ar.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))

		ar.Post("/v1/analysis/analyze", srv.AnalysisHandler(domain.TaskAnalyze))
		ar.Post("/v1/analysis/complexity", srv.AnalysisHandler(domain.TaskComplexity))
		ar.Post("/v1/analysis/optimize", srv.AnalysisHandler(domain.TaskOptimize))
		ar.Post("/v1/analysis/test-cases", srv.AnalysisHandler(domain.TaskGenerateTests))

		ar.Post("/v1/interviews", srv.CreateInterviewHandler())
		ar.Get("/v1/interviews", srv.ListInterviewsHandler())
		ar.Get("/v1/interviews/{id}", srv.GetInterviewHandler())
		ar.Delete("/v1/interviews/{id}", srv.DeleteInterviewHandler())

		ar.Get("/v1/jobs/search", srv.JobSearchHandler())
		ar.Post("/v1/execute", srv.ExecuteHandler())
	})

	// Health and metrics.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })
	r.Get("/readyz", ready.Handler())

	return httpserver.SecurityHeaders(r)
}

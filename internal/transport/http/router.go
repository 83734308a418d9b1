// Package httptransport assembles the public HTTP surface from the domain
// handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"qara/internal/platform/metrics"
	"qara/internal/platform/tracing"
	"qara/pkg/platform/httputil"
	"qara/pkg/platform/middleware/metadata"
	"qara/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by every domain handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports one backing dependency. A nil error is healthy.
type HealthCheck func(ctx context.Context) error

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Router holds what the HTTP surface is assembled from.
type Router struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Checks   map[string]HealthCheck
	Handlers []Registrar
}

// Handler returns the chi mux with the shared middleware chain. Request ids
// are assigned before metadata copies them into the request context.
func (rt Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metadata.RequestMetadata)
	r.Use(requesttime.Middleware)
	r.Use(tracing.Middleware)
	r.Use(rt.Metrics.Latency)

	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/healthz", rt.handleHealth)
	for _, h := range rt.Handlers {
		h.Register(r)
	}
	return r
}

func (rt Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	for name, check := range rt.Checks {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(rt.Checks))
		}
		if err := check(r.Context()); err != nil {
			if rt.Logger != nil {
				rt.Logger.WarnContext(r.Context(), "health check failed", "dependency", name, "error", err)
			}
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}

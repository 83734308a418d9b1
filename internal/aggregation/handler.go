package aggregation

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	dErrors "qara/pkg/domain-errors"
	"qara/pkg/platform/httputil"
	"qara/pkg/requestcontext"
)

type Querier interface {
	Summary(ctx context.Context, f Filter) (*Summary, error)
	Funnel(ctx context.Context, f Filter) (*Funnel, error)
	Timeseries(ctx context.Context, f Filter, g Granularity) ([]Bucket, error)
	Heatmap(ctx context.Context, f Filter) ([]HeatmapRow, error)
	Radar(ctx context.Context, f Filter) ([]Axis, error)
	Drilldown(ctx context.Context, t DrilldownType, f Filter, q Query) (*Page, error)
}

// Handler serves the dashboard API. Every endpoint takes the same filter
// query parameters.
type Handler struct {
	svc    Querier
	logger *slog.Logger
}

func NewHandler(svc Querier, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/analytics/summary", h.handleSummary)
	r.Get("/analytics/funnel", h.handleFunnel)
	r.Get("/analytics/timeseries", h.handleTimeseries)
	r.Get("/analytics/heatmap", h.handleHeatmap)
	r.Get("/analytics/radar", h.handleRadar)
	r.Get("/analytics/drilldown/{type}", h.handleDrilldown)
}

type timeseriesResponse struct {
	Granularity Granularity `json:"granularity"`
	Buckets     []Bucket    `json:"buckets"`
}

type heatmapResponse struct {
	Rows []HeatmapRow `json:"rows"`
}

type radarResponse struct {
	Axes []Axis `json:"axes"`
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Summary(r.Context(), f)
	h.write(w, r, out, err)
}

func (h *Handler) handleFunnel(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Funnel(r.Context(), f)
	h.write(w, r, out, err)
}

func (h *Handler) handleTimeseries(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	g, err := ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	buckets, err := h.svc.Timeseries(r.Context(), f, g)
	h.write(w, r, timeseriesResponse{Granularity: g, Buckets: buckets}, err)
}

func (h *Handler) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	rows, err := h.svc.Heatmap(r.Context(), f)
	h.write(w, r, heatmapResponse{Rows: rows}, err)
}

func (h *Handler) handleRadar(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	axes, err := h.svc.Radar(r.Context(), f)
	h.write(w, r, radarResponse{Axes: axes}, err)
}

func (h *Handler) handleDrilldown(w http.ResponseWriter, r *http.Request) {
	t, err := ParseDrilldownType(chi.URLParam(r, "type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	values := r.URL.Query()
	q := Query{Sort: values.Get("sort"), Direction: values.Get("direction")}
	if q.Page, err = intParam(values.Get("page")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if q.PageSize, err = intParam(values.Get("page_size")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.svc.Drilldown(r.Context(), t, f, q)
	h.write(w, r, page, err)
}

func (h *Handler) filter(w http.ResponseWriter, r *http.Request) (Filter, bool) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return Filter{}, false
	}
	return f, true
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		ctx := r.Context()
		h.logger.WarnContext(ctx, "aggregation query failed",
			"request_id", requestcontext.RequestID(ctx),
			"path", r.URL.Path,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid integer "+strconv.Quote(raw))
	}
	return n, nil
}

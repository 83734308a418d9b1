package httptransport

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qara/pkg/requestcontext"
	"qara/pkg/testutil"
)

type echoHandler struct{}

func (echoHandler) Register(r chi.Router) {
	r.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-Request-ID", requestcontext.RequestID(ctx))
		w.Header().Set("X-User-ID", requestcontext.UserID(ctx))
		w.WriteHeader(http.StatusOK)
	})
}

func TestRouter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("middleware fills the request context", func(t *testing.T) {
		h := Router{Logger: logger, Handlers: []Registrar{echoHandler{}}}.Handler()
		req := httptest.NewRequest(http.MethodGet, "/echo", nil)
		req.Header.Set("X-User-ID", "auditor-7")
		rec := testutil.DoRequest(h, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "auditor-7", rec.Header().Get("X-User-ID"))
	})

	t.Run("healthy", func(t *testing.T) {
		h := Router{Logger: logger, Checks: map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		}}.Handler()
		rec := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body := testutil.DecodeJSON[healthResponse](t, rec)
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "ok", body.Checks["postgres"])
	})

	t.Run("degraded", func(t *testing.T) {
		h := Router{Logger: logger, Checks: map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		}}.Handler()
		rec := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "down", testutil.DecodeJSON[healthResponse](t, rec).Checks["redis"])
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		h := Router{Logger: logger}.Handler()
		rec := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

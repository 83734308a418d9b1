package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qara/internal/actions/models"
	"qara/pkg/domain"
	"qara/pkg/platform/httputil"
	"qara/pkg/requestcontext"
)

type Service interface {
	Create(ctx context.Context, auditID domain.AuditID, req *models.CreateRequest) (*models.Action, error)
	Complete(ctx context.Context, auditID domain.AuditID, id domain.ActionID) (*models.Action, error)
	List(ctx context.Context, auditID domain.AuditID) ([]*models.Action, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/audits/{auditID}/actions", h.handleCreate)
	r.Get("/audits/{auditID}/actions", h.handleList)
	r.Post("/audits/{auditID}/actions/{actionID}/complete", h.handleComplete)
}

type listResponse struct {
	Actions []models.View `json:"actions"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	auditID, err := domain.ParseAuditID(chi.URLParam(r, "auditID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.svc.Create(ctx, auditID, req)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create action", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToView(a))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	auditID, err := domain.ParseAuditID(chi.URLParam(r, "auditID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.svc.List(r.Context(), auditID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]models.View, len(list))
	for i, a := range list {
		views[i] = models.ToView(a)
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Actions: views})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auditID, err := domain.ParseAuditID(chi.URLParam(r, "auditID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actionID, err := domain.ParseActionID(chi.URLParam(r, "actionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.svc.Complete(ctx, auditID, actionID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to complete action", "request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToView(a))
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	audit "qara/internal/audit/models"
	"qara/internal/responses/models"
	"qara/pkg/domain"
	"qara/pkg/platform/httputil"
	"qara/pkg/requestcontext"
)

type Service interface {
	Put(ctx context.Context, auditID domain.AuditID, questionKey string, draft models.Draft) (*models.Ack, error)
	Get(ctx context.Context, auditID domain.AuditID, questionKey string) (*models.View, error)
	Views(ctx context.Context, auditID domain.AuditID) ([]models.View, error)
}

type AuditReader interface {
	Get(ctx context.Context, id domain.AuditID) (*audit.Audit, error)
}

type Handler struct {
	svc    Service
	audits AuditReader
	logger *slog.Logger
}

func New(svc Service, audits AuditReader, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, audits: audits, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/audits/{auditID}/responses", h.handleList)
	r.Get("/audits/{auditID}/responses/{questionKey}", h.handleGet)
	r.Put("/audits/{auditID}/responses/{questionKey}", h.handleSave)
}

type listResponse struct {
	Responses []models.View `json:"responses"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auditID, err := domain.ParseAuditID(chi.URLParam(r, "auditID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, err := h.audits.Get(ctx, auditID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	views, err := h.svc.Views(ctx, auditID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Responses: views})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	auditID, err := domain.ParseAuditID(chi.URLParam(r, "auditID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.svc.Get(r.Context(), auditID, chi.URLParam(r, "questionKey"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

// handleSave answers 200 once the response is stored remotely and 202 when
// it is only held in the draft cache awaiting a retry.
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	auditID, err := domain.ParseAuditID(chi.URLParam(r, "auditID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	questionKey := chi.URLParam(r, "questionKey")
	req, ok := httputil.DecodeAndPrepare[models.SaveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	ack, err := h.svc.Put(ctx, auditID, questionKey, req.ToDraft(requestcontext.Now(ctx)))
	if ack != nil && ack.Pending {
		if err != nil {
			h.logger.WarnContext(ctx, "response kept as pending draft",
				"request_id", requestID, "audit_id", auditID, "question_key", questionKey, "error", err)
		}
		httputil.WriteJSON(w, http.StatusAccepted, models.AckView{QuestionKey: questionKey, SavedAt: ack.SavedAt, Pending: true})
		return
	}
	if err != nil {
		h.logger.WarnContext(ctx, "failed to save response", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.AckView{QuestionKey: questionKey, SavedAt: ack.SavedAt})
}

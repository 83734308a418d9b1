package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qara/internal/audit/models"
	"qara/internal/audit/service"
	"qara/internal/catalog"
	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
	"qara/pkg/platform/httputil"
	"qara/pkg/requestcontext"
)

type Service interface {
	Create(ctx context.Context, ownerID string, req *models.CreateRequest) (*models.Audit, error)
	Get(ctx context.Context, id domain.AuditID) (*models.Audit, error)
	List(ctx context.Context) ([]*models.Audit, error)
	ListQuestions(ctx context.Context, id domain.AuditID) ([]catalog.Question, error)
	Complete(ctx context.Context, id domain.AuditID) (*models.Audit, error)
	Close(ctx context.Context, id domain.AuditID) (*models.Audit, error)
	Delete(ctx context.Context, id domain.AuditID) error
}

type Scorer interface {
	Score(ctx context.Context, id domain.AuditID) (*service.Report, error)
}

// Handler serves audit creation, lifecycle and scoring.
type Handler struct {
	svc    Service
	scorer Scorer
	logger *slog.Logger
}

func New(svc Service, scorer Scorer, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, scorer: scorer, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/audits", h.handleCreate)
	r.Get("/audits", h.handleList)
	r.Get("/audits/{auditID}", h.handleGet)
	r.Delete("/audits/{auditID}", h.handleDelete)
	r.Get("/audits/{auditID}/questions", h.handleQuestions)
	r.Get("/audits/{auditID}/score", h.handleScore)
	r.Post("/audits/{auditID}/complete", h.handleComplete)
	r.Post("/audits/{auditID}/close", h.handleClose)
}

type questionView struct {
	Position int `json:"position"`
	catalog.Question
}

type questionsResponse struct {
	AuditID   string         `json:"audit_id"`
	Questions []questionView `json:"questions"`
}

type listResponse struct {
	Audits []models.View `json:"audits"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.svc.Create(ctx, requestcontext.UserID(ctx), req)
	if err != nil {
		h.writeError(ctx, w, "failed to create audit", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToView(a))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	audits, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "failed to list audits", err)
		return
	}
	views := make([]models.View, len(audits))
	for i, a := range audits {
		views[i] = models.ToView(a)
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Audits: views})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.withAudit(w, r, func(ctx context.Context, id domain.AuditID) {
		a, err := h.svc.Get(ctx, id)
		if err != nil {
			h.writeError(ctx, w, "failed to load audit", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, models.ToView(a))
	})
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	h.withAudit(w, r, func(ctx context.Context, id domain.AuditID) {
		qs, err := h.svc.ListQuestions(ctx, id)
		if err != nil {
			h.writeError(ctx, w, "failed to list audit questions", err)
			return
		}
		views := make([]questionView, len(qs))
		for i, q := range qs {
			views[i] = questionView{Position: i, Question: q}
		}
		httputil.WriteJSON(w, http.StatusOK, questionsResponse{AuditID: id.String(), Questions: views})
	})
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	h.withAudit(w, r, func(ctx context.Context, id domain.AuditID) {
		report, err := h.scorer.Score(ctx, id)
		if err != nil {
			h.writeError(ctx, w, "failed to score audit", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, report)
	})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	h.withAudit(w, r, func(ctx context.Context, id domain.AuditID) {
		a, err := h.svc.Complete(ctx, id)
		if err != nil {
			h.writeError(ctx, w, "failed to complete audit", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, models.ToView(a))
	})
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	h.withAudit(w, r, func(ctx context.Context, id domain.AuditID) {
		a, err := h.svc.Close(ctx, id)
		if err != nil {
			h.writeError(ctx, w, "failed to close audit", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, models.ToView(a))
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	h.withAudit(w, r, func(ctx context.Context, id domain.AuditID) {
		if err := h.svc.Delete(ctx, id); err != nil {
			h.writeError(ctx, w, "failed to delete audit", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (h *Handler) withAudit(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id domain.AuditID)) {
	id, err := domain.ParseAuditID(chi.URLParam(r, "auditID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	fn(r.Context(), id)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}

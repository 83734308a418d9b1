package autosave

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	audit "qara/internal/audit/models"
	"qara/internal/responses/models"
	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
	"qara/pkg/platform/httputil"
	pstrings "qara/pkg/platform/strings"
	"qara/pkg/requestcontext"
)

type AuditReader interface {
	Get(ctx context.Context, id domain.AuditID) (*audit.Audit, error)
}

// Handler exposes autosave sessions to thin clients.
type Handler struct {
	sessions *Registry
	audits   AuditReader
	logger   *slog.Logger
}

func NewHandler(sessions *Registry, audits AuditReader, logger *slog.Logger) *Handler {
	return &Handler{sessions: sessions, audits: audits, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/audits/{auditID}/sessions", h.handleOpen)
	r.Get("/sessions/{sessionID}", h.handleStatus)
	r.Patch("/sessions/{sessionID}/questions/{questionKey}", h.handleEdit)
	r.Post("/sessions/{sessionID}/navigate", h.handleNavigate)
	r.Delete("/sessions/{sessionID}", h.handleClose)
}

// EditRequest carries any subset of a question's fields.
type EditRequest struct {
	Value         *string   `json:"value"`
	Comment       *string   `json:"comment"`
	EvidenceFiles *[]string `json:"evidence_files"`
}

func (r *EditRequest) Normalize() {
	if r.Value != nil {
		v := strings.ToLower(strings.TrimSpace(*r.Value))
		r.Value = &v
	}
	if r.EvidenceFiles != nil {
		files := pstrings.DedupeAndTrim(*r.EvidenceFiles)
		r.EvidenceFiles = &files
	}
}

func (r *EditRequest) Validate() error {
	if r.Value == nil && r.Comment == nil && r.EvidenceFiles == nil {
		return dErrors.New(dErrors.CodeValidation, "nothing to change")
	}
	if r.Value != nil && !models.Value(*r.Value).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown response value "+*r.Value)
	}
	return nil
}

type NavigateRequest struct {
	From string `json:"from"`
}

func (r *NavigateRequest) Normalize() { r.From = strings.TrimSpace(r.From) }

func (r *NavigateRequest) Validate() error {
	if r.From == "" {
		return dErrors.New(dErrors.CodeValidation, "from is required")
	}
	return nil
}

type QuestionStatus struct {
	QuestionKey string       `json:"question_key"`
	State       string       `json:"state"`
	Draft       models.Draft `json:"draft"`
}

type StatusView struct {
	SessionID   string           `json:"session_id"`
	AuditID     string           `json:"audit_id"`
	LastSavedAt *time.Time       `json:"last_saved_at,omitempty"`
	LastError   string           `json:"last_error,omitempty"`
	Questions   []QuestionStatus `json:"questions,omitempty"`
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auditID, err := domain.ParseAuditID(chi.URLParam(r, "auditID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.audits.Get(ctx, auditID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !a.Status.AcceptsResponses() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidState, "audit no longer accepts responses"))
		return
	}
	s := h.sessions.Open(ctx, auditID)
	httputil.WriteJSON(w, http.StatusCreated, statusOf(s, a.QuestionKeys))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.audits.Get(r.Context(), s.AuditID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusOf(s, a.QuestionKeys))
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	s, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	key := chi.URLParam(r, "questionKey")
	req, ok := httputil.DecodeAndPrepare[EditRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c := s.Controller
	if req.Comment != nil {
		err = c.EditComment(ctx, key, *req.Comment)
	}
	if err == nil && req.EvidenceFiles != nil {
		err = c.SetEvidence(ctx, key, *req.EvidenceFiles)
	}
	if err == nil && req.Value != nil {
		err = c.SetValue(ctx, key, models.Value(*req.Value))
	}
	if err != nil && !dErrors.HasCode(err, dErrors.CodeUnavailable) && !dErrors.HasCode(err, dErrors.CodeTimeout) {
		h.logger.WarnContext(ctx, "autosave edit rejected", "request_id", requestID, "session_id", s.ID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	draft, _ := c.Draft(key)
	httputil.WriteJSON(w, http.StatusOK, QuestionStatus{QuestionKey: key, State: c.State(key).String(), Draft: draft})
}

func (h *Handler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[NavigateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	// A failed flush keeps the draft pending; navigation still proceeds.
	_ = s.Controller.Navigate(ctx, req.From)
	httputil.WriteJSON(w, http.StatusOK, statusOf(s, nil))
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "sessionID")
	s, err := h.sessions.Get(id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.sessions.Close(ctx, id); err != nil {
		h.logger.WarnContext(ctx, "session closed with pending drafts", "session_id", id, "error", err)
	}
	httputil.WriteJSON(w, http.StatusOK, statusOf(s, nil))
}

func statusOf(s *Session, keys []string) StatusView {
	c := s.Controller
	v := StatusView{SessionID: s.ID, AuditID: s.AuditID.String()}
	if t := c.LastSavedAt(); !t.IsZero() {
		v.LastSavedAt = &t
	}
	if err := c.Err(); err != nil {
		v.LastError = dErrors.MessageOf(err)
	}
	for _, k := range keys {
		d, _ := c.Draft(k)
		v.Questions = append(v.Questions, QuestionStatus{QuestionKey: k, State: c.State(k).String(), Draft: d})
	}
	return v
}

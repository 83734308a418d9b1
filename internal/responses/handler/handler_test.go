package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "qara/internal/audit/models"
	"qara/internal/responses/models"
	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
	"qara/pkg/platform/middleware/requesttime"
	"qara/pkg/testutil"
)

type stubService struct {
	ack   *models.Ack
	err   error
	saved models.Draft
}

func (s *stubService) Put(_ context.Context, _ domain.AuditID, _ string, d models.Draft) (*models.Ack, error) {
	s.saved = d
	return s.ack, s.err
}

func (s *stubService) Get(_ context.Context, _ domain.AuditID, key string) (*models.View, error) {
	if key != "Q1" {
		return nil, dErrors.New(dErrors.CodeNotFound, "no response")
	}
	return &models.View{QuestionKey: "Q1", Value: models.ValueCompliant, EvidenceFiles: []string{}}, nil
}

func (s *stubService) Views(context.Context, domain.AuditID) ([]models.View, error) {
	return []models.View{{QuestionKey: "Q1", Value: models.ValueCompliant, EvidenceFiles: []string{}, Pending: true}}, nil
}

type stubAudits struct{ known domain.AuditID }

func (a stubAudits) Get(_ context.Context, id domain.AuditID) (*audit.Audit, error) {
	if id != a.known {
		return nil, dErrors.New(dErrors.CodeNotFound, "audit not found")
	}
	return &audit.Audit{ID: id}, nil
}

func newRouter(svc Service, auditID domain.AuditID) http.Handler {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	r := chi.NewRouter()
	r.Use(requesttime.Middleware)
	New(svc, stubAudits{known: auditID}, logger).Register(r)
	return r
}

func TestSaveResponse(t *testing.T) {
	auditID := domain.NewAuditID()
	path := "/audits/" + auditID.String() + "/responses/Q1"
	savedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("saved", func(t *testing.T) {
		svc := &stubService{ack: &models.Ack{SavedAt: savedAt}}
		rec := testutil.DoRequest(newRouter(svc, auditID), testutil.NewJSONRequest(t, http.MethodPut, path, map[string]any{
			"value":          " Compliant ",
			"comment":        "  procedure reviewed ",
			"evidence_files": []string{"sop.pdf", " "},
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := testutil.DecodeJSON[models.AckView](t, rec)
		assert.False(t, body.Pending)
		assert.Equal(t, "Q1", body.QuestionKey)
		assert.Equal(t, models.ValueCompliant, svc.saved.Value)
		assert.Equal(t, "procedure reviewed", svc.saved.Comment)
		assert.Equal(t, []string{"sop.pdf"}, svc.saved.EvidenceFiles)
		assert.False(t, svc.saved.UpdatedAt.IsZero())
	})

	t.Run("pending is accepted", func(t *testing.T) {
		svc := &stubService{
			ack: &models.Ack{SavedAt: savedAt, Pending: true},
			err: dErrors.New(dErrors.CodeUnavailable, "draft kept locally"),
		}
		rec := testutil.DoRequest(newRouter(svc, auditID), testutil.NewJSONRequest(t, http.MethodPut, path, map[string]any{"value": "partial"}))
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.True(t, testutil.DecodeJSON[models.AckView](t, rec).Pending)
	})

	t.Run("missing value", func(t *testing.T) {
		rec := testutil.DoRequest(newRouter(&stubService{}, auditID), testutil.NewJSONRequest(t, http.MethodPut, path, map[string]any{"comment": "later"}))
		testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "validation_error")
	})

	t.Run("finished audit", func(t *testing.T) {
		svc := &stubService{err: dErrors.New(dErrors.CodeInvalidState, "audit is closed")}
		rec := testutil.DoRequest(newRouter(svc, auditID), testutil.NewJSONRequest(t, http.MethodPut, path, map[string]any{"value": "compliant"}))
		testutil.AssertStatusAndError(t, rec, http.StatusConflict, "invalid_state")
	})

	t.Run("malformed audit id", func(t *testing.T) {
		rec := testutil.DoRequest(newRouter(&stubService{}, auditID), testutil.NewJSONRequest(t, http.MethodPut, "/audits/nope/responses/Q1", map[string]any{"value": "compliant"}))
		testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "invalid_input")
	})
}

func TestListResponses(t *testing.T) {
	auditID := domain.NewAuditID()
	router := newRouter(&stubService{}, auditID)

	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/audits/"+auditID.String()+"/responses", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := testutil.DecodeJSON[listResponse](t, rec)
	require.Len(t, body.Responses, 1)
	assert.True(t, body.Responses[0].Pending)

	rec = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/audits/"+domain.NewAuditID().String()+"/responses", nil))
	testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")

	rec = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/audits/"+auditID.String()+"/responses/Q7", nil))
	testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")
}

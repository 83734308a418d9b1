package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qara/internal/actions/models"
	"qara/internal/actions/service"
	"qara/internal/actions/store"
	audit "qara/internal/audit/models"
	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
	"qara/pkg/testutil"
)

type stubAudits struct{ a *audit.Audit }

func (s stubAudits) Get(_ context.Context, id domain.AuditID) (*audit.Audit, error) {
	if id != s.a.ID {
		return nil, dErrors.New(dErrors.CodeNotFound, "audit not found")
	}
	return s.a, nil
}

func TestActionsHandler(t *testing.T) {
	a := &audit.Audit{ID: domain.NewAuditID(), Status: audit.StatusInProgress, QuestionKeys: []string{"Q1"}}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	r := chi.NewRouter()
	New(service.New(store.NewInMemory(), stubAudits{a: a}), logger).Register(r)
	base := "/audits/" + a.ID.String() + "/actions"

	rec := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, base, map[string]any{
		"question_key": "Q1",
		"title":        "Retrain operators",
		"due_date":     "2026-05-01T00:00:00Z",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := testutil.DecodeJSON[models.View](t, rec)
	assert.Equal(t, models.StatusOpen, created.Status)
	require.NotNil(t, created.DueDate)

	rec = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, base+"/"+created.ID+"/complete", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.StatusDone, testutil.DecodeJSON[models.View](t, rec).Status)

	rec = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, base+"/"+created.ID+"/complete", nil))
	testutil.AssertStatusAndError(t, rec, http.StatusConflict, "invalid_state")

	rec = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, base, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, testutil.DecodeJSON[listResponse](t, rec).Actions, 1)

	t.Run("errors", func(t *testing.T) {
		rec := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, base, map[string]any{"question_key": "Q1"}))
		testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "validation_error")

		rec = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/audits/"+domain.NewAuditID().String()+"/actions", nil))
		testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")

		rec = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, base+"/bogus/complete", nil))
		testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "invalid_input")
	})
}

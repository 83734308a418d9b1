//go:build integration

package remote_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"qara/internal/responses/models"
	"qara/internal/responses/store/remote"
	"qara/pkg/domain"
	"qara/pkg/platform/sentinel"
	"qara/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *remote.PostgresStore
	auditID  domain.AuditID
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = remote.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "responses", "audit_questions", "audits"))
	s.auditID = domain.NewAuditID()
	_, err := s.postgres.Pool.Exec(ctx, `
		INSERT INTO audits (id, type, name, referentials, economic_role, processes, market, site_id, organization_id, owner_id, status, created_at, updated_at)
		VALUES ($1, 'internal', 'Integration', '{EU_MDR}', 'manufacturer', '{}', '', '', '', 'tester', 'draft', now(), now())`,
		uuid.UUID(s.auditID))
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestUpsertGuard() {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := models.Response{AuditID: s.auditID, QuestionKey: "Q1", Value: models.ValueNonCompliant, Comment: "gap", UpdatedAt: at}
	older := models.Response{AuditID: s.auditID, QuestionKey: "Q1", Value: models.ValueCompliant, UpdatedAt: at.Add(-time.Minute)}

	s.Require().NoError(s.store.Upsert(ctx, newer))
	s.ErrorIs(s.store.Upsert(ctx, older), sentinel.ErrStale)

	got, err := s.store.Get(ctx, s.auditID, "Q1")
	s.Require().NoError(err)
	s.Equal(models.ValueNonCompliant, got.Value)
	s.Equal("gap", got.Comment)
	s.Empty(got.EvidenceFiles)

	list, err := s.store.List(ctx, s.auditID)
	s.Require().NoError(err)
	s.Len(list, 1)

	s.Require().NoError(s.store.DeleteAudit(ctx, s.auditID))
	_, err = s.store.Get(ctx, s.auditID, "Q1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

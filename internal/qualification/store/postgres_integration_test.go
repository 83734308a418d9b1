//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"qara/internal/qualification/models"
	"qara/internal/qualification/store"
	"qara/pkg/domain"
	"qara/pkg/platform/sentinel"
	"qara/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "qualification_profiles"))
}

func (s *PostgresStoreSuite) TestSaveOverwrites() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := s.store.FindByUser(ctx, "u-1")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Save(ctx, &models.Profile{
		UserID: "u-1", EconomicRole: domain.RoleImporter, Markets: []string{"EU"},
		Standards: []string{}, Processes: []string{}, UpdatedAt: now,
	}))
	s.Require().NoError(s.store.Save(ctx, &models.Profile{
		UserID: "u-1", EconomicRole: domain.RoleDistributor, Markets: []string{"US"},
		Standards: []string{}, Processes: []string{"vigilance"}, UpdatedAt: now.Add(time.Second),
	}))

	got, err := s.store.FindByUser(ctx, "u-1")
	s.Require().NoError(err)
	s.Equal(domain.RoleDistributor, got.EconomicRole)
	s.Equal([]string{"US"}, got.Markets)
	s.Equal([]string{"vigilance"}, got.Processes)
}

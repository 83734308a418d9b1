package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"qara/internal/qualification/models"
	"qara/pkg/domain"
	"qara/pkg/platform/sentinel"
)

// PostgresStore persists profiles in qualification_profiles.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) FindByUser(ctx context.Context, userID string) (*models.Profile, error) {
	var (
		p    models.Profile
		role string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, economic_role, markets, standards, processes, updated_at
		FROM qualification_profiles
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &role, &p.Markets, &p.Standards, &p.Processes, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find qualification profile: %w", err)
	}
	p.EconomicRole = domain.EconomicRole(role)
	return &p, nil
}

func (s *PostgresStore) Save(ctx context.Context, p *models.Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO qualification_profiles (user_id, economic_role, markets, standards, processes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			economic_role = EXCLUDED.economic_role,
			markets = EXCLUDED.markets,
			standards = EXCLUDED.standards,
			processes = EXCLUDED.processes,
			updated_at = EXCLUDED.updated_at
	`, p.UserID, string(p.EconomicRole), p.Markets, p.Standards, p.Processes, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save qualification profile: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"qara/internal/audit/models"
	"qara/pkg/domain"
	"qara/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists audits and their frozen question keys. Responses and
// actions reference audits with ON DELETE CASCADE.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const selectAudit = `
	SELECT a.id, a.type, a.name, a.referentials, a.economic_role, a.processes,
	       a.market, a.site_id, a.organization_id, a.owner_id, a.status,
	       a.score, a.conformity_rate, a.created_at, a.updated_at,
	       a.started_at, a.completed_at, a.closed_at,
	       COALESCE(
	           (SELECT array_agg(q.question_key ORDER BY q.position)
	            FROM audit_questions q WHERE q.audit_id = a.id),
	           '{}'
	       )
	FROM audits a`

func (s *PostgresStore) Create(ctx context.Context, a *models.Audit) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin audit insert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO audits (id, type, name, referentials, economic_role, processes,
			market, site_id, organization_id, owner_id, status, score, conformity_rate,
			created_at, updated_at, started_at, completed_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, uuid.UUID(a.ID), a.Type, a.Name, a.Referentials, string(a.EconomicRole), nonNil(a.Processes),
		a.Market, a.SiteID, a.OrganizationID, a.OwnerID, string(a.Status), a.Score, a.ConformityRate,
		a.CreatedAt, a.UpdatedAt, a.StartedAt, a.CompletedAt, a.ClosedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert audit: %w", err)
	}

	rows := make([][]any, len(a.QuestionKeys))
	for i, key := range a.QuestionKeys {
		rows[i] = []any{uuid.UUID(a.ID), i, key}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"audit_questions"},
		[]string{"audit_id", "position", "question_key"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("insert audit questions: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.AuditID) (*models.Audit, error) {
	a, err := scanAudit(s.pool.QueryRow(ctx, selectAudit+` WHERE a.id = $1`, uuid.UUID(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find audit: %w", err)
	}
	return a, nil
}

// Update writes the mutable columns: status, lifecycle timestamps and cached scores.
func (s *PostgresStore) Update(ctx context.Context, a *models.Audit) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE audits SET
			status = $2, score = $3, conformity_rate = $4, updated_at = $5,
			started_at = $6, completed_at = $7, closed_at = $8
		WHERE id = $1
	`, uuid.UUID(a.ID), string(a.Status), a.Score, a.ConformityRate, a.UpdatedAt,
		a.StartedAt, a.CompletedAt, a.ClosedAt)
	if err != nil {
		return fmt.Errorf("update audit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.AuditID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM audits WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("delete audit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Audit, error) {
	rows, err := s.pool.Query(ctx, selectAudit+` ORDER BY a.created_at, a.id`)
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	var out []*models.Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAudit(row pgx.Row) (*models.Audit, error) {
	var (
		a            models.Audit
		id           uuid.UUID
		role, status string
	)
	err := row.Scan(&id, &a.Type, &a.Name, &a.Referentials, &role, &a.Processes,
		&a.Market, &a.SiteID, &a.OrganizationID, &a.OwnerID, &status,
		&a.Score, &a.ConformityRate, &a.CreatedAt, &a.UpdatedAt,
		&a.StartedAt, &a.CompletedAt, &a.ClosedAt, &a.QuestionKeys)
	if err != nil {
		return nil, err
	}
	a.ID = domain.AuditID(id)
	a.EconomicRole = domain.EconomicRole(role)
	a.Status = models.Status(status)
	return &a, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

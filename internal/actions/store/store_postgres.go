package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"qara/internal/actions/models"
	"qara/pkg/domain"
	"qara/pkg/platform/sentinel"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const selectAction = `
	SELECT id, audit_id, question_key, title, status, due_date, created_at, updated_at, completed_at
	FROM actions`

func (s *PostgresStore) Create(ctx context.Context, a *models.Action) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO actions (id, audit_id, question_key, title, status, due_date, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.UUID(a.ID), uuid.UUID(a.AuditID), a.QuestionKey, a.Title, string(a.Status),
		a.DueDate, a.CreatedAt, a.UpdatedAt, a.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ActionID) (*models.Action, error) {
	a, err := scanAction(s.pool.QueryRow(ctx, selectAction+` WHERE id = $1`, uuid.UUID(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find action: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Update(ctx context.Context, a *models.Action) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE actions SET title = $2, status = $3, due_date = $4, updated_at = $5, completed_at = $6
		WHERE id = $1
	`, uuid.UUID(a.ID), a.Title, string(a.Status), a.DueDate, a.UpdatedAt, a.CompletedAt)
	if err != nil {
		return fmt.Errorf("update action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByAudit(ctx context.Context, auditID domain.AuditID) ([]*models.Action, error) {
	return s.query(ctx, selectAction+` WHERE audit_id = $1 ORDER BY created_at, id`, uuid.UUID(auditID))
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Action, error) {
	return s.query(ctx, selectAction+` ORDER BY created_at, id`)
}

// DeleteAudit is a no-op beyond the foreign key cascade; it exists so the
// store satisfies the same cascade contract as the memory store.
func (s *PostgresStore) DeleteAudit(ctx context.Context, auditID domain.AuditID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM actions WHERE audit_id = $1`, uuid.UUID(auditID))
	if err != nil {
		return fmt.Errorf("delete audit actions: %w", err)
	}
	return nil
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]*models.Action, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var out []*models.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAction(row pgx.Row) (*models.Action, error) {
	var (
		a       models.Action
		id, aid uuid.UUID
		status  string
	)
	if err := row.Scan(&id, &aid, &a.QuestionKey, &a.Title, &status, &a.DueDate,
		&a.CreatedAt, &a.UpdatedAt, &a.CompletedAt); err != nil {
		return nil, err
	}
	a.ID = domain.ActionID(id)
	a.AuditID = domain.AuditID(aid)
	a.Status = models.Status(status)
	return &a, nil
}

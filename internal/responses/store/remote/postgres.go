package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"qara/internal/responses/models"
	"qara/pkg/domain"
	"qara/pkg/platform/sentinel"
)

// PostgresStore keeps one row per (audit, question).
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const selectResponse = `
	SELECT audit_id, question_key, value, comment, evidence_files, updated_at
	FROM responses`

func (s *PostgresStore) Get(ctx context.Context, auditID domain.AuditID, questionKey string) (*models.Response, error) {
	r, err := scanResponse(s.pool.QueryRow(ctx,
		selectResponse+` WHERE audit_id = $1 AND question_key = $2`,
		uuid.UUID(auditID), questionKey))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) List(ctx context.Context, auditID domain.AuditID) ([]models.Response, error) {
	return s.query(ctx, selectResponse+` WHERE audit_id = $1 ORDER BY question_key`, uuid.UUID(auditID))
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]models.Response, error) {
	return s.query(ctx, selectResponse+` ORDER BY audit_id, question_key`)
}

// Upsert applies last-write-wins: the update only runs when the stored row is
// not newer than r. A skipped update reports sentinel.ErrStale.
func (s *PostgresStore) Upsert(ctx context.Context, r models.Response) error {
	files := r.EvidenceFiles
	if files == nil {
		files = []string{}
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO responses (audit_id, question_key, value, comment, evidence_files, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (audit_id, question_key) DO UPDATE SET
			value = EXCLUDED.value,
			comment = EXCLUDED.comment,
			evidence_files = EXCLUDED.evidence_files,
			updated_at = EXCLUDED.updated_at
		WHERE responses.updated_at <= EXCLUDED.updated_at
	`, uuid.UUID(r.AuditID), r.QuestionKey, string(r.Value), r.Comment, files, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert response: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrStale
	}
	return nil
}

func (s *PostgresStore) DeleteAudit(ctx context.Context, auditID domain.AuditID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM responses WHERE audit_id = $1`, uuid.UUID(auditID)); err != nil {
		return fmt.Errorf("delete audit responses: %w", err)
	}
	return nil
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]models.Response, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var out []models.Response
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanResponse(row pgx.Row) (*models.Response, error) {
	var (
		r     models.Response
		id    uuid.UUID
		value string
	)
	if err := row.Scan(&id, &r.QuestionKey, &value, &r.Comment, &r.EvidenceFiles, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.AuditID = domain.AuditID(id)
	r.Value = models.Value(value)
	return &r, nil
}

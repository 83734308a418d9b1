package service

import (
	"context"
	"log/slog"

	"qara/internal/catalog"
	responses "qara/internal/responses/models"
	"qara/internal/scoring"
	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
)

const topRiskCount = 5

// ResponseReader returns the effective responses of an audit, local drafts
// included.
type ResponseReader interface {
	List(ctx context.Context, auditID domain.AuditID) ([]responses.Response, error)
}

// Report is the full scoring view of one audit.
type Report struct {
	AuditID       string          `json:"audit_id"`
	Summary       scoring.Summary `json:"summary"`
	ByProcess     []scoring.Group `json:"by_process"`
	ByCriticality []scoring.Group `json:"by_criticality"`
	ByReferential []scoring.Group `json:"by_referential"`
	TopRisks      []scoring.Risk  `json:"top_risks"`
}

// Scorer recomputes an audit's score on demand and caches it on the audit.
type Scorer struct {
	audits    *Service
	questions QuestionSource
	responses ResponseReader
	logger    *slog.Logger
}

func NewScorer(audits *Service, questions QuestionSource, rs ResponseReader, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{audits: audits, questions: questions, responses: rs, logger: logger}
}

func (s *Scorer) Score(ctx context.Context, id domain.AuditID) (*Report, error) {
	a, err := s.audits.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	qs, err := s.questions.Lookup(a.QuestionKeys)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "audit references questions missing from the catalog")
	}
	rs, err := s.responses.List(ctx, id)
	if err != nil {
		return nil, err
	}

	sheet := scoring.NewSheet(qs, rs, a.SiteID)
	report := &Report{
		AuditID:       id.String(),
		Summary:       scoring.Score(sheet),
		ByProcess:     scoring.Breakdown(sheet, scoring.DimensionProcess),
		ByCriticality: scoring.Breakdown(sheet, scoring.DimensionCriticality),
		ByReferential: scoring.Breakdown(sheet, scoring.DimensionReferential),
		TopRisks:      scoring.TopRisks(sheet, topRiskCount),
	}
	if report.TopRisks == nil {
		report.TopRisks = []scoring.Risk{}
	}

	if err := s.audits.SaveScore(ctx, id, report.Summary.Score, report.Summary.ConformityRate); err != nil {
		s.logger.WarnContext(ctx, "failed to cache audit score", "audit_id", id, "error", err)
	}
	return report, nil
}

var _ QuestionSource = (*catalog.Catalog)(nil)

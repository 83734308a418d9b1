package service

import (
	"context"
	"errors"
	"log/slog"

	"qara/internal/actions/models"
	audit "qara/internal/audit/models"
	"qara/internal/events"
	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
	"qara/pkg/platform/sentinel"
	"qara/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, a *models.Action) error
	FindByID(ctx context.Context, id domain.ActionID) (*models.Action, error)
	Update(ctx context.Context, a *models.Action) error
	ListByAudit(ctx context.Context, auditID domain.AuditID) ([]*models.Action, error)
}

type AuditReader interface {
	Get(ctx context.Context, id domain.AuditID) (*audit.Audit, error)
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Service manages corrective actions.
type Service struct {
	store       Store
	audits      AuditReader
	publisher   Publisher
	invalidator Invalidator
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithInvalidator(i Invalidator) Option {
	return func(s *Service) {
		s.invalidator = i
	}
}

func New(store Store, audits AuditReader, opts ...Option) *Service {
	s := &Service{store: store, audits: audits, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create raises an action against a question of the audit. Closed audits
// accept no new actions.
func (s *Service) Create(ctx context.Context, auditID domain.AuditID, req *models.CreateRequest) (*models.Action, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	a, err := s.audits.Get(ctx, auditID)
	if err != nil {
		return nil, err
	}
	if a.Status == audit.StatusClosed {
		return nil, dErrors.New(dErrors.CodeInvalidState, "audit is closed")
	}
	if !a.HasQuestion(req.QuestionKey) {
		return nil, dErrors.New(dErrors.CodeNotFound, "question is not part of this audit")
	}

	now := requestcontext.Now(ctx)
	action := &models.Action{
		ID:          domain.NewActionID(),
		AuditID:     auditID,
		QuestionKey: req.QuestionKey,
		Title:       req.Title,
		Status:      models.StatusOpen,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, action); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create action")
	}
	s.emit(ctx, events.ActionCreated, action)
	return action, nil
}

func (s *Service) Complete(ctx context.Context, auditID domain.AuditID, id domain.ActionID) (*models.Action, error) {
	action, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "action not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load action")
	}
	if action.AuditID != auditID {
		return nil, dErrors.New(dErrors.CodeNotFound, "action not found")
	}
	if err := action.Complete(requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, action); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete action")
	}
	s.emit(ctx, events.ActionCompleted, action)
	return action, nil
}

func (s *Service) List(ctx context.Context, auditID domain.AuditID) ([]*models.Action, error) {
	if _, err := s.audits.Get(ctx, auditID); err != nil {
		return nil, err
	}
	out, err := s.store.ListByAudit(ctx, auditID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list actions")
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, t events.Type, a *models.Action) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.Event{
		Type:        t,
		AuditID:     a.AuditID.String(),
		ActionID:    a.ID.String(),
		QuestionKey: a.QuestionKey,
		RequestID:   requestcontext.RequestID(ctx),
		OccurredAt:  requestcontext.Now(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish action event", "type", t, "action_id", a.ID, "error", err)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"qara/internal/applicability"
	"qara/internal/audit/metrics"
	"qara/internal/audit/models"
	"qara/internal/catalog"
	"qara/internal/events"
	qualification "qara/internal/qualification/models"
	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
	"qara/pkg/platform/sentinel"
	"qara/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, a *models.Audit) error
	FindByID(ctx context.Context, id domain.AuditID) (*models.Audit, error)
	Update(ctx context.Context, a *models.Audit) error
	Delete(ctx context.Context, id domain.AuditID) error
	List(ctx context.Context) ([]*models.Audit, error)
}

// QuestionSource is the published catalog.
type QuestionSource interface {
	Questions() []catalog.Question
	Lookup(keys []string) ([]catalog.Question, error)
}

type ProfileReader interface {
	Get(ctx context.Context, userID string) (*qualification.Profile, error)
}

// Cascade removes data owned by an audit outside the audit store.
type Cascade interface {
	DeleteAudit(ctx context.Context, id domain.AuditID) error
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Invalidator drops cached aggregates after a write.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Service owns audit creation and the lifecycle state machine.
type Service struct {
	store       Store
	questions   QuestionSource
	profiles    ProfileReader
	cascades    []Cascade
	publisher   Publisher
	invalidator Invalidator
	logger      *slog.Logger
	metrics     *metrics.Metrics

	// lifecycle serializes read-modify-write of audit status.
	lifecycle sync.Mutex
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
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

// WithCascade registers stores that hold per-audit data.
func WithCascade(c ...Cascade) Option {
	return func(s *Service) {
		s.cascades = append(s.cascades, c...)
	}
}

func New(store Store, questions QuestionSource, profiles ProfileReader, opts ...Option) *Service {
	s := &Service{
		store:     store,
		questions: questions,
		profiles:  profiles,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create resolves the applicable questions and freezes them with the
// caller's role and processes into a new draft audit.
func (s *Service) Create(ctx context.Context, ownerID string, req *models.CreateRequest) (*models.Audit, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	profile, err := s.profileFor(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}
	processes := req.Processes
	if len(processes) == 0 {
		processes = profile.Processes
	}

	resolved, err := applicability.Resolve(s.questions.Questions(), profile, applicability.Config{
		Referentials: req.Referentials,
		Processes:    processes,
	})
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 {
		s.metrics.IncrementNoApplicable()
		return nil, dErrors.New(dErrors.CodeNoApplicableQuestions,
			"no questions apply to this referential, role and process selection")
	}

	now := requestcontext.Now(ctx)
	a := &models.Audit{
		ID:             domain.NewAuditID(),
		Type:           req.Type,
		Name:           req.Name,
		Referentials:   req.Referentials,
		EconomicRole:   profile.EconomicRole,
		Processes:      processes,
		Market:         req.Market,
		SiteID:         req.SiteID,
		OrganizationID: req.OrganizationID,
		OwnerID:        ownerID,
		Status:         models.StatusDraft,
		QuestionKeys:   applicability.Keys(resolved),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create audit")
	}

	s.metrics.IncrementCreated()
	s.emit(ctx, events.AuditCreated, a.ID)
	s.logger.InfoContext(ctx, "audit created",
		"audit_id", a.ID,
		"economic_role", a.EconomicRole,
		"questions", len(a.QuestionKeys),
		"request_id", requestcontext.RequestID(ctx),
	)
	return a, nil
}

// profileFor returns the profile to freeze. An explicit role in the request
// overrides the saved profile's role.
func (s *Service) profileFor(ctx context.Context, ownerID string, req *models.CreateRequest) (qualification.Profile, error) {
	var profile qualification.Profile
	if ownerID != "" && s.profiles != nil {
		p, err := s.profiles.Get(ctx, ownerID)
		switch {
		case err == nil:
			profile = p.Snapshot()
		case dErrors.HasCode(err, dErrors.CodeNotFound):
		default:
			return profile, err
		}
	}
	if req.EconomicRole != "" {
		profile.EconomicRole = domain.EconomicRole(req.EconomicRole)
	}
	if profile.EconomicRole == "" {
		return profile, dErrors.New(dErrors.CodeValidation,
			"economic_role is required when no qualification profile is saved")
	}
	return profile, nil
}

func (s *Service) Get(ctx context.Context, id domain.AuditID) (*models.Audit, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load audit")
	}
	return a, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Audit, error) {
	audits, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audits")
	}
	return audits, nil
}

// ListQuestions returns the audit's frozen question set in navigation order.
func (s *Service) ListQuestions(ctx context.Context, id domain.AuditID) ([]catalog.Question, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.questions.Lookup(a.QuestionKeys)
}

// EnsureWritable rejects writes to unknown audits, finished audits and
// questions outside the frozen set.
func (s *Service) EnsureWritable(ctx context.Context, id domain.AuditID, questionKey string) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !a.Status.AcceptsResponses() {
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("audit is %s and no longer accepts responses", a.Status))
	}
	if !a.HasQuestion(questionKey) {
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("question %s is not part of this audit", questionKey))
	}
	return nil
}

// MarkStarted moves a draft audit to in_progress after its first saved
// response. Other states are left alone.
func (s *Service) MarkStarted(ctx context.Context, id domain.AuditID) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != models.StatusDraft {
		return nil
	}
	return s.transitionLocked(ctx, a, models.StatusInProgress, events.AuditStarted)
}

func (s *Service) Complete(ctx context.Context, id domain.AuditID) (*models.Audit, error) {
	return s.transition(ctx, id, models.StatusCompleted, events.AuditCompleted)
}

func (s *Service) Close(ctx context.Context, id domain.AuditID) (*models.Audit, error) {
	return s.transition(ctx, id, models.StatusClosed, events.AuditClosed)
}

func (s *Service) transition(ctx context.Context, id domain.AuditID, next models.Status, evt events.Type) (*models.Audit, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transitionLocked(ctx, a, next, evt); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) transitionLocked(ctx context.Context, a *models.Audit, next models.Status, evt events.Type) error {
	if err := a.Transition(next, requestcontext.Now(ctx)); err != nil {
		return err
	}
	if err := s.store.Update(ctx, a); err != nil {
		return translate(err, "failed to update audit status")
	}
	s.metrics.IncrementTransition(string(next))
	s.emit(ctx, evt, a.ID)
	s.logger.InfoContext(ctx, "audit status changed",
		"audit_id", a.ID,
		"status", next,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Delete removes the audit and everything it owns.
func (s *Service) Delete(ctx context.Context, id domain.AuditID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return translate(err, "failed to delete audit")
	}
	for _, c := range s.cascades {
		if err := c.DeleteAudit(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "audit cascade delete failed",
				"audit_id", id,
				"error", err,
			)
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete audit data")
		}
	}
	s.emit(ctx, events.AuditDeleted, id)
	return nil
}

// SaveScore caches the latest computed score on the audit row.
func (s *Service) SaveScore(ctx context.Context, id domain.AuditID, score, conformity int) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.Score != nil && *a.Score == score && a.ConformityRate != nil && *a.ConformityRate == conformity {
		return nil
	}
	a.Score = &score
	a.ConformityRate = &conformity
	if err := s.store.Update(ctx, a); err != nil {
		return translate(err, "failed to cache audit score")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, t events.Type, id domain.AuditID) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.Event{
		Type:       t,
		AuditID:    id.String(),
		RequestID:  requestcontext.RequestID(ctx),
		OccurredAt: requestcontext.Now(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"type", t,
			"audit_id", id,
			"error", err,
		)
	}
}

func translate(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "audit not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "audit already exists")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"qara/internal/qualification/models"
	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
	"qara/pkg/platform/sentinel"
	"qara/pkg/requestcontext"
)

type Store interface {
	FindByUser(ctx context.Context, userID string) (*models.Profile, error)
	Save(ctx context.Context, p *models.Profile) error
}

// Service reads and saves the active qualification profile of a user.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the user's profile, or CodeNotFound when none was saved yet.
func (s *Service) Get(ctx context.Context, userID string) (*models.Profile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	p, err := s.store.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no qualification profile saved")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load qualification profile")
	}
	return p, nil
}

// Save replaces the user's profile. Audits created earlier keep their frozen copy.
func (s *Service) Save(ctx context.Context, userID string, req *models.SaveRequest) (*models.Profile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := &models.Profile{
		UserID:       userID,
		EconomicRole: domain.EconomicRole(req.EconomicRole),
		Markets:      req.Markets,
		Standards:    req.Standards,
		Processes:    req.Processes,
		UpdatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Save(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save qualification profile")
	}
	s.logger.InfoContext(ctx, "qualification profile saved",
		"user_id", userID,
		"economic_role", p.EconomicRole,
		"request_id", requestcontext.RequestID(ctx),
	)
	return p, nil
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "user identity header is required")
	}
	return nil
}

package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
	pstrings "qara/pkg/platform/strings"
)

// Status is the audit lifecycle state.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusClosed     Status = "closed"
)

// Statuses lists every state in lifecycle order.
var Statuses = []Status{StatusDraft, StatusInProgress, StatusCompleted, StatusClosed}

func (s Status) IsValid() bool { return slices.Contains(Statuses, s) }

func (s Status) String() string { return string(s) }

// AcceptsResponses reports whether answers may still be written.
func (s Status) AcceptsResponses() bool {
	return s == StatusDraft || s == StatusInProgress
}

// CanTransitionTo allows only the forward edges of the lifecycle.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted
	case StatusCompleted:
		return next == StatusClosed
	default:
		return false
	}
}

// Audit is one questionnaire run. Role, processes and question keys are
// frozen at creation.
type Audit struct {
	ID             domain.AuditID
	Type           string
	Name           string
	Referentials   []string
	EconomicRole   domain.EconomicRole
	Processes      []string
	Market         string
	SiteID         string
	OrganizationID string
	OwnerID        string
	Status         Status
	QuestionKeys   []string
	Score          *int
	ConformityRate *int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	ClosedAt       *time.Time
}

// Clone returns a copy that shares no slices or pointers.
func (a *Audit) Clone() *Audit {
	c := *a
	c.Referentials = slices.Clone(a.Referentials)
	c.Processes = slices.Clone(a.Processes)
	c.QuestionKeys = slices.Clone(a.QuestionKeys)
	c.Score = clonePtr(a.Score)
	c.ConformityRate = clonePtr(a.ConformityRate)
	c.StartedAt = clonePtr(a.StartedAt)
	c.CompletedAt = clonePtr(a.CompletedAt)
	c.ClosedAt = clonePtr(a.ClosedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// HasQuestion reports whether key is part of the frozen question set.
func (a *Audit) HasQuestion(key string) bool {
	return slices.Contains(a.QuestionKeys, key)
}

// Transition moves the audit to next and stamps the matching timestamp.
func (a *Audit) Transition(next Status, now time.Time) error {
	if !a.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("audit cannot move from %s to %s", a.Status, next))
	}
	a.Status = next
	a.UpdatedAt = now
	switch next {
	case StatusInProgress:
		a.StartedAt = &now
	case StatusCompleted:
		a.CompletedAt = &now
	case StatusClosed:
		a.ClosedAt = &now
	}
	return nil
}

// CreateRequest is the body of POST /audits.
type CreateRequest struct {
	Type           string   `json:"type"`
	Name           string   `json:"name"`
	Referentials   []string `json:"referentials"`
	Processes      []string `json:"processes"`
	EconomicRole   string   `json:"economic_role"`
	Market         string   `json:"market"`
	SiteID         string   `json:"site_id"`
	OrganizationID string   `json:"organization_id"`
}

func (r *CreateRequest) Normalize() {
	r.Type = strings.TrimSpace(r.Type)
	r.Name = strings.TrimSpace(r.Name)
	r.Referentials = pstrings.DedupeAndTrim(r.Referentials)
	r.Processes = pstrings.DedupeAndTrim(r.Processes)
	r.EconomicRole = strings.ToLower(strings.TrimSpace(r.EconomicRole))
	r.Market = strings.TrimSpace(r.Market)
	r.SiteID = strings.TrimSpace(r.SiteID)
	r.OrganizationID = strings.TrimSpace(r.OrganizationID)
	if r.Type == "" {
		r.Type = "internal"
	}
}

func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > 200 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 200 characters")
	}
	if len(r.Referentials) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one referential is required")
	}
	if r.EconomicRole != "" && !domain.EconomicRole(r.EconomicRole).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "economic_role must be one of manufacturer, importer, distributor, authorized_representative")
	}
	return nil
}

// View is the wire shape of an audit.
type View struct {
	ID             string              `json:"id"`
	Type           string              `json:"type"`
	Name           string              `json:"name"`
	Referentials   []string            `json:"referentials"`
	EconomicRole   domain.EconomicRole `json:"economic_role"`
	Processes      []string            `json:"processes"`
	Market         string              `json:"market,omitempty"`
	SiteID         string              `json:"site_id,omitempty"`
	OrganizationID string              `json:"organization_id,omitempty"`
	Status         Status              `json:"status"`
	QuestionCount  int                 `json:"question_count"`
	Score          *int                `json:"score"`
	ConformityRate *int                `json:"conformity_rate"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	ClosedAt       *time.Time          `json:"closed_at,omitempty"`
}

func ToView(a *Audit) View {
	processes := a.Processes
	if processes == nil {
		processes = []string{}
	}
	return View{
		ID:             a.ID.String(),
		Type:           a.Type,
		Name:           a.Name,
		Referentials:   a.Referentials,
		EconomicRole:   a.EconomicRole,
		Processes:      processes,
		Market:         a.Market,
		SiteID:         a.SiteID,
		OrganizationID: a.OrganizationID,
		Status:         a.Status,
		QuestionCount:  len(a.QuestionKeys),
		Score:          a.Score,
		ConformityRate: a.ConformityRate,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		StartedAt:      a.StartedAt,
		CompletedAt:    a.CompletedAt,
		ClosedAt:       a.ClosedAt,
	}
}

package models

import (
	"strings"
	"time"

	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
)

// Status of a corrective action.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusInProgress || s == StatusDone
}

// Action is a corrective action raised against a question of an audit.
type Action struct {
	ID          domain.ActionID
	AuditID     domain.AuditID
	QuestionKey string
	Title       string
	Status      Status
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

func (a *Action) IsDone() bool { return a.Status == StatusDone }

// Complete marks the action done. Completing twice is a conflict.
func (a *Action) Complete(now time.Time) error {
	if a.IsDone() {
		return dErrors.New(dErrors.CodeInvalidState, "action is already done")
	}
	a.Status = StatusDone
	a.UpdatedAt = now
	a.CompletedAt = &now
	return nil
}

// CreateRequest is the body of POST /audits/{id}/actions.
type CreateRequest struct {
	QuestionKey string     `json:"question_key"`
	Title       string     `json:"title"`
	DueDate     *time.Time `json:"due_date"`
}

func (r *CreateRequest) Normalize() {
	r.QuestionKey = strings.TrimSpace(r.QuestionKey)
	r.Title = strings.TrimSpace(r.Title)
}

func (r *CreateRequest) Validate() error {
	if r.QuestionKey == "" {
		return dErrors.New(dErrors.CodeValidation, "question_key is required")
	}
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	return nil
}

// View is the wire shape of an action.
type View struct {
	ID          string     `json:"id"`
	AuditID     string     `json:"audit_id"`
	QuestionKey string     `json:"question_key"`
	Title       string     `json:"title"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func ToView(a *Action) View {
	return View{
		ID:          a.ID.String(),
		AuditID:     a.AuditID.String(),
		QuestionKey: a.QuestionKey,
		Title:       a.Title,
		Status:      a.Status,
		DueDate:     a.DueDate,
		CreatedAt:   a.CreatedAt,
		CompletedAt: a.CompletedAt,
	}
}

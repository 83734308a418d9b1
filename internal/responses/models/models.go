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

// Value is the respondent's compliance answer.
type Value string

const (
	ValueCompliant     Value = "compliant"
	ValueNonCompliant  Value = "non_compliant"
	ValuePartial       Value = "partial"
	ValueNotApplicable Value = "not_applicable"
	ValueInProgress    Value = "in_progress"
)

// Values lists every answer in display order.
var Values = []Value{ValueCompliant, ValueNonCompliant, ValuePartial, ValueNotApplicable, ValueInProgress}

func (v Value) IsValid() bool { return slices.Contains(Values, v) }

// IsFinding reports whether the answer raises a finding.
func (v Value) IsFinding() bool { return v == ValueNonCompliant || v == ValuePartial }

func (v Value) String() string { return string(v) }

// ParseValue normalizes and validates an answer.
func ParseValue(raw string) (Value, error) {
	v := Value(strings.ToLower(strings.TrimSpace(raw)))
	if !v.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown response value %q", raw))
	}
	return v, nil
}

// Response is the stored answer for one (audit, question) key.
type Response struct {
	AuditID       domain.AuditID
	QuestionKey   string
	Value         Value
	Comment       string
	EvidenceFiles []string
	UpdatedAt     time.Time
}

// Draft is the editable state of a response. A draft without a value is
// unanswered and is never written to the remote store.
type Draft struct {
	Value         Value     `json:"value,omitempty"`
	Comment       string    `json:"comment,omitempty"`
	EvidenceFiles []string  `json:"evidence_files,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (d Draft) HasValue() bool { return d.Value != "" }

// SameContent compares the answer fields and ignores UpdatedAt.
func (d Draft) SameContent(o Draft) bool {
	return d.Value == o.Value && d.Comment == o.Comment && slices.Equal(d.EvidenceFiles, o.EvidenceFiles)
}

// Clone returns a copy that shares no slices.
func (d Draft) Clone() Draft {
	d.EvidenceFiles = slices.Clone(d.EvidenceFiles)
	return d
}

// ToResponse binds the draft to its key.
func (d Draft) ToResponse(auditID domain.AuditID, questionKey string) Response {
	return Response{
		AuditID:       auditID,
		QuestionKey:   questionKey,
		Value:         d.Value,
		Comment:       d.Comment,
		EvidenceFiles: slices.Clone(d.EvidenceFiles),
		UpdatedAt:     d.UpdatedAt,
	}
}

// DraftOf projects a stored response back into a draft.
func DraftOf(r Response) Draft {
	return Draft{
		Value:         r.Value,
		Comment:       r.Comment,
		EvidenceFiles: slices.Clone(r.EvidenceFiles),
		UpdatedAt:     r.UpdatedAt,
	}
}

// Ack acknowledges a Put. Pending means the draft is only in the local cache
// and a retry is outstanding.
type Ack struct {
	SavedAt time.Time
	Pending bool
}

// SaveRequest is the body of PUT /audits/{id}/responses/{questionKey}.
type SaveRequest struct {
	Value         string   `json:"value"`
	Comment       string   `json:"comment"`
	EvidenceFiles []string `json:"evidence_files"`
}

func (r *SaveRequest) Normalize() {
	r.Value = strings.ToLower(strings.TrimSpace(r.Value))
	r.Comment = strings.TrimSpace(r.Comment)
	r.EvidenceFiles = pstrings.DedupeAndTrim(r.EvidenceFiles)
}

func (r *SaveRequest) Validate() error {
	if r.Value == "" {
		return dErrors.New(dErrors.CodeValidation, "a response value is required")
	}
	if !Value(r.Value).IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown response value %q", r.Value))
	}
	return nil
}

// ToDraft converts a validated request.
func (r *SaveRequest) ToDraft(now time.Time) Draft {
	return Draft{
		Value:         Value(r.Value),
		Comment:       r.Comment,
		EvidenceFiles: r.EvidenceFiles,
		UpdatedAt:     now,
	}
}

// View is the wire shape of a response, local or remote.
type View struct {
	QuestionKey   string    `json:"question_key"`
	Value         Value     `json:"value,omitempty"`
	Comment       string    `json:"comment"`
	EvidenceFiles []string  `json:"evidence_files"`
	UpdatedAt     time.Time `json:"updated_at"`
	Pending       bool      `json:"pending"`
}

// AckView is the body returned after a save.
type AckView struct {
	QuestionKey string    `json:"question_key"`
	SavedAt     time.Time `json:"saved_at"`
	Pending     bool      `json:"pending"`
}

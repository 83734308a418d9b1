package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "qara/pkg/domain-errors"
)

// AuditID identifies an audit. Typed IDs keep audit and action identifiers
// from being swapped at call sites.
type AuditID uuid.UUID

// ActionID identifies a corrective action.
type ActionID uuid.UUID

func NewAuditID() AuditID   { return AuditID(uuid.New()) }
func NewActionID() ActionID { return ActionID(uuid.New()) }

func (id AuditID) String() string  { return uuid.UUID(id).String() }
func (id AuditID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ActionID) String() string { return uuid.UUID(id).String() }
func (id ActionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs travel as plain UUID strings in JSON.
func (id AuditID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *AuditID) UnmarshalText(b []byte) error {
	parsed, err := ParseAuditID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ActionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *ActionID) UnmarshalText(b []byte) error {
	parsed, err := ParseActionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseAuditID validates an audit identifier at a trust boundary.
func ParseAuditID(s string) (AuditID, error) {
	u, err := parseUUID(s, "audit id")
	return AuditID(u), err
}

// ParseActionID validates an action identifier at a trust boundary.
func ParseActionID(s string) (ActionID, error) {
	u, err := parseUUID(s, "action id")
	return ActionID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be nil")
	}
	return u, nil
}

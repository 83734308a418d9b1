package models

import (
	"slices"
	"strings"
	"time"

	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
	pstrings "qara/pkg/platform/strings"
)

// Profile describes who answers audits. Only the economic role narrows
// applicability; markets and standards are informational.
type Profile struct {
	UserID       string
	EconomicRole domain.EconomicRole
	Markets      []string
	Standards    []string
	Processes    []string
	UpdatedAt    time.Time
}

// Snapshot returns a deep copy so audits can freeze it.
func (p Profile) Snapshot() Profile {
	p.Markets = slices.Clone(p.Markets)
	p.Standards = slices.Clone(p.Standards)
	p.Processes = slices.Clone(p.Processes)
	return p
}

// SaveRequest is the body of PUT /qualification.
type SaveRequest struct {
	EconomicRole string   `json:"economic_role"`
	Markets      []string `json:"markets"`
	Standards    []string `json:"standards"`
	Processes    []string `json:"processes"`
}

func (r *SaveRequest) Normalize() {
	r.EconomicRole = strings.ToLower(strings.TrimSpace(r.EconomicRole))
	r.Markets = pstrings.DedupeAndTrim(r.Markets)
	r.Standards = pstrings.DedupeAndTrim(r.Standards)
	r.Processes = pstrings.DedupeAndTrim(r.Processes)
}

func (r *SaveRequest) Validate() error {
	if r.EconomicRole == "" {
		return dErrors.New(dErrors.CodeValidation, "economic_role is required")
	}
	if !domain.EconomicRole(r.EconomicRole).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "economic_role must be one of manufacturer, importer, distributor, authorized_representative")
	}
	return nil
}

// ProfileResponse is the wire shape of a profile.
type ProfileResponse struct {
	EconomicRole domain.EconomicRole `json:"economic_role"`
	Markets      []string            `json:"markets"`
	Standards    []string            `json:"standards"`
	Processes    []string            `json:"processes"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func ToResponse(p *Profile) ProfileResponse {
	return ProfileResponse{
		EconomicRole: p.EconomicRole,
		Markets:      nonNil(p.Markets),
		Standards:    nonNil(p.Standards),
		Processes:    nonNil(p.Processes),
		UpdatedAt:    p.UpdatedAt,
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

package aggregation

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	audit "qara/internal/audit/models"
	"qara/internal/catalog"
	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
)

// All is the match-everything value of every filter field.
const All = "all"

// Filter narrows aggregations. Each field is independent; an empty field or
// All never narrows. From is inclusive, To exclusive; a zero time is open.
type Filter struct {
	Market       string    `json:"market"`
	EconomicRole string    `json:"economic_role"`
	Status       string    `json:"status"`
	Criticality  string    `json:"criticality"`
	SiteID       string    `json:"site"`
	From         time.Time `json:"from,omitzero"`
	To           time.Time `json:"to,omitzero"`
}

// AllFilter sets every field to All.
func AllFilter() Filter {
	return Filter{Market: All, EconomicRole: All, Status: All, Criticality: All, SiteID: All}
}

// Normalize maps empty fields to All and lowercases enumerations.
func (f Filter) Normalize() Filter {
	norm := func(s string, lower bool) string {
		s = strings.TrimSpace(s)
		if lower {
			s = strings.ToLower(s)
		}
		if s == "" || strings.EqualFold(s, All) {
			return All
		}
		return s
	}
	f.Market = norm(f.Market, false)
	f.EconomicRole = norm(f.EconomicRole, true)
	f.Status = norm(f.Status, true)
	f.Criticality = norm(f.Criticality, true)
	f.SiteID = norm(f.SiteID, false)
	return f
}

func (f Filter) Validate() error {
	f = f.Normalize()
	if f.EconomicRole != All && !domain.EconomicRole(f.EconomicRole).IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown economic role %q", f.EconomicRole))
	}
	if f.Status != All && !audit.Status(f.Status).IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown audit status %q", f.Status))
	}
	if f.Criticality != All && !catalog.Criticality(f.Criticality).IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown criticality %q", f.Criticality))
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return dErrors.New(dErrors.CodeValidation, "from must be before to")
	}
	return nil
}

// Key is a canonical form used in cache keys. Filters that select the same
// data share a key.
func (f Filter) Key() string {
	f = f.Normalize()
	ts := func(t time.Time) string {
		if t.IsZero() {
			return All
		}
		return t.UTC().Format(time.RFC3339)
	}
	return strings.Join([]string{
		"m=" + f.Market,
		"r=" + f.EconomicRole,
		"s=" + f.Status,
		"c=" + f.Criticality,
		"site=" + f.SiteID,
		"from=" + ts(f.From),
		"to=" + ts(f.To),
	}, "|")
}

func (f Filter) matchAudit(a *audit.Audit) bool {
	f = f.Normalize()
	switch {
	case f.Market != All && !strings.EqualFold(f.Market, a.Market):
		return false
	case f.EconomicRole != All && f.EconomicRole != a.EconomicRole.String():
		return false
	case f.Status != All && f.Status != a.Status.String():
		return false
	case f.SiteID != All && f.SiteID != a.SiteID:
		return false
	}
	return f.inWindow(a.CreatedAt)
}

func (f Filter) matchCriticality(c catalog.Criticality) bool {
	f = f.Normalize()
	return f.Criticality == All || f.Criticality == c.String()
}

func (f Filter) inWindow(t time.Time) bool {
	if !f.From.IsZero() && t.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !t.Before(f.To) {
		return false
	}
	return true
}

// ParseFilter reads a filter from query parameters: market, role, status,
// criticality, site, from and to (RFC 3339 or YYYY-MM-DD).
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		Market:       q.Get("market"),
		EconomicRole: q.Get("role"),
		Status:       q.Get("status"),
		Criticality:  q.Get("criticality"),
		SiteID:       q.Get("site"),
	}
	var err error
	if f.From, err = parseTime(q.Get("from")); err != nil {
		return Filter{}, err
	}
	if f.To, err = parseTime(q.Get("to")); err != nil {
		return Filter{}, err
	}
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, All) {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid time %q", raw))
}

package catalog

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
)

// Criticality is the severity tag used for risk ranking.
type Criticality string

const (
	CriticalityLow      Criticality = "low"
	CriticalityMedium   Criticality = "medium"
	CriticalityHigh     Criticality = "high"
	CriticalityCritical Criticality = "critical"
)

// Criticalities lists every level from least to most severe.
var Criticalities = []Criticality{CriticalityLow, CriticalityMedium, CriticalityHigh, CriticalityCritical}

// Severity ranks the level; unknown values rank below low.
func (c Criticality) Severity() int {
	switch c {
	case CriticalityLow:
		return 1
	case CriticalityMedium:
		return 2
	case CriticalityHigh:
		return 3
	case CriticalityCritical:
		return 4
	default:
		return 0
	}
}

func (c Criticality) IsValid() bool { return c.Severity() > 0 }

func (c Criticality) String() string { return string(c) }

// ParseCriticality normalizes and validates a criticality name.
func ParseCriticality(raw string) (Criticality, error) {
	c := Criticality(strings.ToLower(strings.TrimSpace(raw)))
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown criticality %q", raw))
	}
	return c, nil
}

// applicabilityAll is the catalog spelling of the unrestricted rule.
const applicabilityAll = "ALL"

// Applicability restricts a question to economic roles. The zero value
// matches nothing; use All for unrestricted questions.
type Applicability struct {
	All   bool
	Roles []domain.EconomicRole
}

// AllRoles is the unrestricted rule.
func AllRoles() Applicability { return Applicability{All: true} }

// OnlyRoles restricts to the given roles.
func OnlyRoles(roles ...domain.EconomicRole) Applicability {
	return Applicability{Roles: roles}
}

// Matches reports whether role may answer the question.
func (a Applicability) Matches(role domain.EconomicRole) bool {
	return a.All || slices.Contains(a.Roles, role)
}

func (a Applicability) equal(b Applicability) bool {
	return a.All == b.All && slices.Equal(a.Roles, b.Roles)
}

// UnmarshalYAML accepts either the scalar ALL or a list of role names.
func (a *Applicability) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if strings.EqualFold(strings.TrimSpace(node.Value), applicabilityAll) {
			*a = AllRoles()
			return nil
		}
		role, err := domain.ParseEconomicRole(node.Value)
		if err != nil {
			return err
		}
		*a = OnlyRoles(role)
		return nil
	case yaml.SequenceNode:
		var raw []string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		roles := make([]domain.EconomicRole, 0, len(raw))
		for _, r := range raw {
			role, err := domain.ParseEconomicRole(r)
			if err != nil {
				return err
			}
			roles = append(roles, role)
		}
		*a = OnlyRoles(roles...)
		return nil
	default:
		return fmt.Errorf("line %d: applicability must be ALL or a list of roles", node.Line)
	}
}

// MarshalJSON renders ALL or the role list.
func (a Applicability) MarshalJSON() ([]byte, error) {
	if a.All {
		return json.Marshal(applicabilityAll)
	}
	roles := a.Roles
	if roles == nil {
		roles = []domain.EconomicRole{}
	}
	return json.Marshal(roles)
}

// Question is a published catalog entry. Published questions never change.
type Question struct {
	Key              string        `yaml:"key" json:"key"`
	Referential      string        `yaml:"referential" json:"referential"`
	Process          string        `yaml:"process" json:"process"`
	Criticality      Criticality   `yaml:"criticality" json:"criticality"`
	Applicability    Applicability `yaml:"applicability" json:"applicability"`
	Title            string        `yaml:"title" json:"title"`
	Risk             string        `yaml:"risk" json:"risk,omitempty"`
	ExpectedEvidence string        `yaml:"expected_evidence" json:"expected_evidence,omitempty"`
	Sequence         int           `yaml:"sequence" json:"sequence"`
}

// Validate checks a question belongs to exactly one referential and process.
func (q Question) Validate() error {
	switch {
	case strings.TrimSpace(q.Key) == "":
		return dErrors.New(dErrors.CodeValidation, "question key is required")
	case strings.TrimSpace(q.Referential) == "":
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("question %s: referential is required", q.Key))
	case strings.TrimSpace(q.Process) == "":
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("question %s: process is required", q.Key))
	case !q.Criticality.IsValid():
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("question %s: invalid criticality %q", q.Key, q.Criticality))
	case !q.Applicability.All && len(q.Applicability.Roles) == 0:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("question %s: applicability is required", q.Key))
	}
	return nil
}

// sameContent compares every published field.
func (q Question) sameContent(o Question) bool {
	return q.Key == o.Key &&
		q.Referential == o.Referential &&
		q.Process == o.Process &&
		q.Criticality == o.Criticality &&
		q.Applicability.equal(o.Applicability) &&
		q.Title == o.Title &&
		q.Risk == o.Risk &&
		q.ExpectedEvidence == o.ExpectedEvidence &&
		q.Sequence == o.Sequence
}

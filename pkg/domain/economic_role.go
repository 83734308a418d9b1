package domain

import (
	"strings"

	dErrors "qara/pkg/domain-errors"
)

// EconomicRole is the respondent's legal position in the supply chain. It is
// the only profile attribute that narrows applicability.
type EconomicRole string

const (
	RoleManufacturer             EconomicRole = "manufacturer"
	RoleImporter                 EconomicRole = "importer"
	RoleDistributor              EconomicRole = "distributor"
	RoleAuthorizedRepresentative EconomicRole = "authorized_representative"
)

// EconomicRoles lists every supported role in a fixed order.
var EconomicRoles = []EconomicRole{
	RoleManufacturer,
	RoleImporter,
	RoleDistributor,
	RoleAuthorizedRepresentative,
}

// ParseEconomicRole normalizes and validates a role string.
func ParseEconomicRole(s string) (EconomicRole, error) {
	r := EconomicRole(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown economic role: "+s)
	}
	return r, nil
}

func (r EconomicRole) IsValid() bool {
	switch r {
	case RoleManufacturer, RoleImporter, RoleDistributor, RoleAuthorizedRepresentative:
		return true
	}
	return false
}

func (r EconomicRole) String() string { return string(r) }

package applicability

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"qara/internal/catalog"
	qualification "qara/internal/qualification/models"
	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
)

func q(key, ref, process string, seq int, rule catalog.Applicability) catalog.Question {
	return catalog.Question{
		Key:           key,
		Referential:   ref,
		Process:       process,
		Criticality:   catalog.CriticalityMedium,
		Applicability: rule,
		Title:         key,
		Sequence:      seq,
	}
}

func profile(role domain.EconomicRole) qualification.Profile {
	return qualification.Profile{UserID: "u", EconomicRole: role}
}

type ResolverSuite struct {
	suite.Suite
	questions []catalog.Question
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.questions = []catalog.Question{
		q("ISO-2", "ISO_13485", "capa", 2, catalog.AllRoles()),
		q("MDR-3", "EU_MDR", "vigilance", 1, catalog.AllRoles()),
		q("MDR-1", "EU_MDR", "traceability", 2, catalog.OnlyRoles(domain.RoleManufacturer, domain.RoleImporter)),
		q("MDR-2", "EU_MDR", "traceability", 1, catalog.OnlyRoles(domain.RoleDistributor)),
		q("ISO-1", "ISO_13485", "capa", 1, catalog.AllRoles()),
		q("FDA-1", "FDA_QSR", "capa", 1, catalog.AllRoles()),
	}
}

func (s *ResolverSuite) TestOrdering() {
	got, err := Resolve(s.questions, profile(domain.RoleManufacturer), Config{Referentials: []string{"EU_MDR", "ISO_13485"}})
	s.Require().NoError(err)
	s.Equal([]string{"MDR-1", "MDR-3", "ISO-1", "ISO-2"}, Keys(got))
}

func (s *ResolverSuite) TestDeterministic() {
	cfg := Config{Referentials: []string{"EU_MDR", "ISO_13485", "FDA_QSR"}}
	first, err := Resolve(s.questions, profile(domain.RoleImporter), cfg)
	s.Require().NoError(err)

	for range 20 {
		shuffled := append([]catalog.Question(nil), s.questions...)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		again, err := Resolve(shuffled, profile(domain.RoleImporter), cfg)
		s.Require().NoError(err)
		s.Equal(Keys(first), Keys(again))
	}
}

func (s *ResolverSuite) TestRoleRules() {
	cfg := Config{Referentials: []string{"EU_MDR"}}

	s.Run("distributor excluded from manufacturer and importer question", func() {
		got, err := Resolve(s.questions, profile(domain.RoleDistributor), cfg)
		s.Require().NoError(err)
		s.NotContains(Keys(got), "MDR-1")
		s.Contains(Keys(got), "MDR-2")
	})

	s.Run("ALL questions appear for every role", func() {
		for _, role := range domain.EconomicRoles {
			got, err := Resolve(s.questions, profile(role), cfg)
			s.Require().NoError(err)
			s.Contains(Keys(got), "MDR-3", "role %s", role)
		}
	})

	s.Run("scoped question appears iff role is listed", func() {
		for _, role := range domain.EconomicRoles {
			got, err := Resolve(s.questions, profile(role), cfg)
			s.Require().NoError(err)
			listed := role == domain.RoleManufacturer || role == domain.RoleImporter
			s.Equal(listed, contains(Keys(got), "MDR-1"), "role %s", role)
		}
	})
}

func (s *ResolverSuite) TestProcessFilter() {
	got, err := Resolve(s.questions, profile(domain.RoleManufacturer), Config{
		Referentials: []string{"EU_MDR", "ISO_13485"},
		Processes:    []string{"capa"},
	})
	s.Require().NoError(err)
	s.Equal([]string{"ISO-1", "ISO-2"}, Keys(got))
}

func (s *ResolverSuite) TestEmptyResultIsNotAnError() {
	got, err := Resolve(s.questions, profile(domain.RoleManufacturer), Config{Referentials: []string{"UKCA"}})
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *ResolverSuite) TestInputValidation() {
	_, err := Resolve(s.questions, profile(domain.RoleManufacturer), Config{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = Resolve(s.questions, profile("wholesaler"), Config{Referentials: []string{"EU_MDR"}})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestResolveShippedCatalogDistributor(t *testing.T) {
	qs, err := catalog.LoadFile("../../catalog/questions.yaml")
	require.NoError(t, err)

	got, err := Resolve(qs, profile(domain.RoleDistributor), Config{Referentials: []string{"EU_MDR"}})
	require.NoError(t, err)
	keys := Keys(got)
	assert.NotContains(t, keys, "MDR-TRC-001")
	assert.Contains(t, keys, "MDR-DIS-001")
	assert.Contains(t, keys, "MDR-VIG-001")
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
)

func question(key string) Question {
	return Question{
		Key:           key,
		Referential:   "EU_MDR",
		Process:       "vigilance",
		Criticality:   CriticalityHigh,
		Applicability: AllRoles(),
		Title:         "title " + key,
		Sequence:      1,
	}
}

type CatalogSuite struct {
	suite.Suite
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func (s *CatalogSuite) TestNew() {
	s.Run("rejects duplicate keys", func() {
		_, err := New([]Question{question("Q1"), question("Q1")})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects question without process", func() {
		q := question("Q1")
		q.Process = " "
		_, err := New([]Question{q})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects empty role list", func() {
		q := question("Q1")
		q.Applicability = Applicability{}
		_, err := New([]Question{q})
		s.Require().Error(err)
	})
}

func (s *CatalogSuite) TestLookup() {
	c, err := New([]Question{question("A"), question("B"), question("C")})
	s.Require().NoError(err)

	s.Run("preserves requested order", func() {
		qs, err := c.Lookup([]string{"C", "A"})
		s.Require().NoError(err)
		s.Equal([]string{"C", "A"}, []string{qs[0].Key, qs[1].Key})
	})

	s.Run("unknown key is not found", func() {
		_, err := c.Lookup([]string{"A", "Z"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *CatalogSuite) TestPublish() {
	s.Run("adds new questions and bumps version", func() {
		c, err := New([]Question{question("A")})
		s.Require().NoError(err)

		s.Require().NoError(c.Publish([]Question{question("A"), question("B")}))
		s.Equal(2, c.Version())
		_, ok := c.Get("B")
		s.True(ok)
	})

	s.Run("rejects a change to a published question", func() {
		c, err := New([]Question{question("A")})
		s.Require().NoError(err)

		changed := question("A")
		changed.Criticality = CriticalityLow
		err = c.Publish([]Question{changed})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		got, _ := c.Get("A")
		s.Equal(CriticalityHigh, got.Criticality)
		s.Equal(1, c.Version())
	})

	s.Run("rejects removal of a published question", func() {
		c, err := New([]Question{question("A"), question("B")})
		s.Require().NoError(err)

		err = c.Publish([]Question{question("A")})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestQuestionsReturnsCopy(t *testing.T) {
	c, err := New([]Question{question("A")})
	require.NoError(t, err)

	qs := c.Questions()
	qs[0].Title = "mutated"

	got, _ := c.Get("A")
	assert.Equal(t, "title A", got.Title)
}

func TestCriticalitySeverity(t *testing.T) {
	assert.Less(t, CriticalityLow.Severity(), CriticalityMedium.Severity())
	assert.Less(t, CriticalityMedium.Severity(), CriticalityHigh.Severity())
	assert.Less(t, CriticalityHigh.Severity(), CriticalityCritical.Severity())
	assert.Zero(t, Criticality("urgent").Severity())

	c, err := ParseCriticality(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, CriticalityHigh, c)

	_, err = ParseCriticality("urgent")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestApplicabilityMatches(t *testing.T) {
	assert.True(t, AllRoles().Matches(domain.RoleDistributor))
	scoped := OnlyRoles(domain.RoleManufacturer, domain.RoleImporter)
	assert.True(t, scoped.Matches(domain.RoleImporter))
	assert.False(t, scoped.Matches(domain.RoleDistributor))
	assert.False(t, Applicability{}.Matches(domain.RoleManufacturer))
}

func TestParse(t *testing.T) {
	t.Run("decodes ALL and role lists", func(t *testing.T) {
		qs, err := Parse(strings.NewReader(`
questions:
  - key: Q1
    referential: EU_MDR
    process: vigilance
    criticality: high
    applicability: ALL
    title: one
  - key: Q2
    referential: EU_MDR
    process: vigilance
    criticality: low
    applicability: [Manufacturer, importer]
    title: two
    sequence: 7
`))
		require.NoError(t, err)
		require.Len(t, qs, 2)
		assert.True(t, qs[0].Applicability.All)
		assert.Equal(t, 1, qs[0].Sequence)
		assert.Equal(t, []domain.EconomicRole{domain.RoleManufacturer, domain.RoleImporter}, qs[1].Applicability.Roles)
		assert.Equal(t, 7, qs[1].Sequence)
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		_, err := Parse(strings.NewReader(`
questions:
  - key: Q1
    applicability: [wholesaler]
`))
		assert.Error(t, err)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		_, err := Parse(strings.NewReader(`
questions:
  - key: Q1
    owner: someone
`))
		assert.Error(t, err)
	})
}

func TestLoadFileShippedCatalog(t *testing.T) {
	qs, err := LoadFile("../../catalog/questions.yaml")
	require.NoError(t, err)

	_, err = New(qs)
	require.NoError(t, err)
	assert.NotEmpty(t, qs)
}

package scoring

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"qara/internal/catalog"
	responses "qara/internal/responses/models"
)

var base = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func entry(key, process string, crit catalog.Criticality, v responses.Value, updated time.Time) Entry {
	e := Entry{
		Question: catalog.Question{
			Key:         key,
			Referential: "EU_MDR",
			Process:     process,
			Criticality: crit,
			Title:       "title " + key,
		},
		SiteID: "site-a",
	}
	if v != "" {
		e.Response = &responses.Response{QuestionKey: key, Value: v, UpdatedAt: updated}
	}
	return e
}

type ScoringSuite struct {
	suite.Suite
}

func TestScoringSuite(t *testing.T) {
	suite.Run(t, new(ScoringSuite))
}

func (s *ScoringSuite) TestReferenceAudit() {
	// 10 applicable questions, 6 answered: 4 compliant, 1 non compliant, 1 not applicable.
	values := []responses.Value{
		responses.ValueCompliant, responses.ValueCompliant, responses.ValueCompliant, responses.ValueCompliant,
		responses.ValueNonCompliant, responses.ValueNotApplicable,
		"", "", "", "",
	}
	var sheet Sheet
	for i, v := range values {
		sheet = append(sheet, entry(fmt.Sprintf("Q%02d", i), "vigilance", catalog.CriticalityHigh, v, base))
	}

	got := Score(sheet)

	s.Equal(10, got.Total)
	s.Equal(6, got.Answered)
	s.Equal(4, got.Compliant)
	s.Equal(1, got.NonCompliant)
	s.Equal(1, got.NotApplicable)
	s.Equal(80, got.ConformityRate)
	s.Equal(60, got.CompletionRate)
	s.Equal(80, got.Score)
}

func (s *ScoringSuite) TestZeroTotals() {
	s.Run("empty sheet", func() {
		got := Score(nil)
		s.Equal(Summary{}, got)
	})

	s.Run("only unanswered", func() {
		got := Score(Sheet{entry("Q1", "capa", catalog.CriticalityLow, "", base)})
		s.Equal(1, got.Total)
		s.Zero(got.ConformityRate)
		s.Zero(got.CompletionRate)
	})

	s.Run("only not applicable", func() {
		got := Score(Sheet{entry("Q1", "capa", catalog.CriticalityLow, responses.ValueNotApplicable, base)})
		s.Zero(got.ConformityRate)
		s.Equal(100, got.CompletionRate)
	})
}

func (s *ScoringSuite) TestPartialWeighsHalfInScore() {
	sheet := Sheet{
		entry("Q1", "capa", catalog.CriticalityLow, responses.ValueCompliant, base),
		entry("Q2", "capa", catalog.CriticalityLow, responses.ValuePartial, base),
	}
	got := Score(sheet)
	s.Equal(50, got.ConformityRate)
	s.Equal(75, got.Score)
}

func (s *ScoringSuite) TestBreakdown() {
	sheet := Sheet{
		entry("Q1", "vigilance", catalog.CriticalityHigh, responses.ValueCompliant, base),
		entry("Q2", "capa", catalog.CriticalityHigh, responses.ValueNonCompliant, base),
		entry("Q3", "capa", catalog.CriticalityLow, "", base),
	}

	s.Run("by process ordered by key", func() {
		groups := Breakdown(sheet, DimensionProcess)
		s.Require().Len(groups, 2)
		s.Equal("capa", groups[0].Key)
		s.Equal(2, groups[0].Total)
		s.Equal(1, groups[0].Answered)
		s.Equal("vigilance", groups[1].Key)
		s.Equal(100, groups[1].ConformityRate)
	})

	s.Run("by criticality lists every level", func() {
		groups := Breakdown(sheet, DimensionCriticality)
		s.Require().Len(groups, 4)
		s.Equal([]string{"critical", "high", "medium", "low"}, []string{groups[0].Key, groups[1].Key, groups[2].Key, groups[3].Key})
		s.Zero(groups[0].Total)
		s.Equal(2, groups[1].Total)
		s.Equal(50, groups[1].ConformityRate)
	})

	s.Run("group totals add up to the sheet", func() {
		for _, dim := range []Dimension{DimensionProcess, DimensionSite, DimensionCriticality, DimensionReferential} {
			total, answered := 0, 0
			for _, g := range Breakdown(sheet, dim) {
				total += g.Total
				answered += g.Answered
			}
			s.Equal(3, total, "dimension %s", dim)
			s.Equal(2, answered, "dimension %s", dim)
		}
	})
}

func (s *ScoringSuite) TestTopRisks() {
	sheet := Sheet{
		entry("A", "capa", catalog.CriticalityMedium, responses.ValueNonCompliant, base.Add(3*time.Hour)),
		entry("B", "capa", catalog.CriticalityCritical, responses.ValuePartial, base),
		entry("C", "capa", catalog.CriticalityCritical, responses.ValueNonCompliant, base.Add(time.Hour)),
		entry("D", "capa", catalog.CriticalityCritical, responses.ValueNonCompliant, base.Add(time.Hour)),
		entry("E", "capa", catalog.CriticalityCritical, responses.ValueCompliant, base.Add(5*time.Hour)),
		entry("F", "capa", catalog.CriticalityHigh, "", base),
	}

	got := TopRisks(sheet, 3)
	s.Require().Len(got, 3)
	s.Equal([]string{"C", "D", "B"}, []string{got[0].QuestionKey, got[1].QuestionKey, got[2].QuestionKey})

	all := TopRisks(sheet, 10)
	s.Len(all, 4)
	s.Equal("A", all[3].QuestionKey)
}

func TestCountInequalitiesHoldForRandomSheets(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	choices := append([]responses.Value{""}, responses.Values...)

	for i := range 500 {
		n := rng.IntN(30)
		sheet := make(Sheet, 0, n)
		for j := range n {
			v := choices[rng.IntN(len(choices))]
			crit := catalog.Criticalities[rng.IntN(len(catalog.Criticalities))]
			sheet = append(sheet, entry(fmt.Sprintf("Q%d", j), "p", crit, v, base))
		}

		got := Score(sheet)
		sum := got.Compliant + got.NonCompliant + got.Partial + got.NotApplicable + got.InProgress
		require.LessOrEqual(t, sum, got.Answered, "case %d", i)
		require.LessOrEqual(t, got.Answered, got.Total, "case %d", i)
		for _, rate := range []int{got.ConformityRate, got.CompletionRate, got.Score} {
			require.GreaterOrEqual(t, rate, 0)
			require.LessOrEqual(t, rate, 100)
		}
	}
}

func TestRate(t *testing.T) {
	assert.Equal(t, 0, Rate(0, 0))
	assert.Equal(t, 33, Rate(1, 3))
	assert.Equal(t, 67, Rate(2, 3))
	assert.Equal(t, 100, Rate(5, 0))
}

func TestNewSheetIgnoresForeignResponses(t *testing.T) {
	qs := []catalog.Question{{Key: "Q1"}, {Key: "Q2"}}
	rs := []responses.Response{
		{QuestionKey: "Q2", Value: responses.ValueCompliant},
		{QuestionKey: "Q9", Value: responses.ValueNonCompliant},
	}

	sheet := NewSheet(qs, rs, "site-1")

	require.Len(t, sheet, 2)
	assert.Nil(t, sheet[0].Response)
	require.NotNil(t, sheet[1].Response)
	assert.Equal(t, "site-1", sheet[1].SiteID)
	assert.Equal(t, 1, Score(sheet).Answered)
}

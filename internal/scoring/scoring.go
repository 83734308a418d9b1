// Package scoring turns a question set and its responses into counts and
// integer percentage rates. Every function is pure.
package scoring

import (
	"cmp"
	"math"
	"slices"
	"time"

	"qara/internal/catalog"
	responses "qara/internal/responses/models"
)

// Entry is one question of an audit with its response, if any.
type Entry struct {
	Question catalog.Question
	Response *responses.Response
	SiteID   string
}

func (e Entry) answered() bool { return e.Response != nil && e.Response.Value != "" }

// Sheet is the scored unit: the resolved question set of one or more audits.
type Sheet []Entry

// Summary holds counts and rates. Rates are integers in [0, 100].
type Summary struct {
	Total          int `json:"total"`
	Answered       int `json:"answered"`
	Compliant      int `json:"compliant"`
	NonCompliant   int `json:"non_compliant"`
	Partial        int `json:"partial"`
	NotApplicable  int `json:"not_applicable"`
	InProgress     int `json:"in_progress"`
	ConformityRate int `json:"conformity_rate"`
	CompletionRate int `json:"completion_rate"`
	// Score credits partial answers at half weight over the same denominator
	// as ConformityRate.
	Score int `json:"score"`
}

// Score summarizes every entry of the sheet.
func Score(sheet Sheet) Summary {
	var s Summary
	for _, e := range sheet {
		s.add(e)
	}
	s.finish()
	return s
}

func (s *Summary) add(e Entry) {
	s.Total++
	if !e.answered() {
		return
	}
	s.Answered++
	switch e.Response.Value {
	case responses.ValueCompliant:
		s.Compliant++
	case responses.ValueNonCompliant:
		s.NonCompliant++
	case responses.ValuePartial:
		s.Partial++
	case responses.ValueNotApplicable:
		s.NotApplicable++
	case responses.ValueInProgress:
		s.InProgress++
	}
}

func (s *Summary) finish() {
	applicable := s.Answered - s.NotApplicable
	s.ConformityRate = Rate(float64(s.Compliant), applicable)
	s.CompletionRate = Rate(float64(s.Answered), s.Total)
	s.Score = Rate(float64(s.Compliant)+float64(s.Partial)/2, applicable)
}

// Rate is round(num / max(den, 1) * 100), clamped to [0, 100].
func Rate(num float64, den int) int {
	r := int(math.Round(num / float64(max(den, 1)) * 100))
	return min(max(r, 0), 100)
}

// Dimension names a Breakdown grouping.
type Dimension string

const (
	DimensionProcess     Dimension = "process"
	DimensionSite        Dimension = "site"
	DimensionCriticality Dimension = "criticality"
	DimensionReferential Dimension = "referential"
)

func (d Dimension) IsValid() bool {
	switch d {
	case DimensionProcess, DimensionSite, DimensionCriticality, DimensionReferential:
		return true
	}
	return false
}

// Group is the summary of the entries sharing one dimension value.
type Group struct {
	Key string `json:"key"`
	Summary
}

// Breakdown groups the sheet by dim. Groups are ordered by key, except
// criticality which lists every level from most to least severe, including
// levels with no questions.
func Breakdown(sheet Sheet, dim Dimension) []Group {
	byKey := map[string]*Summary{}
	var order []string
	if dim == DimensionCriticality {
		for i := len(catalog.Criticalities) - 1; i >= 0; i-- {
			k := string(catalog.Criticalities[i])
			byKey[k] = &Summary{}
			order = append(order, k)
		}
	}

	for _, e := range sheet {
		k := keyOf(e, dim)
		s, ok := byKey[k]
		if !ok {
			s = &Summary{}
			byKey[k] = s
			order = append(order, k)
		}
		s.add(e)
	}

	if dim != DimensionCriticality {
		slices.Sort(order)
	}
	groups := make([]Group, 0, len(order))
	for _, k := range order {
		s := byKey[k]
		s.finish()
		groups = append(groups, Group{Key: k, Summary: *s})
	}
	return groups
}

func keyOf(e Entry, dim Dimension) string {
	switch dim {
	case DimensionProcess:
		return e.Question.Process
	case DimensionSite:
		return e.SiteID
	case DimensionCriticality:
		return string(e.Question.Criticality)
	case DimensionReferential:
		return e.Question.Referential
	default:
		return ""
	}
}

// Risk is an answered question that raised a finding.
type Risk struct {
	QuestionKey string              `json:"question_key"`
	Title       string              `json:"title"`
	Referential string              `json:"referential"`
	Process     string              `json:"process"`
	Criticality catalog.Criticality `json:"criticality"`
	Value       responses.Value     `json:"value"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TopRisks returns up to n findings ranked by criticality, then most recent
// update, then question key.
func TopRisks(sheet Sheet, n int) []Risk {
	var risks []Risk
	for _, e := range sheet {
		if !e.answered() || !e.Response.Value.IsFinding() {
			continue
		}
		risks = append(risks, Risk{
			QuestionKey: e.Question.Key,
			Title:       e.Question.Title,
			Referential: e.Question.Referential,
			Process:     e.Question.Process,
			Criticality: e.Question.Criticality,
			Value:       e.Response.Value,
			UpdatedAt:   e.Response.UpdatedAt,
		})
	}
	slices.SortFunc(risks, func(a, b Risk) int {
		return cmp.Or(
			cmp.Compare(b.Criticality.Severity(), a.Criticality.Severity()),
			b.UpdatedAt.Compare(a.UpdatedAt),
			cmp.Compare(a.QuestionKey, b.QuestionKey),
		)
	})
	if n >= 0 && len(risks) > n {
		risks = risks[:n]
	}
	return risks
}

// NewSheet pairs each question with its response by key. Responses for keys
// outside the question set are ignored.
func NewSheet(questions []catalog.Question, rs []responses.Response, siteID string) Sheet {
	byKey := make(map[string]*responses.Response, len(rs))
	for i := range rs {
		byKey[rs[i].QuestionKey] = &rs[i]
	}
	sheet := make(Sheet, len(questions))
	for i, q := range questions {
		sheet[i] = Entry{Question: q, Response: byKey[q.Key], SiteID: siteID}
	}
	return sheet
}

package aggregation

import (
	"fmt"
	"time"

	audit "qara/internal/audit/models"
	"qara/internal/catalog"
	responses "qara/internal/responses/models"
	"qara/internal/scoring"
	dErrors "qara/pkg/domain-errors"
)

// Summary is the KPI bundle of a filtered scope.
type Summary struct {
	Audits           int             `json:"audits"`
	ByStatus         map[string]int  `json:"by_status"`
	Responses        scoring.Summary `json:"responses"`
	AverageScore     int             `json:"average_score"`
	Findings         int             `json:"findings"`
	NonConformities  int             `json:"non_conformities"`
	Actions          int             `json:"actions"`
	OpenActions      int             `json:"open_actions"`
	CompletedActions int             `json:"completed_actions"`
	OverdueActions   int             `json:"overdue_actions"`
}

// SummaryOf computes the KPI bundle. AverageScore is the mean per-audit
// conformity rate over audits with at least one applicable answer.
func SummaryOf(ds *Dataset, f Filter) Summary {
	scoped := scope(ds, f)
	out := Summary{
		Audits:   len(scoped),
		ByStatus: make(map[string]int, len(audit.Statuses)),
	}
	for _, st := range audit.Statuses {
		out.ByStatus[st.String()] = 0
	}

	var rateSum, rated int
	for _, s := range scoped {
		out.ByStatus[s.audit.Status.String()]++
		sum := scoring.Score(s.sheet)
		if sum.Answered-sum.NotApplicable > 0 {
			rateSum += sum.ConformityRate
			rated++
		}
		for _, a := range s.actions {
			out.Actions++
			switch {
			case a.IsDone():
				out.CompletedActions++
			default:
				out.OpenActions++
				if a.DueDate != nil && a.DueDate.Before(ds.AsOf) {
					out.OverdueActions++
				}
			}
		}
	}
	out.Responses = scoring.Score(merged(scoped))
	out.Findings = out.Responses.NonCompliant + out.Responses.Partial
	out.NonConformities = out.Responses.NonCompliant
	out.AverageScore = scoring.Rate(float64(rateSum)/100, rated)
	return out
}

// Funnel stage names in order.
const (
	StageAudits           = "audits"
	StageFindings         = "findings"
	StageNonConformities  = "non_conformities"
	StageActions          = "actions"
	StageCompletedActions = "completed_actions"
)

// Stage is one funnel step. ConversionRate is count / previous count as an
// integer percentage, and 0 for the first stage or an empty previous stage.
type Stage struct {
	Name           string `json:"name"`
	Count          int    `json:"count"`
	ConversionRate int    `json:"conversion_rate"`
}

type Funnel struct {
	Stages []Stage `json:"stages"`
}

func FunnelOf(ds *Dataset, f Filter) Funnel {
	sum := SummaryOf(ds, f)
	counts := []struct {
		name  string
		count int
	}{
		{StageAudits, sum.Audits},
		{StageFindings, sum.Findings},
		{StageNonConformities, sum.NonConformities},
		{StageActions, sum.Actions},
		{StageCompletedActions, sum.CompletedActions},
	}
	out := Funnel{Stages: make([]Stage, len(counts))}
	for i, c := range counts {
		st := Stage{Name: c.name, Count: c.count}
		if i > 0 && counts[i-1].count > 0 {
			st.ConversionRate = scoring.Rate(float64(c.count), counts[i-1].count)
		}
		out.Stages[i] = st
	}
	return out
}

// Granularity is the bucket width of a time series.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

const maxBuckets = 1000

func ParseGranularity(raw string) (Granularity, error) {
	switch g := Granularity(raw); g {
	case "":
		return GranularityWeek, nil
	case GranularityDay, GranularityWeek, GranularityMonth:
		return g, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown granularity %q", raw))
}

func (g Granularity) truncate(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch g {
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case GranularityWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	default:
		return day
	}
}

func (g Granularity) next(t time.Time) time.Time {
	switch g {
	case GranularityMonth:
		return t.AddDate(0, 1, 0)
	case GranularityWeek:
		return t.AddDate(0, 0, 7)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// Bucket is one period of a time series. ConformityRate covers responses
// last updated within the period.
type Bucket struct {
	Start           time.Time `json:"start"`
	AuditsCreated   int       `json:"audits_created"`
	AuditsCompleted int       `json:"audits_completed"`
	ResponsesSaved  int       `json:"responses_saved"`
	Findings        int       `json:"findings"`
	ConformityRate  int       `json:"conformity_rate"`

	compliant  int
	applicable int
}

// TimeseriesOf returns contiguous buckets from the filter window, or from the
// first event to AsOf when the window is open.
func TimeseriesOf(ds *Dataset, f Filter, g Granularity) ([]Bucket, error) {
	scoped := scope(ds, f)

	type event struct {
		at    time.Time
		apply func(*Bucket)
	}
	var evs []event
	for _, s := range scoped {
		a := s.audit
		evs = append(evs, event{a.CreatedAt, func(b *Bucket) { b.AuditsCreated++ }})
		if a.CompletedAt != nil {
			evs = append(evs, event{*a.CompletedAt, func(b *Bucket) { b.AuditsCompleted++ }})
		}
		for _, e := range s.sheet {
			if e.Response == nil || e.Response.Value == "" {
				continue
			}
			v := e.Response.Value
			evs = append(evs, event{e.Response.UpdatedAt, func(b *Bucket) {
				b.ResponsesSaved++
				if v.IsFinding() {
					b.Findings++
				}
				if v != responses.ValueNotApplicable {
					b.applicable++
				}
				if v == responses.ValueCompliant {
					b.compliant++
				}
			}})
		}
	}

	from, to := f.From, f.To
	if from.IsZero() {
		for _, e := range evs {
			if from.IsZero() || e.at.Before(from) {
				from = e.at
			}
		}
	}
	if to.IsZero() {
		to = ds.AsOf
		for _, e := range evs {
			if !e.at.Before(to) {
				to = e.at.Add(time.Nanosecond)
			}
		}
	}
	if from.IsZero() || !from.Before(to) {
		return []Bucket{}, nil
	}

	var buckets []Bucket
	for start := g.truncate(from); start.Before(to); start = g.next(start) {
		if len(buckets) == maxBuckets {
			return nil, dErrors.New(dErrors.CodeValidation, "time window too large for the granularity")
		}
		buckets = append(buckets, Bucket{Start: start})
	}
	for _, e := range evs {
		if e.at.Before(from) || !e.at.Before(to) {
			continue
		}
		i := indexOf(buckets, g.truncate(e.at))
		if i >= 0 {
			e.apply(&buckets[i])
		}
	}
	for i := range buckets {
		buckets[i].ConformityRate = scoring.Rate(float64(buckets[i].compliant), buckets[i].applicable)
	}
	return buckets, nil
}

func indexOf(buckets []Bucket, start time.Time) int {
	lo, hi := 0, len(buckets)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case buckets[mid].Start.Equal(start):
			return mid
		case buckets[mid].Start.Before(start):
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return -1
}

// Cell is one process x criticality intersection.
type Cell struct {
	Criticality    catalog.Criticality `json:"criticality"`
	Total          int                 `json:"total"`
	Answered       int                 `json:"answered"`
	Findings       int                 `json:"findings"`
	ConformityRate int                 `json:"conformity_rate"`
}

type HeatmapRow struct {
	Process string `json:"process"`
	Cells   []Cell `json:"cells"`
}

// HeatmapOf has one row per catalog process and one cell per criticality
// level, zero-valued when nothing was observed.
func HeatmapOf(ds *Dataset, f Filter) []HeatmapRow {
	type key struct {
		process     string
		criticality catalog.Criticality
	}
	groups := map[key]scoring.Sheet{}
	for _, e := range merged(scope(ds, f)) {
		k := key{e.Question.Process, e.Question.Criticality}
		groups[k] = append(groups[k], e)
	}

	processes := ds.Processes()
	rows := make([]HeatmapRow, len(processes))
	for i, p := range processes {
		row := HeatmapRow{Process: p, Cells: make([]Cell, len(catalog.Criticalities))}
		for j, c := range catalog.Criticalities {
			sum := scoring.Score(groups[key{p, c}])
			row.Cells[j] = Cell{
				Criticality:    c,
				Total:          sum.Total,
				Answered:       sum.Answered,
				Findings:       sum.NonCompliant + sum.Partial,
				ConformityRate: sum.ConformityRate,
			}
		}
		rows[i] = row
	}
	return rows
}

// Axis is one radar dimension.
type Axis struct {
	Process        string `json:"process"`
	Total          int    `json:"total"`
	Answered       int    `json:"answered"`
	ConformityRate int    `json:"conformity_rate"`
	CompletionRate int    `json:"completion_rate"`
}

// RadarOf scores every catalog process; unobserved processes are zero.
func RadarOf(ds *Dataset, f Filter) []Axis {
	groups := map[string]scoring.Sheet{}
	for _, e := range merged(scope(ds, f)) {
		groups[e.Question.Process] = append(groups[e.Question.Process], e)
	}
	processes := ds.Processes()
	out := make([]Axis, len(processes))
	for i, p := range processes {
		sum := scoring.Score(groups[p])
		out[i] = Axis{
			Process:        p,
			Total:          sum.Total,
			Answered:       sum.Answered,
			ConformityRate: sum.ConformityRate,
			CompletionRate: sum.CompletionRate,
		}
	}
	return out
}

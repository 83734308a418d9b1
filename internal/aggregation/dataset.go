package aggregation

import (
	"slices"
	"time"

	actions "qara/internal/actions/models"
	audit "qara/internal/audit/models"
	"qara/internal/catalog"
	responses "qara/internal/responses/models"
	"qara/internal/scoring"
	"qara/pkg/domain"
)

// Dataset is everything the aggregations read, loaded once per query.
type Dataset struct {
	Audits    []*audit.Audit
	Questions map[string]catalog.Question
	Responses map[domain.AuditID][]responses.Response
	Actions   []*actions.Action
	AsOf      time.Time
}

// NewDataset indexes raw rows.
func NewDataset(audits []*audit.Audit, questions []catalog.Question, rs []responses.Response, as []*actions.Action, asOf time.Time) *Dataset {
	ds := &Dataset{
		Audits:    audits,
		Questions: make(map[string]catalog.Question, len(questions)),
		Responses: make(map[domain.AuditID][]responses.Response),
		Actions:   as,
		AsOf:      asOf,
	}
	for _, q := range questions {
		ds.Questions[q.Key] = q
	}
	for _, r := range rs {
		ds.Responses[r.AuditID] = append(ds.Responses[r.AuditID], r)
	}
	return ds
}

// Processes lists every catalog process, sorted. Heatmap and radar use it as
// their fixed axis so empty processes still get a cell.
func (ds *Dataset) Processes() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, q := range ds.Questions {
		if _, ok := seen[q.Process]; ok {
			continue
		}
		seen[q.Process] = struct{}{}
		out = append(out, q.Process)
	}
	slices.Sort(out)
	return out
}

// scopedAudit is one audit that passed the filter, with only the questions
// and actions that pass the criticality filter.
type scopedAudit struct {
	audit   *audit.Audit
	sheet   scoring.Sheet
	actions []*actions.Action
}

func scope(ds *Dataset, f Filter) []scopedAudit {
	f = f.Normalize()
	actionsByAudit := map[domain.AuditID][]*actions.Action{}
	for _, a := range ds.Actions {
		actionsByAudit[a.AuditID] = append(actionsByAudit[a.AuditID], a)
	}

	var out []scopedAudit
	for _, a := range ds.Audits {
		if !f.matchAudit(a) {
			continue
		}
		var qs []catalog.Question
		for _, key := range a.QuestionKeys {
			q, ok := ds.Questions[key]
			if ok && f.matchCriticality(q.Criticality) {
				qs = append(qs, q)
			}
		}
		var as []*actions.Action
		for _, act := range actionsByAudit[a.ID] {
			q, ok := ds.Questions[act.QuestionKey]
			if !ok || f.matchCriticality(q.Criticality) {
				as = append(as, act)
			}
		}
		out = append(out, scopedAudit{
			audit:   a,
			sheet:   scoring.NewSheet(qs, ds.Responses[a.ID], a.SiteID),
			actions: as,
		})
	}
	return out
}

func merged(scoped []scopedAudit) scoring.Sheet {
	var sheet scoring.Sheet
	for _, s := range scoped {
		sheet = append(sheet, s.sheet...)
	}
	return sheet
}

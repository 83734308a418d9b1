package aggregation

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	actions "qara/internal/actions/models"
	responses "qara/internal/responses/models"
	"qara/internal/scoring"
	dErrors "qara/pkg/domain-errors"
)

// DrilldownType selects the records listed behind an aggregate.
type DrilldownType string

const (
	DrilldownAudits          DrilldownType = "audits"
	DrilldownFindings        DrilldownType = "findings"
	DrilldownNonConformities DrilldownType = "non_conformities"
	DrilldownActions         DrilldownType = "actions"
)

func ParseDrilldownType(raw string) (DrilldownType, error) {
	switch t := DrilldownType(strings.ToLower(strings.TrimSpace(raw))); t {
	case DrilldownAudits, DrilldownFindings, DrilldownNonConformities, DrilldownActions:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("unknown drilldown %q", raw))
}

// Sortable row fields. Unknown fields sort by date.
const (
	SortDate        = "date"
	SortCriticality = "criticality"
	SortStatus      = "status"
	SortAudit       = "audit"
	SortProcess     = "process"
	SortTitle       = "title"
	SortScore       = "score"

	DirectionAsc  = "asc"
	DirectionDesc = "desc"

	DefaultPageSize = 20
	MaxPageSize     = 100
)

var sortFields = []string{SortDate, SortCriticality, SortStatus, SortAudit, SortProcess, SortTitle, SortScore}

// Query is the paging and ordering of one drilldown call.
type Query struct {
	Page      int
	PageSize  int
	Sort      string
	Direction string
}

// Normalize applies defaults: page size 20, sort by date descending.
func (q Query) Normalize() Query {
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Page == 0 {
		q.Page = 1
	}
	q.Sort = strings.ToLower(strings.TrimSpace(q.Sort))
	if !slices.Contains(sortFields, q.Sort) {
		q.Sort = SortDate
	}
	q.Direction = strings.ToLower(strings.TrimSpace(q.Direction))
	if q.Direction != DirectionAsc {
		q.Direction = DirectionDesc
	}
	return q
}

func (q Query) Validate() error {
	if q.Page < 1 {
		return dErrors.New(dErrors.CodeValidation, "page must be 1 or greater")
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("page_size must be between 1 and %d", MaxPageSize))
	}
	return nil
}

// Row is one drilldown record. Status holds the audit status, the response
// value or the action status depending on the type.
type Row struct {
	ID          string    `json:"id"`
	AuditID     string    `json:"audit_id"`
	AuditName   string    `json:"audit_name"`
	SiteID      string    `json:"site_id,omitempty"`
	QuestionKey string    `json:"question_key,omitempty"`
	Title       string    `json:"title,omitempty"`
	Process     string    `json:"process,omitempty"`
	Criticality string    `json:"criticality,omitempty"`
	Status      string    `json:"status"`
	Score       *int      `json:"score,omitempty"`
	OpenActions *int      `json:"open_actions,omitempty"`
	Date        time.Time `json:"date"`

	severity int
}

// Page is one slice of a sorted drilldown. Total counts the filtered rows
// before paging.
type Page struct {
	Type      DrilldownType `json:"type"`
	Rows      []Row         `json:"rows"`
	Total     int           `json:"total"`
	Page      int           `json:"page"`
	PageSize  int           `json:"page_size"`
	Sort      string        `json:"sort"`
	Direction string        `json:"direction"`
}

// DrilldownOf lists, sorts and pages the rows behind an aggregate.
func DrilldownOf(ds *Dataset, t DrilldownType, f Filter, q Query) (Page, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return Page{}, err
	}
	rows := rowsOf(ds, t, f)
	sortRows(rows, q.Sort, q.Direction)

	page := Page{Type: t, Total: len(rows), Page: q.Page, PageSize: q.PageSize, Sort: q.Sort, Direction: q.Direction, Rows: []Row{}}
	start := (q.Page - 1) * q.PageSize
	if start < len(rows) {
		end := min(start+q.PageSize, len(rows))
		page.Rows = rows[start:end]
	}
	return page, nil
}

func rowsOf(ds *Dataset, t DrilldownType, f Filter) []Row {
	var rows []Row
	for _, s := range scope(ds, f) {
		a := s.audit
		base := Row{AuditID: a.ID.String(), AuditName: a.Name, SiteID: a.SiteID}
		switch t {
		case DrilldownAudits:
			r := base
			r.ID = a.ID.String()
			r.Status = a.Status.String()
			rate := scoring.Score(s.sheet).ConformityRate
			r.Score = &rate
			open := openActions(s.actions)
			r.OpenActions = &open
			r.Date = a.CreatedAt
			rows = append(rows, r)
		case DrilldownFindings, DrilldownNonConformities:
			for _, e := range s.sheet {
				if e.Response == nil || !e.Response.Value.IsFinding() {
					continue
				}
				if t == DrilldownNonConformities && e.Response.Value != responses.ValueNonCompliant {
					continue
				}
				r := base
				r.ID = a.ID.String() + ":" + e.Question.Key
				r.QuestionKey = e.Question.Key
				r.Title = e.Question.Title
				r.Process = e.Question.Process
				r.Criticality = e.Question.Criticality.String()
				r.severity = e.Question.Criticality.Severity()
				r.Status = e.Response.Value.String()
				r.Date = e.Response.UpdatedAt
				rows = append(rows, r)
			}
		case DrilldownActions:
			for _, act := range s.actions {
				r := base
				r.ID = act.ID.String()
				r.QuestionKey = act.QuestionKey
				r.Title = act.Title
				if q, ok := ds.Questions[act.QuestionKey]; ok {
					r.Process = q.Process
					r.Criticality = q.Criticality.String()
					r.severity = q.Criticality.Severity()
				}
				r.Status = string(act.Status)
				r.Date = act.CreatedAt
				rows = append(rows, r)
			}
		}
	}
	return rows
}

func openActions(as []*actions.Action) int {
	n := 0
	for _, a := range as {
		if !a.IsDone() {
			n++
		}
	}
	return n
}

// sortRows orders by field and direction; ties always fall back to ascending
// row id so paging is stable.
func sortRows(rows []Row, field, direction string) {
	by := func(a, b Row) int {
		switch field {
		case SortCriticality:
			return cmp.Compare(a.severity, b.severity)
		case SortStatus:
			return cmp.Compare(a.Status, b.Status)
		case SortAudit:
			return cmp.Compare(a.AuditName, b.AuditName)
		case SortProcess:
			return cmp.Compare(a.Process, b.Process)
		case SortTitle:
			return cmp.Compare(a.Title, b.Title)
		case SortScore:
			return cmp.Compare(deref(a.Score), deref(b.Score))
		default:
			return a.Date.Compare(b.Date)
		}
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		c := by(a, b)
		if direction == DirectionDesc {
			c = -c
		}
		return cmp.Or(c, cmp.Compare(a.ID, b.ID))
	})
}

func deref(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

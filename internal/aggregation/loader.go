package aggregation

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	actions "qara/internal/actions/models"
	audit "qara/internal/audit/models"
	"qara/internal/catalog"
	responses "qara/internal/responses/models"
)

type AuditSource interface {
	List(ctx context.Context) ([]*audit.Audit, error)
}

// ResponseSource lists stored responses of every audit. Drafts that have not
// reached the remote store are not aggregated.
type ResponseSource interface {
	ListAll(ctx context.Context) ([]responses.Response, error)
}

type ActionSource interface {
	List(ctx context.Context) ([]*actions.Action, error)
}

type QuestionSource interface {
	Questions() []catalog.Question
}

// Loader reads a Dataset. The three store reads run in parallel and
// concurrent callers share one in-flight load.
type Loader struct {
	audits    AuditSource
	responses ResponseSource
	actions   ActionSource
	questions QuestionSource
	now       func() time.Time
	group     singleflight.Group
}

func NewLoader(audits AuditSource, rs ResponseSource, as ActionSource, qs QuestionSource) *Loader {
	return &Loader{audits: audits, responses: rs, actions: as, questions: qs, now: time.Now}
}

func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	v, err, _ := l.group.Do("dataset", func() (any, error) {
		var (
			auditRows  []*audit.Audit
			responseRs []responses.Response
			actionRows []*actions.Action
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			auditRows, err = l.audits.List(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			responseRs, err = l.responses.ListAll(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			actionRows, err = l.actions.List(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return NewDataset(auditRows, l.questions.Questions(), responseRs, actionRows, l.now()), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dataset), nil
}

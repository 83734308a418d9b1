package aggregation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	actions "qara/internal/actions/models"
	audit "qara/internal/audit/models"
	"qara/internal/catalog"
	responses "qara/internal/responses/models"
	dErrors "qara/pkg/domain-errors"
)

type countingLoader struct {
	ds    *Dataset
	err   error
	loads atomic.Int32
}

func (l *countingLoader) Load(context.Context) (*Dataset, error) {
	l.loads.Add(1)
	if l.err != nil {
		return nil, l.err
	}
	return l.ds, nil
}

type ServiceSuite struct {
	suite.Suite
	loader *countingLoader
	cache  *MemoryCache
	svc    *Service
	ctx    context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.loader = &countingLoader{ds: fixture()}
	s.cache = NewMemoryCache(time.Minute)
	s.svc = NewService(s.loader,
		WithCache(s.cache),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)
}

func (s *ServiceSuite) TestRepeatedQueryHitsCache() {
	first, err := s.svc.Summary(s.ctx, Filter{Market: "EU"})
	s.Require().NoError(err)
	second, err := s.svc.Summary(s.ctx, Filter{Market: "EU", Status: All})
	s.Require().NoError(err)

	s.Equal(first, second)
	s.Equal(int32(1), s.loader.loads.Load(), "equivalent filters share a cache entry")

	_, err = s.svc.Summary(s.ctx, Filter{Market: "US"})
	s.Require().NoError(err)
	s.Equal(int32(2), s.loader.loads.Load())
}

func (s *ServiceSuite) TestKindsAreCachedSeparately() {
	_, err := s.svc.Heatmap(s.ctx, Filter{})
	s.Require().NoError(err)
	_, err = s.svc.Radar(s.ctx, Filter{})
	s.Require().NoError(err)
	_, err = s.svc.Timeseries(s.ctx, Filter{}, GranularityDay)
	s.Require().NoError(err)
	_, err = s.svc.Timeseries(s.ctx, Filter{}, GranularityMonth)
	s.Require().NoError(err)
	s.Equal(int32(4), s.loader.loads.Load())

	p1, err := s.svc.Drilldown(s.ctx, DrilldownAudits, Filter{}, Query{Page: 1, PageSize: 2})
	s.Require().NoError(err)
	p2, err := s.svc.Drilldown(s.ctx, DrilldownAudits, Filter{}, Query{Page: 2, PageSize: 2})
	s.Require().NoError(err)
	s.NotEqual(p1.Rows, p2.Rows)
	s.Equal(int32(6), s.loader.loads.Load())
}

func (s *ServiceSuite) TestInvalidateDropsCachedResults() {
	before, err := s.svc.Funnel(s.ctx, Filter{})
	s.Require().NoError(err)

	// A new audit lands after the first read.
	s.loader.ds = NewDataset(
		append(s.loader.ds.Audits, &audit.Audit{Market: "EU", Status: audit.StatusDraft, CreatedAt: t0}),
		questionsOf(s.loader.ds), allResponses(s.loader.ds), s.loader.ds.Actions, s.loader.ds.AsOf,
	)
	cached, err := s.svc.Funnel(s.ctx, Filter{})
	s.Require().NoError(err)
	s.Equal(before, cached)

	s.svc.Invalidate(s.ctx)
	after, err := s.svc.Funnel(s.ctx, Filter{})
	s.Require().NoError(err)
	s.Equal(before.Stages[0].Count+1, after.Stages[0].Count)
	s.Equal(int32(2), s.loader.loads.Load())
}

func (s *ServiceSuite) TestErrors() {
	s.Run("invalid filter is rejected before loading", func() {
		_, err := s.svc.Summary(s.ctx, Filter{Status: "archived"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Zero(s.loader.loads.Load())
	})

	s.Run("invalid page", func() {
		_, err := s.svc.Drilldown(s.ctx, DrilldownActions, Filter{}, Query{PageSize: 500})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("load failure is internal", func() {
		s.loader.err = errors.New("connection refused")
		_, err := s.svc.Radar(s.ctx, Filter{Market: "JP"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func questionsOf(ds *Dataset) []catalog.Question {
	out := make([]catalog.Question, 0, len(ds.Questions))
	for _, q := range ds.Questions {
		out = append(out, q)
	}
	return out
}

func allResponses(ds *Dataset) []responses.Response {
	var out []responses.Response
	for _, rs := range ds.Responses {
		out = append(out, rs...)
	}
	return out
}

type stubSources struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	err     error
}

func (s *stubSources) List(context.Context) ([]*audit.Audit, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.release != nil {
		<-s.release
	}
	return fixture().Audits, s.err
}

func (s *stubSources) ListAll(context.Context) ([]responses.Response, error) {
	return allResponses(fixture()), nil
}

func (s *stubSources) Questions() []catalog.Question { return questionsOf(fixture()) }

type stubActions struct{}

func (stubActions) List(context.Context) ([]*actions.Action, error) { return fixture().Actions, nil }

func TestLoader(t *testing.T) {
	t.Run("builds a dataset from every source", func(t *testing.T) {
		src := &stubSources{}
		ds, err := NewLoader(src, src, stubActions{}, src).Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, ds.Audits, 4)
		assert.Len(t, ds.Questions, 5)
		assert.Len(t, ds.Actions, 3)
		assert.Equal(t, []string{"design", "production", "vigilance"}, ds.Processes())
	})

	t.Run("concurrent loads share one read", func(t *testing.T) {
		src := &stubSources{release: make(chan struct{})}
		l := NewLoader(src, src, stubActions{}, src)

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := l.Load(context.Background())
				assert.NoError(t, err)
			}()
		}
		require.Eventually(t, func() bool {
			src.mu.Lock()
			defer src.mu.Unlock()
			return src.calls == 1
		}, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(src.release)
		wg.Wait()
		assert.LessOrEqual(t, src.calls, 5)
	})

	t.Run("source error fails the load", func(t *testing.T) {
		src := &stubSources{err: errors.New("boom")}
		_, err := NewLoader(src, src, stubActions{}, src).Load(context.Background())
		assert.Error(t, err)
	})
}

func TestMemoryCacheExpiry(t *testing.T) {
	now := t0
	c := NewMemoryCache(time.Minute)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", Summary{Audits: 3}))
	var got Summary
	hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, got.Audits)

	now = now.Add(time.Minute)
	hit, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

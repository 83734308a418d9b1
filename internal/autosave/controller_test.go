package autosave

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"qara/internal/responses/models"
	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
)

// fakeSaver keeps the latest remote value per key and counts writes.
type fakeSaver struct {
	mu      sync.Mutex
	fail    bool
	block   chan struct{}
	puts    []models.Draft
	remote  map[string]models.Draft
	stashed map[string]models.Draft
	pending map[string]models.Draft
}

func newFakeSaver() *fakeSaver {
	return &fakeSaver{
		remote:  map[string]models.Draft{},
		stashed: map[string]models.Draft{},
		pending: map[string]models.Draft{},
	}
}

func (f *fakeSaver) Put(_ context.Context, _ domain.AuditID, key string, d models.Draft) (*models.Ack, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, d)
	if f.fail {
		f.pending[key] = d
		return &models.Ack{SavedAt: d.UpdatedAt, Pending: true}, dErrors.New(dErrors.CodeUnavailable, "remote down")
	}
	delete(f.pending, key)
	f.remote[key] = d
	return &models.Ack{SavedAt: d.UpdatedAt}, nil
}

func (f *fakeSaver) Stash(_ context.Context, _ domain.AuditID, key string, d models.Draft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stashed[key] = d
	return nil
}

// Views merges stored rows with cached drafts; a cached draft wins unless the
// stored row is newer.
func (f *fakeSaver) Views(context.Context, domain.AuditID) ([]models.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	merged := map[string]models.View{}
	for k, d := range f.remote {
		merged[k] = viewOf(k, d, false)
	}
	for _, cached := range []map[string]models.Draft{f.pending, f.stashed} {
		for k, d := range cached {
			cur, ok := merged[k]
			if ok && cur.UpdatedAt.After(d.UpdatedAt) {
				continue
			}
			v := viewOf(k, d, true)
			if ok && !d.HasValue() {
				v.Value = cur.Value
			}
			merged[k] = v
		}
	}
	out := make([]models.View, 0, len(merged))
	for _, v := range merged {
		out = append(out, v)
	}
	return out, nil
}

func viewOf(key string, d models.Draft, pending bool) models.View {
	return models.View{
		QuestionKey:   key,
		Value:         d.Value,
		Comment:       d.Comment,
		EvidenceFiles: d.EvidenceFiles,
		UpdatedAt:     d.UpdatedAt,
		Pending:       pending,
	}
}

func (f *fakeSaver) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func (f *fakeSaver) remoteDraft(key string) (models.Draft, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.remote[key]
	return d, ok
}

type ControllerSuite struct {
	suite.Suite
	ctx   context.Context
	saver *fakeSaver
	clock time.Time
	mu    sync.Mutex
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.ctx = context.Background()
	s.saver = newFakeSaver()
	s.clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *ControllerSuite) now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *ControllerSuite) open(debounce time.Duration) *Controller {
	return Open(s.ctx, s.saver, domain.NewAuditID(), WithDebounce(debounce), WithClock(s.now))
}

func (s *ControllerSuite) TestValueChangeSavesImmediately() {
	c := s.open(time.Hour)
	s.Equal(StateUnanswered, c.State("Q1"))

	s.Require().NoError(c.SetValue(s.ctx, "Q1", models.ValueCompliant))
	s.Equal(StateSaved, c.State("Q1"))
	s.Equal(1, s.saver.putCount())
	s.False(c.LastSavedAt().IsZero())
	s.NoError(c.Err())
}

func (s *ControllerSuite) TestCommentEditsAreDebounced() {
	c := s.open(40 * time.Millisecond)
	s.Require().NoError(c.SetValue(s.ctx, "Q1", models.ValuePartial))

	s.Require().NoError(c.EditComment(s.ctx, "Q1", "first"))
	s.Require().NoError(c.EditComment(s.ctx, "Q1", "second"))
	s.Equal(StateDirty, c.State("Q1"))

	s.Require().Eventually(func() bool { return c.State("Q1") == StateSaved }, time.Second, 5*time.Millisecond)
	s.Equal(2, s.saver.putCount(), "the two edits collapse into one save")
	d, ok := s.saver.remoteDraft("Q1")
	s.Require().True(ok)
	s.Equal("second", d.Comment)
}

func (s *ControllerSuite) TestUnansweredEditsStayLocal() {
	c := s.open(10 * time.Millisecond)
	s.Require().NoError(c.EditComment(s.ctx, "Q1", "thinking"))
	s.Require().NoError(c.SetEvidence(s.ctx, "Q1", []string{"audit-plan.pdf"}))

	s.Equal(StateUnanswered, c.State("Q1"))
	s.Zero(s.saver.putCount())
	s.Equal([]string{"audit-plan.pdf"}, s.saver.stashed["Q1"].EvidenceFiles)

	s.Require().NoError(c.SetValue(s.ctx, "Q1", models.ValueNonCompliant))
	d, _ := s.saver.remoteDraft("Q1")
	s.Equal("thinking", d.Comment, "the value save carries earlier edits")
}

func (s *ControllerSuite) TestNavigateFlushesPendingEdit() {
	c := s.open(time.Hour)
	s.Require().NoError(c.SetValue(s.ctx, "Q1", models.ValueCompliant))
	s.Require().NoError(c.EditComment(s.ctx, "Q1", "before leaving"))

	s.Require().NoError(c.Navigate(s.ctx, "Q1"))
	s.Equal(StateSaved, c.State("Q1"))
	d, _ := s.saver.remoteDraft("Q1")
	s.Equal("before leaving", d.Comment)
}

func (s *ControllerSuite) TestFlushIsIdempotent() {
	c := s.open(time.Hour)
	s.Require().NoError(c.SetValue(s.ctx, "Q1", models.ValueCompliant))
	s.Require().NoError(c.Flush(s.ctx, "Q1"))
	s.Require().NoError(c.Navigate(s.ctx, "Q1"))
	s.Equal(1, s.saver.putCount())
}

func (s *ControllerSuite) TestFailedSaveIsRecoverable() {
	c := s.open(time.Hour)
	s.saver.fail = true

	err := c.SetValue(s.ctx, "Q1", models.ValueNonCompliant)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Equal(StateDirty, c.State("Q1"))
	s.Error(c.Err())
	s.True(c.LastSavedAt().IsZero())

	s.saver.fail = false
	s.Require().NoError(c.Flush(s.ctx, "Q1"))
	s.Equal(StateSaved, c.State("Q1"))
	s.NoError(c.Err())
}

func (s *ControllerSuite) TestOpenRecoversPendingDrafts() {
	s.saver.pending["Q1"] = models.Draft{Value: models.ValuePartial, Comment: "offline", UpdatedAt: s.clock}
	s.saver.stashed["Q2"] = models.Draft{Comment: "note", UpdatedAt: s.clock}

	c := s.open(time.Hour)
	s.Equal(StateDirty, c.State("Q1"))
	s.Equal(StateUnanswered, c.State("Q2"))
	d, ok := c.Draft("Q1")
	s.Require().True(ok)
	s.Equal("offline", d.Comment)

	s.Require().NoError(c.Close(s.ctx))
	got, ok := s.saver.remoteDraft("Q1")
	s.Require().True(ok)
	s.Equal(models.ValuePartial, got.Value)
}

func (s *ControllerSuite) TestReopenedSessionKeepsSavedAnswers() {
	s.saver.remote["Q1"] = models.Draft{
		Value:         models.ValueNonCompliant,
		Comment:       "CAPA-12 missing",
		EvidenceFiles: []string{"ev.pdf"},
		UpdatedAt:     s.clock,
	}

	s.Run("stored answers open as saved", func() {
		c := s.open(time.Hour)
		s.Equal(StateSaved, c.State("Q1"))
		d, ok := c.Draft("Q1")
		s.Require().True(ok)
		s.Equal("CAPA-12 missing", d.Comment)
		s.Require().NoError(c.Close(s.ctx))
		s.Zero(s.saver.putCount(), "nothing changed, nothing saved")
	})

	s.Run("changing the value keeps comment and evidence", func() {
		c := s.open(time.Hour)
		s.Require().NoError(c.SetValue(s.ctx, "Q1", models.ValueCompliant))

		d, ok := s.saver.remoteDraft("Q1")
		s.Require().True(ok)
		s.Equal(models.ValueCompliant, d.Value)
		s.Equal("CAPA-12 missing", d.Comment)
		s.Equal([]string{"ev.pdf"}, d.EvidenceFiles)
	})
}

func (s *ControllerSuite) TestReopenedSessionFlushesCommentEdits() {
	s.saver.remote["Q1"] = models.Draft{Value: models.ValueCompliant, Comment: "old", UpdatedAt: s.clock}
	s.saver.remote["Q2"] = models.Draft{Value: models.ValuePartial, Comment: "old", UpdatedAt: s.clock}

	s.Run("after the debounce", func() {
		c := s.open(10 * time.Millisecond)
		s.Require().NoError(c.EditComment(s.ctx, "Q1", "new comment"))
		s.Equal(StateDirty, c.State("Q1"))

		s.Require().Eventually(func() bool { return c.State("Q1") == StateSaved }, time.Second, 5*time.Millisecond)
		d, _ := s.saver.remoteDraft("Q1")
		s.Equal("new comment", d.Comment)
		s.Equal(models.ValueCompliant, d.Value)
		s.Require().NoError(c.Close(s.ctx))
	})

	s.Run("on navigate", func() {
		c := s.open(time.Hour)
		s.Require().NoError(c.SetEvidence(s.ctx, "Q2", []string{"photo.jpg"}))
		s.Require().NoError(c.Navigate(s.ctx, "Q2"))

		s.Equal(StateSaved, c.State("Q2"))
		d, _ := s.saver.remoteDraft("Q2")
		s.Equal(models.ValuePartial, d.Value)
		s.Equal("old", d.Comment)
		s.Equal([]string{"photo.jpg"}, d.EvidenceFiles)
		s.Require().NoError(c.Close(s.ctx))
	})
}

func (s *ControllerSuite) TestCloseFlushesAndRejectsEdits() {
	c := s.open(time.Hour)
	s.Require().NoError(c.SetValue(s.ctx, "Q1", models.ValueCompliant))
	s.Require().NoError(c.EditComment(s.ctx, "Q1", "last words"))

	s.Require().NoError(c.Close(s.ctx))
	d, _ := s.saver.remoteDraft("Q1")
	s.Equal("last words", d.Comment)
	s.Equal(2, s.saver.putCount())

	err := c.EditComment(s.ctx, "Q1", "too late")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	time.Sleep(20 * time.Millisecond)
	s.Equal(2, s.saver.putCount())
}

func TestInFlightWriteSurvivesCancellation(t *testing.T) {
	saver := newFakeSaver()
	saver.block = make(chan struct{})
	c := Open(context.Background(), saver, domain.NewAuditID(), WithDebounce(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.SetValue(ctx, "Q1", models.ValueCompliant) }()

	cancel()
	close(saver.block)
	require.NoError(t, <-errc)
	require.NoError(t, c.Close(context.Background()))
	_, ok := saver.remoteDraft("Q1")
	assert.True(t, ok)
}

func TestRejectsUnknownValue(t *testing.T) {
	c := Open(context.Background(), newFakeSaver(), domain.NewAuditID())
	err := c.SetValue(context.Background(), "Q1", models.Value("maybe"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, StateUnanswered, c.State("Q1"))
}

// Package autosave drives saving for one answering session of an audit.
//
// Each question moves through unanswered -> valued -> saved, and back to
// dirty when edited after a save. Choosing a value flushes at once; comment
// and evidence edits flush after an idle debounce; navigating away or closing
// the session flushes before anything else happens to the question.
package autosave

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"qara/internal/responses/models"
	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
)

const DefaultDebounce = 30 * time.Second

// State is the save state of one question in the session.
type State int

const (
	StateUnanswered State = iota
	StateValued
	StateSaved
	StateDirty
)

func (s State) String() string {
	switch s {
	case StateValued:
		return "valued"
	case StateSaved:
		return "saved"
	case StateDirty:
		return "dirty"
	default:
		return "unanswered"
	}
}

// Saver is the response store used by the session.
type Saver interface {
	Put(ctx context.Context, auditID domain.AuditID, questionKey string, draft models.Draft) (*models.Ack, error)
	Stash(ctx context.Context, auditID domain.AuditID, questionKey string, draft models.Draft) error
	// Views lists stored responses merged with cached drafts; cached entries
	// are marked Pending.
	Views(ctx context.Context, auditID domain.AuditID) ([]models.View, error)
}

type question struct {
	state State
	draft models.Draft
	timer *time.Timer
	// edits counts changes so a flush can tell whether it saved the latest.
	edits uint64
	// flushing orders flushes of this key.
	flushing sync.Mutex
}

// Controller is safe for concurrent use.
type Controller struct {
	saver    Saver
	auditID  domain.AuditID
	debounce time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu          sync.Mutex
	questions   map[string]*question
	lastSavedAt time.Time
	lastErr     error
	closed      bool
	inflight    sync.WaitGroup
}

type Option func(*Controller)

func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.debounce = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// Open starts a session seeded with the audit's stored responses and any
// drafts that never reached the remote store. Stored answers start saved so
// later edits build on them; restored valued drafts are dirty until flushed.
func Open(ctx context.Context, saver Saver, auditID domain.AuditID, opts ...Option) *Controller {
	c := &Controller{
		saver:     saver,
		auditID:   auditID,
		debounce:  DefaultDebounce,
		now:       time.Now,
		logger:    slog.Default(),
		questions: make(map[string]*question),
	}
	for _, opt := range opts {
		opt(c)
	}
	views, err := saver.Views(ctx, auditID)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to load saved responses", "audit_id", auditID, "error", err)
	}
	recovered := 0
	for _, v := range views {
		q := &question{draft: draftOf(v), state: StateUnanswered}
		switch {
		case !v.Pending && q.draft.HasValue():
			q.state = StateSaved
		case q.draft.HasValue():
			q.state = StateDirty
			recovered++
		}
		c.questions[v.QuestionKey] = q
	}
	if recovered > 0 {
		c.logger.InfoContext(ctx, "recovered unsaved drafts", "audit_id", auditID, "count", recovered)
	}
	return c
}

func draftOf(v models.View) models.Draft {
	return models.Draft{
		Value:         v.Value,
		Comment:       v.Comment,
		EvidenceFiles: slices.Clone(v.EvidenceFiles),
		UpdatedAt:     v.UpdatedAt,
	}
}

// SetValue records the answer and flushes it immediately.
func (c *Controller) SetValue(ctx context.Context, key string, v models.Value) error {
	if !v.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown response value "+v.String())
	}
	if err := c.edit(key, func(d *models.Draft) { d.Value = v }); err != nil {
		return err
	}
	return c.Flush(ctx, key)
}

// EditComment changes the comment. A valued question saves after the
// debounce; an unanswered one only updates the local draft.
func (c *Controller) EditComment(ctx context.Context, key, comment string) error {
	return c.editDeferred(ctx, key, func(d *models.Draft) { d.Comment = comment })
}

// SetEvidence replaces the evidence file list.
func (c *Controller) SetEvidence(ctx context.Context, key string, files []string) error {
	files = slices.Clone(files)
	return c.editDeferred(ctx, key, func(d *models.Draft) { d.EvidenceFiles = files })
}

// Navigate flushes the question being left.
func (c *Controller) Navigate(ctx context.Context, from string) error {
	return c.Flush(ctx, from)
}

// Flush saves the question now if it has unsaved changes, cancelling any
// pending debounce. Flushing a saved or unanswered question does nothing.
func (c *Controller) Flush(ctx context.Context, key string) error {
	c.mu.Lock()
	q, ok := c.questions[key]
	c.mu.Unlock()
	if !ok {
		return nil
	}

	q.flushing.Lock()
	defer q.flushing.Unlock()

	c.mu.Lock()
	c.stopTimerLocked(q)
	if q.state != StateValued && q.state != StateDirty {
		c.mu.Unlock()
		return nil
	}
	draft := q.draft.Clone()
	edits := q.edits
	c.inflight.Add(1)
	c.mu.Unlock()
	defer c.inflight.Done()

	// The write completes even if the caller goes away.
	ack, err := c.saver.Put(context.WithoutCancel(ctx), c.auditID, key, draft)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = err
		if q.state == StateValued {
			q.state = StateDirty
		}
		c.logger.WarnContext(ctx, "autosave failed", "audit_id", c.auditID, "question_key", key, "error", err)
		return err
	}
	c.lastErr = nil
	if ack != nil && !ack.Pending {
		if ack.SavedAt.After(c.lastSavedAt) {
			c.lastSavedAt = ack.SavedAt
		}
		if q.edits == edits {
			q.state = StateSaved
		}
	}
	return nil
}

// Close flushes every unsaved question, cancels timers and waits for writes
// in flight. It returns the first flush error.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	keys := make([]string, 0, len(c.questions))
	for k := range c.questions {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	slices.Sort(keys)

	var firstErr error
	for _, k := range keys {
		if err := c.Flush(ctx, k); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.inflight.Wait()
	return firstErr
}

// State reports the save state of a question.
func (c *Controller) State(key string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if q, ok := c.questions[key]; ok {
		return q.state
	}
	return StateUnanswered
}

// Draft returns the session's current draft of a question.
func (c *Controller) Draft(key string) (models.Draft, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.questions[key]
	if !ok {
		return models.Draft{}, false
	}
	return q.draft.Clone(), true
}

// LastSavedAt is the time of the most recent acknowledged save.
func (c *Controller) LastSavedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSavedAt
}

// Err is the error of the last failed save, cleared by the next success.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) edit(key string, apply func(*models.Draft)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return dErrors.New(dErrors.CodeInvalidState, "autosave session is closed")
	}
	q, ok := c.questions[key]
	if !ok {
		q = &question{}
		c.questions[key] = q
	}
	apply(&q.draft)
	q.draft.UpdatedAt = c.now()
	q.edits++
	switch q.state {
	case StateUnanswered:
		if q.draft.HasValue() {
			q.state = StateValued
		}
	case StateSaved:
		q.state = StateDirty
	}
	return nil
}

func (c *Controller) editDeferred(ctx context.Context, key string, apply func(*models.Draft)) error {
	if err := c.edit(key, apply); err != nil {
		return err
	}

	c.mu.Lock()
	q := c.questions[key]
	if q.state == StateUnanswered {
		draft := q.draft.Clone()
		c.mu.Unlock()
		if err := c.saver.Stash(ctx, c.auditID, key, draft); err != nil {
			c.logger.WarnContext(ctx, "failed to keep draft", "audit_id", c.auditID, "question_key", key, "error", err)
			return err
		}
		return nil
	}
	c.stopTimerLocked(q)
	c.inflight.Add(1)
	var t *time.Timer
	t = time.AfterFunc(c.debounce, func() {
		defer c.inflight.Done()
		c.mu.Lock()
		if q.timer == t {
			q.timer = nil
		}
		c.mu.Unlock()
		_ = c.Flush(context.WithoutCancel(ctx), key)
	})
	q.timer = t
	c.mu.Unlock()
	return nil
}

// stopTimerLocked cancels a pending debounce. A timer that already fired
// releases its own in-flight slot.
func (c *Controller) stopTimerLocked(q *question) {
	if q.timer == nil {
		return
	}
	if q.timer.Stop() {
		c.inflight.Done()
	}
	q.timer = nil
}

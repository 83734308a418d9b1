package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"qara/internal/events"
	"qara/internal/platform/tracing"
	"qara/internal/responses/metrics"
	"qara/internal/responses/models"
	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
	"qara/pkg/platform/circuit"
	"qara/pkg/platform/sentinel"
	"qara/pkg/requestcontext"
)

const defaultWriteTimeout = 5 * time.Second

// RemoteStore is the authoritative response table. Upsert must apply
// last-write-wins on UpdatedAt and report a skipped write as sentinel.ErrStale.
type RemoteStore interface {
	Get(ctx context.Context, auditID domain.AuditID, questionKey string) (*models.Response, error)
	List(ctx context.Context, auditID domain.AuditID) ([]models.Response, error)
	Upsert(ctx context.Context, r models.Response) error
	DeleteAudit(ctx context.Context, auditID domain.AuditID) error
}

// AuditGate is the audit lifecycle as seen by the response flow.
type AuditGate interface {
	EnsureWritable(ctx context.Context, id domain.AuditID, questionKey string) error
	MarkStarted(ctx context.Context, id domain.AuditID) error
}

type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Store is the response facade: a local write-ahead cache in front of the
// remote store. Local drafts newer than the remote row win on reads until
// they are flushed.
type Store struct {
	remote       RemoteStore
	cache        *degradingCache
	gate         AuditGate
	breaker      *circuit.Breaker
	locks        *keyLocks
	writeTimeout time.Duration
	publisher    Publisher
	invalidator  Invalidator
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Store) {
		s.publisher = p
	}
}

func WithInvalidator(i Invalidator) Option {
	return func(s *Store) {
		s.invalidator = i
	}
}

// WithWriteTimeout bounds a remote write. An unacknowledged write counts as
// failed.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Store) {
		s.breaker = b
	}
}

func New(remote RemoteStore, cache LocalCache, gate AuditGate, opts ...Option) *Store {
	s := &Store{
		remote:       remote,
		gate:         gate,
		locks:        newKeyLocks(),
		writeTimeout: defaultWriteTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = circuit.New("responses-remote")
	}
	s.cache = newDegradingCache(cache, s.logger, s.metrics)
	return s
}

// Put saves a valued draft. The draft is cached locally first, then written
// remotely. When the remote write fails the draft stays cached, a Pending ack
// is returned together with an unavailable or timeout error, and the retrier
// replays it later.
func (s *Store) Put(ctx context.Context, auditID domain.AuditID, questionKey string, draft models.Draft) (*models.Ack, error) {
	if !draft.HasValue() {
		return nil, dErrors.New(dErrors.CodeValidation, "a response value is required")
	}
	if !draft.Value.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown response value "+draft.Value.String())
	}
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = requestcontext.Now(ctx)
	}
	if err := s.gate.EnsureWritable(ctx, auditID, questionKey); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(auditID, questionKey)
	defer unlock()

	if cached, ok := s.cache.Load(ctx, auditID)[questionKey]; ok && cached.UpdatedAt.After(draft.UpdatedAt) {
		// A newer edit is already queued for this key.
		s.metrics.IncSave(metrics.OutcomeStale)
		return &models.Ack{SavedAt: cached.UpdatedAt, Pending: true}, nil
	}
	s.cache.Save(ctx, auditID, questionKey, draft)

	if s.breaker.IsOpen() {
		s.metrics.IncSave(metrics.OutcomePending)
		return &models.Ack{SavedAt: draft.UpdatedAt, Pending: true},
			dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeUnavailable, "response store unavailable, draft kept locally")
	}
	return s.flush(ctx, auditID, questionKey, draft)
}

// Stash caches a draft locally without a remote write. It keeps comment and
// evidence edits made before a value is chosen.
func (s *Store) Stash(ctx context.Context, auditID domain.AuditID, questionKey string, draft models.Draft) error {
	if err := s.gate.EnsureWritable(ctx, auditID, questionKey); err != nil {
		return err
	}
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = requestcontext.Now(ctx)
	}
	unlock := s.locks.lock(auditID, questionKey)
	defer unlock()
	s.cache.Save(ctx, auditID, questionKey, draft)
	return nil
}

// flush writes one draft remotely. The caller holds the key lock.
func (s *Store) flush(ctx context.Context, auditID domain.AuditID, questionKey string, draft models.Draft) (*models.Ack, error) {
	err := s.writeRemote(ctx, draft.ToResponse(auditID, questionKey))
	switch {
	case err == nil:
		s.metrics.IncSave(metrics.OutcomeSaved)
	case errors.Is(err, sentinel.ErrStale):
		// A newer row is already stored; this draft is superseded.
		s.metrics.IncSave(metrics.OutcomeStale)
		s.cache.Remove(ctx, auditID, questionKey, draft)
		return &models.Ack{SavedAt: draft.UpdatedAt}, nil
	default:
		s.metrics.IncSave(metrics.OutcomePending)
		s.breaker.RecordFailure()
		s.logger.WarnContext(ctx, "remote response write failed, draft kept locally",
			"audit_id", auditID,
			"question_key", questionKey,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		code := dErrors.CodeUnavailable
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sentinel.ErrTimeout) {
			code = dErrors.CodeTimeout
		}
		return &models.Ack{SavedAt: draft.UpdatedAt, Pending: true},
			dErrors.Wrap(err, code, "response not yet saved, draft kept locally")
	}

	s.breaker.RecordSuccess()
	s.cache.Remove(ctx, auditID, questionKey, draft)
	if err := s.gate.MarkStarted(ctx, auditID); err != nil {
		s.logger.WarnContext(ctx, "failed to start audit", "audit_id", auditID, "error", err)
	}
	s.emit(ctx, auditID, questionKey, draft.Value)
	return &models.Ack{SavedAt: draft.UpdatedAt}, nil
}

// writeRemote runs the upsert detached from the caller's cancellation and
// bounded by the write timeout.
func (s *Store) writeRemote(ctx context.Context, r models.Response) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	ctx, span := tracing.Tracer("qara/responses").Start(ctx, "responses.remote_write")
	defer span.End()
	span.SetAttributes(
		attribute.String("audit_id", r.AuditID.String()),
		attribute.String("question_key", r.QuestionKey),
	)

	start := time.Now()
	err := s.remote.Upsert(ctx, r)
	s.metrics.ObserveWrite(start)
	if err != nil && !errors.Is(err, sentinel.ErrStale) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "remote write failed")
	}
	if err == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Get returns the effective response for a key: a cached draft newer than
// the remote row wins.
func (s *Store) Get(ctx context.Context, auditID domain.AuditID, questionKey string) (*models.View, error) {
	remote, err := s.remote.Get(ctx, auditID, questionKey)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "remote response read failed", "audit_id", auditID, "question_key", questionKey, "error", err)
		remote = nil
	}
	draft, cached := s.cache.Load(ctx, auditID)[questionKey]
	switch {
	case cached && (remote == nil || !remote.UpdatedAt.After(draft.UpdatedAt)):
		v := viewOf(questionKey, draft, true)
		if remote != nil && !draft.HasValue() {
			v.Value = remote.Value
		}
		return &v, nil
	case remote != nil:
		v := viewOf(questionKey, models.DraftOf(*remote), false)
		return &v, nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "no response for question "+questionKey)
}

// List returns the valued responses of an audit with local drafts merged in.
func (s *Store) List(ctx context.Context, auditID domain.AuditID) ([]models.Response, error) {
	views, err := s.Views(ctx, auditID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Response, 0, len(views))
	for _, v := range views {
		if v.Value == "" {
			continue
		}
		out = append(out, models.Response{
			AuditID:       auditID,
			QuestionKey:   v.QuestionKey,
			Value:         v.Value,
			Comment:       v.Comment,
			EvidenceFiles: v.EvidenceFiles,
			UpdatedAt:     v.UpdatedAt,
		})
	}
	return out, nil
}

// Views is the merged, key-ordered response list including unvalued drafts.
func (s *Store) Views(ctx context.Context, auditID domain.AuditID) ([]models.View, error) {
	rows, err := s.remote.List(ctx, auditID)
	if err != nil {
		s.logger.WarnContext(ctx, "remote response list failed, serving cached drafts", "audit_id", auditID, "error", err)
		rows = nil
	}
	merged := make(map[string]models.View, len(rows))
	for _, r := range rows {
		merged[r.QuestionKey] = viewOf(r.QuestionKey, models.DraftOf(r), false)
	}
	for key, d := range s.cache.Load(ctx, auditID) {
		cur, ok := merged[key]
		if ok && cur.UpdatedAt.After(d.UpdatedAt) {
			continue
		}
		v := viewOf(key, d, true)
		if ok && !d.HasValue() {
			v.Value = cur.Value
		}
		merged[key] = v
	}
	out := make([]models.View, 0, len(merged))
	for _, v := range merged {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b models.View) int { return strings.Compare(a.QuestionKey, b.QuestionKey) })
	return out, nil
}

// Recover returns the drafts of an audit that have not reached the remote
// store, keyed by question.
func (s *Store) Recover(ctx context.Context, auditID domain.AuditID) map[string]models.Draft {
	return s.cache.Load(ctx, auditID)
}

// RetryPending replays every cached valued draft. It returns the number of
// drafts still pending and an error when any remote write failed.
func (s *Store) RetryPending(ctx context.Context) (int, error) {
	var (
		pending int
		failed  error
	)
	for _, auditID := range s.cache.Audits(ctx) {
		if ctx.Err() != nil {
			return pending, ctx.Err()
		}
		drafts := s.cache.Load(ctx, auditID)
		if len(drafts) == 0 {
			continue
		}
		keys := make([]string, 0, len(drafts))
		for k := range drafts {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, key := range keys {
			n, err := s.retryOne(ctx, auditID, key)
			pending += n
			if err != nil {
				failed = err
			}
		}
	}
	s.metrics.SetPending(pending)
	return pending, failed
}

func (s *Store) retryOne(ctx context.Context, auditID domain.AuditID, key string) (int, error) {
	unlock := s.locks.lock(auditID, key)
	defer unlock()

	draft, ok := s.cache.Load(ctx, auditID)[key]
	if !ok || !draft.HasValue() {
		return 0, nil
	}
	if err := s.gate.EnsureWritable(ctx, auditID, key); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.logger.InfoContext(ctx, "dropping drafts of a removed audit", "audit_id", auditID)
			_ = s.cache.DeleteAudit(ctx, auditID)
			return 0, nil
		}
		// Finished audits keep their drafts for recovery.
		return 1, nil
	}
	ack, err := s.flush(ctx, auditID, key, draft)
	if err != nil {
		s.metrics.IncRetry(metrics.OutcomePending)
		return 1, err
	}
	s.metrics.IncRetry(metrics.OutcomeSaved)
	s.logger.InfoContext(ctx, "pending draft saved", "audit_id", auditID, "question_key", key, "saved_at", ack.SavedAt)
	return 0, nil
}

// DeleteAudit removes every response and cached draft of an audit.
func (s *Store) DeleteAudit(ctx context.Context, auditID domain.AuditID) error {
	if err := s.cache.DeleteAudit(ctx, auditID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear draft cache", "audit_id", auditID, "error", err)
	}
	if err := s.remote.DeleteAudit(ctx, auditID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete responses")
	}
	return nil
}

// CacheDegraded reports whether drafts are only held in memory.
func (s *Store) CacheDegraded() bool { return s.cache.Degraded() }

func (s *Store) emit(ctx context.Context, auditID domain.AuditID, questionKey string, value models.Value) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.Event{
		Type:        events.ResponseSaved,
		AuditID:     auditID.String(),
		QuestionKey: questionKey,
		Value:       value.String(),
		RequestID:   requestcontext.RequestID(ctx),
		OccurredAt:  requestcontext.Now(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish response event", "audit_id", auditID, "question_key", questionKey, "error", err)
	}
}

func viewOf(key string, d models.Draft, pending bool) models.View {
	files := d.EvidenceFiles
	if files == nil {
		files = []string{}
	}
	return models.View{
		QuestionKey:   key,
		Value:         d.Value,
		Comment:       d.Comment,
		EvidenceFiles: files,
		UpdatedAt:     d.UpdatedAt,
		Pending:       pending,
	}
}

package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"qara/pkg/domain"
	dErrors "qara/pkg/domain-errors"
)

// Session is an open answering session.
type Session struct {
	ID         string
	AuditID    domain.AuditID
	OpenedAt   time.Time
	Controller *Controller
}

// Registry holds the open sessions of this process.
type Registry struct {
	saver    Saver
	debounce time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(saver Saver, debounce time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{saver: saver, debounce: debounce, logger: logger, sessions: make(map[string]*Session)}
}

func (r *Registry) Open(ctx context.Context, auditID domain.AuditID) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		AuditID:    auditID,
		OpenedAt:   time.Now(),
		Controller: Open(ctx, r.saver, auditID, WithDebounce(r.debounce), WithLogger(r.logger)),
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	r.logger.InfoContext(ctx, "autosave session opened", "session_id", s.ID, "audit_id", auditID)
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	return s, nil
}

// Close flushes and forgets one session.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	return s.Controller.Close(ctx)
}

// CloseAll flushes every open session. Used at shutdown.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	open := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		open = append(open, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range open {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Controller.Close(ctx); err != nil {
				r.logger.WarnContext(ctx, "session closed with unsaved drafts", "session_id", s.ID, "audit_id", s.AuditID, "error", err)
			}
		}()
	}
	wg.Wait()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

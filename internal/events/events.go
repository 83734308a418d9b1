// Package events publishes audit lifecycle and response events to downstream
// consumers. Publishing is best-effort: callers log failures and carry on.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Type names a lifecycle event.
type Type string

const (
	AuditCreated    Type = "audit.created"
	AuditStarted    Type = "audit.started"
	AuditCompleted  Type = "audit.completed"
	AuditClosed     Type = "audit.closed"
	AuditDeleted    Type = "audit.deleted"
	ResponseSaved   Type = "response.saved"
	ActionCreated   Type = "action.created"
	ActionCompleted Type = "action.completed"
)

// Event is transport-agnostic; publishers choose the encoding.
type Event struct {
	Type        Type      `json:"type"`
	AuditID     string    `json:"audit_id"`
	QuestionKey string    `json:"question_key,omitempty"`
	ActionID    string    `json:"action_id,omitempty"`
	Value       string    `json:"value,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// LogPublisher writes events to the structured log. Used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.logger.DebugContext(ctx, "event",
		"type", e.Type,
		"audit_id", e.AuditID,
		"question_key", e.QuestionKey,
		"action_id", e.ActionID,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *Recorder) Close() error { return nil }

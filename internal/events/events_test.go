package events

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderKeepsOrder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, Event{Type: AuditCreated, AuditID: "a"}))
	require.NoError(t, r.Publish(ctx, Event{Type: ResponseSaved, AuditID: "a", QuestionKey: "Q1"}))

	assert.Equal(t, []Type{AuditCreated, ResponseSaved}, r.Types())

	got := r.Events()
	got[0].AuditID = "mutated"
	assert.Equal(t, "a", r.Events()[0].AuditID)
}

func TestLogPublisherWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := NewLogPublisher(logger)

	require.NoError(t, p.Publish(context.Background(), Event{Type: AuditClosed, AuditID: "a-1"}))
	assert.Contains(t, buf.String(), "audit.closed")
	assert.Contains(t, buf.String(), "a-1")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncPublished(AuditCreated)
		m.IncPublishFailure(AuditCreated)
	})
}

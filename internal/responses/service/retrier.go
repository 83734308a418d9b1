package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Replayer flushes cached drafts to the remote store.
type Replayer interface {
	RetryPending(ctx context.Context) (int, error)
}

// Retrier replays pending drafts on an interval. Within a pass, failed
// replays back off exponentially until maxElapsed; the next tick starts a
// fresh pass.
type Retrier struct {
	replayer   Replayer
	interval   time.Duration
	maxElapsed time.Duration
	logger     *slog.Logger
}

func NewRetrier(r Replayer, interval, maxElapsed time.Duration, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Retrier{replayer: r, interval: interval, maxElapsed: maxElapsed, logger: logger}
}

// Run blocks until ctx is cancelled. The first pass runs immediately to
// recover drafts left by a previous process.
func (r *Retrier) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		r.Pass(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Pass replays until nothing is pending or the backoff gives up.
func (r *Retrier) Pass(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = min(500*time.Millisecond, r.interval)
	b.MaxInterval = r.interval
	b.MaxElapsedTime = r.maxElapsed

	var pending int
	op := func() error {
		n, err := r.replayer.RetryPending(ctx)
		pending = n
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.DebugContext(ctx, "pending drafts not flushed, backing off", "pending", pending, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil && ctx.Err() == nil {
		r.logger.WarnContext(ctx, "pending drafts still unsaved", "pending", pending, "error", err)
	}
}

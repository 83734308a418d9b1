package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyReplayer struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyReplayer) RetryPending(context.Context) (int, error) {
	if f.calls.Add(1) <= f.failures {
		return 1, errors.New("remote down")
	}
	return 0, nil
}

func TestRetrierPassBacksOffUntilFlushed(t *testing.T) {
	r := &flakyReplayer{failures: 2}
	NewRetrier(r, 50*time.Millisecond, 5*time.Second, nil).Pass(context.Background())
	assert.Equal(t, int32(3), r.calls.Load())
}

func TestRetrierRunStopsOnCancel(t *testing.T) {
	r := &flakyReplayer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewRetrier(r, 10*time.Millisecond, time.Second, nil).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return r.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retrier did not stop")
	}
}

package crawl

import (
	"context"
	"sync"
	"time"
)

// pauseController abstracts how the orchestrator waits between units of
// work, so tests can avoid real sleeps.
type pauseController interface {
	Pause(ctx context.Context, delay time.Duration)
}

type timerPauseController struct{}

func (p *timerPauseController) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// stopLatch is the shared cooperative cancellation flag. Once triggered it
// stays set; every component samples it before starting its next unit of
// work.
type stopLatch struct {
	once sync.Once
	ch   chan struct{}
}

func newStopLatch() *stopLatch {
	return &stopLatch{ch: make(chan struct{})}
}

// Trigger sets the latch. Idempotent, safe from any goroutine.
func (l *stopLatch) Trigger() {
	l.once.Do(func() { close(l.ch) })
}

// Stopped reports whether the latch has been triggered.
func (l *stopLatch) Stopped() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}

// Done exposes the latch channel for select loops.
func (l *stopLatch) Done() <-chan struct{} {
	return l.ch
}

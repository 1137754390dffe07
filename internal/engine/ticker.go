package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MRamiBalles/DreamSprite/server/internal/platform/logger"
)

// ErrTickerStopped is returned by Do once the loop has exited.
var ErrTickerStopped = errors.New("engine: ticker stopped")

// idleWait bounds how long the loop sleeps with nothing scheduled.
const idleWait = time.Minute

// Ticker drives a Scheduler from the wall clock.
// It owns the only goroutine allowed to touch session state; network
// handlers hand it work through Do.
type Ticker struct {
	sched    *Scheduler
	logger   *logger.Logger
	clock    func() time.Time
	posts    chan func()
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewTicker creates a ticker for sched with room for buffer queued actions.
func NewTicker(sched *Scheduler, log *logger.Logger, buffer int) *Ticker {
	if buffer < 1 {
		buffer = 1
	}
	return &Ticker{
		sched:    sched,
		logger:   log,
		clock:    time.Now,
		posts:    make(chan func(), buffer),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the loop until ctx is done or Stop is called. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	defer close(t.done)
	t.logger.Info("Dream ticker started. The sprite is listening...")

	timer := time.NewTimer(idleWait)
	defer timer.Stop()

	for {
		t.sched.AdvanceTo(t.clock())

		wait := idleWait
		if due, ok := t.sched.NextDue(); ok {
			wait = due.Sub(t.clock())
			if wait < 0 {
				wait = 0
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			t.logger.Info("Dream ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Dream ticker stopped manually.")
			return
		case fn := <-t.posts:
			// Catch the clock up first so fn schedules relative to the present.
			t.sched.AdvanceTo(t.clock())
			fn()
		case <-timer.C:
		}
	}
}

// Stop ends the loop. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// Done is closed once the loop has exited.
func (t *Ticker) Done() <-chan struct{} {
	return t.done
}

// Do runs fn on the loop and waits for it to finish.
func (t *Ticker) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case t.posts <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrTickerStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrTickerStopped
	}
}

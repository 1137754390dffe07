package engine

import (
	"container/heap"
	"time"

	"github.com/MRamiBalles/DreamSprite/server/internal/platform/metrics"
)

// Token identifies a scheduled callback. The zero Token is inert: it never
// fires and cancelling it does nothing.
type Token uint64

type entry struct {
	token    Token
	due      time.Time
	seq      uint64
	interval time.Duration // >0 for repeating entries
	fn       func()
	scope    *Scope
	index    int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler multiplexes delayed and repeating callbacks over one clock.
//
// It is NOT safe for concurrent use. Everything touching a Scheduler runs on
// one goroutine: the Ticker loop in production, the test goroutine under the
// virtual clock.
type Scheduler struct {
	now       time.Time
	seq       uint64
	nextToken Token
	queue     entryHeap
	live      map[Token]*entry
}

// NewScheduler creates a scheduler whose clock reads start.
func NewScheduler(start time.Time) *Scheduler {
	return &Scheduler{
		now:  start,
		live: make(map[Token]*entry),
	}
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time {
	return s.now
}

// Pending returns the number of callbacks waiting to fire.
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// NextDue reports when the earliest pending callback is due.
func (s *Scheduler) NextDue() (time.Time, bool) {
	if len(s.queue) == 0 {
		return time.Time{}, false
	}
	return s.queue[0].due, true
}

// NewScope opens a scope. Cancelling it cancels every callback registered through it.
func (s *Scheduler) NewScope(name string) *Scope {
	return &Scope{
		sched:  s,
		name:   name,
		tokens: make(map[Token]struct{}),
	}
}

func (s *Scheduler) schedule(sc *Scope, delay, interval time.Duration, fn func()) Token {
	if delay < 0 {
		delay = 0
	}
	s.nextToken++
	s.seq++
	e := &entry{
		token:    s.nextToken,
		due:      s.now.Add(delay),
		seq:      s.seq,
		interval: interval,
		fn:       fn,
		scope:    sc,
	}
	heap.Push(&s.queue, e)
	s.live[e.token] = e
	sc.tokens[e.token] = struct{}{}
	metrics.Get().RecordScheduled()
	return e.token
}

// Cancel removes a pending callback. Unknown, fired and already cancelled
// tokens are ignored. It reports whether a pending callback was removed.
func (s *Scheduler) Cancel(tok Token) bool {
	e, ok := s.live[tok]
	if !ok {
		return false
	}
	s.remove(e)
	metrics.Get().RecordCancelled(1)
	return true
}

func (s *Scheduler) remove(e *entry) {
	if e.index >= 0 {
		heap.Remove(&s.queue, e.index)
	}
	delete(s.live, e.token)
	delete(e.scope.tokens, e.token)
}

// Advance moves the clock forward by d, firing everything that falls due.
func (s *Scheduler) Advance(d time.Duration) int {
	return s.AdvanceTo(s.now.Add(d))
}

// AdvanceTo moves the clock to t, firing due callbacks in (due, registration)
// order. While a callback runs, Now reports its due time. Callbacks may
// schedule or cancel others; anything that becomes due by t also fires.
// Moving backwards is a no-op. It returns the number of callbacks run.
func (s *Scheduler) AdvanceTo(t time.Time) int {
	start := time.Now()
	fired := 0

	for len(s.queue) > 0 && !s.queue[0].due.After(t) {
		e := heap.Pop(&s.queue).(*entry)
		if e.due.After(s.now) {
			s.now = e.due
		}

		if e.interval > 0 {
			// Re-arm before running so fn can cancel its own token.
			s.seq++
			e.due = e.due.Add(e.interval)
			e.seq = s.seq
			heap.Push(&s.queue, e)
		} else {
			delete(s.live, e.token)
			delete(e.scope.tokens, e.token)
		}

		e.fn()
		fired++
		metrics.Get().RecordFired()
	}

	if t.After(s.now) {
		s.now = t
	}
	if fired > 0 {
		metrics.Get().RecordLoopRun(time.Since(start))
	}
	return fired
}

// Scope groups callbacks that share a lifetime, such as one phase.
type Scope struct {
	sched  *Scheduler
	name   string
	tokens map[Token]struct{}
	closed bool
}

// Name returns the label the scope was opened with.
func (sc *Scope) Name() string {
	return sc.name
}

// After schedules fn to run once, delay from now. A closed scope returns the zero Token.
func (sc *Scope) After(delay time.Duration, fn func()) Token {
	if sc.closed {
		return 0
	}
	return sc.sched.schedule(sc, delay, 0, fn)
}

// Every schedules fn to run each interval until cancelled.
// A closed scope or a non-positive interval returns the zero Token.
func (sc *Scope) Every(interval time.Duration, fn func()) Token {
	if sc.closed || interval <= 0 {
		return 0
	}
	return sc.sched.schedule(sc, interval, interval, fn)
}

// Pending returns the number of this scope's callbacks still waiting.
func (sc *Scope) Pending() int {
	return len(sc.tokens)
}

// Cancel removes every pending callback of the scope and closes it.
// Calling it again is a no-op. It returns the number of callbacks removed.
func (sc *Scope) Cancel() int {
	if sc.closed {
		return 0
	}
	sc.closed = true

	n := 0
	for tok := range sc.tokens {
		if e, ok := sc.sched.live[tok]; ok {
			sc.sched.remove(e)
			n++
		}
	}
	sc.tokens = make(map[Token]struct{})
	if n > 0 {
		metrics.Get().RecordCancelled(n)
	}
	return n
}

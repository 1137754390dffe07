package engine

import (
	"testing"
	"time"
)

var epoch = time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)

func TestSameDueFiresInRegistrationOrder(t *testing.T) {
	s := NewScheduler(epoch)
	scope := s.NewScope("test")

	var order []int
	for i := 0; i < 5; i++ {
		scope.After(time.Second, func() { order = append(order, i) })
	}
	scope.After(500*time.Millisecond, func() { order = append(order, -1) })

	s.Advance(time.Second)

	want := []int{-1, 0, 1, 2, 3, 4}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Position %d: expected %d, got %d", i, want[i], order[i])
		}
	}
}

func TestCancelBeforeFire(t *testing.T) {
	s := NewScheduler(epoch)
	scope := s.NewScope("test")

	fired := false
	tok := scope.After(time.Second, func() { fired = true })

	if !s.Cancel(tok) {
		t.Error("Expected first cancel to remove the callback")
	}
	if s.Cancel(tok) {
		t.Error("Second cancel must be a no-op")
	}
	s.Advance(time.Minute)

	if fired {
		t.Error("Cancelled callback fired")
	}
	if s.Cancel(Token(0)) || s.Cancel(Token(9999)) {
		t.Error("Cancelling unknown tokens must be a no-op")
	}
}

func TestCancelAfterFireIsNoop(t *testing.T) {
	s := NewScheduler(epoch)
	scope := s.NewScope("test")

	count := 0
	tok := scope.After(time.Second, func() { count++ })
	s.Advance(2 * time.Second)

	if s.Cancel(tok) {
		t.Error("Cancelling a fired token should report false")
	}
	scope.Cancel()
	scope.Cancel()
	if count != 1 {
		t.Errorf("Expected exactly one firing, got %d", count)
	}
}

func TestScopeCancelIsSynchronousAndIdempotent(t *testing.T) {
	s := NewScheduler(epoch)
	phase := s.NewScope("phase")
	other := s.NewScope("other")

	var fired []string
	phase.After(time.Second, func() { fired = append(fired, "phase") })
	phase.Every(300*time.Millisecond, func() { fired = append(fired, "tick") })
	other.After(2*time.Second, func() { fired = append(fired, "other") })

	// A callback of another scope tears the phase down before its own timers fire.
	other.After(100*time.Millisecond, func() { phase.Cancel() })

	s.Advance(5 * time.Second)

	if len(fired) != 1 || fired[0] != "other" {
		t.Errorf("Expected only the other scope to fire, got %v", fired)
	}
	if n := phase.Cancel(); n != 0 {
		t.Errorf("Second scope cancel removed %d callbacks", n)
	}
	if tok := phase.After(time.Second, func() { fired = append(fired, "late") }); tok != 0 {
		t.Errorf("Closed scope handed out token %v", tok)
	}
	if s.Pending() != 0 {
		t.Errorf("Expected empty queue, got %d pending", s.Pending())
	}
}

func TestClosedScopeIsInert(t *testing.T) {
	s := NewScheduler(epoch)
	scope := s.NewScope("gone")
	scope.Cancel()

	fired := false
	if tok := scope.After(0, func() { fired = true }); tok != 0 {
		t.Errorf("Expected zero token from closed scope, got %d", tok)
	}
	if tok := scope.Every(time.Second, func() { fired = true }); tok != 0 {
		t.Errorf("Expected zero token from closed scope, got %d", tok)
	}
	s.Advance(time.Minute)
	if fired {
		t.Error("Closed scope scheduled a callback")
	}
}

func TestEveryRepeatsUntilCancelled(t *testing.T) {
	s := NewScheduler(epoch)
	scope := s.NewScope("ticks")

	var at []time.Duration
	var tok Token
	tok = scope.Every(2*time.Second, func() {
		at = append(at, s.Now().Sub(epoch))
		if len(at) == 3 {
			s.Cancel(tok)
		}
	})

	s.Advance(20 * time.Second)

	want := []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second}
	if len(at) != len(want) {
		t.Fatalf("Expected ticks at %v, got %v", want, at)
	}
	for i := range want {
		if at[i] != want[i] {
			t.Errorf("Tick %d: expected %v, got %v", i, want[i], at[i])
		}
	}
	if scope.Pending() != 0 {
		t.Errorf("Expected no pending ticks, got %d", scope.Pending())
	}
}

func TestCallbackSchedulingIntoSameAdvance(t *testing.T) {
	s := NewScheduler(epoch)
	scope := s.NewScope("chain")

	var steps []time.Duration
	scope.After(time.Second, func() {
		steps = append(steps, s.Now().Sub(epoch))
		scope.After(0, func() { steps = append(steps, s.Now().Sub(epoch)) })
		scope.After(time.Second, func() { steps = append(steps, s.Now().Sub(epoch)) })
	})

	if n := s.Advance(2 * time.Second); n != 3 {
		t.Errorf("Expected 3 callbacks run, got %d", n)
	}
	if len(steps) != 3 || steps[0] != time.Second || steps[1] != time.Second || steps[2] != 2*time.Second {
		t.Errorf("Unexpected firing times %v", steps)
	}
	if got := s.Now().Sub(epoch); got != 2*time.Second {
		t.Errorf("Expected clock at 2s, got %v", got)
	}
}

func TestAdvanceBackwardsIsNoop(t *testing.T) {
	s := NewScheduler(epoch)
	s.Advance(time.Second)
	s.AdvanceTo(epoch)
	if !s.Now().Equal(epoch.Add(time.Second)) {
		t.Errorf("Clock moved backwards to %v", s.Now())
	}
}

package events

import (
	"errors"
	"testing"
	"time"
)

type recordingPersister struct {
	got []Event
	err error
}

func (p *recordingPersister) Append(e Event) error {
	p.got = append(p.got, e)
	return p.err
}

func TestAppendAssignsIDAndPersists(t *testing.T) {
	p := &recordingPersister{}
	el := NewEventLog(p)

	var observed error
	calls := 0
	el.OnPersist(func(_ time.Duration, err error) {
		calls++
		observed = err
	})

	e := el.Append(Event{Type: EventTypeSessionStarted, ActorID: SystemActor})
	if e.ID == "" {
		t.Fatal("Expected generated event ID")
	}
	if len(p.got) != 1 || p.got[0].ID != e.ID {
		t.Errorf("Expected persister to receive the appended event, got %+v", p.got)
	}
	if calls != 1 || observed != nil {
		t.Errorf("Expected one successful persist hook call, got %d (%v)", calls, observed)
	}

	p.err = errors.New("disk full")
	el.Append(Event{Type: EventTypeNarration})
	if observed == nil {
		t.Error("Expected persist hook to observe the write error")
	}
	if el.Len() != 2 {
		t.Errorf("Expected in-memory journal to keep both events, got %d", el.Len())
	}
}

func TestSubscribeOrderAndCancel(t *testing.T) {
	el := NewEventLog(nil)

	var order []string
	cancelA := el.Subscribe(func(e Event) { order = append(order, "a:"+string(e.Type)) })
	el.Subscribe(func(e Event) { order = append(order, "b:"+string(e.Type)) })

	el.Append(Event{Type: EventTypePhaseChanged})
	cancelA()
	cancelA() // idempotent
	el.Append(Event{Type: EventTypeNarration})

	want := []string{"a:PHASE_CHANGED", "b:PHASE_CHANGED", "b:NARRATION"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestSinceReturnsCopy(t *testing.T) {
	el := NewEventLog(nil)
	el.Append(Event{Type: EventTypeIngredientAdded, ActorID: "you"})
	el.Append(Event{Type: EventTypeIngredientAdded, ActorID: "ada"})
	el.Append(Event{Type: EventTypeCapsuleRevealed, ActorID: SystemActor})

	tail := el.Since(1)
	if len(tail) != 2 {
		t.Fatalf("Expected 2 events after offset 1, got %d", len(tail))
	}
	tail[0].ActorID = "mutated"
	if el.Replay()[1].ActorID != "ada" {
		t.Error("Since must not expose the journal's backing array")
	}

	if got := el.Since(10); got != nil {
		t.Errorf("Expected nil past the end, got %v", got)
	}
	if got := len(el.GetByType(EventTypeIngredientAdded)); got != 2 {
		t.Errorf("Expected 2 ingredient events, got %d", got)
	}
}

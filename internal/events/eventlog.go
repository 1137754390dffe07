// Package events provides the session journal: an append-only log of
// everything the timeline engine did, in the order it happened.
// Presentation clients and the analytics store both read from it.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a journal event.
type EventType string

const (
	EventTypeSessionStarted    EventType = "SESSION_STARTED"
	EventTypePhaseChanged      EventType = "PHASE_CHANGED"
	EventTypeIngredientAdded   EventType = "INGREDIENT_ADDED"
	EventTypeIngredientRemoved EventType = "INGREDIENT_REMOVED"
	EventTypeCapsuleRevealed   EventType = "CAPSULE_REVEALED"
	EventTypeNarration         EventType = "NARRATION"
	EventTypeVitalSampled      EventType = "VITAL_SAMPLED"
	EventTypeAdventureLog      EventType = "ADVENTURE_LOG"
	EventTypeSleepExtended     EventType = "SLEEP_EXTENDED"
	EventTypeDreamOpened       EventType = "DREAM_OPENED"
	EventTypeActionRejected    EventType = "ACTION_REJECTED"
	EventTypeScenarioReloaded  EventType = "SCENARIO_RELOADED"
)

// SystemActor is the actor ID used for events not caused by a participant.
const SystemActor = "SYSTEM_SPRITE"

// Event represents an immutable record of something the engine did.
type Event struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	Phase     string      `json:"phase"`
	Payload   interface{} `json:"payload"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event Event) error
}

// Subscriber is called synchronously for each appended event.
type Subscriber func(Event)

// EventLog is the in-memory append-only journal.
type EventLog struct {
	mu          sync.RWMutex
	events      []Event
	persister   EventPersister
	subscribers map[int]Subscriber
	nextSubID   int
	onPersist   func(time.Duration, error)
}

// NewEventLog creates a new journal with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:      make([]Event, 0),
		persister:   persister,
		subscribers: make(map[int]Subscriber),
	}
}

// OnPersist registers a hook that observes every persister write.
func (el *EventLog) OnPersist(fn func(latency time.Duration, err error)) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.onPersist = fn
}

// Append adds a new event to the log. Events are immutable once appended.
// Missing IDs are generated.
func (el *EventLog) Append(event Event) Event {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	persister := el.persister
	onPersist := el.onPersist
	subs := make([]Subscriber, 0, len(el.subscribers))
	for id := 0; id < el.nextSubID; id++ {
		if fn, ok := el.subscribers[id]; ok {
			subs = append(subs, fn)
		}
	}
	el.mu.Unlock()

	if persister != nil {
		// Write through to the analytics store; the in-memory copy stays authoritative.
		start := time.Now()
		err := persister.Append(event)
		if onPersist != nil {
			onPersist(time.Since(start), err)
		}
	}

	for _, fn := range subs {
		fn(event)
	}
	return event
}

// Subscribe registers fn for every future event and returns a cancel func.
func (el *EventLog) Subscribe(fn Subscriber) func() {
	el.mu.Lock()
	defer el.mu.Unlock()

	id := el.nextSubID
	el.nextSubID++
	el.subscribers[id] = fn

	return func() {
		el.mu.Lock()
		defer el.mu.Unlock()
		delete(el.subscribers, id)
	}
}

// GetByType returns all events of one type.
func (el *EventLog) GetByType(eventType EventType) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []Event
	for _, e := range el.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// Since returns a copy of the events appended after the first n.
func (el *EventLog) Since(n int) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	if n < 0 {
		n = 0
	}
	if n >= len(el.events) {
		return nil
	}
	out := make([]Event, len(el.events)-n)
	copy(out, el.events[n:])
	return out
}

// Len returns the number of events in the journal.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// Replay returns a copy of the full history.
func (el *EventLog) Replay() []Event {
	return el.Since(0)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}

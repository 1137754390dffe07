package engine

import (
	"github.com/MRamiBalles/DreamSprite/server/internal/events"
)

// recorder stamps journal events with the session, scheduler time and phase.
type recorder struct {
	log       *events.EventLog
	sessionID string
	sched     *Scheduler
	phase     func() Phase
}

func (r *recorder) record(t events.EventType, actorID string, payload interface{}) {
	if r == nil || r.log == nil {
		return
	}
	var phase Phase
	if r.phase != nil {
		phase = r.phase()
	}
	r.log.Append(events.Event{
		SessionID: r.sessionID,
		Timestamp: r.sched.Now(),
		Type:      t,
		ActorID:   actorID,
		Phase:     string(phase),
		Payload:   payload,
	})
}

// Journal payloads.

// PhaseChange is the payload of PHASE_CHANGED.
type PhaseChange struct {
	From      Phase             `json:"from"`
	To        Phase             `json:"to"`
	Trigger   Trigger           `json:"trigger"`
	Selection []IngredientEvent `json:"selection,omitempty"`
}

// Rejection is the payload of ACTION_REJECTED.
type Rejection struct {
	Action string       `json:"action"`
	Reason RejectReason `json:"reason"`
	Label  string       `json:"label,omitempty"`
}

// CapsuleReveal is the payload of CAPSULE_REVEALED.
type CapsuleReveal struct {
	Index      int             `json:"index"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	Ingredient IngredientEvent `json:"ingredient"`
}

// Narration is the payload of NARRATION.
type Narration struct {
	Text string `json:"text"`
}

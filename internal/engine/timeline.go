package engine

import (
	"strings"
	"time"

	"github.com/MRamiBalles/DreamSprite/server/internal/domain/actor"
	"github.com/MRamiBalles/DreamSprite/server/internal/domain/ingredient"
	"github.com/MRamiBalles/DreamSprite/server/internal/events"
)

// IngredientEvent is one ingredient contributed by one actor.
type IngredientEvent struct {
	Actor  actor.Ref     `json:"actor"`
	Label  string        `json:"ingredient"`
	Color  string        `json:"ingredient_color"`
	Offset time.Duration `json:"offset"`
}

// ActorTimeline collects ingredients during the Selecting phase: the user's
// synchronously, simulated actors' on their scripted offsets.
type ActorTimeline struct {
	roster  []actor.Actor
	catalog ingredient.Catalog
	cap     int
	rec     *recorder

	user  *actor.Actor
	picks map[string][]IngredientEvent
	start time.Time
}

// NewActorTimeline builds a timeline for roster. The first IsUser actor
// receives Toggle and AddCustom.
func NewActorTimeline(roster []actor.Actor, catalog ingredient.Catalog, cap int, rec *recorder) *ActorTimeline {
	if cap <= 0 {
		cap = actor.DefaultCap
	}
	t := &ActorTimeline{
		roster:  roster,
		catalog: catalog,
		cap:     cap,
		rec:     rec,
		picks:   make(map[string][]IngredientEvent),
	}
	for i := range roster {
		if roster[i].IsUser {
			t.user = &t.roster[i]
			break
		}
	}
	return t
}

// Start resets all picks and schedules every simulated actor's script into scope.
func (t *ActorTimeline) Start(scope *Scope) {
	t.Reset()
	t.start = t.rec.sched.Now()

	for _, a := range t.roster {
		for i := 0; i < a.Planned(t.cap); i++ {
			label := a.Targets[i]
			scope.After(a.Offsets[i], func() {
				t.emit(a, label)
			})
		}
	}
}

// Reset clears every actor's picks.
func (t *ActorTimeline) Reset() {
	t.picks = make(map[string][]IngredientEvent)
}

func (t *ActorTimeline) emit(a actor.Actor, label string) bool {
	if len(t.picks[a.ID]) >= t.cap {
		return false
	}
	ev := IngredientEvent{
		Actor:  a.Ref(),
		Label:  label,
		Color:  t.catalog.ColorOf(label),
		Offset: t.rec.sched.Now().Sub(t.start),
	}
	t.picks[a.ID] = append(t.picks[a.ID], ev)
	t.rec.record(events.EventTypeIngredientAdded, a.ID, ev)
	return true
}

// Toggle deselects label if the user already picked it, otherwise selects it.
func (t *ActorTimeline) Toggle(label string) (bool, RejectReason) {
	if t.user == nil {
		return false, ReasonInvalidTransition
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return false, ReasonBlankIngredient
	}

	picks := t.picks[t.user.ID]
	for i, p := range picks {
		if p.Label == label {
			t.picks[t.user.ID] = append(picks[:i:i], picks[i+1:]...)
			t.rec.record(events.EventTypeIngredientRemoved, t.user.ID, p)
			return true, ""
		}
	}

	if len(picks) >= t.cap {
		return false, ReasonCapacityExceeded
	}
	t.emit(*t.user, label)
	return true, ""
}

// AddCustom adds a free-text ingredient for the user.
func (t *ActorTimeline) AddCustom(text string) (bool, RejectReason) {
	if t.user == nil {
		return false, ReasonInvalidTransition
	}
	label := strings.TrimSpace(text)
	if label == "" {
		return false, ReasonBlankIngredient
	}
	for _, p := range t.picks[t.user.ID] {
		if p.Label == label {
			return false, ReasonDuplicateIngredient
		}
	}
	if len(t.picks[t.user.ID]) >= t.cap {
		return false, ReasonCapacityExceeded
	}
	t.emit(*t.user, label)
	return true, ""
}

// Picks returns a copy of one actor's contributions in emission order.
func (t *ActorTimeline) Picks(actorID string) []IngredientEvent {
	src := t.picks[actorID]
	out := make([]IngredientEvent, len(src))
	copy(out, src)
	return out
}

// UserLabels returns the user's current selection.
func (t *ActorTimeline) UserLabels() []string {
	if t.user == nil {
		return nil
	}
	return Labels(t.picks[t.user.ID])
}

// Aggregate flattens all picks by roster order, then emission order.
func (t *ActorTimeline) Aggregate() []IngredientEvent {
	var out []IngredientEvent
	for _, a := range t.roster {
		out = append(out, t.picks[a.ID]...)
	}
	return out
}

// Labels extracts ingredient labels in order.
func Labels(evs []IngredientEvent) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Label
	}
	return out
}

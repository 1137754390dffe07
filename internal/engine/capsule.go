package engine

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/DreamSprite/server/internal/domain/dream"
	"github.com/MRamiBalles/DreamSprite/server/internal/events"
)

// Capsule narration.
const (
	MessageAbsorbing = "Your ingredients are being absorbed by the sprite..."
	MessageMaterial  = "They will become the material for its dream adventure..."
)

// CapsuleTiming paces the reveal. MessageDelay and CompleteDelay are
// measured from n × Stagger, where n is the selection length.
type CapsuleTiming struct {
	Stagger       time.Duration `json:"stagger" yaml:"stagger"`
	MessageDelay  time.Duration `json:"message_delay" yaml:"messageDelay"`
	CompleteDelay time.Duration `json:"complete_delay" yaml:"completeDelay"`
}

// DefaultCapsuleTiming reproduces the reference cadence.
func DefaultCapsuleTiming() CapsuleTiming {
	return CapsuleTiming{
		Stagger:       300 * time.Millisecond,
		MessageDelay:  500 * time.Millisecond,
		CompleteDelay: 2500 * time.Millisecond,
	}
}

// Validate rejects timings that would reveal every capsule at once, complete
// before the message, or go backwards.
func (c CapsuleTiming) Validate() error {
	if c.Stagger < 0 || c.MessageDelay < 0 || c.CompleteDelay < 0 {
		return fmt.Errorf("capsule timing: negative duration")
	}
	if c.Stagger == 0 {
		return fmt.Errorf("capsule timing: stagger must be positive")
	}
	if c.CompleteDelay < c.MessageDelay {
		return fmt.Errorf("capsule timing: complete delay %v before message delay %v", c.CompleteDelay, c.MessageDelay)
	}
	return nil
}

// CapsuleAnimator reveals a frozen selection one capsule at a time and
// signals completion once the settle delay has passed.
type CapsuleAnimator struct {
	timing  CapsuleTiming
	rec     *recorder
	narrate func(string)

	selection []IngredientEvent
	revealed  map[int]bool
	order     []int
}

// NewCapsuleAnimator creates an animator. narrate receives the before/after messages.
func NewCapsuleAnimator(timing CapsuleTiming, rec *recorder, narrate func(string)) *CapsuleAnimator {
	return &CapsuleAnimator{
		timing:   timing,
		rec:      rec,
		narrate:  narrate,
		revealed: make(map[int]bool),
	}
}

// Start schedules every reveal, the material message and onComplete into scope.
func (a *CapsuleAnimator) Start(scope *Scope, selection []IngredientEvent, onComplete func()) {
	a.selection = selection
	a.revealed = make(map[int]bool)
	a.order = nil

	a.narrate(MessageAbsorbing)

	n := len(selection)
	for i := 0; i < n; i++ {
		scope.After(time.Duration(i)*a.timing.Stagger, func() {
			a.reveal(i)
		})
	}

	tail := time.Duration(n) * a.timing.Stagger
	scope.After(tail+a.timing.MessageDelay, func() {
		a.narrate(MessageMaterial)
	})
	scope.After(tail+a.timing.CompleteDelay, onComplete)
}

func (a *CapsuleAnimator) reveal(i int) {
	if a.revealed[i] {
		return
	}
	a.revealed[i] = true
	a.order = append(a.order, i)

	a.rec.record(events.EventTypeCapsuleRevealed, a.selection[i].Actor.ID, CapsuleReveal{
		Index:      i,
		Total:      len(a.selection),
		Page:       dream.PageOf(i),
		Ingredient: a.selection[i],
	})
}

// Revealed returns the indices revealed so far, in reveal order.
func (a *CapsuleAnimator) Revealed() []int {
	out := make([]int, len(a.order))
	copy(out, a.order)
	return out
}

// Total returns the length of the selection being animated.
func (a *CapsuleAnimator) Total() int {
	return len(a.selection)
}

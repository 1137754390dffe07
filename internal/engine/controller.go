package engine

import (
	"fmt"
	"time"

	"github.com/MRamiBalles/DreamSprite/server/internal/domain/dream"
	"github.com/MRamiBalles/DreamSprite/server/internal/events"
	"github.com/MRamiBalles/DreamSprite/server/internal/platform/logger"
	"github.com/MRamiBalles/DreamSprite/server/internal/platform/metrics"
)

// NarrationStep is a message shown at an offset into the Transitioning phase.
type NarrationStep struct {
	Offset time.Duration `json:"offset" yaml:"offset"`
	Text   string        `json:"text" yaml:"text"`
}

// DefaultTransitionNarration is played over the transition video.
func DefaultTransitionNarration() []NarrationStep {
	return []NarrationStep{
		{Offset: 0, Text: "The sprite is absorbing the energy..."},
		{Offset: 2 * time.Second, Text: "Your emotions are transforming into dream essence..."},
		{Offset: 4 * time.Second, Text: "Preparing for the dream adventure..."},
	}
}

// Controller owns the phase and the aggregated selection. Every phase gets
// a fresh Scope that is cancelled on the way out, so no callback outlives
// the phase that scheduled it.
type Controller struct {
	sched  *Scheduler
	rec    *recorder
	logger *logger.Logger

	timeline  *ActorTimeline
	animator  *CapsuleAnimator
	vitals    *VitalsSimulator
	adventure *AdventureLogPlayer
	narration []NarrationStep

	phase       Phase
	scope       *Scope
	selection   []IngredientEvent
	artifact    []string
	hasArtifact bool
	extensions  int
	sleepStart  time.Time
	message     string

	onAwake func()
}

func newController(sched *Scheduler, rec *recorder, log *logger.Logger) *Controller {
	c := &Controller{
		sched:  sched,
		rec:    rec,
		logger: log,
		phase:  PhaseAwake,
		scope:  sched.NewScope(string(PhaseAwake)),
	}
	rec.phase = c.Phase
	return c
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

func (c *Controller) narrate(text string) {
	c.message = text
	c.rec.record(events.EventTypeNarration, events.SystemActor, Narration{Text: text})
}

func (c *Controller) reject(action string, reason RejectReason, label string) bool {
	c.logger.Warn(fmt.Sprintf("Ignored %s in %s: %s", action, c.phase, reason))
	c.rec.record(events.EventTypeActionRejected, events.SystemActor, Rejection{
		Action: action,
		Reason: reason,
		Label:  label,
	})
	metrics.Get().RecordAction(false)
	return false
}

func (c *Controller) accept() bool {
	metrics.Get().RecordAction(true)
	return true
}

// fire applies trig through the transition table.
func (c *Controller) fire(trig Trigger) bool {
	to, ok := Next(c.phase, trig)
	if !ok {
		return c.reject(string(trig), ReasonInvalidTransition, "")
	}
	c.transition(to, trig)
	return true
}

func (c *Controller) transition(to Phase, trig Trigger) {
	from := c.phase

	c.scope.Cancel()
	c.scope = c.sched.NewScope(string(to))
	c.phase = to

	change := PhaseChange{From: from, To: to, Trigger: trig}
	if from == PhaseBrewing && to == PhaseTransitioning {
		change.Selection = c.selection
	}
	c.rec.record(events.EventTypePhaseChanged, events.SystemActor, change)
	c.logger.Event(string(events.EventTypePhaseChanged), events.SystemActor, fmt.Sprintf("%s -> %s (%s)", from, to, trig))
	metrics.Get().RecordTransition(string(to))

	c.enter(from, to)
}

func (c *Controller) enter(from, to Phase) {
	switch to {
	case PhaseSelecting:
		c.message = ""
		c.selection = nil
		c.timeline.Start(c.scope)

	case PhaseBrewing:
		c.animator.Start(c.scope, c.selection, func() {
			c.fire(TriggerBrewComplete)
		})

	case PhaseTransitioning:
		for _, step := range c.narration {
			c.scope.After(step.Offset, func() {
				c.narrate(step.Text)
			})
		}

	case PhaseSleeping:
		c.sleepStart = c.sched.Now()
		c.extensions = 0
		c.message = ""
		c.vitals.Start(c.scope)
		c.adventure.Start(c.scope)

	case PhaseAwake:
		c.message = ""
		c.timeline.Reset()
		if from == PhaseSleeping {
			c.artifact = Labels(c.selection)
			c.hasArtifact = true
		}
		c.selection = nil
		if c.onAwake != nil {
			c.onAwake()
		}
	}
}

// OpenSelection starts a new round of ingredient picking.
func (c *Controller) OpenSelection() bool {
	if !c.fire(TriggerOpenSelection) {
		return false
	}
	return c.accept()
}

// CloseSelection abandons the current round.
func (c *Controller) CloseSelection() bool {
	if !c.fire(TriggerCloseSelection) {
		return false
	}
	return c.accept()
}

// ToggleIngredient selects or deselects a preset for the user.
func (c *Controller) ToggleIngredient(label string) bool {
	if c.phase != PhaseSelecting {
		return c.reject("TOGGLE_INGREDIENT", ReasonInvalidTransition, label)
	}
	if ok, reason := c.timeline.Toggle(label); !ok {
		return c.reject("TOGGLE_INGREDIENT", reason, label)
	}
	return c.accept()
}

// AddCustomIngredient adds free text to the user's selection.
func (c *Controller) AddCustomIngredient(text string) bool {
	if c.phase != PhaseSelecting {
		return c.reject("ADD_CUSTOM_INGREDIENT", ReasonInvalidTransition, text)
	}
	if ok, reason := c.timeline.AddCustom(text); !ok {
		return c.reject("ADD_CUSTOM_INGREDIENT", reason, text)
	}
	return c.accept()
}

// Submit freezes the aggregated selection and starts brewing.
// The user must have picked at least one ingredient; teammates' picks alone
// do not enable it.
func (c *Controller) Submit() bool {
	if _, ok := Next(c.phase, TriggerSubmit); !ok {
		return c.reject(string(TriggerSubmit), ReasonInvalidTransition, "")
	}
	if len(c.timeline.UserLabels()) == 0 {
		return c.reject(string(TriggerSubmit), ReasonEmptySubmission, "")
	}
	c.selection = c.timeline.Aggregate()
	c.transition(PhaseBrewing, TriggerSubmit)
	return c.accept()
}

// MediaEnded reports that the transition video finished.
func (c *Controller) MediaEnded() bool {
	if !c.fire(TriggerMediaEnded) {
		return false
	}
	return c.accept()
}

// WakeUp ends the sleep and tears down every sleeping timer.
func (c *Controller) WakeUp() bool {
	if !c.fire(TriggerWakeUp) {
		return false
	}
	return c.accept()
}

// ExtendSleep is counted while sleeping and otherwise ignored. The phase never changes.
func (c *Controller) ExtendSleep() bool {
	if c.phase != PhaseSleeping {
		return c.reject("EXTEND_SLEEP", ReasonInvalidTransition, "")
	}
	c.extensions++
	c.rec.record(events.EventTypeSleepExtended, events.SystemActor, map[string]int{"extensions": c.extensions})
	metrics.Get().RecordSleepExtension()
	return c.accept()
}

// OpenDream consumes the artifact brought back from the last sleep.
func (c *Controller) OpenDream() bool {
	if c.phase != PhaseAwake || !c.hasArtifact {
		return c.reject("OPEN_DREAM", ReasonInvalidTransition, "")
	}
	c.hasArtifact = false
	c.rec.record(events.EventTypeDreamOpened, events.SystemActor, dream.Pages(c.artifact))
	return c.accept()
}

// Selection returns the frozen selection, or the live aggregate while selecting.
func (c *Controller) Selection() []IngredientEvent {
	if c.phase == PhaseSelecting {
		return c.timeline.Aggregate()
	}
	out := make([]IngredientEvent, len(c.selection))
	copy(out, c.selection)
	return out
}

// HasArtifact reports whether a dream is waiting to be opened.
func (c *Controller) HasArtifact() bool {
	return c.hasArtifact
}

// Extensions returns the extend-sleep count of the current sleep.
func (c *Controller) Extensions() int {
	return c.extensions
}

// Message returns the latest narration line.
func (c *Controller) Message() string {
	return c.message
}

// SleepDuration returns how long the sprite has slept, or zero when awake.
func (c *Controller) SleepDuration() time.Duration {
	if c.phase != PhaseSleeping {
		return 0
	}
	return c.sched.Now().Sub(c.sleepStart)
}

// shutdown cancels the current phase's callbacks.
func (c *Controller) shutdown() {
	c.scope.Cancel()
}

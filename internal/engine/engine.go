package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/MRamiBalles/DreamSprite/server/internal/domain/actor"
	"github.com/MRamiBalles/DreamSprite/server/internal/domain/ingredient"
	"github.com/MRamiBalles/DreamSprite/server/internal/domain/rules"
	"github.com/MRamiBalles/DreamSprite/server/internal/events"
	"github.com/MRamiBalles/DreamSprite/server/internal/platform/logger"
	"github.com/google/uuid"
)

// Setup is everything a session needs to know before it starts.
type Setup struct {
	Roster    []actor.Actor
	Catalog   ingredient.Catalog
	Cap       int
	Capsule   CapsuleTiming
	Narration []NarrationStep
	Vitals    []rules.VitalSpec
	Script    []LogEntry
}

// DefaultSetup returns the stock three-member session.
func DefaultSetup() Setup {
	return Setup{
		Roster:    actor.DefaultRoster(),
		Catalog:   ingredient.DefaultCatalog,
		Cap:       actor.DefaultCap,
		Capsule:   DefaultCapsuleTiming(),
		Narration: DefaultTransitionNarration(),
		Vitals:    rules.DefaultVitals(),
		Script:    DefaultAdventureScript(),
	}
}

// HubText lines.
const (
	HubSleeping = "Brewing your dream... Good night Zzz..."
	HubArtifact = "Look! See what we brought back from the dream!"
	HubWaiting  = "The sprite is waiting for your dream ingredients..."
)

// Snapshot is a read-only view of the session for presentation clients.
type Snapshot struct {
	SessionID       string            `json:"session_id"`
	Now             time.Time         `json:"now"`
	Phase           Phase             `json:"phase"`
	Message         string            `json:"message"`
	HubText         string            `json:"hub_text"`
	HasArtifact     bool              `json:"has_artifact"`
	Roster          []actor.Ref       `json:"roster"`
	Catalog         []string          `json:"catalog"`
	UserPicks       []string          `json:"user_picks"`
	Selection       []IngredientEvent `json:"selection"`
	Revealed        int               `json:"revealed"`
	Vitals          []rules.Sample    `json:"vitals,omitempty"`
	Log             []LogEntry        `json:"log,omitempty"`
	Extensions      int               `json:"extensions"`
	SleepDuration   string            `json:"sleep_duration,omitempty"`
	BrewingProgress float64           `json:"brewing_progress"`
}

// Option customizes NewEngine.
type Option func(*Engine)

// WithScheduler drives the engine from sched instead of a fresh wall-clock scheduler.
func WithScheduler(sched *Scheduler) Option {
	return func(e *Engine) { e.sched = sched }
}

// WithRand sets the source of cosmetic randomness.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) Option {
	return func(e *Engine) { e.sessionID = id }
}

// WithActionBuffer sizes the ticker's posted-action queue.
func WithActionBuffer(n int) Option {
	return func(e *Engine) { e.actionBuffer = n }
}

// Engine is the session facade. Until Start is called it is driven by hand
// through its Scheduler; after Start, other goroutines must go through
// Dispatch and Inspect.
type Engine struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	sched    *Scheduler
	rng      *rand.Rand
	ticker   *Ticker
	started  atomic.Bool

	sessionID    string
	actionBuffer int
	setup        Setup
	pending      *Setup
	rec          *recorder
	ctrl         *Controller
}

// NewEngine wires a session onto eventLog and journals SESSION_STARTED.
func NewEngine(eventLog *events.EventLog, log *logger.Logger, setup Setup, opts ...Option) *Engine {
	e := &Engine{
		eventLog:     eventLog,
		logger:       log,
		actionBuffer: 64,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sched == nil {
		e.sched = NewScheduler(time.Now())
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.sessionID == "" {
		e.sessionID = uuid.NewString()
	}

	e.ticker = NewTicker(e.sched, log, e.actionBuffer)
	e.rec = &recorder{log: eventLog, sessionID: e.sessionID, sched: e.sched}
	e.ctrl = newController(e.sched, e.rec, log)
	e.ctrl.onAwake = e.applyPending
	e.install(setup)

	e.rec.record(events.EventTypeSessionStarted, events.SystemActor, map[string]interface{}{
		"roster": e.rosterRefs(),
		"cap":    e.setup.Cap,
	})
	e.logger.Info("Dream session started: " + e.sessionID)
	return e
}

func (e *Engine) install(setup Setup) {
	if setup.Cap <= 0 {
		setup.Cap = actor.DefaultCap
	}
	if setup.Catalog == nil {
		setup.Catalog = ingredient.DefaultCatalog
	}
	if setup.Capsule == (CapsuleTiming{}) {
		setup.Capsule = DefaultCapsuleTiming()
	}
	e.setup = setup

	c := e.ctrl
	c.timeline = NewActorTimeline(setup.Roster, setup.Catalog, setup.Cap, e.rec)
	c.animator = NewCapsuleAnimator(setup.Capsule, e.rec, c.narrate)
	c.vitals = NewVitalsSimulator(setup.Vitals, e.rng, e.rec)
	c.adventure = NewAdventureLogPlayer(setup.Script, e.rec)
	c.narration = setup.Narration
}

func (e *Engine) rosterRefs() []actor.Ref {
	refs := make([]actor.Ref, len(e.setup.Roster))
	for i, a := range e.setup.Roster {
		refs[i] = a.Ref()
	}
	return refs
}

// SessionID returns the session identifier stamped on every journal event.
func (e *Engine) SessionID() string { return e.sessionID }

// Scheduler exposes the clock for virtual-time driving.
func (e *Engine) Scheduler() *Scheduler { return e.sched }

// Journal exposes the session's event log.
func (e *Engine) Journal() *events.EventLog { return e.eventLog }

// Controller exposes the phase controller.
func (e *Engine) Controller() *Controller { return e.ctrl }

// Start spawns the Ticker that drives the session from the wall clock.
// From here on only the ticker goroutine touches session state.
func (e *Engine) Start(ctx context.Context) {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	go e.ticker.Start(ctx)
}

// Running reports whether a ticker owns the engine.
func (e *Engine) Running() bool {
	return e.started.Load()
}

// Close stops the ticker and cancels all pending callbacks.
func (e *Engine) Close() {
	e.ticker.Stop()
	if e.started.Load() {
		<-e.ticker.Done()
	}
	e.ctrl.shutdown()
	e.logger.Info("Dream session closed: " + e.sessionID)
}

// Convenience wrappers for virtual-clock callers.

func (e *Engine) OpenSelection() bool            { return e.ctrl.OpenSelection() }
func (e *Engine) CloseSelection() bool           { return e.ctrl.CloseSelection() }
func (e *Engine) ToggleIngredient(l string) bool { return e.ctrl.ToggleIngredient(l) }
func (e *Engine) AddCustomIngredient(t string) bool {
	return e.ctrl.AddCustomIngredient(t)
}
func (e *Engine) Submit() bool      { return e.ctrl.Submit() }
func (e *Engine) MediaEnded() bool  { return e.ctrl.MediaEnded() }
func (e *Engine) WakeUp() bool      { return e.ctrl.WakeUp() }
func (e *Engine) ExtendSleep() bool { return e.ctrl.ExtendSleep() }
func (e *Engine) OpenDream() bool   { return e.ctrl.OpenDream() }

// SetScenario swaps the session setup. Outside Awake the change is held
// and applied on the next return to Awake; it reports whether it applied now.
func (e *Engine) SetScenario(setup Setup) bool {
	if e.ctrl.Phase() != PhaseAwake {
		e.logger.Warn(fmt.Sprintf("Scenario change deferred: session is %s", e.ctrl.Phase()))
		e.pending = &setup
		return false
	}
	e.pending = nil
	e.applySetup(setup)
	return true
}

func (e *Engine) applyPending() {
	if e.pending == nil {
		return
	}
	setup := *e.pending
	e.pending = nil
	e.applySetup(setup)
}

func (e *Engine) applySetup(setup Setup) {
	e.install(setup)
	e.rec.record(events.EventTypeScenarioReloaded, events.SystemActor, map[string]interface{}{
		"roster": e.rosterRefs(),
		"cap":    e.setup.Cap,
	})
	e.logger.Info("Scenario applied")
}

// Snapshot builds the presentation view. Call on the engine goroutine.
func (e *Engine) Snapshot() Snapshot {
	c := e.ctrl
	s := Snapshot{
		SessionID:       e.sessionID,
		Now:             e.sched.Now(),
		Phase:           c.Phase(),
		Message:         c.Message(),
		HasArtifact:     c.HasArtifact(),
		Roster:          e.rosterRefs(),
		Catalog:         e.setup.Catalog.Labels(),
		UserPicks:       c.timeline.UserLabels(),
		Selection:       c.Selection(),
		Extensions:      c.Extensions(),
		BrewingProgress: rules.BrewingWindowProgress(e.sched.Now()),
	}

	switch c.Phase() {
	case PhaseBrewing, PhaseTransitioning:
		s.Revealed = len(c.animator.Revealed())
	case PhaseSleeping:
		s.Revealed = len(c.animator.Revealed())
		s.Vitals = c.vitals.Samples()
		s.Log = c.adventure.Entries()
		s.SleepDuration = rules.FormatSleepDuration(c.SleepDuration())
	}

	switch {
	case c.Phase() == PhaseSleeping:
		s.HubText = HubSleeping
	case c.HasArtifact():
		s.HubText = HubArtifact
	default:
		s.HubText = HubWaiting
	}
	return s
}

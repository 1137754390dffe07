// Package rehearsal runs scripted sessions on the virtual clock and checks
// the engine's timing and phase guarantees against a given setup.
package rehearsal

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/MRamiBalles/DreamSprite/server/internal/engine"
	"github.com/MRamiBalles/DreamSprite/server/internal/events"
	"github.com/MRamiBalles/DreamSprite/server/internal/platform/logger"
)

// Start is the virtual wall-clock time every rehearsal begins at.
var Start = time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)

// Result captures the outcome of one scripted scenario.
type Result struct {
	Scenario string `json:"scenario"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
	Reason   string `json:"reason,omitempty"`
}

// Rehearsal holds the setup under test and collects results.
type Rehearsal struct {
	setup   engine.Setup
	logger  *logger.Logger
	seed    int64
	results []Result
}

// New creates a rehearsal for setup. Engine logs go to log.
func New(setup engine.Setup, log *logger.Logger, seed int64) *Rehearsal {
	return &Rehearsal{setup: setup, logger: log, seed: seed}
}

// Run executes every scenario and returns the results.
func (r *Rehearsal) Run() []Result {
	r.results = r.results[:0]
	r.fullRound()
	r.capacity()
	r.emptySubmit()
	r.earlyTransition()
	r.wakeTeardown()
	return r.Results()
}

// Results returns a copy of the collected results.
func (r *Rehearsal) Results() []Result {
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Passed reports whether every scenario passed.
func (r *Rehearsal) Passed() bool {
	for _, res := range r.results {
		if !res.Passed {
			return false
		}
	}
	return true
}

func (r *Rehearsal) newEngine() (*engine.Engine, *events.EventLog) {
	el := events.NewEventLog(nil)
	e := engine.NewEngine(el, r.logger, r.setup,
		engine.WithScheduler(engine.NewScheduler(Start)),
		engine.WithRand(rand.New(rand.NewSource(r.seed))),
	)
	return e, el
}

func (r *Rehearsal) record(name, expected, actual string, passed bool, reason string) {
	r.results = append(r.results, Result{
		Scenario: name,
		Expected: expected,
		Actual:   actual,
		Passed:   passed,
		Reason:   reason,
	})
}

func (r *Rehearsal) perActorCap() int {
	if r.setup.Cap > 0 {
		return r.setup.Cap
	}
	return 3
}

// userPicks chooses the labels the scripted user toggles.
func (r *Rehearsal) userPicks(n int) []string {
	labels := r.setup.Catalog.Labels()
	if n > len(labels) {
		n = len(labels)
	}
	return labels[:n]
}

// lastOffset is when the final teammate pick is due.
func (r *Rehearsal) lastOffset() time.Duration {
	var last time.Duration
	for _, a := range r.setup.Roster {
		if n := a.Planned(r.perActorCap()); n > 0 && a.Offsets[n-1] > last {
			last = a.Offsets[n-1]
		}
	}
	return last
}

// expectedSelection is the aggregation the engine must produce.
func (r *Rehearsal) expectedSelection(user []string) []string {
	var out []string
	for _, a := range r.setup.Roster {
		if a.IsUser {
			out = append(out, user...)
			continue
		}
		out = append(out, a.Targets[:a.Planned(r.perActorCap())]...)
	}
	return out
}

func (r *Rehearsal) brew(e *engine.Engine, user []string) bool {
	if !e.OpenSelection() {
		return false
	}
	for _, l := range user {
		e.ToggleIngredient(l)
	}
	e.Scheduler().Advance(r.lastOffset())
	return e.Submit()
}

func (r *Rehearsal) completion(n int) time.Duration {
	return time.Duration(n)*r.setup.Capsule.Stagger + r.setup.Capsule.CompleteDelay
}

func (r *Rehearsal) fullRound() {
	const name = "Full round"
	e, el := r.newEngine()
	defer e.Close()

	user := r.userPicks(min(2, r.perActorCap()))
	want := r.expectedSelection(user)
	if !r.brew(e, user) {
		r.record(name, "submit accepted", "submit rejected", false, "the brew could not start")
		return
	}

	got := engine.Labels(e.Controller().Selection())
	if strings.Join(got, ",") != strings.Join(want, ",") {
		r.record(name, strings.Join(want, ","), strings.Join(got, ","), false, "aggregation order differs")
		return
	}

	e.Scheduler().Advance(r.completion(len(want)))
	phase := e.Controller().Phase()
	reveals := len(el.GetByType(events.EventTypeCapsuleRevealed))
	if phase != engine.PhaseTransitioning || reveals != len(want) {
		r.record(name, fmt.Sprintf("TRANSITIONING after %d reveals", len(want)),
			fmt.Sprintf("%s after %d reveals", phase, reveals), false, "capsule animation did not complete")
		return
	}

	e.MediaEnded()
	e.Scheduler().Advance(20 * time.Second)
	e.WakeUp()
	if !e.Controller().HasArtifact() {
		r.record(name, "artifact after waking", "no artifact", false, "wake-up did not produce an artifact")
		return
	}
	e.OpenDream()
	opened := el.GetByType(events.EventTypeDreamOpened)
	if len(opened) != 1 {
		r.record(name, "one dream opened", fmt.Sprintf("%d", len(opened)), false, "the dream could not be opened")
		return
	}

	r.record(name, fmt.Sprintf("%d capsules, dream opened", len(want)),
		fmt.Sprintf("%d capsules, dream opened", reveals), true, "")
}

func (r *Rehearsal) capacity() {
	const name = "Capacity"
	e, el := r.newEngine()
	defer e.Close()

	c := r.perActorCap()
	labels := r.userPicks(c + 1)
	if len(labels) <= c {
		r.record(name, "catalog larger than cap", fmt.Sprintf("%d labels", len(labels)), true, "skipped: catalog too small")
		return
	}

	e.OpenSelection()
	for _, l := range labels[:c] {
		e.ToggleIngredient(l)
	}
	extra := e.ToggleIngredient(labels[c])
	picks := len(e.Snapshot().UserPicks)

	rejected := false
	for _, ev := range el.GetByType(events.EventTypeActionRejected) {
		if rej, ok := ev.Payload.(engine.Rejection); ok && rej.Reason == engine.ReasonCapacityExceeded {
			rejected = true
		}
	}
	passed := !extra && picks == c && rejected
	r.record(name, fmt.Sprintf("%d picks, extra rejected", c),
		fmt.Sprintf("%d picks, extra accepted=%v", picks, extra), passed, failIf(!passed, "cap not enforced"))
}

func (r *Rehearsal) emptySubmit() {
	const name = "Empty submission"
	e, _ := r.newEngine()
	defer e.Close()

	e.OpenSelection()
	e.Scheduler().Advance(r.lastOffset())
	accepted := e.Submit()
	phase := e.Controller().Phase()

	passed := !accepted && phase == engine.PhaseSelecting
	r.record(name, "SELECTING, submit ignored", fmt.Sprintf("%s, accepted=%v", phase, accepted), passed,
		failIf(!passed, "submit went through without user picks"))
}

func (r *Rehearsal) earlyTransition() {
	const name = "No early transition"
	e, _ := r.newEngine()
	defer e.Close()

	user := r.userPicks(1)
	if !r.brew(e, user) {
		r.record(name, "submit accepted", "submit rejected", false, "the brew could not start")
		return
	}
	n := len(e.Controller().Selection())
	e.Scheduler().Advance(r.completion(n) - time.Millisecond)
	before := e.Controller().Phase()
	e.Scheduler().Advance(time.Millisecond)
	after := e.Controller().Phase()

	passed := before == engine.PhaseBrewing && after == engine.PhaseTransitioning
	r.record(name, "BREWING then TRANSITIONING", fmt.Sprintf("%s then %s", before, after), passed,
		failIf(!passed, "completion fired at the wrong time"))
}

func (r *Rehearsal) wakeTeardown() {
	const name = "Wake-up teardown"
	e, el := r.newEngine()
	defer e.Close()

	if !r.brew(e, r.userPicks(1)) {
		r.record(name, "submit accepted", "submit rejected", false, "the brew could not start")
		return
	}
	e.Scheduler().Advance(r.completion(len(e.Controller().Selection())))
	e.MediaEnded()
	e.Scheduler().Advance(3 * time.Second)
	e.WakeUp()

	samples := len(el.GetByType(events.EventTypeVitalSampled))
	logs := len(el.GetByType(events.EventTypeAdventureLog))
	pending := e.Scheduler().Pending()
	e.Scheduler().Advance(time.Minute)
	lateSamples := len(el.GetByType(events.EventTypeVitalSampled)) - samples
	lateLogs := len(el.GetByType(events.EventTypeAdventureLog)) - logs

	passed := pending == 0 && lateSamples == 0 && lateLogs == 0
	r.record(name, "no callbacks after waking",
		fmt.Sprintf("%d pending, %d samples and %d log lines after waking", pending, lateSamples, lateLogs),
		passed, failIf(!passed, "sleeping timers survived the wake-up"))
}

func failIf(cond bool, reason string) string {
	if cond {
		return reason
	}
	return ""
}

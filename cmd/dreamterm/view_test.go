package main

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/MRamiBalles/DreamSprite/server/internal/domain/actor"
	"github.com/MRamiBalles/DreamSprite/server/internal/engine"
	"github.com/MRamiBalles/DreamSprite/server/internal/events"
)

func screenText(t *testing.T, s tcell.SimulationScreen) string {
	t.Helper()
	cells, w, h := s.GetContents()
	var b strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := cells[y*w+x]
			if len(c.Runes) > 0 {
				b.WriteRune(c.Runes[0])
			} else {
				b.WriteRune(' ')
			}
		}
		b.WriteRune('\n')
	}
	return b.String()
}

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	s.SetSize(120, 40)
	t.Cleanup(s.Fini)
	return s
}

func TestDrawSelecting(t *testing.T) {
	// Setup
	s := newScreen(t)
	v := &view{}
	v.setSnapshot(engine.Snapshot{
		Phase:     engine.PhaseSelecting,
		HubText:   engine.HubWaiting,
		Roster:    []actor.Ref{{ID: "you", Name: "You", Initial: "Y"}},
		Catalog:   []string{"Tired", "Happy"},
		UserPicks: []string{"Happy"},
	})

	// Act
	v.draw(s)
	text := screenText(t, s)

	// Assert
	for _, want := range []string{"SELECTING", "[ ] Tired", "[x] Happy", "(Y) You"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected screen to contain %q", want)
		}
	}
}

func TestDrawBeforeSnapshot(t *testing.T) {
	s := newScreen(t)
	v := &view{}
	v.draw(s)
	if !strings.Contains(screenText(t, s), "connecting...") {
		t.Error("Expected a connecting placeholder")
	}
}

func TestHandleKeyMapsActions(t *testing.T) {
	v := &view{}
	v.setSnapshot(engine.Snapshot{Phase: engine.PhaseSelecting, Catalog: []string{"Tired", "Happy"}})

	key := func(r rune) *tcell.EventKey { return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone) }

	if a, send, _ := v.handleKey(key('o')); !send || a.Type != engine.ActionOpenSelection {
		t.Errorf("Expected open selection, got %+v", a)
	}

	v.handleKey(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone))
	if a, send, _ := v.handleKey(key(' ')); !send || a.Label != "Happy" {
		t.Errorf("Expected toggle of Happy, got %+v", a)
	}

	// Custom text entry
	v.handleKey(key('/'))
	for _, r := range "Rain" {
		v.handleKey(key(r))
	}
	a, send, _ := v.handleKey(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	if !send || a.Type != engine.ActionAddCustom || a.Label != "Rain" {
		t.Errorf("Expected custom ingredient Rain, got %+v", a)
	}

	if _, _, quit := v.handleKey(key('q')); !quit {
		t.Error("Expected q to quit")
	}
}

func TestFeedKeepsLatestLines(t *testing.T) {
	v := &view{}
	for i := 0; i < feedLength+3; i++ {
		v.addEvent(events.Event{Type: events.EventTypeSleepExtended})
	}
	v.addEvent(events.Event{Type: events.EventTypeVitalSampled})

	if len(v.feed) != feedLength {
		t.Errorf("Expected %d feed lines, got %d", feedLength, len(v.feed))
	}
}

func TestDescribeDecodesRemotePayloads(t *testing.T) {
	// Remote events arrive with generic map payloads.
	e := events.Event{
		Type: events.EventTypeIngredientAdded,
		Payload: map[string]interface{}{
			"actor":      map[string]interface{}{"id": "ada", "name": "Ada"},
			"ingredient": "Dreamy",
			"offset":     float64(3 * time.Second),
		},
	}
	if got := describe(e); got != "Ada added Dreamy" {
		t.Errorf("Expected %q, got %q", "Ada added Dreamy", got)
	}
}

func TestGradientColor(t *testing.T) {
	if c := gradientColor("from-blue-300 to-blue-400"); c != tcell.GetColor("blue") {
		t.Errorf("Expected blue, got %v", c)
	}
	if c := gradientColor("from-amber-300 to-orange-300"); c != tcell.GetColor("gold") {
		t.Errorf("Expected gold for amber, got %v", c)
	}
	if c := gradientColor("plain"); c != tcell.ColorDefault {
		t.Errorf("Expected default color, got %v", c)
	}
}

func TestSessionURLFor(t *testing.T) {
	got, err := sessionURLFor("ws://localhost:8080/ws")
	if err != nil || got != "http://localhost:8080/api/session" {
		t.Errorf("Unexpected session url %q (err %v)", got, err)
	}
	if _, err := sessionURLFor("ftp://x"); err == nil {
		t.Error("Expected an error for an unsupported scheme")
	}
}

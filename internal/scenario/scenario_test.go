package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MRamiBalles/DreamSprite/server/internal/domain/rules"
	"github.com/MRamiBalles/DreamSprite/server/internal/engine"
	"github.com/MRamiBalles/DreamSprite/server/internal/events"
	"github.com/MRamiBalles/DreamSprite/server/internal/platform/logger"
)

func TestDefaultMatchesStockSetup(t *testing.T) {
	sc, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	stock := engine.DefaultSetup()

	if len(sc.Roster) != len(stock.Roster) {
		t.Fatalf("Expected %d actors, got %d", len(stock.Roster), len(sc.Roster))
	}
	for i, a := range sc.Roster {
		want := stock.Roster[i]
		if a.ID != want.ID || a.Initial != want.Initial || a.IsUser != want.IsUser {
			t.Errorf("Actor %d: expected %+v, got %+v", i, want, a)
		}
		for j := range want.Offsets {
			if a.Offsets[j] != want.Offsets[j] {
				t.Errorf("Actor %s offset %d: expected %v, got %v", a.ID, j, want.Offsets[j], a.Offsets[j])
			}
		}
	}
	if sc.Capsule != stock.Capsule {
		t.Errorf("Expected capsule timing %+v, got %+v", stock.Capsule, sc.Capsule)
	}
	if len(sc.Catalog) != len(stock.Catalog) || len(sc.Adventure) != len(stock.Script) {
		t.Errorf("Catalog or script length differs from stock")
	}
	if sc.Vitals[1].Unit != "°C" || sc.Vitals[0].Interval != 2*time.Second {
		t.Errorf("Unexpected vitals %+v", sc.Vitals)
	}
}

func TestParseRejectsBadScenarios(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no user",
			yaml: "roster:\n  - {actorId: ada, targetIngredients: [A], delayOffsets: [1s]}\n",
			want: "exactly one user",
		},
		{
			name: "two users",
			yaml: "roster:\n  - {actorId: a, isUser: true}\n  - {actorId: b, isUser: true}\n",
			want: "exactly one user",
		},
		{
			name: "duplicate id",
			yaml: "roster:\n  - {actorId: you, isUser: true}\n  - {actorId: you, targetIngredients: [A], delayOffsets: [1s]}\n",
			want: "duplicate actor id",
		},
		{
			name: "offset mismatch",
			yaml: "roster:\n  - {actorId: you, isUser: true}\n  - {actorId: ada, targetIngredients: [A, B], delayOffsets: [1s]}\n",
			want: "offsets",
		},
		{
			name: "offsets not increasing",
			yaml: "roster:\n  - {actorId: you, isUser: true}\n  - {actorId: ada, targetIngredients: [A, B], delayOffsets: [2s, 1s]}\n",
			want: "strictly increasing",
		},
		{
			name: "unknown field",
			yaml: "roster:\n  - {actorId: you, isUser: true}\nvolume: 11\n",
			want: "unmarshal",
		},
		{
			name: "cap other than three",
			yaml: "cap: 5\nroster:\n  - {actorId: you, isUser: true}\n",
			want: "cap is fixed",
		},
		{
			name: "zero stagger",
			yaml: "roster:\n  - {actorId: you, isUser: true}\ncapsule: {messageDelay: 500ms, completeDelay: 1s}\n",
			want: "stagger must be positive",
		},
		{
			name: "completion before message",
			yaml: "roster:\n  - {actorId: you, isUser: true}\ncapsule: {stagger: 300ms, messageDelay: 3s, completeDelay: 1s}\n",
			want: "capsule timing",
		},
	}

	for _, tt := range tests {
		_, err := Parse([]byte(tt.yaml))
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: expected error containing %q, got %v", tt.name, tt.want, err)
		}
	}
}

func TestParseDefaultsCap(t *testing.T) {
	sc, err := Parse([]byte("roster:\n  - {actorId: you, isUser: true}\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sc.Cap != 3 {
		t.Errorf("Expected default cap 3, got %d", sc.Cap)
	}
	if setup := sc.Setup(); len(setup.Catalog) == 0 {
		t.Error("Expected stock catalog when none is declared")
	}
}

func TestParseFillsOmittedSections(t *testing.T) {
	// Setup
	sc, err := Parse([]byte("roster:\n  - {actorId: you, isUser: true}\n  - {actorId: ada, targetIngredients: [Dreamy], delayOffsets: [1s]}\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	setup := sc.Setup()

	// Assert
	if setup.Capsule != engine.DefaultCapsuleTiming() {
		t.Errorf("Expected stock capsule timing, got %+v", setup.Capsule)
	}
	if len(setup.Narration) != len(engine.DefaultTransitionNarration()) {
		t.Errorf("Expected stock narration, got %d steps", len(setup.Narration))
	}
	if len(setup.Vitals) != len(rules.DefaultVitals()) {
		t.Errorf("Expected stock vitals, got %d", len(setup.Vitals))
	}
	if len(setup.Script) != len(engine.DefaultAdventureScript()) {
		t.Errorf("Expected stock adventure script, got %d entries", len(setup.Script))
	}

	// Act: brewing must keep its cadence instead of finishing at once.
	sched := engine.NewScheduler(time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC))
	eng := engine.NewEngine(events.NewEventLog(nil), logger.NewNopLogger(), setup, engine.WithScheduler(sched))
	eng.OpenSelection()
	eng.ToggleIngredient("Tired")
	sched.Advance(2 * time.Second)
	eng.Submit()
	sched.Advance(0)

	if p := eng.Controller().Phase(); p != engine.PhaseBrewing {
		t.Errorf("Expected BREWING right after submit, got %s", p)
	}
	sched.Advance(2*engine.DefaultCapsuleTiming().Stagger + engine.DefaultCapsuleTiming().CompleteDelay)
	if p := eng.Controller().Phase(); p != engine.PhaseTransitioning {
		t.Errorf("Expected TRANSITIONING after the settle delay, got %s", p)
	}

	eng.MediaEnded()
	sched.Advance(10 * time.Second)
	snap := eng.Snapshot()
	if len(snap.Vitals) == 0 || len(snap.Log) == 0 {
		t.Errorf("Expected vitals and log while sleeping, got %d vitals and %d log entries", len(snap.Vitals), len(snap.Log))
	}
}

func TestLoadOrDefault(t *testing.T) {
	if _, err := LoadOrDefault(""); err != nil {
		t.Errorf("Empty path should use the embedded default: %v", err)
	}
	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

const soloScenario = `
name: solo
roster:
  - {actorId: you, displayName: You, isUser: true}
capsule: {stagger: 100ms, messageDelay: 200ms, completeDelay: 1s}
`

func TestWatcherReloadsOnReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, defaultYAML, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := Watch(path)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	// Replace atomically, the way editors save.
	tmp := filepath.Join(dir, "scenario.yaml.tmp")
	if err := os.WriteFile(tmp, []byte(soloScenario), 0o644); err != nil {
		t.Fatalf("write tmp: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}

	select {
	case sc := <-w.Updates:
		if sc.Name != "solo" || len(sc.Roster) != 1 {
			t.Errorf("Unexpected reloaded scenario %+v", sc)
		}
	case err := <-w.Errors:
		t.Fatalf("reload error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("No reload after replacing the file")
	}
}

func TestWatcherReportsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, defaultYAML, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := Watch(path)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	tmp := filepath.Join(dir, "broken.tmp")
	if err := os.WriteFile(tmp, []byte("roster: [\n"), 0o644); err != nil {
		t.Fatalf("write tmp: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}

	select {
	case <-w.Updates:
		t.Fatal("Broken scenario delivered as an update")
	case err := <-w.Errors:
		if !strings.Contains(err.Error(), "scenario.yaml") {
			t.Errorf("Expected error naming the file, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("No error reported for broken file")
	}
}

// Package scenario loads session setups from YAML.
// A stock scenario is embedded; a file on disk can replace it and be hot-reloaded.
package scenario

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MRamiBalles/DreamSprite/server/internal/domain/actor"
	"github.com/MRamiBalles/DreamSprite/server/internal/domain/ingredient"
	"github.com/MRamiBalles/DreamSprite/server/internal/domain/rules"
	"github.com/MRamiBalles/DreamSprite/server/internal/engine"
)

//go:embed default.yaml
var defaultYAML []byte

// Scenario is the declarative form of an engine.Setup.
type Scenario struct {
	Name      string                 `yaml:"name"`
	Cap       int                    `yaml:"cap"`
	Roster    []actor.Actor          `yaml:"roster"`
	Catalog   ingredient.Catalog     `yaml:"catalog"`
	Capsule   engine.CapsuleTiming   `yaml:"capsule"`
	Narration []engine.NarrationStep `yaml:"narration"`
	Vitals    []rules.VitalSpec      `yaml:"vitals"`
	Adventure []engine.LogEntry      `yaml:"adventure"`
}

// Default returns the embedded stock scenario.
func Default() (*Scenario, error) {
	sc, err := Parse(defaultYAML)
	if err != nil {
		return nil, fmt.Errorf("scenario: embedded default: %w", err)
	}
	return sc, nil
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: load %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario: %s: %w", path, err)
	}
	return sc, nil
}

// LoadOrDefault loads path, or the embedded default when path is empty.
func LoadOrDefault(path string) (*Scenario, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// Parse decodes and validates YAML. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	sc.fillDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// fillDefaults takes the stock value for every section the file leaves out.
func (sc *Scenario) fillDefaults() {
	if sc.Cap == 0 {
		sc.Cap = actor.DefaultCap
	}
	if sc.Capsule == (engine.CapsuleTiming{}) {
		sc.Capsule = engine.DefaultCapsuleTiming()
	}
	if len(sc.Narration) == 0 {
		sc.Narration = engine.DefaultTransitionNarration()
	}
	if len(sc.Vitals) == 0 {
		sc.Vitals = rules.DefaultVitals()
	}
	if len(sc.Adventure) == 0 {
		sc.Adventure = engine.DefaultAdventureScript()
	}
}

// Validate checks the scenario can drive a session.
func (sc *Scenario) Validate() error {
	if sc.Cap != actor.DefaultCap {
		return fmt.Errorf("cap is fixed at %d, got %d", actor.DefaultCap, sc.Cap)
	}
	if len(sc.Roster) == 0 {
		return fmt.Errorf("empty roster")
	}

	seen := make(map[string]bool, len(sc.Roster))
	users := 0
	for _, a := range sc.Roster {
		if err := a.Validate(); err != nil {
			return err
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate actor id %q", a.ID)
		}
		seen[a.ID] = true
		if a.IsUser {
			users++
		}
	}
	if users != 1 {
		return fmt.Errorf("roster needs exactly one user actor, found %d", users)
	}

	labels := make(map[string]bool, len(sc.Catalog))
	for _, ing := range sc.Catalog {
		if ing.Label == "" {
			return fmt.Errorf("catalog: empty label")
		}
		if labels[ing.Label] {
			return fmt.Errorf("catalog: duplicate label %q", ing.Label)
		}
		labels[ing.Label] = true
	}

	if err := sc.Capsule.Validate(); err != nil {
		return err
	}
	for _, step := range sc.Narration {
		if step.Offset < 0 {
			return fmt.Errorf("narration: negative offset %v", step.Offset)
		}
	}
	for _, v := range sc.Vitals {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	for _, e := range sc.Adventure {
		if e.Offset < 0 {
			return fmt.Errorf("adventure: negative offset %v", e.Offset)
		}
	}
	return nil
}

// Setup converts the scenario for the engine.
func (sc *Scenario) Setup() engine.Setup {
	catalog := sc.Catalog
	if len(catalog) == 0 {
		catalog = ingredient.DefaultCatalog
	}
	return engine.Setup{
		Roster:    sc.Roster,
		Catalog:   catalog,
		Cap:       sc.Cap,
		Capsule:   sc.Capsule,
		Narration: sc.Narration,
		Vitals:    sc.Vitals,
		Script:    sc.Adventure,
	}
}

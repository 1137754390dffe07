// Package actor defines the participants of a dream session.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package actor

import (
	"fmt"
	"time"
)

// DefaultCap is the maximum number of ingredients any actor contributes.
const DefaultCap = 3

// UserID is the conventional ID of the human participant.
const UserID = "you"

// Actor is a participant in the selection phase. Simulated actors carry a
// script of targets and offsets; the user actor's targets are ignored.
type Actor struct {
	ID      string `json:"id" yaml:"actorId"`
	Name    string `json:"name" yaml:"displayName"`
	Initial string `json:"initial" yaml:"initial"`
	Color   string `json:"color" yaml:"color"`
	IsUser  bool   `json:"is_user" yaml:"isUser"`

	Targets []string        `json:"targets,omitempty" yaml:"targetIngredients"`
	Offsets []time.Duration `json:"offsets,omitempty" yaml:"delayOffsets"`
}

// Ref is the slice of an actor copied onto every ingredient it emits.
type Ref struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Initial string `json:"initial"`
	Color   string `json:"color"`
}

// Ref returns the display reference for a.
func (a Actor) Ref() Ref {
	return Ref{ID: a.ID, Name: a.Name, Initial: a.Initial, Color: a.Color}
}

// Validate checks the actor's script is well formed.
func (a Actor) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("actor: empty id")
	}
	if a.IsUser {
		return nil
	}
	if len(a.Targets) != len(a.Offsets) {
		return fmt.Errorf("actor %s: %d targets but %d offsets", a.ID, len(a.Targets), len(a.Offsets))
	}
	for i, off := range a.Offsets {
		if off < 0 {
			return fmt.Errorf("actor %s: negative offset %v", a.ID, off)
		}
		if i > 0 && off <= a.Offsets[i-1] {
			return fmt.Errorf("actor %s: offsets must be strictly increasing (%v after %v)", a.ID, off, a.Offsets[i-1])
		}
	}
	return nil
}

// Planned returns how many scripted ingredients the actor will emit under cap.
func (a Actor) Planned(cap int) int {
	if a.IsUser {
		return 0
	}
	n := len(a.Targets)
	if len(a.Offsets) < n {
		n = len(a.Offsets)
	}
	if n > cap {
		n = cap
	}
	return n
}

// DefaultRoster returns the stock three-member team: the user plus Mathilda and Ada.
func DefaultRoster() []Actor {
	return []Actor{
		{ID: UserID, Name: "You", Initial: "Y", Color: "from-purple-500 to-pink-500", IsUser: true},
		{
			ID: "mathilda", Name: "Mathilda", Initial: "M", Color: "from-blue-400 to-cyan-400",
			Targets: []string{"Happy", "Creative", "Peaceful"},
			Offsets: []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second},
		},
		{
			ID: "ada", Name: "Ada", Initial: "A", Color: "from-pink-400 to-rose-400",
			Targets: []string{"Excited", "Playful", "Dreamy"},
			Offsets: []time.Duration{3 * time.Second, 5500 * time.Millisecond, 7500 * time.Millisecond},
		},
	}
}

package engine

import (
	"sort"
	"time"

	"github.com/MRamiBalles/DreamSprite/server/internal/events"
)

// LogEntry is one line of the sprite's scripted adventure.
type LogEntry struct {
	Offset time.Duration `json:"offset" yaml:"offset"`
	Clock  string        `json:"clock" yaml:"clock"`
	Text   string        `json:"text" yaml:"text"`
}

// DefaultAdventureScript is the stock overnight feed.
func DefaultAdventureScript() []LogEntry {
	return []LogEntry{
		{Offset: 2 * time.Second, Clock: "01:30 AM", Text: "The sprite absorbed your [Tired] ingredient. It felt heavy..."},
		{Offset: 5 * time.Second, Clock: "02:15 AM", Text: "...but then it found Mathilda's [Happy] ingredient! They swirled together and sparked!"},
		{Offset: 8 * time.Second, Clock: "03:00 AM", Text: "Adventure Vibe changed to: Warm."},
		{Offset: 11 * time.Second, Clock: "03:45 AM", Text: "The sprite dodged a \"Nightmare Fragment\" while looking for Ada's [Work]..."},
		{Offset: 14 * time.Second, Clock: "04:00 AM", Text: "All ingredients collected! Brewing the [Dream Crystal/Bottle]!"},
		{Offset: 16 * time.Second, Clock: "04:01 AM", Text: "Mission complete. Returning to The Hub."},
	}
}

// AdventureLogPlayer appends script entries at their offsets from Sleeping start.
type AdventureLogPlayer struct {
	script  []LogEntry
	entries []LogEntry
	rec     *recorder
}

// NewAdventureLogPlayer copies and stable-sorts script by offset.
func NewAdventureLogPlayer(script []LogEntry, rec *recorder) *AdventureLogPlayer {
	sorted := make([]LogEntry, len(script))
	copy(sorted, script)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})
	return &AdventureLogPlayer{script: sorted, rec: rec}
}

// Start clears the log and schedules the whole script into scope.
func (p *AdventureLogPlayer) Start(scope *Scope) {
	p.entries = nil
	for _, e := range p.script {
		scope.After(e.Offset, func() {
			p.entries = append(p.entries, e)
			p.rec.record(events.EventTypeAdventureLog, events.SystemActor, e)
		})
	}
}

// Entries returns the lines appended so far.
func (p *AdventureLogPlayer) Entries() []LogEntry {
	out := make([]LogEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/MRamiBalles/DreamSprite/server/internal/domain/rules"
	"github.com/MRamiBalles/DreamSprite/server/internal/engine"
	"github.com/MRamiBalles/DreamSprite/server/internal/events"
)

const feedLength = 8

// Tailwind hue names that tcell doesn't know.
var hueAliases = map[string]string{
	"amber":   "gold",
	"slate":   "slategray",
	"rose":    "hotpink",
	"emerald": "mediumseagreen",
	"cyan":    "aqua",
	"sky":     "skyblue",
}

// gradientColor picks a terminal color for a gradient such as
// "from-blue-300 to-blue-400", using the starting hue. Hex colors pass through.
func gradientColor(gradient string) tcell.Color {
	if strings.HasPrefix(gradient, "#") {
		return tcell.GetColor(gradient)
	}
	for _, tok := range strings.Fields(gradient) {
		if !strings.HasPrefix(tok, "from-") {
			continue
		}
		hue := strings.TrimPrefix(tok, "from-")
		if i := strings.LastIndex(hue, "-"); i > 0 {
			hue = hue[:i]
		}
		if alias, ok := hueAliases[hue]; ok {
			hue = alias
		}
		return tcell.GetColor(hue)
	}
	return tcell.ColorDefault
}

var (
	styleTitle  = tcell.StyleDefault.Foreground(tcell.ColorFuchsia).Bold(true)
	styleDim    = tcell.StyleDefault.Dim(true)
	styleCursor = tcell.StyleDefault.Reverse(true)
	styleWarn   = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// view is the terminal's state. It never touches the engine directly.
type view struct {
	snap     engine.Snapshot
	haveSnap bool
	feed     []string
	cursor   int
	typing   bool
	input    []rune
	status   string
}

func (v *view) setSnapshot(s engine.Snapshot) {
	v.snap, v.haveSnap = s, true
	if v.cursor >= len(s.Catalog) {
		v.cursor = 0
	}
}

func (v *view) addEvent(e events.Event) {
	line := describe(e)
	if line == "" {
		return
	}
	v.feed = append(v.feed, line)
	if len(v.feed) > feedLength {
		v.feed = v.feed[len(v.feed)-feedLength:]
	}
}

// decodeAs converts a payload that may be a typed value (local) or a
// generic map (remote) into out.
func decodeAs(payload interface{}, out interface{}) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// describe renders one journal event as a feed line. Vitals are shown in
// their own panel and produce no line.
func describe(e events.Event) string {
	switch e.Type {
	case events.EventTypePhaseChanged:
		var p engine.PhaseChange
		if decodeAs(e.Payload, &p) {
			return fmt.Sprintf("%s -> %s", p.From, p.To)
		}
	case events.EventTypeIngredientAdded:
		var ie engine.IngredientEvent
		if decodeAs(e.Payload, &ie) {
			return fmt.Sprintf("%s added %s", ie.Actor.Name, ie.Label)
		}
	case events.EventTypeIngredientRemoved:
		var ie engine.IngredientEvent
		if decodeAs(e.Payload, &ie) {
			return fmt.Sprintf("%s removed %s", ie.Actor.Name, ie.Label)
		}
	case events.EventTypeCapsuleRevealed:
		var c engine.CapsuleReveal
		if decodeAs(e.Payload, &c) {
			return fmt.Sprintf("capsule %d/%d: %s", c.Index+1, c.Total, c.Ingredient.Label)
		}
	case events.EventTypeNarration:
		var n engine.Narration
		if decodeAs(e.Payload, &n) {
			return n.Text
		}
	case events.EventTypeAdventureLog:
		var l engine.LogEntry
		if decodeAs(e.Payload, &l) {
			return l.Clock + " " + l.Text
		}
	case events.EventTypeActionRejected:
		var r engine.Rejection
		if decodeAs(e.Payload, &r) {
			return fmt.Sprintf("ignored %s (%s)", r.Action, r.Reason)
		}
	case events.EventTypeSleepExtended:
		return "sleep extended"
	case events.EventTypeDreamOpened:
		return "dream opened"
	case events.EventTypeScenarioReloaded:
		return "scenario reloaded"
	case events.EventTypeVitalSampled, events.EventTypeSessionStarted:
		return ""
	}
	return string(e.Type)
}

// handleKey maps a key press to an action. quit reports an exit request.
func (v *view) handleKey(ev *tcell.EventKey) (action engine.Action, send bool, quit bool) {
	if v.typing {
		switch ev.Key() {
		case tcell.KeyEscape:
			v.typing, v.input = false, nil
		case tcell.KeyEnter:
			text := string(v.input)
			v.typing, v.input = false, nil
			return engine.Action{Type: engine.ActionAddCustom, Label: text}, true, false
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			if len(v.input) > 0 {
				v.input = v.input[:len(v.input)-1]
			}
		case tcell.KeyRune:
			v.input = append(v.input, ev.Rune())
		}
		return engine.Action{}, false, false
	}

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return engine.Action{}, false, true
	case tcell.KeyUp:
		if v.cursor > 0 {
			v.cursor--
		}
	case tcell.KeyDown:
		if v.cursor < len(v.snap.Catalog)-1 {
			v.cursor++
		}
	case tcell.KeyEnter:
		return engine.Action{Type: engine.ActionSubmit}, true, false
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return engine.Action{}, false, true
		case ' ':
			if v.cursor < len(v.snap.Catalog) {
				return engine.Action{Type: engine.ActionToggleIngredient, Label: v.snap.Catalog[v.cursor]}, true, false
			}
		case '/':
			v.typing = true
		case 'o':
			return engine.Action{Type: engine.ActionOpenSelection}, true, false
		case 'c':
			return engine.Action{Type: engine.ActionCloseSelection}, true, false
		case 'm':
			return engine.Action{Type: engine.ActionMediaEnded}, true, false
		case 'w':
			return engine.Action{Type: engine.ActionWakeUp}, true, false
		case 'e':
			return engine.Action{Type: engine.ActionExtendSleep}, true, false
		case 'd':
			return engine.Action{Type: engine.ActionOpenDream}, true, false
		}
	}
	return engine.Action{}, false, false
}

func putStr(s tcell.Screen, x, y int, text string, style tcell.Style) int {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}

func (v *view) draw(s tcell.Screen) {
	s.Clear()
	w, _ := s.Size()

	putStr(s, 0, 0, "Dream Sprite", styleTitle)
	if !v.haveSnap {
		putStr(s, 0, 2, "connecting...", styleDim)
		s.Show()
		return
	}
	snap := v.snap

	x := putStr(s, 14, 0, string(snap.Phase), tcell.StyleDefault.Bold(true))
	putStr(s, x+2, 0, snap.HubText, styleDim)
	putStr(s, 0, 1, snap.Message, tcell.StyleDefault)

	// Roster
	x = putStr(s, 0, 3, "Team: ", styleDim)
	for _, a := range snap.Roster {
		x = putStr(s, x, 3, "("+a.Initial+") "+a.Name+"  ", tcell.StyleDefault.Foreground(gradientColor(a.Color)))
	}

	y := 5
	switch snap.Phase {
	case engine.PhaseSelecting:
		y = v.drawCatalog(s, y)
	case engine.PhaseBrewing, engine.PhaseTransitioning:
		y = v.drawCapsules(s, y)
	case engine.PhaseSleeping:
		y = v.drawSleep(s, y)
	default:
		bar := int(snap.BrewingProgress / 100 * 30)
		putStr(s, 0, y, fmt.Sprintf("Brewing window [%-30s] %3.0f%%", strings.Repeat("#", bar), snap.BrewingProgress), styleDim)
		y += 2
	}

	// Feed
	putStr(s, 0, y, "Journal", styleDim)
	for i, line := range v.feed {
		if r := []rune(line); w > 2 && len(r) > w-2 {
			line = string(r[:w-2])
		}
		putStr(s, 2, y+1+i, line, tcell.StyleDefault)
	}
	y += feedLength + 2

	if v.typing {
		putStr(s, 0, y, "Custom ingredient: "+string(v.input)+"_", styleCursor)
	} else {
		putStr(s, 0, y, "o open  space toggle  / custom  enter submit  c close  m media ended  e extend  w wake  d dream  q quit", styleDim)
	}
	if v.status != "" {
		putStr(s, 0, y+1, v.status, styleWarn)
	}
	s.Show()
}

func (v *view) drawCatalog(s tcell.Screen, y int) int {
	picked := make(map[string]bool, len(v.snap.UserPicks))
	for _, p := range v.snap.UserPicks {
		picked[p] = true
	}
	putStr(s, 0, y, fmt.Sprintf("Your picks: %s", strings.Join(v.snap.UserPicks, ", ")), tcell.StyleDefault)
	y += 2
	for i, label := range v.snap.Catalog {
		mark := "[ ] "
		if picked[label] {
			mark = "[x] "
		}
		style := tcell.StyleDefault
		if i == v.cursor {
			style = styleCursor
		}
		putStr(s, 2, y+i, mark+label, style)
	}
	y += len(v.snap.Catalog) + 1

	x := putStr(s, 0, y, "Cauldron: ", styleDim)
	for _, ie := range v.snap.Selection {
		x = putStr(s, x, y, ie.Label+" ", tcell.StyleDefault.Foreground(gradientColor(ie.Color)))
	}
	return y + 2
}

func (v *view) drawCapsules(s tcell.Screen, y int) int {
	putStr(s, 0, y, fmt.Sprintf("Capsules %d/%d", v.snap.Revealed, len(v.snap.Selection)), tcell.StyleDefault)
	for i, ie := range v.snap.Selection {
		if i >= v.snap.Revealed {
			putStr(s, 2, y+1+i, "o ...", styleDim)
			continue
		}
		putStr(s, 2, y+1+i, fmt.Sprintf("o %s (%s)", ie.Label, ie.Actor.Name), tcell.StyleDefault.Foreground(gradientColor(ie.Color)))
	}
	return y + len(v.snap.Selection) + 2
}

func (v *view) drawSleep(s tcell.Screen, y int) int {
	putStr(s, 0, y, "Asleep for "+v.snap.SleepDuration, tcell.StyleDefault)
	if v.snap.Extensions > 0 {
		putStr(s, 30, y, fmt.Sprintf("extended x%d", v.snap.Extensions), styleDim)
	}
	y++
	for _, sample := range v.snap.Vitals {
		putStr(s, 2, y, formatSample(sample), tcell.StyleDefault)
		y++
	}
	y++
	for _, entry := range v.snap.Log {
		putStr(s, 2, y, entry.Clock+"  "+entry.Text, styleDim)
		y++
	}
	return y + 1
}

func formatSample(s rules.Sample) string {
	return fmt.Sprintf("%-12s %6.1f %s", s.Name, s.Value, s.Unit)
}

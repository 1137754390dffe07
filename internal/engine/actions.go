package engine

import (
	"context"
	"fmt"
)

// ActionType names a user action arriving from a presentation client.
type ActionType string

const (
	ActionOpenSelection    ActionType = "OPEN_SELECTION"
	ActionCloseSelection   ActionType = "CLOSE_SELECTION"
	ActionToggleIngredient ActionType = "TOGGLE_INGREDIENT"
	ActionAddCustom        ActionType = "ADD_CUSTOM_INGREDIENT"
	ActionSubmit           ActionType = "SUBMIT"
	ActionMediaEnded       ActionType = "MEDIA_ENDED"
	ActionWakeUp           ActionType = "WAKE_UP"
	ActionExtendSleep      ActionType = "EXTEND_SLEEP"
	ActionOpenDream        ActionType = "OPEN_DREAM"
)

// Action is the wire form of a user action.
type Action struct {
	Type  ActionType `json:"type"`
	Label string     `json:"label,omitempty"`
}

// Apply runs one action on the calling goroutine and reports whether it was
// accepted. Unknown types are journaled as rejected.
func (e *Engine) Apply(a Action) bool {
	switch a.Type {
	case ActionOpenSelection:
		return e.OpenSelection()
	case ActionCloseSelection:
		return e.CloseSelection()
	case ActionToggleIngredient:
		return e.ToggleIngredient(a.Label)
	case ActionAddCustom:
		return e.AddCustomIngredient(a.Label)
	case ActionSubmit:
		return e.Submit()
	case ActionMediaEnded:
		return e.MediaEnded()
	case ActionWakeUp:
		return e.WakeUp()
	case ActionExtendSleep:
		return e.ExtendSleep()
	case ActionOpenDream:
		return e.OpenDream()
	default:
		return e.ctrl.reject(string(a.Type), ReasonInvalidTransition, a.Label)
	}
}

// Dispatch runs an action on the ticker goroutine and waits for the outcome.
// Without a running ticker it applies the action directly.
func (e *Engine) Dispatch(ctx context.Context, a Action) (bool, error) {
	if !e.Running() {
		return e.Apply(a), nil
	}
	var accepted bool
	if err := e.ticker.Do(ctx, func() { accepted = e.Apply(a) }); err != nil {
		return false, fmt.Errorf("dispatch %s: %w", a.Type, err)
	}
	return accepted, nil
}

// Inspect takes a Snapshot on the ticker goroutine.
func (e *Engine) Inspect(ctx context.Context) (Snapshot, error) {
	if !e.Running() {
		return e.Snapshot(), nil
	}
	var snap Snapshot
	if err := e.ticker.Do(ctx, func() { snap = e.Snapshot() }); err != nil {
		return Snapshot{}, fmt.Errorf("inspect: %w", err)
	}
	return snap, nil
}

// Reconfigure hands a new setup to the ticker goroutine.
func (e *Engine) Reconfigure(ctx context.Context, setup Setup) (bool, error) {
	if !e.Running() {
		return e.SetScenario(setup), nil
	}
	var applied bool
	if err := e.ticker.Do(ctx, func() { applied = e.SetScenario(setup) }); err != nil {
		return false, fmt.Errorf("reconfigure: %w", err)
	}
	return applied, nil
}

package engine

// Phase is the single authoritative stage of a session.
type Phase string

const (
	PhaseAwake         Phase = "AWAKE"
	PhaseSelecting     Phase = "SELECTING"
	PhaseBrewing       Phase = "BREWING"
	PhaseTransitioning Phase = "TRANSITIONING"
	PhaseSleeping      Phase = "SLEEPING"
)

// Trigger is an input that may move the session to another phase.
type Trigger string

const (
	TriggerOpenSelection  Trigger = "OPEN_SELECTION"
	TriggerCloseSelection Trigger = "CLOSE_SELECTION"
	TriggerSubmit         Trigger = "SUBMIT"
	TriggerBrewComplete   Trigger = "BREW_COMPLETE"
	TriggerMediaEnded     Trigger = "MEDIA_ENDED"
	TriggerWakeUp         Trigger = "WAKE_UP"
)

// transitions is the complete state machine. Pairs missing here are ignored.
var transitions = map[Phase]map[Trigger]Phase{
	PhaseAwake: {
		TriggerOpenSelection: PhaseSelecting,
	},
	PhaseSelecting: {
		TriggerSubmit:         PhaseBrewing,
		TriggerCloseSelection: PhaseAwake,
	},
	PhaseBrewing: {
		TriggerBrewComplete: PhaseTransitioning,
	},
	PhaseTransitioning: {
		TriggerMediaEnded: PhaseSleeping,
	},
	PhaseSleeping: {
		TriggerWakeUp: PhaseAwake,
	},
}

// Next looks up the destination of trig from phase.
func Next(from Phase, trig Trigger) (Phase, bool) {
	to, ok := transitions[from][trig]
	return to, ok
}

// RejectReason explains why an action was ignored.
type RejectReason string

const (
	ReasonCapacityExceeded    RejectReason = "capacity_exceeded"
	ReasonInvalidTransition   RejectReason = "invalid_transition"
	ReasonEmptySubmission     RejectReason = "empty_submission"
	ReasonBlankIngredient     RejectReason = "blank_ingredient"
	ReasonDuplicateIngredient RejectReason = "duplicate_ingredient"
)

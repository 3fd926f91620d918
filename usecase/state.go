package usecase

// State is the posting cycle's lifecycle position. Halted is terminal and
// requires a human to re-run the bootstrap authorization.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateRefreshing
	StatePosting
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRefreshing:
		return "refreshing"
	case StatePosting:
		return "posting"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// Event is something a tick observed.
type Event int

const (
	EventTick Event = iota
	EventTokenMissing
	EventTokenValid
	EventTokenInvalid
	EventRefreshSucceeded
	EventRefreshTransient
	EventRefreshTerminal
	EventRevalidateFailed
	EventEligible
	EventNotEligible
	EventPublishFinished
)

// Action is what the cycle should do next after a transition.
type Action int

const (
	ActionNone Action = iota
	ActionValidate
	ActionRefresh
	ActionRevalidate
	ActionCheckEligibility
	ActionPublish
	ActionEndCycle
	ActionHalt
)

// Transition is the pure state machine behind the posting cycle. It maps the
// current state and an observed event to the next state and the action to
// take. Events that make no sense in the current state leave it unchanged.
func Transition(s State, e Event) (State, Action) {
	if s == StateHalted {
		return StateHalted, ActionHalt
	}
	switch e {
	case EventTick:
		if s == StateUninitialized || s == StateReady {
			return StateReady, ActionValidate
		}
	case EventTokenMissing:
		return StateHalted, ActionHalt
	case EventTokenValid:
		if s == StateReady {
			return StateReady, ActionCheckEligibility
		}
	case EventTokenInvalid:
		if s == StateReady {
			return StateRefreshing, ActionRefresh
		}
	case EventRefreshSucceeded:
		if s == StateRefreshing {
			return StateReady, ActionRevalidate
		}
	case EventRefreshTransient:
		if s == StateRefreshing {
			return StateReady, ActionEndCycle
		}
	case EventRefreshTerminal:
		return StateHalted, ActionHalt
	case EventRevalidateFailed:
		return StateHalted, ActionHalt
	case EventEligible:
		if s == StateReady {
			return StatePosting, ActionPublish
		}
	case EventNotEligible:
		if s == StateReady {
			return StateReady, ActionEndCycle
		}
	case EventPublishFinished:
		if s == StatePosting {
			return StateReady, ActionEndCycle
		}
	}
	return s, ActionNone
}

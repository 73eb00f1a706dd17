package offer

import "fmt"

// Phase captures where the session sits in one conversational turn.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseAwaitingModel   Phase = "awaiting_model"
	PhasePlainAnswer     Phase = "plain_answer"
	PhaseToolRequested   Phase = "tool_requested"
	PhaseToolExecuting   Phase = "tool_executing"
	PhaseToolResultReady Phase = "tool_result_ready"
	PhaseFailed          Phase = "failed"
)

var allowedPhaseTransitions = map[Phase]map[Phase]struct{}{
	"": {
		PhaseIdle: {},
	},
	PhaseIdle: {
		PhaseAwaitingModel: {},
	},
	PhaseAwaitingModel: {
		PhasePlainAnswer:   {},
		PhaseToolRequested: {},
		PhaseFailed:        {},
		// A newer user message supersedes an in-flight turn.
		PhaseAwaitingModel: {},
	},
	PhasePlainAnswer: {
		PhaseIdle:          {},
		PhaseAwaitingModel: {},
	},
	PhaseToolRequested: {
		PhaseToolExecuting: {},
		PhaseFailed:        {},
		PhaseAwaitingModel: {},
	},
	PhaseToolExecuting: {
		PhaseToolResultReady: {},
		PhaseFailed:          {},
		PhaseAwaitingModel:   {},
	},
	PhaseToolResultReady: {
		PhaseAwaitingModel: {},
		PhaseIdle:          {},
	},
	PhaseFailed: {
		PhaseIdle:          {},
		PhaseAwaitingModel: {},
	},
}

func validatePhaseTransition(from, to Phase) error {
	if from == to {
		return nil
	}
	allowed, ok := allowedPhaseTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown source phase %q", ErrInvalidPhaseTransition, from)
	}
	if _, ok := allowed[to]; !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidPhaseTransition, from, to)
	}
	return nil
}

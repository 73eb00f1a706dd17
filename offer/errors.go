package offer

import "errors"

var (
	// ErrEmptyFeedback is returned before any generation call when the tool
	// receives blank feedback.
	ErrEmptyFeedback = errors.New("feedback is empty")
	// ErrGenerationFailed is returned when the model produces empty or no text.
	ErrGenerationFailed = errors.New("generation returned no text")
	// ErrTurnLimitExceeded is returned when a turn reaches its round budget.
	ErrTurnLimitExceeded = errors.New("turn exceeded max model rounds")
	// ErrInvocationInvalid is returned when a model tool call cannot be parsed
	// into the closed invocation shape.
	ErrInvocationInvalid = errors.New("tool invocation is invalid")
	// ErrInvocationResolved is returned on a second resolution attempt.
	ErrInvocationResolved = errors.New("tool invocation already resolved")
	// ErrInvalidPhaseTransition is returned on a disallowed session phase change.
	ErrInvalidPhaseTransition = errors.New("invalid session phase transition")
	// ErrEmptyUserMessage rejects blank user input before any model call.
	ErrEmptyUserMessage = errors.New("user message is empty")
	// ErrEventInvalid is returned by sinks for structurally invalid events.
	ErrEventInvalid = errors.New("session event is invalid")
	// ErrContextNil guards API entry points against nil contexts.
	ErrContextNil = errors.New("context must not be nil")
)

package offer

import "context"

// ModelRequest is the chat-completion input contract required by the turn loop.
type ModelRequest struct {
	System   string
	Messages []Message
	Tools    []ToolDefinition
}

// ModelReply is the assistant output of one completion round: freeform text,
// tool calls, or both.
type ModelReply struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatModel produces assistant replies that may request tool invocations.
type ChatModel interface {
	Complete(ctx context.Context, request ModelRequest) (ModelReply, error)
}

// TextGenerator runs one single-shot, non-streaming text generation. It is
// the seam used by the update tool and the autofill flow.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// UpdateOutcome is the successful result of the update tool.
type UpdateOutcome struct {
	Confirmation string
	UpdatedOffer string
}

// ToolExecutor rewrites the current offer from user feedback. The returned
// document is a full replacement, never a diff.
type ToolExecutor interface {
	Execute(ctx context.Context, currentOffer, feedback string) (UpdateOutcome, error)
}

// EventSink receives normalized session events.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// IDGenerator creates message and invocation IDs at the session boundary.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

package offer

import "fmt"

// EventType is emitted by the session on state transitions for observability
// and presentation-layer streaming.
type EventType string

const (
	EventTypeTurnStarted       EventType = "turn_started"
	EventTypeAssistantMessage  EventType = "assistant_message"
	EventTypeToolInvoked       EventType = "tool_invoked"
	EventTypeToolResult        EventType = "tool_result"
	EventTypeDocumentUpdated   EventType = "document_updated"
	EventTypeRevisionDiscarded EventType = "revision_discarded"
	EventTypeTurnCompleted     EventType = "turn_completed"
	EventTypeTurnFailed        EventType = "turn_failed"
)

// Event is intentionally compact so adapters can map it to logs or streams.
type Event struct {
	OfferID     string          `json:"offer_id"`
	Turn        int64           `json:"turn"`
	Round       int             `json:"round,omitempty"`
	Type        EventType       `json:"type"`
	Message     *Message        `json:"message,omitempty"`
	Invocation  *ToolInvocation `json:"invocation,omitempty"`
	Revision    *Revision       `json:"revision,omitempty"`
	Source      RevisionSource  `json:"source,omitempty"`
	Description string          `json:"description,omitempty"`
}

var knownEventTypes = map[EventType]struct{}{
	EventTypeTurnStarted:       {},
	EventTypeAssistantMessage:  {},
	EventTypeToolInvoked:       {},
	EventTypeToolResult:        {},
	EventTypeDocumentUpdated:   {},
	EventTypeRevisionDiscarded: {},
	EventTypeTurnCompleted:     {},
	EventTypeTurnFailed:        {},
}

// ValidateEvent rejects structurally invalid events before sinks accept them.
func ValidateEvent(event Event) error {
	if event.OfferID == "" {
		return fmt.Errorf("%w: offer_id is required", ErrEventInvalid)
	}
	if _, ok := knownEventTypes[event.Type]; !ok {
		return fmt.Errorf("%w: unknown type %q", ErrEventInvalid, event.Type)
	}
	if event.Turn < 0 {
		return fmt.Errorf("%w: turn must be non-negative", ErrEventInvalid)
	}
	return nil
}

// CloneEvent returns a deep copy of an event.
func CloneEvent(in Event) Event {
	out := in
	if in.Message != nil {
		message := CloneMessage(*in.Message)
		out.Message = &message
	}
	if in.Invocation != nil {
		invocation := CloneInvocation(*in.Invocation)
		out.Invocation = &invocation
	}
	if in.Revision != nil {
		revision := *in.Revision
		out.Revision = &revision
	}
	return out
}

package offer

// Role identifies the author of a message in the conversation transcript.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in the append-only conversation transcript.
// Assistant messages may carry tool invocations; tool messages carry the
// serialized outcome of exactly one invocation, referenced by InvocationID.
type Message struct {
	ID           string           `json:"id"`
	Role         Role             `json:"role"`
	Content      string           `json:"content,omitempty"`
	InvocationID string           `json:"invocation_id,omitempty"`
	Invocations  []ToolInvocation `json:"tool_invocations,omitempty"`
}

// CloneMessage returns a deep copy suitable for isolation across component boundaries.
func CloneMessage(in Message) Message {
	out := in
	if len(in.Invocations) > 0 {
		out.Invocations = make([]ToolInvocation, len(in.Invocations))
		for i := range in.Invocations {
			out.Invocations[i] = CloneInvocation(in.Invocations[i])
		}
	}
	return out
}

// CloneMessages returns deep copies of all messages.
func CloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i := range in {
		out[i] = CloneMessage(in[i])
	}
	return out
}

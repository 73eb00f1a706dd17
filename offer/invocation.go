package offer

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// UpdateToolName is the single tool the session exposes to the model.
const UpdateToolName = "update_offer"

// InvocationState tags the closed tool-invocation variant.
type InvocationState string

const (
	InvocationStatePending InvocationState = "pending"
	InvocationStateResult  InvocationState = "result"
)

// ToolDefinition declares a callable capability exposed to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// ToolCall is the raw, untrusted tool request as emitted by the model.
// It is parsed into a ToolInvocation before anything acts on it.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// UpdateArguments is the closed argument shape of the update tool.
// CurrentOffer is whatever document text the model echoed back; it is
// advisory only and the session substitutes its own revision before
// execution.
type UpdateArguments struct {
	CurrentOffer string `json:"current_offer" mapstructure:"current_offer"`
	Feedback     string `json:"feedback" mapstructure:"feedback"`
}

// InvocationResult is the resolved outcome of a tool invocation.
type InvocationResult struct {
	Confirmation string `json:"confirmation,omitempty"`
	UpdatedOffer string `json:"updated_offer,omitempty"`
	IsError      bool   `json:"is_error,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ToolInvocation is the validated, tagged representation of one tool request.
// It is created in the pending state and resolves to a result exactly once.
type ToolInvocation struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	State     InvocationState   `json:"state"`
	Arguments UpdateArguments   `json:"arguments"`
	Result    *InvocationResult `json:"result,omitempty"`
}

// ParseToolCall decodes an untrusted model tool call into a pending invocation.
func ParseToolCall(id string, call ToolCall) (ToolInvocation, error) {
	if call.Name != UpdateToolName {
		return ToolInvocation{}, fmt.Errorf("%w: tool %q is not defined", ErrInvocationInvalid, call.Name)
	}

	var arguments UpdateArguments
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &arguments,
		ErrorUnused: false,
	})
	if err != nil {
		return ToolInvocation{}, fmt.Errorf("%w: %v", ErrInvocationInvalid, err)
	}
	if err := decoder.Decode(call.Arguments); err != nil {
		return ToolInvocation{}, fmt.Errorf("%w: %v", ErrInvocationInvalid, err)
	}

	return ToolInvocation{
		ID:        id,
		Name:      call.Name,
		State:     InvocationStatePending,
		Arguments: arguments,
	}, nil
}

// Resolve transitions a pending invocation to its result. The transition
// happens exactly once; a second attempt is a programming error surfaced as
// ErrInvocationResolved.
func (inv *ToolInvocation) Resolve(result InvocationResult) error {
	if inv.State != InvocationStatePending {
		return fmt.Errorf("%w: invocation %q state=%s", ErrInvocationResolved, inv.ID, inv.State)
	}
	resultCopy := result
	inv.State = InvocationStateResult
	inv.Result = &resultCopy
	return nil
}

// CloneInvocation returns a deep copy of a tool invocation.
func CloneInvocation(in ToolInvocation) ToolInvocation {
	out := in
	if in.Result != nil {
		resultCopy := *in.Result
		out.Result = &resultCopy
	}
	return out
}

func errorInvocationResult(err error) InvocationResult {
	return InvocationResult{
		IsError: true,
		Error:   err.Error(),
	}
}

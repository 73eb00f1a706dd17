package offer

import (
	"context"
	"fmt"
	"strings"
)

// TurnResult is returned to the caller after one full user turn.
type TurnResult struct {
	Turn     int64
	Reply    string
	Revision Revision
	Applied  bool
	Messages []Message
}

// UpdateToolDefinition declares the update tool schema sent with every
// completion request.
func UpdateToolDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        UpdateToolName,
		Description: "Update the real estate offer based on user feedback",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"current_offer": map[string]any{
					"type":        "string",
					"description": "The current offer content",
				},
				"feedback": map[string]any{
					"type":        "string",
					"description": "User feedback to incorporate into the offer",
				},
			},
			"required": []string{"feedback"},
		},
	}
}

func systemPrompt(currentOffer string) string {
	return "You are a helpful assistant specializing in real estate offers.\n" +
		"Provide concise summaries of changes made to the offer without repeating the entire document.\n" +
		"Here is the current offer:\n\n" + currentOffer
}

// HandleUserMessage runs one conversational turn: the user message is
// appended, then up to MaxRounds completion rounds execute. Each round either
// yields a plain answer (ending the turn) or one tool invocation whose
// successful result replaces the document through the version gate and is
// fed back for a summary round. Tool failures become error observations so
// the model can respond conversationally; the document is never touched on
// failure.
func (s *Session) HandleUserMessage(ctx context.Context, text string) (TurnResult, error) {
	if ctx == nil {
		return TurnResult{}, ErrContextNil
	}
	if strings.TrimSpace(text) == "" {
		return TurnResult{}, ErrEmptyUserMessage
	}

	userMessageID, err := s.ids.NewID(ctx)
	if err != nil {
		return TurnResult{}, fmt.Errorf("turn: new message id: %w", err)
	}

	s.mu.Lock()
	s.turnSeq++
	turn := s.turnSeq
	deltaStart := len(s.messages)
	s.messages = append(s.messages, Message{
		ID:      userMessageID,
		Role:    RoleUser,
		Content: text,
	})
	s.mu.Unlock()
	s.setPhase(PhaseAwaitingModel)

	_ = s.events.Publish(ctx, Event{
		OfferID:     s.offerID,
		Turn:        turn,
		Type:        EventTypeTurnStarted,
		Description: "user message appended",
	})

	applied := false
	for round := 1; round <= s.maxRounds; round++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return s.failTurn(ctx, turn, round, deltaStart, applied, ctxErr)
		}

		// The document surfaced to the model is always the most recently
		// accepted revision, re-read every round.
		base := s.Revision()
		reply, err := s.model.Complete(ctx, ModelRequest{
			System:   systemPrompt(base.Text),
			Messages: s.messagesSince(0),
			Tools:    []ToolDefinition{UpdateToolDefinition()},
		})
		if err != nil {
			return s.failTurn(ctx, turn, round, deltaStart, applied, fmt.Errorf("model completion: %w", err))
		}

		if len(reply.ToolCalls) == 0 {
			return s.finishPlainAnswer(ctx, turn, round, deltaStart, applied, reply.Content)
		}

		s.setPhase(PhaseToolRequested)
		applied = s.runToolRound(ctx, turn, round, base, reply) || applied
		s.setPhase(PhaseAwaitingModel)
	}

	s.setPhase(PhaseFailed)
	s.setPhase(PhaseIdle)
	_ = s.events.Publish(context.WithoutCancel(ctx), Event{
		OfferID:     s.offerID,
		Turn:        turn,
		Round:       s.maxRounds,
		Type:        EventTypeTurnFailed,
		Description: ErrTurnLimitExceeded.Error(),
	})
	return TurnResult{
		Turn:     turn,
		Revision: s.Revision(),
		Applied:  applied,
		Messages: s.messagesSince(deltaStart),
	}, ErrTurnLimitExceeded
}

func (s *Session) finishPlainAnswer(ctx context.Context, turn int64, round, deltaStart int, applied bool, content string) (TurnResult, error) {
	messageID, err := s.ids.NewID(ctx)
	if err != nil {
		return s.failTurn(ctx, turn, round, deltaStart, applied, fmt.Errorf("turn: new message id: %w", err))
	}
	assistant := Message{
		ID:      messageID,
		Role:    RoleAssistant,
		Content: content,
	}
	s.appendMessage(assistant)
	s.setPhase(PhasePlainAnswer)
	_ = s.events.Publish(ctx, Event{
		OfferID: s.offerID,
		Turn:    turn,
		Round:   round,
		Type:    EventTypeAssistantMessage,
		Message: &assistant,
	})
	s.setPhase(PhaseIdle)
	_ = s.events.Publish(ctx, Event{
		OfferID:     s.offerID,
		Turn:        turn,
		Round:       round,
		Type:        EventTypeTurnCompleted,
		Description: "assistant returned a final answer",
	})
	return TurnResult{
		Turn:     turn,
		Reply:    content,
		Revision: s.Revision(),
		Applied:  applied,
		Messages: s.messagesSince(deltaStart),
	}, nil
}

// runToolRound parses and executes the round's single tool call. Only the
// first call is honored; the protocol issues at most one invocation per
// round. It reports whether the document advanced.
func (s *Session) runToolRound(ctx context.Context, turn int64, round int, base Revision, reply ModelReply) bool {
	call := reply.ToolCalls[0]

	invocationID, idErr := s.ids.NewID(ctx)
	if idErr != nil {
		s.recordToolFailure(ctx, turn, round, call.ID, "", fmt.Errorf("new invocation id: %w", idErr))
		return false
	}

	invocation, parseErr := ParseToolCall(invocationID, call)
	if parseErr != nil {
		s.appendAssistantReply(ctx, turn, round, reply.Content, nil)
		s.recordToolFailure(ctx, turn, round, call.ID, "", parseErr)
		return false
	}

	s.appendAssistantReply(ctx, turn, round, reply.Content, &invocation)
	_ = s.events.Publish(ctx, Event{
		OfferID:    s.offerID,
		Turn:       turn,
		Round:      round,
		Type:       EventTypeToolInvoked,
		Invocation: cloneInvocationPtr(invocation),
	})
	s.setPhase(PhaseToolExecuting)

	// The model-echoed current_offer argument is advisory only; the
	// session's own revision is authoritative.
	if invocation.Arguments.CurrentOffer != "" && invocation.Arguments.CurrentOffer != base.Text {
		_ = s.events.Publish(ctx, Event{
			OfferID:     s.offerID,
			Turn:        turn,
			Round:       round,
			Type:        EventTypeToolInvoked,
			Description: "model-supplied current_offer diverges from the session revision; using the session copy",
		})
	}

	outcome, execErr := s.tool.Execute(ctx, base.Text, invocation.Arguments.Feedback)
	if execErr != nil {
		_ = s.resolveInvocation(invocationID, errorInvocationResult(execErr))
		s.recordToolFailure(ctx, turn, round, call.ID, invocationID, execErr)
		return false
	}

	if err := s.resolveInvocation(invocationID, InvocationResult{
		Confirmation: outcome.Confirmation,
		UpdatedOffer: outcome.UpdatedOffer,
	}); err != nil {
		s.recordToolFailure(ctx, turn, round, call.ID, invocationID, err)
		return false
	}

	_, didApply, applyErr := s.ApplyRevision(ctx, ProposedRevision{
		BaseVersion: base.Version,
		Text:        outcome.UpdatedOffer,
		Source:      RevisionSourceChat,
	})
	if applyErr != nil {
		s.recordToolFailure(ctx, turn, round, call.ID, invocationID, applyErr)
		return false
	}
	s.setPhase(PhaseToolResultReady)

	messageID, idErr := s.ids.NewID(ctx)
	if idErr != nil {
		messageID = invocationID + "-result"
	}
	observation := Message{
		ID:           messageID,
		Role:         RoleTool,
		InvocationID: invocationID,
		Content:      outcome.Confirmation,
	}
	s.appendMessage(observation)
	_ = s.events.Publish(ctx, Event{
		OfferID: s.offerID,
		Turn:    turn,
		Round:   round,
		Type:    EventTypeToolResult,
		Message: &observation,
	})
	return didApply
}

func (s *Session) appendAssistantReply(ctx context.Context, turn int64, round int, content string, invocation *ToolInvocation) {
	messageID, err := s.ids.NewID(ctx)
	if err != nil {
		messageID = fmt.Sprintf("turn-%d-round-%d", turn, round)
	}
	assistant := Message{
		ID:      messageID,
		Role:    RoleAssistant,
		Content: content,
	}
	if invocation != nil {
		assistant.Invocations = []ToolInvocation{CloneInvocation(*invocation)}
	}
	s.appendMessage(assistant)
	_ = s.events.Publish(ctx, Event{
		OfferID: s.offerID,
		Turn:    turn,
		Round:   round,
		Type:    EventTypeAssistantMessage,
		Message: &assistant,
	})
}

// recordToolFailure appends the failed observation so the model can
// apologize conversationally in its next plain-text round. The document is
// left unchanged.
func (s *Session) recordToolFailure(ctx context.Context, turn int64, round int, callID, invocationID string, failure error) {
	reference := invocationID
	if reference == "" {
		reference = callID
	}
	messageID, err := s.ids.NewID(ctx)
	if err != nil {
		messageID = reference + "-error"
	}
	observation := Message{
		ID:           messageID,
		Role:         RoleTool,
		InvocationID: reference,
		Content:      "update failed: " + failure.Error(),
	}
	s.appendMessage(observation)
	_ = s.events.Publish(context.WithoutCancel(ctx), Event{
		OfferID:     s.offerID,
		Turn:        turn,
		Round:       round,
		Type:        EventTypeToolResult,
		Message:     &observation,
		Description: failure.Error(),
	})
}

func (s *Session) failTurn(ctx context.Context, turn int64, round, deltaStart int, applied bool, failure error) (TurnResult, error) {
	s.setPhase(PhaseFailed)
	s.setPhase(PhaseIdle)
	_ = s.events.Publish(context.WithoutCancel(ctx), Event{
		OfferID:     s.offerID,
		Turn:        turn,
		Round:       round,
		Type:        EventTypeTurnFailed,
		Description: failure.Error(),
	})
	return TurnResult{
		Turn:     turn,
		Revision: s.Revision(),
		Applied:  applied,
		Messages: s.messagesSince(deltaStart),
	}, failure
}

func cloneInvocationPtr(in ToolInvocation) *ToolInvocation {
	out := CloneInvocation(in)
	return &out
}

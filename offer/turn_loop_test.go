package offer_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dealdraft/dealdraft/adapters/modeltest"
	eventinginmem "github.com/dealdraft/dealdraft/eventing/inmem"
	"github.com/dealdraft/dealdraft/offer"
)

func TestHandleUserMessageRejectsEmptyText(t *testing.T) {
	t.Parallel()

	session := newTestSession(t, offer.Config{}, offer.Dependencies{})

	if _, err := session.HandleUserMessage(context.Background(), "   "); !errors.Is(err, offer.ErrEmptyUserMessage) {
		t.Fatalf("err = %v, want ErrEmptyUserMessage", err)
	}
}

func TestHandleUserMessagePlainAnswer(t *testing.T) {
	t.Parallel()

	sink := eventinginmem.New()
	model := modeltest.NewScriptedModel(
		modeltest.Response{Reply: offer.ModelReply{Content: "The offer asks $450,000."}},
	)
	session := newTestSession(t, offer.Config{InitialContent: "offer doc"}, offer.Dependencies{
		Model:  model,
		Events: sink,
	})

	result, err := session.HandleUserMessage(context.Background(), "What is the asking price?")
	if err != nil {
		t.Fatalf("HandleUserMessage: %v", err)
	}

	if result.Reply != "The offer asks $450,000." {
		t.Fatalf("reply = %q", result.Reply)
	}
	if result.Applied {
		t.Fatal("plain answer must not touch the document")
	}
	if result.Revision.Version != 1 {
		t.Fatalf("revision version = %d, want 1", result.Revision.Version)
	}
	if len(result.Messages) != 2 {
		t.Fatalf("turn delta = %d messages, want user+assistant", len(result.Messages))
	}
	if result.Messages[0].Role != offer.RoleUser || result.Messages[1].Role != offer.RoleAssistant {
		t.Fatalf("turn delta roles = %v", eventTypes(sink.Events()))
	}

	requests := model.Requests()
	if len(requests) != 1 {
		t.Fatalf("model rounds = %d, want 1", len(requests))
	}
	if !strings.Contains(requests[0].System, "offer doc") {
		t.Fatalf("system prompt is missing the document: %q", requests[0].System)
	}
	if len(requests[0].Tools) != 1 || requests[0].Tools[0].Name != offer.UpdateToolName {
		t.Fatalf("tools = %+v", requests[0].Tools)
	}

	types := eventTypes(sink.Events())
	want := []offer.EventType{
		offer.EventTypeTurnStarted,
		offer.EventTypeAssistantMessage,
		offer.EventTypeTurnCompleted,
	}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("events = %v, want %v", types, want)
		}
	}

	snapshot := session.Snapshot()
	if snapshot.Phase != offer.PhaseIdle {
		t.Fatalf("phase after turn = %q, want idle", snapshot.Phase)
	}
}

func TestHandleUserMessageToolSuccessAppliesRevision(t *testing.T) {
	t.Parallel()

	sink := eventinginmem.New()
	model := modeltest.NewScriptedModel(
		modeltest.Response{Reply: offer.ModelReply{
			ToolCalls: []offer.ToolCall{updateToolCall("call-1", "", "raise the price to $470,000")},
		}},
		modeltest.Response{Reply: offer.ModelReply{Content: "Raised the asking price to $470,000."}},
	)
	session := newTestSession(t, offer.Config{InitialContent: "asking $450,000"}, offer.Dependencies{
		Model:  model,
		Tool:   staticTool("asking $470,000"),
		Events: sink,
	})

	result, err := session.HandleUserMessage(context.Background(), "raise the price to $470,000")
	if err != nil {
		t.Fatalf("HandleUserMessage: %v", err)
	}

	if !result.Applied {
		t.Fatal("expected the tool round to advance the document")
	}
	if result.Revision.Version != 2 || result.Revision.Text != "asking $470,000" {
		t.Fatalf("revision = %+v", result.Revision)
	}
	if result.Reply != "Raised the asking price to $470,000." {
		t.Fatalf("reply = %q", result.Reply)
	}

	// The observation round sees the updated document, not the original.
	requests := model.Requests()
	if len(requests) != 2 {
		t.Fatalf("model rounds = %d, want 2", len(requests))
	}
	if !strings.Contains(requests[1].System, "asking $470,000") {
		t.Fatalf("second-round system prompt kept the stale document: %q", requests[1].System)
	}

	var toolMessage *offer.Message
	for i := range result.Messages {
		if result.Messages[i].Role == offer.RoleTool {
			toolMessage = &result.Messages[i]
		}
	}
	if toolMessage == nil {
		t.Fatal("no tool observation in turn delta")
	}
	wantConfirmation := fmt.Sprintf("I've updated the offer based on your feedback: %q", "raise the price to $470,000")
	if toolMessage.Content != wantConfirmation {
		t.Fatalf("confirmation = %q, want %q", toolMessage.Content, wantConfirmation)
	}

	for _, eventType := range []offer.EventType{
		offer.EventTypeToolInvoked,
		offer.EventTypeDocumentUpdated,
		offer.EventTypeToolResult,
		offer.EventTypeTurnCompleted,
	} {
		if !containsEventType(sink.Events(), eventType) {
			t.Fatalf("missing %q event in %v", eventType, eventTypes(sink.Events()))
		}
	}

	if session.PendingInvocations() != 0 {
		t.Fatalf("pending invocations = %d, want 0", session.PendingInvocations())
	}
}

func TestHandleUserMessageStaleProposalDiscarded(t *testing.T) {
	t.Parallel()

	sink := eventinginmem.New()
	model := modeltest.NewScriptedModel(
		modeltest.Response{Reply: offer.ModelReply{
			ToolCalls: []offer.ToolCall{updateToolCall("call-1", "", "add an inspection contingency")},
		}},
		modeltest.Response{Reply: offer.ModelReply{Content: "Another update landed first; please retry."}},
	)

	// The tool executor simulates a concurrent auto-population flow landing
	// between the chat edit's read and its apply.
	var session *offer.Session
	racingTool := toolFunc(func(ctx context.Context, _, feedback string) (offer.UpdateOutcome, error) {
		if _, ok, err := session.ApplyRevision(ctx, offer.ProposedRevision{
			BaseVersion: 1,
			Text:        "autofilled document",
			Source:      offer.RevisionSourceAutofill,
		}); err != nil || !ok {
			t.Errorf("racing apply failed: ok=%v err=%v", ok, err)
		}
		return offer.UpdateOutcome{
			Confirmation: fmt.Sprintf("I've updated the offer based on your feedback: %q", feedback),
			UpdatedOffer: "chat-edited document",
		}, nil
	})

	session = newTestSession(t, offer.Config{InitialContent: "original document"}, offer.Dependencies{
		Model:  model,
		Tool:   racingTool,
		Events: sink,
	})

	result, err := session.HandleUserMessage(context.Background(), "add an inspection contingency")
	if err != nil {
		t.Fatalf("HandleUserMessage: %v", err)
	}

	if result.Applied {
		t.Fatal("stale chat proposal must be discarded, not applied")
	}
	if result.Revision.Version != 2 || result.Revision.Text != "autofilled document" {
		t.Fatalf("revision = %+v, want the racing autofill to win", result.Revision)
	}

	discarded := sink.EventsOfType(offer.EventTypeRevisionDiscarded)
	if len(discarded) != 1 {
		t.Fatalf("revision_discarded events = %d, want 1", len(discarded))
	}
	if discarded[0].Source != offer.RevisionSourceChat {
		t.Fatalf("discard source = %q, want chat", discarded[0].Source)
	}
}

func TestHandleUserMessageToolFailureLeavesDocumentUntouched(t *testing.T) {
	t.Parallel()

	sink := eventinginmem.New()
	model := modeltest.NewScriptedModel(
		modeltest.Response{Reply: offer.ModelReply{
			ToolCalls: []offer.ToolCall{updateToolCall("call-1", "", "reword everything")},
		}},
		modeltest.Response{Reply: offer.ModelReply{Content: "Sorry, I couldn't update the offer."}},
	)
	failingTool := toolFunc(func(context.Context, string, string) (offer.UpdateOutcome, error) {
		return offer.UpdateOutcome{}, fmt.Errorf("update offer: %w", offer.ErrGenerationFailed)
	})
	session := newTestSession(t, offer.Config{InitialContent: "stable document"}, offer.Dependencies{
		Model:  model,
		Tool:   failingTool,
		Events: sink,
	})

	result, err := session.HandleUserMessage(context.Background(), "reword everything")
	if err != nil {
		t.Fatalf("HandleUserMessage: %v", err)
	}

	if result.Applied {
		t.Fatal("failed tool round must not advance the document")
	}
	if result.Revision.Version != 1 || result.Revision.Text != "stable document" {
		t.Fatalf("revision = %+v", result.Revision)
	}
	if result.Reply != "Sorry, I couldn't update the offer." {
		t.Fatalf("reply = %q", result.Reply)
	}

	var failureObservation *offer.Message
	for i := range result.Messages {
		if result.Messages[i].Role == offer.RoleTool {
			failureObservation = &result.Messages[i]
		}
	}
	if failureObservation == nil {
		t.Fatal("no failure observation appended for the model to react to")
	}
	if !strings.HasPrefix(failureObservation.Content, "update failed: ") {
		t.Fatalf("observation = %q", failureObservation.Content)
	}

	if containsEventType(sink.Events(), offer.EventTypeDocumentUpdated) {
		t.Fatal("document_updated emitted on a failed round")
	}
	if session.PendingInvocations() != 0 {
		t.Fatalf("pending invocations = %d, want 0", session.PendingInvocations())
	}
}

func TestHandleUserMessageUnknownToolName(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Response{Reply: offer.ModelReply{
			ToolCalls: []offer.ToolCall{{ID: "call-1", Name: "delete_offer"}},
		}},
		modeltest.Response{Reply: offer.ModelReply{Content: "I can only update the offer."}},
	)
	session := newTestSession(t, offer.Config{InitialContent: "doc"}, offer.Dependencies{
		Model: model,
	})

	result, err := session.HandleUserMessage(context.Background(), "delete it")
	if err != nil {
		t.Fatalf("HandleUserMessage: %v", err)
	}
	if result.Applied || result.Revision.Version != 1 {
		t.Fatalf("undefined tool touched the document: %+v", result.Revision)
	}
	if result.Reply != "I can only update the offer." {
		t.Fatalf("reply = %q", result.Reply)
	}
}

func TestHandleUserMessageTurnLimitExceeded(t *testing.T) {
	t.Parallel()

	sink := eventinginmem.New()
	responses := make([]modeltest.Response, 0, offer.DefaultMaxRounds)
	for i := 0; i < offer.DefaultMaxRounds; i++ {
		responses = append(responses, modeltest.Response{Reply: offer.ModelReply{
			ToolCalls: []offer.ToolCall{updateToolCall(fmt.Sprintf("call-%d", i+1), "", "keep editing")},
		}})
	}
	model := modeltest.NewScriptedModel(responses...)
	session := newTestSession(t, offer.Config{InitialContent: "doc"}, offer.Dependencies{
		Model:  model,
		Tool:   staticTool("edited doc"),
		Events: sink,
	})

	result, err := session.HandleUserMessage(context.Background(), "keep editing")
	if !errors.Is(err, offer.ErrTurnLimitExceeded) {
		t.Fatalf("err = %v, want ErrTurnLimitExceeded", err)
	}

	// Earlier rounds applied their edits; the budget bounds rounds, it does
	// not roll the document back.
	if !result.Applied {
		t.Fatal("applied rounds before exhaustion must be reported")
	}
	if result.Revision.Version != int64(offer.DefaultMaxRounds)+1 {
		t.Fatalf("revision version = %d", result.Revision.Version)
	}

	if !containsEventType(sink.Events(), offer.EventTypeTurnFailed) {
		t.Fatalf("missing turn_failed in %v", eventTypes(sink.Events()))
	}
	if session.Snapshot().Phase != offer.PhaseIdle {
		t.Fatalf("phase = %q, want idle for the next turn", session.Snapshot().Phase)
	}
}

func TestHandleUserMessageModelErrorFailsTurn(t *testing.T) {
	t.Parallel()

	sink := eventinginmem.New()
	model := modeltest.NewScriptedModel(
		modeltest.Response{Err: errors.New("provider unreachable")},
	)
	session := newTestSession(t, offer.Config{InitialContent: "doc"}, offer.Dependencies{
		Model:  model,
		Events: sink,
	})

	_, err := session.HandleUserMessage(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "provider unreachable") {
		t.Fatalf("err = %v", err)
	}
	if !containsEventType(sink.Events(), offer.EventTypeTurnFailed) {
		t.Fatalf("missing turn_failed in %v", eventTypes(sink.Events()))
	}
	if session.Snapshot().Phase != offer.PhaseIdle {
		t.Fatalf("phase = %q, want idle", session.Snapshot().Phase)
	}
}

func TestHandleUserMessageAdvisoryCurrentOfferIgnored(t *testing.T) {
	t.Parallel()

	var seenCurrentOffer string
	recordingTool := toolFunc(func(_ context.Context, currentOffer, feedback string) (offer.UpdateOutcome, error) {
		seenCurrentOffer = currentOffer
		return offer.UpdateOutcome{
			Confirmation: fmt.Sprintf("I've updated the offer based on your feedback: %q", feedback),
			UpdatedOffer: "updated doc",
		}, nil
	})
	model := modeltest.NewScriptedModel(
		modeltest.Response{Reply: offer.ModelReply{
			ToolCalls: []offer.ToolCall{updateToolCall("call-1", "hallucinated stale text", "fix the address")},
		}},
		modeltest.Response{Reply: offer.ModelReply{Content: "done"}},
	)
	session := newTestSession(t, offer.Config{InitialContent: "authoritative doc"}, offer.Dependencies{
		Model: model,
		Tool:  recordingTool,
	})

	if _, err := session.HandleUserMessage(context.Background(), "fix the address"); err != nil {
		t.Fatalf("HandleUserMessage: %v", err)
	}
	if seenCurrentOffer != "authoritative doc" {
		t.Fatalf("tool saw %q, want the session's own revision", seenCurrentOffer)
	}
}

package offer_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/dealdraft/dealdraft/offer"
)

// seqIDs issues deterministic sequential IDs.
type seqIDs struct {
	mu   sync.Mutex
	next int
}

func newSeqIDs() *seqIDs {
	return &seqIDs{}
}

func (g *seqIDs) NewID(_ context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("id-%d", g.next), nil
}

// toolFunc adapts a function to the ToolExecutor seam.
type toolFunc func(ctx context.Context, currentOffer, feedback string) (offer.UpdateOutcome, error)

func (f toolFunc) Execute(ctx context.Context, currentOffer, feedback string) (offer.UpdateOutcome, error) {
	return f(ctx, currentOffer, feedback)
}

func staticTool(updated string) toolFunc {
	return func(_ context.Context, _, feedback string) (offer.UpdateOutcome, error) {
		return offer.UpdateOutcome{
			Confirmation: fmt.Sprintf("I've updated the offer based on your feedback: %q", feedback),
			UpdatedOffer: updated,
		}, nil
	}
}

func updateToolCall(callID, currentOffer, feedback string) offer.ToolCall {
	arguments := map[string]any{"feedback": feedback}
	if currentOffer != "" {
		arguments["current_offer"] = currentOffer
	}
	return offer.ToolCall{
		ID:        callID,
		Name:      offer.UpdateToolName,
		Arguments: arguments,
	}
}

func eventTypes(events []offer.Event) []offer.EventType {
	out := make([]offer.EventType, len(events))
	for i := range events {
		out[i] = events[i].Type
	}
	return out
}

func containsEventType(events []offer.Event, eventType offer.EventType) bool {
	for i := range events {
		if events[i].Type == eventType {
			return true
		}
	}
	return false
}

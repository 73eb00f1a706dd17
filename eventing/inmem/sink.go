// Package inmem provides an in-memory event sink that captures session
// events for tests and deterministic inspection.
package inmem

import (
	"context"
	"sync"

	"github.com/dealdraft/dealdraft/offer"
)

// Sink captures session events in memory and exposes deterministic snapshots.
type Sink struct {
	mu     sync.RWMutex
	events []offer.Event
}

var _ offer.EventSink = (*Sink)(nil)

func New() *Sink {
	return &Sink{events: make([]offer.Event, 0)}
}

func (s *Sink) Publish(ctx context.Context, event offer.Event) error {
	if ctx == nil {
		return offer.ErrContextNil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err := offer.ValidateEvent(event); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, offer.CloneEvent(event))
	return nil
}

func (s *Sink) Events() []offer.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]offer.Event, len(s.events))
	for i := range s.events {
		out[i] = offer.CloneEvent(s.events[i])
	}
	return out
}

// EventsOfType filters the captured events by type.
func (s *Sink) EventsOfType(eventType offer.EventType) []offer.Event {
	out := make([]offer.Event, 0)
	for _, event := range s.Events() {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

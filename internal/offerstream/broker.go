// Package offerstream retains a bounded per-offer event history behind
// cursor-based reads and fans live events out to stream subscribers.
package offerstream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dealdraft/dealdraft/offer"
)

const (
	DefaultHistoryLimit = 256

	subscriberBuffer = 16
)

var (
	ErrCursorInvalid = errors.New("stream cursor is invalid")
	ErrCursorExpired = errors.New("stream cursor expired")
	ErrOfferRequired = errors.New("offer id is required")
)

// StreamEvent pairs a session event with its monotonic per-offer stream ID.
type StreamEvent struct {
	ID    int64       `json:"id"`
	Event offer.Event `json:"event"`
}

type Broker struct {
	mu           sync.RWMutex
	historyLimit int
	offers       map[string]*offerHistory
}

type offerHistory struct {
	nextID      int64
	events      []StreamEvent
	subscribers map[int]chan StreamEvent
	nextSubID   int
}

var _ offer.EventSink = (*Broker)(nil)

func New(historyLimit int) *Broker {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Broker{
		historyLimit: historyLimit,
		offers:       make(map[string]*offerHistory),
	}
}

func (b *Broker) Publish(ctx context.Context, event offer.Event) error {
	if ctx == nil {
		return offer.ErrContextNil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err := offer.ValidateEvent(event); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	history := b.offerLocked(event.OfferID)
	next := StreamEvent{
		ID:    history.nextID,
		Event: offer.CloneEvent(event),
	}
	history.nextID++
	history.events = append(history.events, next)
	if len(history.events) > b.historyLimit {
		drop := len(history.events) - b.historyLimit
		history.events = history.events[drop:]
	}

	// Slow subscribers lose events rather than block publishing; they
	// re-sync with EventsAfter from their last seen ID.
	for _, ch := range history.subscribers {
		select {
		case ch <- cloneStreamEvent(next):
		default:
		}
	}
	return nil
}

// EventsAfter returns the retained events with IDs strictly greater than
// cursor. Cursor 0 means "from the beginning of retained history".
func (b *Broker) EventsAfter(offerID string, cursor int64) ([]StreamEvent, error) {
	if offerID == "" {
		return nil, ErrOfferRequired
	}
	if cursor < 0 {
		return nil, fmt.Errorf("%w: cursor must be non-negative", ErrCursorInvalid)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	history, ok := b.offers[offerID]
	if !ok {
		if cursor == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: no events for offer %q", ErrCursorInvalid, offerID)
	}

	if cursor >= history.nextID {
		return nil, fmt.Errorf(
			"%w: cursor=%d is beyond latest id=%d",
			ErrCursorInvalid,
			cursor,
			history.nextID-1,
		)
	}

	if len(history.events) > 0 {
		oldestAvailable := history.events[0].ID - 1
		if cursor < oldestAvailable {
			return nil, fmt.Errorf(
				"%w: cursor=%d oldest_available=%d",
				ErrCursorExpired,
				cursor,
				oldestAvailable,
			)
		}
	}

	start := 0
	for start < len(history.events) && history.events[start].ID <= cursor {
		start++
	}

	out := make([]StreamEvent, len(history.events)-start)
	for i := start; i < len(history.events); i++ {
		out[i-start] = cloneStreamEvent(history.events[i])
	}
	return out, nil
}

// Subscribe registers a live listener for the offer's future events. The
// returned cancel func must be called exactly once; it closes the channel.
func (b *Broker) Subscribe(offerID string) (<-chan StreamEvent, func(), error) {
	if offerID == "" {
		return nil, nil, ErrOfferRequired
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	history := b.offerLocked(offerID)
	id := history.nextSubID
	history.nextSubID++

	ch := make(chan StreamEvent, subscriberBuffer)
	history.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if current, ok := history.subscribers[id]; ok {
			delete(history.subscribers, id)
			close(current)
		}
	}
	return ch, cancel, nil
}

func (b *Broker) offerLocked(offerID string) *offerHistory {
	history, ok := b.offers[offerID]
	if ok {
		return history
	}
	history = &offerHistory{
		nextID:      1,
		events:      make([]StreamEvent, 0, b.historyLimit),
		subscribers: make(map[int]chan StreamEvent),
	}
	b.offers[offerID] = history
	return history
}

func cloneStreamEvent(in StreamEvent) StreamEvent {
	return StreamEvent{
		ID:    in.ID,
		Event: offer.CloneEvent(in.Event),
	}
}

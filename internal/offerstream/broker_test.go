package offerstream_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dealdraft/dealdraft/internal/offerstream"
	"github.com/dealdraft/dealdraft/offer"
)

func publishN(t *testing.T, broker *offerstream.Broker, offerID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := broker.Publish(context.Background(), offer.Event{
			OfferID:     offerID,
			Turn:        1,
			Type:        offer.EventTypeAssistantMessage,
			Description: fmt.Sprintf("event %d", i+1),
		})
		if err != nil {
			t.Fatalf("Publish %d: %v", i+1, err)
		}
	}
}

func TestEventsAfterCursor(t *testing.T) {
	t.Parallel()

	broker := offerstream.New(10)
	publishN(t, broker, "offer-1", 3)

	all, err := broker.EventsAfter("offer-1", 0)
	if err != nil {
		t.Fatalf("EventsAfter(0): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("events = %d, want 3", len(all))
	}
	if all[0].ID != 1 || all[2].ID != 3 {
		t.Fatalf("ids = %d..%d, want 1..3", all[0].ID, all[2].ID)
	}

	tail, err := broker.EventsAfter("offer-1", 2)
	if err != nil {
		t.Fatalf("EventsAfter(2): %v", err)
	}
	if len(tail) != 1 || tail[0].ID != 3 {
		t.Fatalf("tail = %+v", tail)
	}
}

func TestEventsAfterUnknownOffer(t *testing.T) {
	t.Parallel()

	broker := offerstream.New(10)

	events, err := broker.EventsAfter("offer-x", 0)
	if err != nil || events != nil {
		t.Fatalf("fresh offer at cursor 0: events=%v err=%v", events, err)
	}

	if _, err := broker.EventsAfter("offer-x", 5); !errors.Is(err, offerstream.ErrCursorInvalid) {
		t.Fatalf("err = %v, want ErrCursorInvalid", err)
	}
	if _, err := broker.EventsAfter("", 0); !errors.Is(err, offerstream.ErrOfferRequired) {
		t.Fatalf("err = %v, want ErrOfferRequired", err)
	}
}

func TestEventsAfterBeyondLatest(t *testing.T) {
	t.Parallel()

	broker := offerstream.New(10)
	publishN(t, broker, "offer-1", 2)

	if _, err := broker.EventsAfter("offer-1", 2); err != nil {
		t.Fatalf("cursor at latest must be valid: %v", err)
	}
	if _, err := broker.EventsAfter("offer-1", 3); !errors.Is(err, offerstream.ErrCursorInvalid) {
		t.Fatalf("err = %v, want ErrCursorInvalid", err)
	}
}

func TestHistoryLimitExpiresOldCursors(t *testing.T) {
	t.Parallel()

	broker := offerstream.New(2)
	publishN(t, broker, "offer-1", 5)

	if _, err := broker.EventsAfter("offer-1", 1); !errors.Is(err, offerstream.ErrCursorExpired) {
		t.Fatalf("err = %v, want ErrCursorExpired", err)
	}

	kept, err := broker.EventsAfter("offer-1", 3)
	if err != nil {
		t.Fatalf("EventsAfter(3): %v", err)
	}
	if len(kept) != 2 || kept[0].ID != 4 || kept[1].ID != 5 {
		t.Fatalf("kept = %+v", kept)
	}
}

func TestOffersAreIsolated(t *testing.T) {
	t.Parallel()

	broker := offerstream.New(10)
	publishN(t, broker, "offer-1", 2)
	publishN(t, broker, "offer-2", 1)

	one, err := broker.EventsAfter("offer-1", 0)
	if err != nil || len(one) != 2 {
		t.Fatalf("offer-1 events=%d err=%v", len(one), err)
	}
	two, err := broker.EventsAfter("offer-2", 0)
	if err != nil || len(two) != 1 {
		t.Fatalf("offer-2 events=%d err=%v", len(two), err)
	}
}

func TestPublishValidation(t *testing.T) {
	t.Parallel()

	broker := offerstream.New(10)

	err := broker.Publish(context.Background(), offer.Event{Type: offer.EventTypeTurnStarted})
	if !errors.Is(err, offer.ErrEventInvalid) {
		t.Fatalf("err = %v, want ErrEventInvalid", err)
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	err = broker.Publish(canceled, offer.Event{OfferID: "offer-1", Type: offer.EventTypeTurnStarted})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSubscribeReceivesLiveEvents(t *testing.T) {
	t.Parallel()

	broker := offerstream.New(10)

	live, cancel, err := broker.Subscribe("offer-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	publishN(t, broker, "offer-1", 2)

	first := <-live
	second := <-live
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("live ids = %d, %d", first.ID, second.ID)
	}

	cancel()
	if _, open := <-live; open {
		t.Fatal("channel still open after cancel")
	}
}

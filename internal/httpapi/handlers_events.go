package httpapi

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/dealdraft/dealdraft/internal/offerstream"
)

// handleEvents streams session events over SSE, replaying retained history
// after the client's cursor before following live publishes.
func (h *handlers) handleEvents(w http.ResponseWriter, r *http.Request) {
	subject, err := callerSubject(r)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	offerID, err := pathOfferID(r)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	if _, err := h.store.Get(r.Context(), subject, offerID); err != nil {
		writeMappedError(w, err)
		return
	}

	cursor, err := parseAfterCursor(r)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errorCodeRuntime, "streaming is unsupported by response writer")
		return
	}

	// Subscribe before replaying history so no publish lands in the gap;
	// duplicates across the seam are dropped by the cursor check below.
	live, cancel, err := h.broker.Subscribe(offerID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	defer cancel()

	buffered, err := h.broker.EventsAfter(offerID, cursor)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for _, streamEvent := range buffered {
		if err := writeSSEEvent(w, flusher, streamEvent); err != nil {
			return
		}
		cursor = streamEvent.ID
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case streamEvent, open := <-live:
			if !open {
				return
			}
			if streamEvent.ID <= cursor {
				continue
			}
			if err := writeSSEEvent(w, flusher, streamEvent); err != nil {
				return
			}
			cursor = streamEvent.ID
		}
	}
}

// handleEventsWebsocket streams the same event feed over a websocket.
func (h *handlers) handleEventsWebsocket(w http.ResponseWriter, r *http.Request) {
	subject, err := callerSubject(r)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	offerID, err := pathOfferID(r)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	if _, err := h.store.Get(r.Context(), subject, offerID); err != nil {
		writeMappedError(w, err)
		return
	}

	cursor, err := parseAfterCursor(r)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	live, cancel, err := h.broker.Subscribe(offerID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	defer cancel()

	buffered, err := h.broker.EventsAfter(offerID, cursor)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return
	}
	defer conn.Close()

	for _, streamEvent := range buffered {
		if err := writeWebsocketEvent(conn, streamEvent); err != nil {
			return
		}
		cursor = streamEvent.ID
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case streamEvent, open := <-live:
			if !open {
				return
			}
			if streamEvent.ID <= cursor {
				continue
			}
			if err := writeWebsocketEvent(conn, streamEvent); err != nil {
				return
			}
			cursor = streamEvent.ID
		}
	}
}

func parseAfterCursor(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("after")
	if raw == "" {
		return 0, nil
	}

	cursor, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || cursor < 0 {
		return 0, fmt.Errorf("%w: after must be a non-negative integer", offerstream.ErrCursorInvalid)
	}
	return cursor, nil
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, streamEvent offerstream.StreamEvent) error {
	payload, err := json.Marshal(streamEvent.Event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", streamEvent.ID, streamEvent.Event.Type, payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func writeWebsocketEvent(conn net.Conn, streamEvent offerstream.StreamEvent) error {
	payload, err := json.Marshal(streamEvent)
	if err != nil {
		return err
	}
	return wsutil.WriteServerMessage(conn, ws.OpText, payload)
}

// Package httpapi exposes the offer store and the conversational editing
// flows over a JSON HTTP surface.
package httpapi

import (
	"net/http"

	"github.com/dealdraft/dealdraft/internal/chathub"
	"github.com/dealdraft/dealdraft/internal/identity"
	"github.com/dealdraft/dealdraft/internal/offerstream"
	"github.com/dealdraft/dealdraft/offerstore"
)

const DefaultMaxRequestBodyBytes int64 = 1 << 20

type Config struct {
	AuthSecret          string
	MaxRequestBodyBytes int64
}

type handlers struct {
	store  offerstore.Store
	hub    *chathub.Hub
	broker *offerstream.Broker
}

func NewRouter(store offerstore.Store, hub *chathub.Hub, broker *offerstream.Broker, cfg Config) http.Handler {
	maxBodyBytes := cfg.MaxRequestBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxRequestBodyBytes
	}

	h := &handlers{
		store:  store,
		hub:    hub,
		broker: broker,
	}

	reject := func(w http.ResponseWriter, _ *http.Request, err error) {
		writeMappedError(w, err)
	}

	apply := chain(
		identity.Middleware(cfg.AuthSecret, reject),
		limitBodyMiddleware(maxBodyBytes),
	)

	mux := http.NewServeMux()
	mux.Handle("POST /v1/offers", apply(http.HandlerFunc(h.handleOfferCreate)))
	mux.Handle("GET /v1/offers", apply(http.HandlerFunc(h.handleOfferList)))
	mux.Handle("GET /v1/offers/{offer_id}", apply(http.HandlerFunc(h.handleOfferGet)))
	mux.Handle("PATCH /v1/offers/{offer_id}", apply(http.HandlerFunc(h.handleOfferPatch)))
	mux.Handle("DELETE /v1/offers/{offer_id}", apply(http.HandlerFunc(h.handleOfferDelete)))
	mux.Handle("POST /v1/offers/{offer_id}/chat", apply(http.HandlerFunc(h.handleChatTurn)))
	mux.Handle("GET /v1/offers/{offer_id}/chat", apply(http.HandlerFunc(h.handleChatSnapshot)))
	mux.Handle("POST /v1/offers/{offer_id}/autofill", apply(http.HandlerFunc(h.handleAutofill)))
	mux.Handle("POST /v1/offers/{offer_id}/save", apply(http.HandlerFunc(h.handleSave)))
	mux.Handle("GET /v1/offers/{offer_id}/events", apply(http.HandlerFunc(h.handleEvents)))
	mux.Handle("GET /v1/offers/{offer_id}/events/ws", apply(http.HandlerFunc(h.handleEventsWebsocket)))
	return mux
}

type middleware func(http.Handler) http.Handler

func chain(middlewares ...middleware) middleware {
	return func(next http.Handler) http.Handler {
		wrapped := next
		for i := len(middlewares) - 1; i >= 0; i-- {
			wrapped = middlewares[i](wrapped)
		}
		return wrapped
	}
}

func limitBodyMiddleware(maxBytes int64) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

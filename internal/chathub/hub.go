// Package chathub owns the live editing sessions: one conversational session
// per open offer, lazily seeded from the stored document and shared by every
// flow (chat, auto-population, save) that touches it.
package chathub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dealdraft/dealdraft/internal/fileextract"
	"github.com/dealdraft/dealdraft/offer"
	"github.com/dealdraft/dealdraft/offerstore"
	"github.com/dealdraft/dealdraft/rewrite"
)

// Dependencies wires the hub's collaborators.
type Dependencies struct {
	Store     offerstore.Store
	Model     offer.ChatModel
	Generator offer.TextGenerator
	Events    offer.EventSink
	IDs       offer.IDGenerator
	MaxRounds int
}

// Hub maps offer IDs to live sessions. Sessions are created on first use
// with the stored document as revision one and live until the offer is
// deleted or the process exits; edits persist only through Save.
type Hub struct {
	store     offerstore.Store
	model     offer.ChatModel
	tool      offer.ToolExecutor
	generator offer.TextGenerator
	events    offer.EventSink
	ids       offer.IDGenerator
	maxRounds int

	mu       sync.Mutex
	sessions map[string]*offer.Session
}

func New(deps Dependencies) (*Hub, error) {
	if deps.Store == nil {
		return nil, errors.New("new hub: offer store is required")
	}
	if deps.Model == nil {
		return nil, errors.New("new hub: chat model is required")
	}
	if deps.Generator == nil {
		return nil, errors.New("new hub: text generator is required")
	}
	if deps.IDs == nil {
		return nil, errors.New("new hub: ID generator is required")
	}

	tool, err := rewrite.NewTool(deps.Generator)
	if err != nil {
		return nil, fmt.Errorf("new hub: %w", err)
	}

	return &Hub{
		store:     deps.Store,
		model:     deps.Model,
		tool:      tool,
		generator: deps.Generator,
		events:    deps.Events,
		ids:       deps.IDs,
		maxRounds: deps.MaxRounds,
		sessions:  make(map[string]*offer.Session),
	}, nil
}

// Turn runs one conversational turn against the offer's session.
func (h *Hub) Turn(ctx context.Context, ownerID, offerID, text string) (offer.TurnResult, error) {
	session, err := h.session(ctx, ownerID, offerID)
	if err != nil {
		return offer.TurnResult{}, err
	}
	return session.HandleUserMessage(ctx, text)
}

// Autofill rewrites the offer's working document from uploaded file
// contents: one single-shot generation proposed through the same version
// gate as chat edits.
func (h *Hub) Autofill(ctx context.Context, ownerID, offerID string, files []fileextract.File) (offer.Revision, bool, error) {
	session, err := h.session(ctx, ownerID, offerID)
	if err != nil {
		return offer.Revision{}, false, err
	}

	fileContents, err := fileextract.Concatenate(files)
	if err != nil {
		return offer.Revision{}, false, err
	}

	base := session.Revision()
	updated, err := rewrite.Autofill(ctx, h.generator, fileContents, base.Text)
	if err != nil {
		return offer.Revision{}, false, err
	}

	return session.ApplyRevision(ctx, offer.ProposedRevision{
		BaseVersion: base.Version,
		Text:        updated,
		Source:      offer.RevisionSourceAutofill,
	})
}

// Save persists the session's latest accepted revision as the stored
// document content. Until Save, edits live only in the session.
func (h *Hub) Save(ctx context.Context, ownerID, offerID string) (offerstore.Offer, error) {
	session, err := h.session(ctx, ownerID, offerID)
	if err != nil {
		return offerstore.Offer{}, err
	}

	content := session.Revision().Text
	return h.store.Update(ctx, ownerID, offerID, offerstore.UpdateFields{
		Content: &content,
	})
}

// Snapshot returns the session transcript and working revision.
func (h *Hub) Snapshot(ctx context.Context, ownerID, offerID string) (offer.Snapshot, error) {
	session, err := h.session(ctx, ownerID, offerID)
	if err != nil {
		return offer.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Forget drops the live session, if any. Called when the offer is deleted.
func (h *Hub) Forget(offerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, offerID)
}

// session returns the live session for the offer, creating it from the
// stored document on first use. The owner-scoped Get doubles as the access
// check: a foreign offer surfaces as not found.
func (h *Hub) session(ctx context.Context, ownerID, offerID string) (*offer.Session, error) {
	stored, err := h.store.Get(ctx, ownerID, offerID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if session, ok := h.sessions[offerID]; ok {
		return session, nil
	}

	session, err := offer.NewSession(
		offer.Config{
			OfferID:        offerID,
			InitialContent: stored.Content,
			MaxRounds:      h.maxRounds,
		},
		offer.Dependencies{
			Model:  h.model,
			Tool:   h.tool,
			Events: h.events,
			IDs:    h.ids,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("open session for offer %q: %w", offerID, err)
	}
	h.sessions[offerID] = session
	return session, nil
}

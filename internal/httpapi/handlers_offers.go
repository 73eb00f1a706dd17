package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dealdraft/dealdraft/internal/identity"
	"github.com/dealdraft/dealdraft/offerstore"
)

type offerCreateRequest struct {
	ClientName    string `json:"client_name"`
	ClientAddress string `json:"client_address"`
}

type offerPatchRequest struct {
	Name            *string `json:"name"`
	Content         *string `json:"content"`
	ClientName      *string `json:"client_name"`
	ClientAddress   *string `json:"client_address"`
	ExpectedVersion *int64  `json:"expected_version"`
}

type offerListResponse struct {
	Offers []offerstore.Offer `json:"offers"`
}

func callerSubject(r *http.Request) (string, error) {
	id, ok := identity.FromContext(r.Context())
	if !ok || strings.TrimSpace(id.Subject) == "" {
		return "", fmt.Errorf("%w: no identity on request", identity.ErrUnauthenticated)
	}
	return id.Subject, nil
}

func pathOfferID(r *http.Request) (string, error) {
	offerID := strings.TrimSpace(r.PathValue("offer_id"))
	if offerID == "" {
		return "", invalidRequestError("offer_id is required")
	}
	return offerID, nil
}

func (h *handlers) handleOfferCreate(w http.ResponseWriter, r *http.Request) {
	subject, err := callerSubject(r)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	var request offerCreateRequest
	if err := decodeJSONBody(r, &request); err != nil {
		writeMappedError(w, err)
		return
	}

	created, err := h.store.Create(r.Context(), subject, offerstore.CreateFields{
		ClientName:    request.ClientName,
		ClientAddress: request.ClientAddress,
	})
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handlers) handleOfferList(w http.ResponseWriter, r *http.Request) {
	subject, err := callerSubject(r)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	offers, err := h.store.List(r.Context(), subject)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offerListResponse{Offers: offers})
}

func (h *handlers) handleOfferGet(w http.ResponseWriter, r *http.Request) {
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

	stored, err := h.store.Get(r.Context(), subject, offerID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *handlers) handleOfferPatch(w http.ResponseWriter, r *http.Request) {
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

	var request offerPatchRequest
	if err := decodeJSONBody(r, &request); err != nil {
		writeMappedError(w, err)
		return
	}

	updated, err := h.store.Update(r.Context(), subject, offerID, offerstore.UpdateFields{
		Name:            request.Name,
		Content:         request.Content,
		ClientName:      request.ClientName,
		ClientAddress:   request.ClientAddress,
		ExpectedVersion: request.ExpectedVersion,
	})
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handlers) handleOfferDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.store.Delete(r.Context(), subject, offerID); err != nil {
		writeMappedError(w, err)
		return
	}
	h.hub.Forget(offerID)
	w.WriteHeader(http.StatusNoContent)
}

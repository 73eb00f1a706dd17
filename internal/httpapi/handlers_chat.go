package httpapi

import (
	"net/http"

	"github.com/dealdraft/dealdraft/internal/fileextract"
	"github.com/dealdraft/dealdraft/offer"
)

type chatTurnRequest struct {
	Message string `json:"message"`
}

type chatTurnResponse struct {
	Turn     int64           `json:"turn"`
	Reply    string          `json:"reply,omitempty"`
	Revision offer.Revision  `json:"revision"`
	Applied  bool            `json:"applied"`
	Messages []offer.Message `json:"messages"`
	Error    string          `json:"error,omitempty"`
}

type autofillRequest struct {
	Files []fileextract.File `json:"files"`
}

type autofillResponse struct {
	Revision offer.Revision `json:"revision"`
	Applied  bool           `json:"applied"`
}

func (h *handlers) handleChatTurn(w http.ResponseWriter, r *http.Request) {
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

	var request chatTurnRequest
	if err := decodeJSONBody(r, &request); err != nil {
		writeMappedError(w, err)
		return
	}

	result, turnErr := h.hub.Turn(r.Context(), subject, offerID, request.Message)
	if turnErr != nil && !turnLimitExhausted(turnErr) {
		writeMappedError(w, turnErr)
		return
	}

	response := chatTurnResponse{
		Turn:     result.Turn,
		Reply:    result.Reply,
		Revision: result.Revision,
		Applied:  result.Applied,
		Messages: result.Messages,
	}
	if turnErr != nil {
		response.Error = turnErr.Error()
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *handlers) handleChatSnapshot(w http.ResponseWriter, r *http.Request) {
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

	snapshot, err := h.hub.Snapshot(r.Context(), subject, offerID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *handlers) handleAutofill(w http.ResponseWriter, r *http.Request) {
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

	var request autofillRequest
	if err := decodeJSONBody(r, &request); err != nil {
		writeMappedError(w, err)
		return
	}

	revision, applied, err := h.hub.Autofill(r.Context(), subject, offerID, request.Files)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, autofillResponse{
		Revision: revision,
		Applied:  applied,
	})
}

func (h *handlers) handleSave(w http.ResponseWriter, r *http.Request) {
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

	saved, err := h.hub.Save(r.Context(), subject, offerID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

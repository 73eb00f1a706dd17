package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dealdraft/dealdraft/internal/fileextract"
	"github.com/dealdraft/dealdraft/internal/identity"
	"github.com/dealdraft/dealdraft/internal/offerstream"
	"github.com/dealdraft/dealdraft/offer"
	"github.com/dealdraft/dealdraft/offerstore"
)

const (
	errorCodeUnauthenticated  = "unauthenticated"
	errorCodeNotFound         = "not_found"
	errorCodeValidationFailed = "validation_failed"
	errorCodeGenerationFailed = "generation_failed"
	errorCodeConflict         = "conflict"
	errorCodeInvalidRequest   = "invalid_request"
	errorCodeRuntime          = "runtime_error"
)

var errInvalidRequest = errors.New("invalid request")

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code := mapError(err)
	writeError(w, status, code, err.Error())
}

func writeInvalidRequest(w http.ResponseWriter, message string) {
	writeMappedError(w, invalidRequestError(message))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiErrorResponse{
		Error: apiError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSONBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return invalidRequestError("request body is required")
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return invalidRequestError(fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit))
		}
		if errors.Is(err, io.EOF) {
			return invalidRequestError("request body is required")
		}
		return invalidRequestError(fmt.Sprintf("invalid JSON body: %v", err))
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return invalidRequestError("request body must contain exactly one JSON object")
	}

	return nil
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		return http.StatusUnauthorized, errorCodeUnauthenticated
	case errors.Is(err, offerstore.ErrNotFound):
		return http.StatusNotFound, errorCodeNotFound
	case errors.Is(err, offerstore.ErrVersionConflict):
		return http.StatusConflict, errorCodeConflict
	case errors.Is(err, offerstream.ErrCursorInvalid),
		errors.Is(err, offerstream.ErrCursorExpired):
		return http.StatusConflict, errorCodeConflict
	case errors.Is(err, offer.ErrGenerationFailed):
		return http.StatusBadGateway, errorCodeGenerationFailed
	case errors.Is(err, offerstore.ErrValidation),
		errors.Is(err, offer.ErrEmptyFeedback),
		errors.Is(err, offer.ErrEmptyUserMessage),
		errors.Is(err, fileextract.ErrNoFiles),
		errors.Is(err, fileextract.ErrEmptyFile):
		return http.StatusBadRequest, errorCodeValidationFailed
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, offerstream.ErrOfferRequired),
		errors.Is(err, offer.ErrContextNil):
		return http.StatusBadRequest, errorCodeInvalidRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorCodeGenerationFailed
	default:
		return http.StatusInternalServerError, errorCodeRuntime
	}
}

// turnLimitExhausted reports a turn that ran its full round budget without a
// closing answer. The turn is over and its state is reportable, so the
// request itself still succeeds.
func turnLimitExhausted(err error) bool {
	return errors.Is(err, offer.ErrTurnLimitExceeded)
}

func invalidRequestError(message string) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, message)
}

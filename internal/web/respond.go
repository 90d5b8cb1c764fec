// Package web provides shared JSON response helpers for HTTP handlers,
// including the mapping from domain errors to status codes.
package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/domain"
)

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteError maps err to an HTTP status and writes a JSON error body.
// Domain errors map to client-facing statuses; anything unrecognized is a 500
// with a generic message so internals never leak to the client.
func WriteError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status, message := statusFor(err)

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	WriteJSON(w, log, status, ErrorResponse{Error: message})
}

func statusFor(err error) (int, string) {
	switch {
	case domain.IsValidationError(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnknownSymbol):
		return http.StatusBadRequest, "unknown symbol"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest, "insufficient funds"
	case errors.Is(err, domain.ErrNoHolding):
		return http.StatusBadRequest, "no position in symbol"
	case errors.Is(err, domain.ErrInsufficientShares):
		return http.StatusBadRequest, "not enough shares"
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict, "username already taken"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrTransactionConflict):
		return http.StatusConflict, "transaction conflict, retry the request"
	case errors.Is(err, domain.ErrQuoteUnavailable):
		return http.StatusBadGateway, "quote source unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

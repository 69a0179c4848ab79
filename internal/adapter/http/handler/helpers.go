package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/iho/goaccount/internal/adapter/http/dto"
	"github.com/iho/goaccount/internal/domain"
)

var now = func() time.Time { return time.Now().UTC() }

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.NewErrorResponse(status, message, now()))
}

// writeValidationError writes a 400 carrying per-field messages.
func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	resp := dto.NewErrorResponse(http.StatusBadRequest, "Validation failed", now())
	resp.ValidationErrors = fields
	writeJSON(w, http.StatusBadRequest, resp)
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAccountAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidAccountType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidAccountStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage hides internal failures from clients.
func errorMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		return "An unexpected error occurred"
	}
	return err.Error()
}

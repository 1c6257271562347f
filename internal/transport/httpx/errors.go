package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

// statusFromError отображает доменные ошибки в HTTP-статусы.
func statusFromError(err error) int {
	switch {
	case domain.IsValidation(err), errors.Is(err, domain.ErrIdempotencyKeyRequired):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsVersionConflict(err),
		errors.Is(err, domain.ErrOrderAlreadyExists),
		errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAIUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func codeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusBadGateway:
		return "upstream_unavailable"
	default:
		return "internal_error"
	}
}

func errorBody(err error) ErrorResponse {
	status := statusFromError(err)
	return ErrorResponse{Error: codeFromStatus(status), Message: err.Error()}
}

func respondError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFromError(err), errorBody(err))
}

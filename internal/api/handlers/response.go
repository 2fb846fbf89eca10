package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/medlocator/hospital-map/backend/internal/infrastructure/observability"
	apperrors "github.com/medlocator/hospital-map/backend/pkg/errors"
)

const validationMessage = "Erreur de validation"

type errorResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Errors  []apperrors.FieldError `json:"errors,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// statusForError maps an application error type to its HTTP status
func statusForError(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError writes the error envelope. Internal causes are logged, never sent.
func respondWithError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusForError(err)
	body := errorResponse{Success: false, Message: fallback}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		body.Message = appErr.Message
		body.Errors = appErr.Fields
	}

	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Int("status", status).Msg(fallback)
	}
	respondWithJSON(w, status, body)
}

func fieldError(field, message string) error {
	return apperrors.NewValidationErrorWithFields(validationMessage, []apperrors.FieldError{{Field: field, Message: message}})
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fieldError("id", "Identifiant invalide")
	}
	return id, nil
}

// queryFloat parses an optional float query parameter
func queryFloat(r *http.Request, key string) (*float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fieldError(key, "Doit être un nombre")
	}
	return &v, nil
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fieldError(key, "Doit être un entier")
	}
	return v, nil
}

// firstFloat returns the first present parameter among keys
func firstFloat(r *http.Request, keys ...string) (*float64, error) {
	for _, k := range keys {
		v, err := queryFloat(r, k)
		if err != nil || v != nil {
			return v, err
		}
	}
	return nil, nil
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bcnelson/dyndns/internal/domain"
	"github.com/bcnelson/dyndns/internal/validation"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondStandardError writes a JSON error response in the standard shape.
func respondStandardError(w http.ResponseWriter, status int, code, message, field string, details map[string]any) {
	respondJSON(w, status, &domain.StandardErrorResponse{
		Error: domain.StandardError{
			Code:    code,
			Message: message,
			Field:   field,
			Details: details,
		},
	})
}

// respondValidationError writes a 400 for a rejected request field.
func respondValidationError(w http.ResponseWriter, err *validation.ValidationError) {
	respondStandardError(w, http.StatusBadRequest, domain.ErrCodeValidationError,
		err.Message, err.Field, map[string]any{"value": err.Value})
}

// handleError converts domain errors to HTTP errors.
func handleError(w http.ResponseWriter, err error) {
	var (
		validationErrs   validation.ValidationErrors
		validationErr    *validation.ValidationError
		gatewayErr       *domain.GatewayError
		inconsistencyErr *domain.InconsistencyError
		storageErr       *domain.StorageError
	)

	switch {
	case errors.As(err, &validationErrs) && len(validationErrs) > 1:
		respondStandardError(w, http.StatusBadRequest, domain.ErrCodeValidationError,
			validationErrs.Error(), validationErrs[0].Field, map[string]any{"errors": validationErrs})
	case errors.As(err, &validationErr):
		respondValidationError(w, validationErr)
	case errors.As(err, &gatewayErr):
		respondStandardError(w, http.StatusBadGateway, domain.ErrCodeProviderError,
			"DNS provider rejected the update", "", map[string]any{
				"hostname": gatewayErr.Hostname,
				"address":  gatewayErr.Address,
			})
	case errors.As(err, &inconsistencyErr):
		respondStandardError(w, http.StatusInternalServerError, domain.ErrCodeInconsistent,
			"address was published but could not be stored", "", map[string]any{
				"hostname": inconsistencyErr.Hostname,
				"address":  inconsistencyErr.Address,
			})
	case errors.As(err, &storageErr):
		respondStandardError(w, http.StatusInternalServerError, domain.ErrCodeStorageError, "storage error", "", nil)
	case errors.Is(err, domain.ErrNotFound):
		respondStandardError(w, http.StatusNotFound, domain.ErrCodeResourceNotFound, "not found", "", nil)
	default:
		respondStandardError(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "internal server error", "", nil)
	}
}

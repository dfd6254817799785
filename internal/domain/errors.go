package domain

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Error codes for standardized API error responses.
const (
	ErrCodeResourceNotFound = "RESOURCE_NOT_FOUND"
	ErrCodeValidationError  = "VALIDATION_ERROR"
	ErrCodeStorageError     = "STORAGE_ERROR"
	ErrCodeProviderError    = "PROVIDER_ERROR"
	ErrCodeInconsistent     = "RECONCILIATION_INCONSISTENT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// StandardError represents a standardized error response from the API.
type StandardError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StandardErrorResponse wraps a StandardError for JSON responses.
type StandardErrorResponse struct {
	Error StandardError `json:"error"`
}

// StorageError is a host store failure other than not-found or already-exists.
type StorageError struct {
	Op       string
	Hostname string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Hostname, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// GatewayError is a failed provider push. The local record was not modified.
type GatewayError struct {
	Hostname string
	Address  string
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("pushing %s -> %s to provider: %v", e.Hostname, e.Address, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// InconsistencyError means the provider accepted the new address but the
// local record could not be updated. The two must be reconciled by hand.
type InconsistencyError struct {
	Hostname string
	Address  string
	Err      error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s -> %s is live at the provider but not stored: %v", e.Hostname, e.Address, e.Err)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }

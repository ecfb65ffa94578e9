package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error     string            `json:"error"`               // Error message
	Shortfall int64             `json:"shortfall,omitempty"` // Coins missing on insufficient balance
	Details   map[string]string `json:"details,omitempty"`   // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		errorResp.Details = make(map[string]string)
		for _, err := range validationErr.(validator.ValidationErrors) {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// SendLedgerError maps the ledger error taxonomy to HTTP responses.
// Every error here is recoverable; the status codes tell callers
// whether retrying can help.
func SendLedgerError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	var ib *InsufficientBalanceError
	if errors.As(err, &ib) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Insufficient balance", Shortfall: ib.Shortfall()})
		return
	}

	var status int
	switch {
	case errors.Is(err, ErrInvalidPinFormat), errors.Is(err, ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, ErrInvalidPin):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrReservationNotFound), errors.Is(err, ErrSyncEventNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrReservationAlreadyResolved), errors.Is(err, ErrReservationExpired):
		status = http.StatusConflict
	case errors.Is(err, ErrConcurrentModification):
		status = http.StatusConflict
	case errors.Is(err, ErrRedemptionCodesUnavailable):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}

	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}

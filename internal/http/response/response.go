package response

import (
	"encoding/json"
	"net/http"

	"github.com/Umer-Fazal/pharmacore/pkg/logger"
)

// ErrorResponse is the structured JSON error envelope every endpoint uses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error codes
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeDeliveryFailed     = "DELIVERY_FAILED"
	CodeNoPendingAuth      = "NO_PENDING_AUTH"
	CodeExpired            = "EXPIRED"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	CodeIncorrectCode      = "INCORRECT_CODE"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidCSRF        = "INVALID_CSRF"
	CodeNotFound           = "NOT_FOUND"
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeOutOfStock         = "OUT_OF_STOCK"
	CodeEmptyCart          = "EMPTY_CART"
	CodeProductGone        = "PRODUCT_GONE"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeInvalidStatus      = "INVALID_STATUS"
	CodeInternalError      = "INTERNAL_ERROR"
)

// WriteError writes a structured JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code}); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}

// WriteJSON writes any payload as a JSON response.
func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// Convenience helpers for the common cases.
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message, code string) {
	WriteError(w, http.StatusUnauthorized, message, code)
}

func Forbidden(w http.ResponseWriter, message, code string) {
	WriteError(w, http.StatusForbidden, message, code)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func Conflict(w http.ResponseWriter, message, code string) {
	WriteError(w, http.StatusConflict, message, code)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

package model

import (
	"fmt"
	"strings"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	Shortages []StockShortage `json:"shortages,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeProductNotFound     = "PRODUCT_NOT_FOUND"
	ErrCodeInsufficientStock   = "INSUFFICIENT_STOCK"
	ErrCodeUnsupportedMethod   = "UNSUPPORTED_METHOD"
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ErrCodeProviderRejected    = "PROVIDER_REJECTED"
	ErrCodeInvalidPaymentInput = "INVALID_PAYMENT_INPUT"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// DomainError is a business error with a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrOrderNotFound   = NewDomainError(ErrCodeNotFound, "Order not found")
	ErrProductNotFound = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrUnauthorised    = NewDomainError(ErrCodeUnauthorised, "Authentication required")
	ErrForbidden       = NewDomainError(ErrCodeForbidden, "Not allowed to access this resource")
)

// StockShortage names one product a reservation could not cover.
type StockShortage struct {
	ProductID    string `json:"productId"`
	Requested    int    `json:"requested"`
	CurrentStock int    `json:"currentStock"`
}

// InsufficientStockError rejects a reservation as a whole and reports
// every short item.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	ids := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		ids[i] = fmt.Sprintf("%s (requested %d, in stock %d)", s.ProductID, s.Requested, s.CurrentStock)
	}
	return "insufficient stock: " + strings.Join(ids, ", ")
}

// InvalidStateError rejects an illegal state machine transition.
type InvalidStateError struct {
	From  Status
	Event StatusEvent
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot apply %s to order in status %s", e.Event, e.From)
}

// NewInvalidStateError creates an InvalidStateError for the given pair.
func NewInvalidStateError(from Status, event StatusEvent) *InvalidStateError {
	return &InvalidStateError{From: from, Event: event}
}

// PaymentError is a failure reported by (or on the way to) a payment
// provider. Retryable distinguishes transient provider outages from
// business rejections.
type PaymentError struct {
	Code      string
	Reason    string
	Retryable bool
}

func (e *PaymentError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "payment failed"
}

// NewProviderUnavailableError marks a transient provider failure
// (network error or 5xx). Safe to retry.
func NewProviderUnavailableError(reason string) *PaymentError {
	return &PaymentError{Code: ErrCodeProviderUnavailable, Reason: reason, Retryable: true}
}

// NewProviderRejectedError marks a business rejection (4xx). Retrying
// the same request will fail again.
func NewProviderRejectedError(reason string) *PaymentError {
	return &PaymentError{Code: ErrCodeProviderRejected, Reason: reason, Retryable: false}
}

// NewInvalidPaymentInputError marks malformed payment input (phone,
// amount, card) detected before calling out.
func NewInvalidPaymentInputError(reason string) *PaymentError {
	return &PaymentError{Code: ErrCodeInvalidPaymentInput, Reason: reason, Retryable: false}
}

// NewUnsupportedMethodError marks a payment method no provider
// adapter serves.
func NewUnsupportedMethodError(method string) *PaymentError {
	return &PaymentError{
		Code:   ErrCodeUnsupportedMethod,
		Reason: fmt.Sprintf("unsupported payment method: %s", method),
	}
}

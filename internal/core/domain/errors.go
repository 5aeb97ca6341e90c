package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// DomainError represents a business domain error with a structured error code.
// Codes have the form KV-<AREA>-<NNNN>; the numeric part mirrors the closest
// HTTP status so transports can map it without a lookup table.
type DomainError struct {
	Code    string // Error code (e.g., "KV-USER-4000")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// Area returns the middle part of the code ("VALT" for KV-VALT-4290).
func (e *DomainError) Area() string {
	area, _, _ := splitCode(e.Code)
	return area
}

// HTTPStatus derives a status from the code: KV-DEV-4040 is 404 and
// KV-VALT-4290 is 429. ARG codes are 400. Codes outside 4000-5999 and
// anything unparsable are 500.
func (e *DomainError) HTTPStatus() int {
	area, num, ok := splitCode(e.Code)
	switch {
	case !ok:
		return http.StatusInternalServerError
	case area == "ARG":
		return http.StatusBadRequest
	case num < 4000 || num > 5999:
		return http.StatusInternalServerError
	}
	return num / 10
}

func splitCode(code string) (area string, num int, ok bool) {
	parts := strings.Split(code, "-")
	if len(parts) != 3 || parts[0] != "KV" {
		return "", 0, false
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return parts[1], 0, false
	}
	return parts[1], n, true
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return code == "" || de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Vault Errors (USER, VALT)
// ============================================================================

var (
	// ErrInvalidUser indicates a user ordinal outside [1, num_users].
	ErrInvalidUser = NewDomainError("KV-USER-4000", "invalid user")

	// ErrAllocation indicates backing storage could not be obtained.
	ErrAllocation = NewDomainError("KV-VALT-5000", "allocation failed")

	// ErrCapacityExceeded indicates a user's unique-key bound is reached.
	ErrCapacityExceeded = NewDomainError("KV-VALT-4290", "key capacity exceeded")
)

// ============================================================================
// Device Errors (DEV)
// ============================================================================

var (
	// ErrEndOfVault indicates the cursor has no pair to read.
	ErrEndOfVault = NewDomainError("KV-DEV-2000", "end of vault")

	// ErrMalformedPair indicates a payload that is not "<key> <value>".
	ErrMalformedPair = NewDomainError("KV-DEV-4000", "malformed pair")

	// ErrSessionNotFound indicates an unknown or released device session.
	ErrSessionNotFound = NewDomainError("KV-DEV-4040", "session not found")

	// ErrDeviceClosed indicates the device has been shut down.
	ErrDeviceClosed = NewDomainError("KV-DEV-5030", "device closed")
)

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrUnauthenticated indicates the principal or secret was rejected.
	ErrUnauthenticated = NewDomainError("KV-AUTH-4010", "authentication failed")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("KV-AUTH-4290", "too many requests")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("KV-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("KV-ARG-1002", "missing required argument")
)

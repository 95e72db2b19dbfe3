package util

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewFetchFailed wraps a profile lookup failure. The caller renders an
// explanation plus a retry action; no silent redirect.
func NewFetchFailed(err error) error {
	return &DomainError{
		Code:       "FETCH_FAILED",
		Message:    "could not load profile, please retry",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewProfileMissing signals an authenticated account without a profile
// record; the caller routes to profile creation.
func NewProfileMissing(accountID string) error {
	return &DomainError{
		Code:       "PROFILE_MISSING",
		Message:    "no profile exists for this account",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"account_id": accountID},
	}
}

// NewUpdateFailed wraps a failed activate/update write. Local state stays
// unchanged and the user may retry.
func NewUpdateFailed(err error) error {
	return &DomainError{
		Code:       "UPDATE_FAILED",
		Message:    "profile update failed, please retry",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewInvariantViolation marks a fetched or pushed record whose status fields
// are inconsistent. The record is discarded, never repaired.
func NewInvariantViolation(accountID string, err error) error {
	return &DomainError{
		Code:       "INVARIANT_VIOLATION",
		Message:    "profile record is inconsistent",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"account_id": accountID},
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// Package errors provides standardized error handling for the funnel service.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeLocalStoreUnavailable ErrorCode = "LOCAL_STORE_UNAVAILABLE"
	ErrCodeDraftCorrupt          ErrorCode = "DRAFT_CORRUPT"

	ErrCodeSessionInitFailed   ErrorCode = "SESSION_INIT_FAILED"
	ErrCodeSessionTrackFailed  ErrorCode = "SESSION_TRACK_FAILED"
	ErrCodeSessionVerifyFailed ErrorCode = "SESSION_VERIFY_FAILED"

	ErrCodeInquiryInsertFailed ErrorCode = "INQUIRY_INSERT_FAILED"
	ErrCodeInquiryUpdateFailed ErrorCode = "INQUIRY_UPDATE_FAILED"

	ErrCodeLeadAPIError       ErrorCode = "LEAD_API_ERROR"
	ErrCodeLeadPayloadInvalid ErrorCode = "LEAD_PAYLOAD_INVALID"
	ErrCodeSubmissionInFlight ErrorCode = "SUBMISSION_IN_FLIGHT"

	ErrCodeGeocodeFailed      ErrorCode = "GEOCODE_FAILED"
	ErrCodeGeocodeUnavailable ErrorCode = "GEOCODE_UNAVAILABLE"

	ErrCodeConversionSendFailed ErrorCode = "CONVERSION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewLocalStoreUnavailableError marks a durable-store outage. Callers log
// it and carry on; it is never surfaced to the user.
func NewLocalStoreUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLocalStoreUnavailable,
		Message:   "Durable local store unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionInitFailedError creates a non-fatal session bootstrap error.
func NewSessionInitFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionInitFailed,
		Message:   "Funnel session initialization failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInquiryInsertFailedError creates a best-effort system-of-record error.
func NewInquiryInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInquiryInsertFailed,
		Message:   "Inquiry record insert failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLeadAPIError creates the fatal submission error. The draft must stay
// intact so the user can retry.
func NewLeadAPIError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLeadAPIError,
		Message:   "Lead submission to Xano failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLeadPayloadInvalidError creates a non-retryable payload schema error.
func NewLeadPayloadInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLeadPayloadInvalid,
		Message:   "Lead payload failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGeocodeFailedError creates a "location not yet resolved" error.
func NewGeocodeFailedError(query string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGeocodeFailed,
		Message:   "Address could not be resolved",
		Details:   fmt.Sprintf("query: %s, error: %s", query, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGeocodeUnavailableError creates a provider-level outage error, distinct
// from an address that simply did not resolve.
func NewGeocodeUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGeocodeUnavailable,
		Message:   "Location service unreachable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConversionSendFailedError creates a logged-only conversion sink error.
func NewConversionSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConversionSendFailed,
		Message:   "Conversion event dispatch failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

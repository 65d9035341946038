// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP and event-stream client for the document
// assistant backend.
package api

import (
	"context"
	"errors"
	"net/http"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	// ErrTypeConnection: the server was unreachable (network failure).
	ErrTypeConnection
	// ErrTypeTimeout: the request exceeded its deadline.
	ErrTypeTimeout
	// ErrTypeCanceled: the request was canceled by user intent. Never
	// treated as a failure by recovery logic.
	ErrTypeCanceled
	// ErrTypeStatus: the server answered with a non-2xx status.
	ErrTypeStatus
	// ErrTypeInvalidResponse: the body could not be decoded.
	ErrTypeInvalidResponse
)

// ClientError represents an error from the backend client. For server
// rejections it carries the HTTP status and the raw error payload for
// diagnostics; only Message is intended for end users.
type ClientError struct {
	Type    ErrorType
	Status  int
	Message string
	Payload []byte
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	ErrUnreachable = &ClientError{Type: ErrTypeConnection, Message: "server is unreachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
)

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// typeOf extracts the ErrorType from any error.
func typeOf(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrTypeUnknown
}

// IsUnreachable reports whether the error indicates a network failure rather
// than a server-side rejection.
func IsUnreachable(err error) bool {
	return typeOf(err) == ErrTypeConnection
}

// IsCanceled reports whether the error came from an explicit cancellation.
func IsCanceled(err error) bool {
	if typeOf(err) == ErrTypeCanceled {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// IsStatus reports whether the error is a server rejection with the given
// HTTP status code.
func IsStatus(err error, status int) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeStatus && clientErr.Status == status
	}
	return false
}

// IsRejection reports whether the error is any server-side rejection.
func IsRejection(err error) bool {
	return typeOf(err) == ErrTypeStatus
}

// IsPinLimit reports whether the error is the backend's pin-limit rejection.
// Detection is by status code and call context, not message text: the
// coordinator only calls this on errors returned from a pin operation.
func IsPinLimit(err error) bool {
	return IsStatus(err, http.StatusBadRequest)
}

// IsAttachmentLimit reports whether the error is the backend's
// attachment-count rejection for an upload.
func IsAttachmentLimit(err error) bool {
	return IsStatus(err, http.StatusBadRequest)
}

// connectionError wraps a transport-level failure, mapping context errors to
// their own types so cancellation is distinguishable from real failures.
func connectionError(err error) *ClientError {
	switch {
	case errors.Is(err, context.Canceled):
		return &ClientError{Type: ErrTypeCanceled, Message: "request canceled", Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	default:
		return &ClientError{Type: ErrTypeConnection, Message: "server is unreachable", Cause: err}
	}
}

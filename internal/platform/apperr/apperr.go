// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

/*
Package apperr defines the centralized error handling framework for the
Aperture client core.

It provides a rich error type that bridges the gap between low-level
network/storage failures and the degraded-mode decisions made by the
synchronization layer.

Architecture:

  - AppError: A struct containing a machine-readable ErrorCode and a
    user-facing message.
  - Classification: Retryable() tells callers whether degrading to cached
    state (and retrying later) is the right reaction.
  - Mapping: No HTTP status mapping. This is a client; the server owns
    response codes.

Every error that leaves a service should be wrapped as an [AppError] so that
callers can branch on Code instead of string matching.
*/
package apperr

import (
	"errors"
	"fmt"
)

// AppError is the canonical error type for the Aperture client core.
//
// It carries a machine-readable code, a message safe to show in the UI, and
// an optional cause chain for diagnosis.
//
// # Diagnosis
//
// The Cause field is for logging only and is never rendered to the user;
// services log it together with the operation name and target id.
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NETWORK_ERROR").
	Code string `json:"code"`
	// Message is a human-readable description safe to show to the user.
	Message string `json:"error"`
	// Cause is the underlying error, used for logging only.
	Cause error `json:"-"`
	// UserID optionally names the identity involved in a partial failure so
	// callers can resume (e.g. retry profile creation after registration).
	UserID string `json:"-"`
}

// Error implements the error interface. It returns the user-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Retryable reports whether the failure is transient: the operation may
// succeed if replayed after connectivity or storage recovers. Auth failures
// are never retryable; they need user action.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case "NETWORK_ERROR", "STORAGE_ERROR":
		return true
	default:
		return false
	}
}

// # Transport & Storage Errors

// Network creates an [AppError] for an unreachable server or a timed-out
// request. Timeouts and connection failures are deliberately the same kind:
// the sync layer reacts to both by serving cached state.
func Network(op string, cause error) *AppError {
	return &AppError{
		Code:    "NETWORK_ERROR",
		Message: fmt.Sprintf("Network request failed during %s", op),
		Cause:   cause,
	}
}

// Validation creates an [AppError] for a malformed server response. A
// response that parses but lacks the expected shape is treated exactly like
// a network failure by the feed cache.
func Validation(op string, cause error) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("Malformed server response during %s", op),
		Cause:   cause,
	}
}

// Storage creates an [AppError] for a durable read/write failure. Storage
// errors are non-fatal everywhere: services proceed with in-memory defaults.
func Storage(op string, cause error) *AppError {
	return &AppError{
		Code:    "STORAGE_ERROR",
		Message: fmt.Sprintf("Local storage failed during %s", op),
		Cause:   cause,
	}
}

// NotFound creates an [AppError] for a missing key or resource.
//
// Example:
//
//	apperr.NotFound("cached feed") // Returns "cached feed not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: resource + " not found",
	}
}

// # Authentication Errors

// Auth creates an [AppError] for bad credentials or an expired session. The
// message comes from the identity provider and is surfaced to the user
// verbatim and never silently retried.
func Auth(msg string, cause error) *AppError {
	return &AppError{
		Code:    "AUTH_ERROR",
		Message: msg,
		Cause:   cause,
	}
}

// ReauthRequired creates an [AppError] for a sensitive operation that needs
// a fresh credential before it may proceed.
func ReauthRequired(cause error) *AppError {
	return &AppError{
		Code:    "REAUTH_REQUIRED",
		Message: "Please confirm your current password to continue",
		Cause:   cause,
	}
}

// PartialRegistration creates an [AppError] for the state where the identity
// provider account was created but the initial profile write failed. The
// identity exists without a profile; callers should retry profile creation
// for userID rather than register again.
func PartialRegistration(userID string, cause error) *AppError {
	return &AppError{
		Code:    "PARTIAL_REGISTRATION",
		Message: "Account created but profile setup failed, retry profile setup",
		Cause:   cause,
		UserID:  userID,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsCode reports whether err carries the given machine-readable code.
func IsCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}

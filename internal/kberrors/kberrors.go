// Package kberrors defines the protocol-agnostic error taxonomy shared by
// every layer of the knowledge-base core. Use-cases never leak
// backend-specific error types; they raise one of the Kinds below with a
// stable Code and a message that has already passed through Sanitize.
package kberrors

import (
	"errors"
	"fmt"
)

// Kind is a protocol-agnostic error category.
type Kind string

const (
	KindValidation            Kind = "validation"
	KindNotFound              Kind = "not_found"
	KindConflict              Kind = "conflict"
	KindStorage               Kind = "storage"
	KindDependencyUnavailable Kind = "dependency_unavailable"
	KindChunkMetadata         Kind = "chunk_metadata"
	KindCancelled             Kind = "cancelled"
	KindInternal              Kind = "internal"
)

// Fine-grained stable codes carried in error envelopes on both protocol
// surfaces.
const (
	CodeMissingQuery        = "missing_query"
	CodeInvalidLimit        = "invalid_limit"
	CodeInvalidThreshold    = "invalid_threshold"
	CodeCollectionNotFound  = "collection_not_found"
	CodeServiceUnavailable  = "service_unavailable"
	CodeInvalidName         = "invalid_name"
	CodeInvalidPath         = "invalid_path"
	CodeInvalidExtension    = "invalid_extension"
	CodeDuplicateName       = "duplicate_name"
	CodeFileNotFound        = "file_not_found"
	CodeChunkMetadataError  = "chunk_metadata_error"
	CodeModelFingerprintMix = "model_fingerprint_mismatch"
	CodeSyncInProgress      = "sync_in_progress"
)

// Error is the concrete error type returned from use-cases.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a sanitized Error of the given kind and code.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: Sanitize(message)}
}

// Wrap constructs a sanitized Error that retains the original cause for
// %w-style unwrapping, without ever exposing the raw cause's message to
// callers (the caller must pass a safe message explicitly).
func Wrap(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: Sanitize(message), Err: cause}
}

// Is reports whether err is a *Error of the given kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// AsError unwraps err into a *Error, for adapters that need the Kind and
// Code to build a protocol-specific envelope.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// NotFound, Validation, Conflict, Storage, DependencyUnavailable, Internal,
// Cancelled, ChunkMetadata are convenience constructors for the common case
// of no further cause to retain.
func NotFound(code, message string) *Error { return New(KindNotFound, code, message) }
func Validation(code, message string) *Error { return New(KindValidation, code, message) }
func Conflict(code, message string) *Error { return New(KindConflict, code, message) }
func Storage(code, message string, cause error) *Error {
	return Wrap(KindStorage, code, message, cause)
}
func DependencyUnavailable(code, message string) *Error {
	return New(KindDependencyUnavailable, code, message)
}
func Internal(code, message string, cause error) *Error {
	return Wrap(KindInternal, code, message, cause)
}
func Cancelled(message string) *Error { return New(KindCancelled, "", message) }
func ChunkMetadata(code, message string) *Error { return New(KindChunkMetadata, code, message) }

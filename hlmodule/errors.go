// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlmodule

import "fmt"

// ErrorKind categorizes HL module errors.
type ErrorKind uint8

const (
	// ErrCorruptMetadata indicates metadata that does not match the
	// expected section layout, typically a damaged or foreign container.
	ErrCorruptMetadata ErrorKind = iota

	// ErrInvalidShaderModel indicates a profile that is not a DXIL target.
	ErrInvalidShaderModel

	// ErrEntryPointNotFound indicates the requested entry function is missing.
	ErrEntryPointNotFound

	// ErrInternalError indicates a broken invariant of the in-memory model.
	ErrInternalError
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrCorruptMetadata:
		return "CorruptMetadata"
	case ErrInvalidShaderModel:
		return "InvalidShaderModel"
	case ErrEntryPointNotFound:
		return "EntryPointNotFound"
	case ErrInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Error represents an HL module error.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Section names the metadata section being decoded, if any.
	Section string

	// Message provides details about the error.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Section != "" {
		return fmt.Sprintf("hlmodule %s in !%s: %s", e.Kind, e.Section, msg)
	}
	return fmt.Sprintf("hlmodule %s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new error without section information.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// IsCorruptMetadata returns true if the error is ErrCorruptMetadata.
func (e *Error) IsCorruptMetadata() bool {
	return e.Kind == ErrCorruptMetadata
}

// IsInternalError returns true if the error is ErrInternalError.
func (e *Error) IsInternalError() bool {
	return e.Kind == ErrInternalError
}

// corrupt reports incorrect container metadata in section.
func corrupt(section, format string, args ...any) *Error {
	return &Error{
		Kind:    ErrCorruptMetadata,
		Section: section,
		Message: fmt.Sprintf(format, args...),
	}
}

// Package apperrors defines the error types shared by the store client,
// the repository and the form drafts.
//
// Callers recognise them with errors.As or the IsXxx helpers:
//
//   - ValidationError: a draft field failed its required/format check; no
//     network call was made.
//   - NotFoundError: an entity ID has no record, locally or remotely.
//   - RemoteReadError / RemoteWriteError: the store answered with a
//     non-success status.
//   - NetworkError: the request never got an answer (offline, DNS, timeout).
//   - PartialUpdateError: the main write was stored but a follow-up write
//     failed; the caller should treat the entity as saved.
package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error codes, used when errors are surfaced in the UI status bar.
const (
	CodeValidation  = "VALIDATION"
	CodeNotFound    = "NOT_FOUND"
	CodeRemoteRead  = "REMOTE_READ"
	CodeRemoteWrite = "REMOTE_WRITE"
	CodeNetwork     = "NETWORK"
	CodePartial     = "PARTIAL_UPDATE"
	CodeInternal    = "INTERNAL"
)

// ValidationError reports per-field validation failures.
type ValidationError struct {
	// Fields maps a field name to a human-readable message.
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a message for field. The first message per field wins.
func (e *ValidationError) Add(field, message string) {
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = message
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// Field returns the message recorded for field, if any.
func (e *ValidationError) Field(field string) string {
	return e.Fields[field]
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError indicates that an entity does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// RemoteReadError is returned when a read request gets a non-success status.
type RemoteReadError struct {
	Path   string
	Status int
	Body   string
}

func (e *RemoteReadError) Error() string {
	return fmt.Sprintf("unexpected status %d on GET %s: %s", e.Status, e.Path, e.Body)
}

// RemoteWriteError is returned when a write request gets a non-success status.
type RemoteWriteError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("unexpected status %d on %s %s: %s", e.Status, e.Method, e.Path, e.Body)
}

// NetworkError wraps a transport-level failure.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("executing request %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// PartialUpdateError wraps the failure of a follow-up write after the
// primary write succeeded.
type PartialUpdateError struct {
	Op  string
	Err error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PartialUpdateError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err (or any error in its chain) is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err (or any error in its chain) is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsRemoteWrite reports whether err (or any error in its chain) is a RemoteWriteError.
func IsRemoteWrite(err error) bool {
	var target *RemoteWriteError
	return errors.As(err, &target)
}

// IsRemoteRead reports whether err (or any error in its chain) is a RemoteReadError.
func IsRemoteRead(err error) bool {
	var target *RemoteReadError
	return errors.As(err, &target)
}

// IsNetwork reports whether err (or any error in its chain) is a NetworkError.
func IsNetwork(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}

// IsPartialUpdate reports whether err (or any error in its chain) is a PartialUpdateError.
func IsPartialUpdate(err error) bool {
	var target *PartialUpdateError
	return errors.As(err, &target)
}

// Code classifies err into one of the Code constants. A partial update is
// reported as such even though it wraps a remote or network error.
func Code(err error) string {
	switch {
	case IsPartialUpdate(err):
		return CodePartial
	case IsValidation(err):
		return CodeValidation
	case IsNotFound(err):
		return CodeNotFound
	case IsRemoteWrite(err):
		return CodeRemoteWrite
	case IsRemoteRead(err):
		return CodeRemoteRead
	case IsNetwork(err):
		return CodeNetwork
	}
	return CodeInternal
}

// UserMessage turns err into a short line suitable for the status bar.
func UserMessage(err error) string {
	switch Code(err) {
	case CodeValidation:
		return "Please check the highlighted fields"
	case CodeNotFound:
		return "That item no longer exists; refresh the board"
	case CodeRemoteWrite:
		return "The store rejected the change"
	case CodeRemoteRead:
		return "Could not load data from the store"
	case CodeNetwork:
		return "Store unreachable; check your connection"
	case CodePartial:
		return "Saved, but some tasks are not updated yet; they will be on the next refresh"
	}
	return "Something went wrong"
}

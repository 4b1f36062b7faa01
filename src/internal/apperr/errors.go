// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for each category surfaced at the tool boundary.
var (
	// ErrNotFound is returned when a referenced resource does not exist or was deleted.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateLabel is returned when a live resource of the same kind already holds the label.
	ErrDuplicateLabel = errors.New("duplicate label")

	// ErrPolicyViolation is returned when the policy gate rejects an image or action.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrInvalidTransition is returned when a lifecycle state is unreachable from the current one.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrCleanupWarning marks a delete that committed while releasing an external handle failed.
	ErrCleanupWarning = errors.New("cleanup warning")

	// ErrInvalidInput is returned for malformed tool arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable is returned when an external collaborator cannot be reached.
	ErrUnavailable = errors.New("unavailable")

	// ErrInternal is the fallback category.
	ErrInternal = errors.New("internal error")
)

// Boundary codes.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeDuplicateLabel    = "DUPLICATE_LABEL"
	CodePolicyViolation   = "POLICY_VIOLATION"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeCleanupWarning    = "CLEANUP_WARNING"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnavailable       = "UNAVAILABLE"
	CodeInternal          = "INTERNAL"
)

// Code maps an error to its boundary code. It returns an empty string for nil.
//
// InvalidTransition is checked before NotFound: a transition attempted on a
// deleted resource wraps both and reports INVALID_TRANSITION.
func Code(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrCleanupWarning):
		return CodeCleanupWarning
	case errors.Is(err, ErrPolicyViolation):
		return CodePolicyViolation
	case errors.Is(err, ErrDuplicateLabel):
		return CodeDuplicateLabel
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// InvalidInput wraps ErrInvalidInput with a formatted message.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// Unavailable wraps a collaborator failure with ErrUnavailable.
func Unavailable(what string, err error) error {
	return fmt.Errorf("%s: %w: %w", what, ErrUnavailable, err)
}

// CleanupFailure records one external handle that could not be released.
type CleanupFailure struct {
	ID   string
	Kind string
	Err  error
}

// CleanupWarning reports every cleanup callback that failed during a delete.
// The delete itself committed.
type CleanupWarning struct {
	Failures []CleanupFailure
}

// Error implements error.
func (w *CleanupWarning) Error() string {
	parts := make([]string, 0, len(w.Failures))
	for _, f := range w.Failures {
		parts = append(parts, fmt.Sprintf("%s %s: %v", f.Kind, f.ID, f.Err))
	}
	return fmt.Sprintf("cleanup warning: %d external handle(s) not released: %s",
		len(w.Failures), strings.Join(parts, "; "))
}

// Is reports ErrCleanupWarning so callers can use errors.Is.
func (w *CleanupWarning) Is(target error) bool { return target == ErrCleanupWarning }

// Unwrap exposes the underlying callback errors.
func (w *CleanupWarning) Unwrap() []error {
	errs := make([]error, 0, len(w.Failures))
	for _, f := range w.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// IsWarning reports whether err is only a cleanup warning, meaning the
// operation committed.
func IsWarning(err error) bool {
	return err != nil && errors.Is(err, ErrCleanupWarning)
}

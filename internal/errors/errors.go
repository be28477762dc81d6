package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/habitbell/internal/logger"
)

var (
	// ErrValidation marks input rejected at the boundary; nothing was written.
	ErrValidation = errors.New("validation failed")
	// ErrCapacityExceeded is returned when a user already has the maximum number of habits.
	ErrCapacityExceeded = errors.New("habit limit reached")
	// ErrNotFound is returned by updates that reference an unknown habit.
	ErrNotFound = errors.New("habit not found")
	// ErrDuplicateTitle is returned when a user already has a habit with the same title.
	ErrDuplicateTitle = errors.New("habit title already exists")
	// ErrDispatch marks a notification transport failure.
	ErrDispatch = errors.New("dispatch failed")
	// ErrPersistence marks a store that is unavailable or failed to write.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError describes a rejected input field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validation builds a ValidationError for field
func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DispatchError wraps a transport failure for a single recipient
type DispatchError struct {
	UserID     int64
	HabitTitle string
	Err        error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch reminder %q to user %d: %v", e.HabitTitle, e.UserID, e.Err)
}

func (e *DispatchError) Unwrap() []error {
	return []error{ErrDispatch, e.Err}
}

// Persistence wraps a storage driver error so callers can match ErrPersistence
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}

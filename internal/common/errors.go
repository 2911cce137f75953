// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound          = errors.New("not found")
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Pipeline errors.
	ErrIngestion          = errors.New("ingestion failed")
	ErrInvalidRange       = errors.New("invalid date range")
	ErrNoUpload           = errors.New("no sales export loaded")
	ErrNoReport           = errors.New("no report computed")
	ErrInconsistentReport = errors.New("inconsistent report")

	// Export errors.
	ErrExport = errors.New("export failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsFatalToRun reports whether err must abort a report run before any table is produced.
func IsFatalToRun(err error) bool {
	return errors.Is(err, ErrIngestion) || errors.Is(err, ErrInvalidRange) || errors.Is(err, ErrNoUpload)
}

// Package domain holds the error taxonomy shared by the fetch, parse, sync
// and note layers.
package domain

import "errors"

// ErrorType represents the semantic category of an error
type ErrorType int

const (
	ErrorTypeInternal      ErrorType = iota // Anything not classified below
	ErrorTypeConfiguration                  // Missing or invalid settings, reported before any network call
	ErrorTypeNotFound                       // Feed URL answered 404
	ErrorTypeFetch                          // Network or non-404 HTTP failure
	ErrorTypeParse                          // Feed body is not valid iCalendar data
	ErrorTypeRecurrence                     // A single event's RRULE could not be expanded
)

// Error represents an error with semantic type information
type Error struct {
	Type    ErrorType
	Message string
	Err     error // underlying error for wrapping
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// GetErrorType returns the semantic type of an error
func GetErrorType(err error) ErrorType {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal
}

// UserMessage returns the actionable message shown to the user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return "calendar sync failed: " + err.Error()
	}
	switch domainErr.Type {
	case ErrorTypeNotFound:
		return "calendar feed not found, check your URL"
	case ErrorTypeParse:
		return "could not parse calendar data"
	case ErrorTypeFetch:
		return "could not fetch calendar feed: " + domainErr.Message
	default:
		return domainErr.Message
	}
}

func NewConfigurationError(message string, err ...error) *Error {
	return &Error{Type: ErrorTypeConfiguration, Message: message, Err: errors.Join(err...)}
}

func NewNotFoundError(message string, err ...error) *Error {
	return &Error{Type: ErrorTypeNotFound, Message: message, Err: errors.Join(err...)}
}

func NewFetchError(message string, err ...error) *Error {
	return &Error{Type: ErrorTypeFetch, Message: message, Err: errors.Join(err...)}
}

func NewParseError(message string, err ...error) *Error {
	return &Error{Type: ErrorTypeParse, Message: message, Err: errors.Join(err...)}
}

func NewRecurrenceError(message string, err ...error) *Error {
	return &Error{Type: ErrorTypeRecurrence, Message: message, Err: errors.Join(err...)}
}

func NewInternalError(message string, err ...error) *Error {
	return &Error{Type: ErrorTypeInternal, Message: message, Err: errors.Join(err...)}
}

// ErrNoFeedConfigured is returned when a sync is requested without any feed URL.
var ErrNoFeedConfigured = NewConfigurationError("no calendar feed URL configured")

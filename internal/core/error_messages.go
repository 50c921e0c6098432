package core

// error_messages.go maps technical errors to user-facing messages.
//
// # Error Codes Reference
//
// When users encounter errors, they can quote the error code to support
// staff for faster diagnosis. Codes are grouped by category.
//
// # Book Errors (BOOK001-BOOK099)
//
//	BOOK001 - Book not found: The book does not exist or was deleted
//	          Action: Return to the book list and try again
//	          Match: errors.Is(err, ErrBookNotFound)
//
//	BOOK002 - Invalid book: Title or author is missing or too long
//	          Action: Correct the highlighted fields
//	          Match: errors.As(err, *FieldErrors)
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - No columns: Neither Title nor Author was checked
//	         Action: Check at least one column
//	         Match: *export.ValidationError
//
//	EXP002 - Export file error: An export file could not be written or read
//	         Action: Please try again; check free disk space if it persists
//	         Match: *export.IOError
//
//	EXP003 - Malformed export data: The intermediate CSV was inconsistent
//	         Action: Please try again or contact support
//	         Match: *export.FormatError
//
//	EXP004 - Export timed out: The export took longer than allowed
//	         Action: Please try again later
//	         Match: *export.TimeoutError
//
//	EXP005 - Export busy: Too many exports in progress
//	         Action: Please wait a moment and try again
//	         Match: export.ErrTooManyExports
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: "duplicate key"
//	DB002 - Unique constraint: "unique constraint", "violates unique"
//	DB004 - Connection refused: "connection refused"
//	DB005 - Connection reset: "connection reset"
//	DB006 - Timeout: "timeout"
//	DB007 - Busy: "deadlock", "database is locked"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled: "context canceled"
//	REQ002 - Request timeout: "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check application
// logs for the original technical error when users report ERR000.
//
// # Matching
//
// Typed errors are matched first with errors.Is / errors.As, so wrapped
// errors keep their code. Remaining errors are matched case-insensitively
// with strings.Contains; the first matching pattern wins.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/bookshelf/internal/export"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgBookNotFound = UserMessage{
		Message: "Book not found",
		Action:  "Return to the book list and try again",
		Code:    "BOOK001",
	}
	msgInvalidBook = UserMessage{
		Message: "Title and author are required",
		Action:  "Correct the highlighted fields",
		Code:    "BOOK002",
	}
	msgExportNoColumns = UserMessage{
		Message: export.NoColumnsMessage,
		Action:  "Check at least one column",
		Code:    "EXP001",
	}
	msgExportIO = UserMessage{
		Message: "The export files could not be created",
		Action:  "Please try again; check free disk space if it persists",
		Code:    "EXP002",
	}
	msgExportFormat = UserMessage{
		Message: "The export data was malformed",
		Action:  "Please try again or contact support",
		Code:    "EXP003",
	}
	msgExportTimeout = UserMessage{
		Message: "The export took too long",
		Action:  "Please try again later",
		Code:    "EXP004",
	}
	msgExportBusy = UserMessage{
		Message: "Too many exports in progress",
		Action:  "Please wait a moment and try again",
		Code:    "EXP005",
	}
)

// mapTypedError matches errors that carry their meaning in their type.
// Timeout is checked before IOError because a timeout may wrap one.
func mapTypedError(err error) (UserMessage, bool) {
	var (
		fieldErrs FieldErrors
		valErr    *export.ValidationError
		timeout   *export.TimeoutError
		format    *export.FormatError
		ioErr     *export.IOError
	)

	switch {
	case errors.Is(err, ErrBookNotFound):
		return msgBookNotFound, true
	case errors.As(err, &fieldErrs):
		return msgInvalidBook, true
	case errors.As(err, &valErr):
		return msgExportNoColumns, true
	case errors.Is(err, export.ErrTooManyExports):
		return msgExportBusy, true
	case errors.As(err, &timeout):
		return msgExportTimeout, true
	case errors.As(err, &format):
		return msgExportFormat, true
	case errors.As(err, &ioErr):
		return msgExportIO, true
	}
	return UserMessage{}, false
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Order matters: more specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// Database constraint errors
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Reload the page and try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Use a different value",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Use a different value",
			Code:    "DB002",
		},
	},

	// Database connection errors
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// Request errors
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed domain errors are matched first, then known error text
// (case-insensitive). If nothing matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	msg := MapError(fmt.Errorf("load: %w", ErrBookNotFound))
//	// msg.Code == "BOOK001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTypedError(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

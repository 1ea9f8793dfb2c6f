// Package core provides the migration orchestration for docmigrate.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When a run fails, the CLI and the status server print the mapped message and
// code next to the technical error.
//
// Error codes are grouped by category:
//
// # Source Errors (SRC001-SRC099)
//
// Errors raised while talking to MongoDB:
//
//	SRC001 - Unreachable: Unable to reach MongoDB
//	         Action: Check MONGODB_URI and that the server is running
//	         Patterns: "server selection error", "no reachable servers"
//
//	SRC002 - Authentication: MongoDB rejected the credentials
//	         Action: Check the username and password in MONGODB_URI
//	         Patterns: "authentication failed"
//
//	SRC003 - Collection not found: The requested collection does not exist
//	         Action: Check the collection name, or use --all-tables
//	         Patterns: "collection not found"
//
//	SRC004 - Empty database: The database has no collections
//	         Action: Verify the database name passed with --database
//	         Patterns: "no collections found"
//
// # Sink Errors (SNK001-SNK099)
//
// Errors raised by the relational target:
//
//	SNK001 - Duplicate key: A row with this _id already exists
//	         Action: Re-run with --drop-tables, or --data-only --truncate
//	         Patterns: "unique constraint", "duplicate key", "duplicate entry"
//
//	SNK002 - Missing table: The target table does not exist
//	         Action: Run without --data-only so tables are created first
//	         Patterns: "no such table", "doesn't exist", "does not exist"
//
//	SNK003 - Schema drift: The existing table has different columns
//	         Action: Re-run with --drop-tables to recreate the table
//	         Patterns: "has no column named", "unknown column"
//
//	SNK004 - Locked: The output database is in use by another process
//	         Action: Close other connections to the output file and retry
//	         Patterns: "database is locked"
//
//	SNK005 - Cannot open: The output database could not be opened
//	         Action: Check the output path and its permissions
//	         Patterns: "unable to open database file", "permission denied"
//
//	SNK006 - Connection refused: Unable to connect to the target database
//	         Action: Check the sink DSN and that the server is running
//	         Patterns: "connection refused"
//
// # Migration Errors (MIG001-MIG099)
//
// Errors related to the run itself:
//
//	MIG001 - Cancelled: The migration was interrupted
//	         Action: Re-run the migration; committed batches were kept
//	         Patterns: "context canceled"
//
//	MIG002 - Timeout: An operation timed out
//	         Action: Retry, or lower --batch-size
//	         Patterns: "context deadline exceeded", "timeout"
//
//	MIG003 - Batch failed: A batch was rolled back
//	         Action: Inspect the logged row; earlier batches were kept
//	         Patterns: "batch insert failed"
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Invalid configuration: One or more options are invalid
//	         Action: Fix the listed options and try again
//	         Patterns: "validation failed"
//
//	CFG002 - No ledger: Run history is not available
//	         Action: Set LEDGER_DATABASE_URL to record runs
//	         Patterns: "ledger is not configured"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Check the logs for the technical error
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are defined
// before general ones. A batch failure caused by a duplicate key therefore
// maps to SNK001 rather than MIG003.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgUnreachable = UserMessage{
		Message: "Unable to reach MongoDB",
		Action:  "Check MONGODB_URI and that the server is running",
		Code:    "SRC001",
	}
	msgDuplicate = UserMessage{
		Message: "A row with this _id already exists",
		Action:  "Re-run with --drop-tables, or --data-only --truncate",
		Code:    "SNK001",
	}
	msgMissingTable = UserMessage{
		Message: "The target table does not exist",
		Action:  "Run without --data-only so tables are created first",
		Code:    "SNK002",
	}
	msgSchemaDrift = UserMessage{
		Message: "The existing table has different columns",
		Action:  "Re-run with --drop-tables to recreate the table",
		Code:    "SNK003",
	}
	msgCannotOpen = UserMessage{
		Message: "The output database could not be opened",
		Action:  "Check the output path and its permissions",
		Code:    "SNK005",
	}
	msgTimeout = UserMessage{
		Message: "An operation timed out",
		Action:  "Retry, or lower --batch-size",
		Code:    "MIG002",
	}
)

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters:
//   - More specific patterns should come before general ones
//   - Multiple patterns can map to the same error code
var errorPatterns = []errorPattern{
	// =========================================================================
	// Source Errors (SRC001-SRC004)
	// =========================================================================
	{pattern: "server selection error", msg: msgUnreachable},
	{pattern: "no reachable servers", msg: msgUnreachable},
	{
		pattern: "authentication failed",
		msg: UserMessage{
			Message: "MongoDB rejected the credentials",
			Action:  "Check the username and password in MONGODB_URI",
			Code:    "SRC002",
		},
	},
	{
		pattern: "collection not found",
		msg: UserMessage{
			Message: "The requested collection does not exist",
			Action:  "Check the collection name, or use --all-tables",
			Code:    "SRC003",
		},
	},
	{
		pattern: "no collections found",
		msg: UserMessage{
			Message: "The database has no collections",
			Action:  "Verify the database name passed with --database",
			Code:    "SRC004",
		},
	},

	// =========================================================================
	// Sink Errors (SNK001-SNK006)
	// These come from the SQLite, libSQL, PostgreSQL and MySQL drivers, whose
	// wording differs for the same condition.
	// =========================================================================
	{pattern: "unique constraint", msg: msgDuplicate},
	{pattern: "duplicate key", msg: msgDuplicate},
	{pattern: "duplicate entry", msg: msgDuplicate},
	{pattern: "no such table", msg: msgMissingTable},
	{pattern: "doesn't exist", msg: msgMissingTable},
	{pattern: "has no column named", msg: msgSchemaDrift},
	{pattern: "unknown column", msg: msgSchemaDrift},
	{pattern: "does not exist", msg: msgMissingTable},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "The output database is in use by another process",
			Action:  "Close other connections to the output file and retry",
			Code:    "SNK004",
		},
	},
	{pattern: "unable to open database file", msg: msgCannotOpen},
	{pattern: "permission denied", msg: msgCannotOpen},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the target database",
			Action:  "Check the sink DSN and that the server is running",
			Code:    "SNK006",
		},
	},

	// =========================================================================
	// Migration Errors (MIG001-MIG003)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The migration was interrupted",
			Action:  "Re-run the migration; committed batches were kept",
			Code:    "MIG001",
		},
	},
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},
	{
		pattern: "batch insert failed",
		msg: UserMessage{
			Message: "A batch was rolled back",
			Action:  "Inspect the logged row; earlier batches were kept",
			Code:    "MIG003",
		},
	},

	// =========================================================================
	// Configuration Errors (CFG001-CFG002)
	// =========================================================================
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "One or more options are invalid",
			Action:  "Fix the listed options and try again",
			Code:    "CFG001",
		},
	},
	{
		pattern: "ledger is not configured",
		msg: UserMessage{
			Message: "Run history is not available",
			Action:  "Set LEDGER_DATABASE_URL to record runs",
			Code:    "CFG002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the technical error",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	err := errors.New("UNIQUE constraint failed: users._id")
//	msg := MapError(err)
//	// msg.Code == "SNK001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
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

// IsUserFacing checks if an error matches a known pattern.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

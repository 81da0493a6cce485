package core

// error_messages.go maps technical errors to user-facing messages with codes
// that users can quote to support.
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Missing column: a required column is absent from the header
//	         Patterns: "missing required column"
//	COL002 - Unknown entity: no schema is registered for the import type
//	         Patterns: "unknown entity"
//
// # Row Errors (ROW001-ROW099)
//
//	ROW001 - Invalid rows: commit refused because some rows failed validation
//	         Patterns: "invalid rows present"
//	ROW002 - Duplicate: the backend already holds a record with this key
//	         Patterns: "duplicate"
//	ROW003 - Reference: the row points at a record that does not exist
//	         Patterns: "foreign key", "violates foreign key"
//
// # Commit Errors (COM001-COM099)
//
//	COM001 - Backend unreachable: Patterns: "connection refused", "no such host"
//	COM002 - Connection dropped: Patterns: "connection reset"
//	COM003 - Backend timeout: Patterns: "timeout", "context deadline exceeded"
//	COM004 - Backend busy: Patterns: "too many concurrent commits"
//	COM005 - Commit failed: Patterns: "commit failed"
//	COM006 - No batch history: Patterns: "not supported by commit backend"
//	COM007 - Batch not found: Patterns: "batch not found"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: Patterns: "file too large"
//	FILE002 - Empty file: Patterns: "empty file"
//	FILE003 - No file: Patterns: "no file provided"
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session expired: Patterns: "import session not found"
//	SES002 - Cancelled: Patterns: "context canceled"
//	SES003 - Already imported: Patterns: "already committed"
//	SES004 - Import running: Patterns: "commit in progress"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests: Patterns: "rate limit"
//
// ERR000 is the fallback; check the logs for the original error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones. A CommitError
// reads "commit failed: <cause>", which is why the connection patterns are
// listed ahead of COM005.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Column errors
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "A required column is missing from the file",
			Action:  "Download the template and check the header row",
			Code:    "COL001",
		},
	},
	{
		pattern: "unknown entity",
		msg: UserMessage{
			Message: "This import type is not configured",
			Action:  "Pick one of the listed import types",
			Code:    "COL002",
		},
	},

	// Row errors
	{
		pattern: "invalid rows present",
		msg: UserMessage{
			Message: "Some rows failed validation, so nothing was imported",
			Action:  "Fix the rejected rows or commit with the skip-invalid policy",
			Code:    "ROW001",
		},
	},
	{
		pattern: "duplicate",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Download the error report to review duplicates",
			Code:    "ROW002",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Import the referenced records first",
			Code:    "ROW003",
		},
	},

	// Backend connectivity, ahead of the generic commit pattern
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the import backend",
			Action:  "Please try again in a few moments",
			Code:    "COM001",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "Unable to reach the import backend",
			Action:  "Please try again in a few moments",
			Code:    "COM001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Connection to the import backend was interrupted",
			Action:  "Commit the preview again",
			Code:    "COM002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The import backend did not answer in time",
			Action:  "Commit the preview again or try a smaller file",
			Code:    "COM003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The import backend did not answer in time",
			Action:  "Commit the preview again or try a smaller file",
			Code:    "COM003",
		},
	},
	{
		pattern: "too many concurrent commits",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "COM004",
		},
	},
	{
		pattern: "commit failed",
		msg: UserMessage{
			Message: "The import backend rejected the batch",
			Action:  "Your preview is kept; commit it again or contact support",
			Code:    "COM005",
		},
	},
	{
		pattern: "not supported by commit backend",
		msg: UserMessage{
			Message: "This backend does not keep import batches",
			Action:  "Manage the records in the target system instead",
			Code:    "COM006",
		},
	},
	{
		pattern: "batch not found",
		msg: UserMessage{
			Message: "Import batch not found or already rolled back",
			Action:  "Check the batch ID from the import result",
			Code:    "COM007",
		},
	},

	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a CSV file with a header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE003",
		},
	},

	// Session errors
	{
		pattern: "import session not found",
		msg: UserMessage{
			Message: "Import session not found",
			Action:  "The preview may have expired. Upload the file again",
			Code:    "SES001",
		},
	},
	{
		pattern: "already committed",
		msg: UserMessage{
			Message: "This preview was already imported",
			Action:  "Upload the file again to start a new import",
			Code:    "SES003",
		},
	},
	{
		pattern: "commit in progress",
		msg: UserMessage{
			Message: "This preview is being imported",
			Action:  "Wait for the running import to finish",
			Code:    "SES004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "SES002",
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

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the ERR000 fallback when no pattern matches.
//
// Example:
//
//	msg := MapError(&StructuralError{Missing: []string{"Email"}})
//	// msg.Code == "COL001"
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

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

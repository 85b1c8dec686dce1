// Package core provides the business logic behind the roster service.
//
// # Error Codes Reference
//
// User-facing errors carry a code so people can quote it to support staff.
// Codes are grouped by category:
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL002 - Invalid number: A numeric column received text
//	         Action: Remove stray characters and use standard decimal format
//	VAL003 - Required field: Required field is empty
//	         Action: Fill in the field and save again
//	VAL004 - Missing column: Required columns are missing from the CSV
//	         Action: Use the downloaded CSV as a template
//	VAL005 - Unknown column: An edit names a column the roster lacks
//	         Action: Refresh the table and try again
//	VAL006 - Invalid enum: Value is not in the allowed list
//	         Action: Check the allowed values for this field
//	VAL007 - Duplicate column: A header appears more than once
//	         Action: Rename or remove the repeated column
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Invalid CSV: the tokenizer failed
//	FILE003 - Encoding error: the file is not UTF-8 text
//	FILE004 - No file: nothing was selected
//	FILE005 - Empty file: no header row or no data rows
//	FILE006 - Read failure: the upload could not be read
//
// # Record Errors (REC001-REC099)
//
//	REC001 - Record not found
//	REC002 - Identity column cannot be changed
//	REC003 - Record with the same ID already exists
//
// # Auth Errors (AUTH001-AUTH099)
//
//	AUTH001 - Invalid username or password
//	AUTH002 - Signed-in user may not perform the action
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many imports in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Too many requests
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Invalid request: the body could not be decoded
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the logs for the technical error.
//
// # Matching
//
// MapError first looks for known sentinel and typed errors with errors.Is and
// errors.As. Errors that only exist as text (wrapped by a third party, or
// rebuilt from a string) fall back to case-insensitive pattern matching; the
// first matching pattern wins.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/hrpulse/internal/csvcodec"
	"github.com/JonMunkholm/hrpulse/internal/roster"
)

var (
	// ErrEmptyImport is returned when an upload yields no headers or no records.
	ErrEmptyImport = errors.New("CSV file appears to be empty or has no headers")

	// ErrNoFile is returned when an import request carries no file.
	ErrNoFile = errors.New("no file provided")

	// ErrInvalidCredentials is returned by Login for unknown users or bad passwords.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrForbidden is returned when a session lacks the required role.
	ErrForbidden = errors.New("forbidden: admin role required")

	// ErrIdentityImmutable is returned when an edit tries to change a record's key.
	ErrIdentityImmutable = errors.New("identity column cannot be changed")

	// ErrDuplicateRecord is returned when an added record reuses an existing key.
	ErrDuplicateRecord = errors.New("record already exists")

	// ErrUnknownColumn is returned when an edit names a column the roster lacks.
	ErrUnknownColumn = errors.New("column not found")

	// ErrUnknownSchema is returned for schema keys that are not registered.
	ErrUnknownSchema = errors.New("unknown schema")

	// ErrRateLimited is returned by the HTTP layer when a client is throttled.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidRequest is returned by the HTTP layer for bodies it cannot decode.
	ErrInvalidRequest = errors.New("invalid request body")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// sentinelMessages maps known errors to user messages, checked with errors.Is.
// Order matters: context errors wrapped in a ReadError must win over FILE006.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{context.Canceled, UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{context.DeadlineExceeded, UserMessage{"Request timed out", "Try uploading a smaller file or check your connection", "UPL005"}},
	{ErrTooManyImports, UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "UPL002"}},
	{ErrFileTooLarge, UserMessage{"File exceeds maximum size limit", "Remove unused rows or columns and try again", "FILE001"}},
	{ErrBinaryFile, UserMessage{"File contains invalid characters", "Save the file as CSV (UTF-8)", "FILE003"}},
	{ErrNoFile, UserMessage{"No file was selected", "Please select a CSV file to upload", "FILE004"}},
	{csvcodec.ErrEmptyInput, UserMessage{ErrEmptyImport.Error(), "Please upload a CSV file with a header row and data rows", "FILE005"}},
	{ErrEmptyImport, UserMessage{ErrEmptyImport.Error(), "Please upload a CSV file with a header row and data rows", "FILE005"}},
	{csvcodec.ErrUnknownParse, UserMessage{csvcodec.ErrUnknownParse.Error(), "Ensure the file is comma-separated text", "FILE002"}},
	{roster.ErrRecordNotFound, UserMessage{"Record not found", "Refresh the table and try again", "REC001"}},
	{ErrDuplicateRecord, UserMessage{"A record with this ID already exists", "Choose a different ID or edit the existing record", "REC003"}},
	{ErrUnknownColumn, UserMessage{"The roster has no such column", "Refresh the table and try again", "VAL005"}},
	{ErrIdentityImmutable, UserMessage{"The identity column cannot be changed", "Delete the record and add a new one instead", "REC002"}},
	{ErrInvalidCredentials, UserMessage{"Invalid username or password", "Check your credentials and try again", "AUTH001"}},
	{ErrForbidden, UserMessage{"You do not have access to this page", "Sign in as an administrator", "AUTH002"}},
	{ErrRateLimited, UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
	{ErrInvalidRequest, UserMessage{"The request could not be understood", "Check the submitted fields and try again", "REQ001"}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	{"invalid number", UserMessage{"Invalid number format detected", "Remove stray characters and use standard decimal format", "VAL002"}},
	{"required field", UserMessage{"Required field is empty", "Fill in the field and save again", "VAL003"}},
	{"missing required", UserMessage{"Required columns are missing from the CSV", "Use the downloaded CSV as a template", "VAL004"}},
	{"invalid enum", UserMessage{"Value is not in the allowed list", "Check the allowed values for this field", "VAL006"}},
	{"duplicate header", UserMessage{"A column appears more than once", "Rename or remove the repeated column", "VAL007"}},
	{"file too large", UserMessage{"File exceeds maximum size limit", "Remove unused rows or columns and try again", "FILE001"}},
	{"failed to parse csv", UserMessage{"File is not a valid CSV", "Ensure the file is comma-separated text", "FILE002"}},
	{"encoding error", UserMessage{"File contains invalid characters", "Save the file as CSV (UTF-8)", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV file to upload", "FILE004"}},
	{"could not read file", UserMessage{"The file could not be read", "Please try uploading again", "FILE006"}},
	{"too many concurrent", UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "UPL002"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{"deadline exceeded", UserMessage{"Request timed out", "Try uploading a smaller file or check your connection", "UPL005"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
	{"not found", UserMessage{"Record not found", "Refresh the table and try again", "REC001"}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(&csvcodec.SchemaError{Missing: []string{"Department"}})
//	// msg.Code == "VAL004"
//	// msg.Message == "CSV file is missing required headers: Department. Please use ..."
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var schemaErr *csvcodec.SchemaError
	if errors.As(err, &schemaErr) {
		code := "VAL004"
		action := "Use the downloaded CSV as a template"
		if len(schemaErr.Missing) == 0 {
			code = "VAL007"
			action = "Rename or remove the repeated column"
		}
		return UserMessage{Message: schemaErr.Error(), Action: action, Code: code}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	var parseErr *csvcodec.ParseError
	if errors.As(err, &parseErr) {
		return UserMessage{Message: parseErr.Error(), Action: "Ensure the file is comma-separated text", Code: "FILE002"}
	}

	var readErr *ReadError
	if errors.As(err, &readErr) {
		return UserMessage{Message: "The file could not be read", Action: "Please try uploading again", Code: "FILE006"}
	}

	var fieldErr *ValidationError
	if errors.As(err, &fieldErr) {
		return validationMessage(fieldErr.Error())
	}
	var fieldErrs ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return validationMessage(fieldErrs.Error())
	}

	return matchPattern(err.Error())
}

func validationMessage(text string) UserMessage {
	msg := matchPattern(text)
	if msg.Code == defaultMessage.Code {
		msg.Code = "VAL000"
		msg.Action = "Correct the highlighted fields and save again"
	}
	msg.Message = text
	return msg
}

func matchPattern(text string) UserMessage {
	errStr := strings.ToLower(text)
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

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-friendly message.
// The original error is preserved for logging.
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

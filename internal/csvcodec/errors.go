package csvcodec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput is returned in fixed-schema mode when the file has no
	// header line or no data lines.
	ErrEmptyInput = errors.New("CSV file has no header or data rows")

	// ErrUnknownParse is returned when tokenizing fails for a reason that
	// carries no message.
	ErrUnknownParse = errors.New("an unknown error occurred while parsing CSV")
)

// SchemaError reports a header row that does not satisfy the policy.
type SchemaError struct {
	Missing   []string
	Duplicate []string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("CSV file is missing required headers: %s. Please use the downloaded CSV as a template.",
			strings.Join(e.Missing, ", ")))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, fmt.Sprintf("CSV file has duplicate headers: %s.", strings.Join(e.Duplicate, ", ")))
	}
	return strings.Join(parts, " ")
}

// ParseError wraps an unexpected failure inside the tokenizer.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "failed to parse CSV: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

package core

// validation.go checks edited cell values against a schema's FieldSpecs.
//
// Imports are not validated cell by cell: the codec coerces numeric columns
// and everything else is kept as text. Edits made through the record API are
// stricter so a typo in a form does not silently become 0.

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field/column name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors collects every problem found in one edit.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// ValidateCell validates a single cell value against a field specification.
// Returns nil if valid, or an error describing the problem.
func ValidateCell(value string, spec FieldSpec) error {
	if value == "" {
		if spec.Required && !spec.AllowEmpty {
			return &ValidationError{Field: spec.Name, Message: "required field is empty"}
		}
		return nil
	}

	switch spec.Type {
	case FieldNumeric:
		if _, ok := ParseNumeric(value); !ok {
			return &ValidationError{Field: spec.Name, Value: value, Message: "invalid number format"}
		}
	case FieldBool:
		if _, ok := ParseBool(value); !ok {
			return &ValidationError{Field: spec.Name, Value: value, Message: "must be yes/no, true/false, or 1/0"}
		}
	case FieldEnum:
		if len(spec.EnumValues) > 0 && matchEnum(value, spec.EnumValues) == "" {
			return &ValidationError{
				Field:   spec.Name,
				Value:   value,
				Message: "invalid enum value, must be one of: " + strings.Join(spec.EnumValues, ", "),
			}
		}
	}
	return nil
}

// ValidateFields normalizes and validates every field that has a spec.
// Fields without a spec pass through untouched. The returned map holds the
// normalized values.
func ValidateFields(fields map[string]string, def SchemaDefinition) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	var errs ValidationErrors

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := CleanCell(fields[name])
		spec, ok := def.Spec(name)
		if !ok {
			out[name] = value
			continue
		}

		if spec.Normalizer != nil && value != "" {
			value = spec.Normalizer(value)
		}
		if err := ValidateCell(value, spec); err != nil {
			errs = append(errs, err.(*ValidationError))
			continue
		}
		if spec.Type == FieldEnum {
			if canonical := matchEnum(value, spec.EnumValues); canonical != "" {
				value = canonical
			}
		}
		out[name] = value
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// matchEnum returns the canonical spelling of value, or "" if it is not allowed.
func matchEnum(value string, allowed []string) string {
	for _, ev := range allowed {
		if strings.EqualFold(ev, value) {
			return ev
		}
	}
	return ""
}

// fieldTypeName returns a human-readable name for a field type.
func fieldTypeName(ft FieldType) string {
	switch ft {
	case FieldText:
		return "text"
	case FieldEnum:
		return "enum"
	case FieldNumeric:
		return "numeric"
	case FieldBool:
		return "bool"
	default:
		return "value"
	}
}

package csvcodec

import (
	"fmt"
	"strings"
)

// Mode selects how a header row is validated and how values are coerced.
type Mode int

const (
	// SchemaFree accepts any header row and coerces every numeric-looking
	// field to a number.
	SchemaFree Mode = iota

	// FixedSchema requires a named set of columns and coerces only the
	// policy's numeric columns.
	FixedSchema
)

func (m Mode) String() string {
	switch m {
	case SchemaFree:
		return "free"
	case FixedSchema:
		return "fixed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts "free" or "fixed" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free", "schema-free", "":
		return SchemaFree, nil
	case "fixed", "fixed-schema":
		return FixedSchema, nil
	default:
		return SchemaFree, fmt.Errorf("unknown schema mode %q", s)
	}
}

// Policy controls header validation and value coercion.
type Policy struct {
	Mode Mode

	// Required lists columns that must appear in a fixed-schema header row.
	Required []string

	// Numeric lists columns parsed as numbers in fixed-schema mode.
	// Unparseable values become 0.
	Numeric []string
}

// SchemaFreePolicy accepts any header row.
func SchemaFreePolicy() Policy {
	return Policy{Mode: SchemaFree}
}

func (p Policy) isNumeric(column string) bool {
	for _, c := range p.Numeric {
		if c == column {
			return true
		}
	}
	return false
}

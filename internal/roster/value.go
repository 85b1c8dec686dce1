package roster

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is a single roster cell: either text or a number.
// The zero Value is the empty string.
type Value struct {
	text   string
	number float64
	isNum  bool
}

// Text returns a string cell.
func Text(s string) Value {
	return Value{text: s}
}

// Number returns a numeric cell.
func Number(f float64) Value {
	return Value{number: f, isNum: true}
}

// IsNumber reports whether the cell holds a number.
func (v Value) IsNumber() bool { return v.isNum }

// IsEmpty reports whether the cell is the empty string.
func (v Value) IsEmpty() bool { return !v.isNum && v.text == "" }

// Float returns the numeric value and true for number cells.
func (v Value) Float() (float64, bool) {
	if !v.isNum {
		return 0, false
	}
	return v.number, true
}

// String renders the cell for display. Numbers use the shortest
// representation that round-trips, switching to exponent notation
// outside [1e-6, 1e21).
func (v Value) String() string {
	if !v.isNum {
		return v.text
	}
	return FormatNumber(v.number)
}

// MarshalJSON encodes numbers bare and text as a JSON string.
// Non-finite numbers encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isNum {
		if math.IsNaN(v.number) || math.IsInf(v.number, 0) {
			return []byte("null"), nil
		}
		return []byte(FormatNumber(v.number)), nil
	}
	return json.Marshal(v.text)
}

// UnmarshalJSON accepts JSON numbers, strings, and null (as empty text).
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = Value{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Number(f)
	return nil
}

// FormatNumber formats f the way a browser prints a number.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)
	// Go pads exponents to two digits ("1e-07"); browsers do not.
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits
}

// Package csvcodec converts roster tables to and from CSV text.
//
// Serialize writes a comma-joined header row followed by one line per
// record with every value JSON-encoded, joined by CRLF. Parse reads the same
// format back, splitting on commas outside double quotes and coercing values
// according to a Policy.
package csvcodec

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/JonMunkholm/hrpulse/internal/roster"
)

const (
	// ExportFileName is the download name for serialized rosters.
	ExportFileName = "employees.csv"

	// ExportContentType is the MIME type for serialized rosters.
	ExportContentType = "text/csv;charset=utf-8"

	lineSep = "\r\n"
)

// Serialize renders records as CSV text with columns in headers order.
// It returns "" when either records or headers is empty. The output has no
// trailing line terminator.
func Serialize(records []roster.Record, headers []string) string {
	if len(records) == 0 || len(headers) == 0 {
		return ""
	}

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(headers, ","))

	fields := make([]string, len(headers))
	for _, r := range records {
		for i, h := range headers {
			v, ok := r.Get(h)
			if !ok {
				fields[i] = `""`
				continue
			}
			fields[i] = encodeValue(v)
		}
		lines = append(lines, strings.Join(fields, ","))
	}

	return strings.Join(lines, lineSep)
}

func encodeValue(v roster.Value) string {
	if f, ok := v.Float(); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return `""`
		}
		return roster.FormatNumber(f)
	}
	return quoteJSON(v.String())
}

// quoteJSON returns s as a JSON string literal without HTML escaping.
func quoteJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

package csvcodec

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/JonMunkholm/hrpulse/internal/roster"
)

const bom = "\uFEFF"

var (
	// numericRegex matches a complete decimal number, optionally signed,
	// with optional fraction and exponent.
	numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

	// floatPrefixRegex matches the longest numeric prefix of a value.
	floatPrefixRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
)

// Result is a parsed table.
type Result struct {
	Headers []string
	Records []roster.Record
}

// Parse reads CSV text into a table according to policy.
//
// A schema-free parse of empty text returns an empty Result and no error;
// a header-only file returns its headers and no records. In fixed-schema
// mode both cases fail with ErrEmptyInput.
func Parse(text string, policy Policy) (res Result, err error) {
	defer recoverParse(&res, &err)

	lines := splitLines(text)

	if policy.Mode == FixedSchema && len(lines) < 2 {
		return Result{}, ErrEmptyInput
	}
	if len(lines) == 0 {
		return Result{Headers: []string{}, Records: []roster.Record{}}, nil
	}

	columns := parseHeader(lines[0])
	headers := columnNames(columns)

	if err := checkHeaders(headers, policy); err != nil {
		return Result{}, err
	}

	if len(headers) == 0 || len(lines) < 2 {
		return Result{Headers: headers, Records: []roster.Record{}}, nil
	}

	records := make([]roster.Record, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, parseRow(line, columns, policy))
	}

	return Result{Headers: headers, Records: records}, nil
}

// splitLines trims the text, drops a leading byte-order mark and splits on
// LF or CRLF. Empty text yields no lines.
func splitLines(text string) []string {
	text = strings.TrimPrefix(text, bom)
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, bom)
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// column is a named header and the field position it reads from.
type column struct {
	name  string
	index int
}

// parseHeader tokenizes the header line. Blank names are dropped but the
// remaining columns keep their original field positions.
func parseHeader(line string) []column {
	fields := splitFields(line)
	cols := make([]column, 0, len(fields))
	for i, f := range fields {
		name := unquote(strings.TrimSpace(f))
		if name == "" {
			continue
		}
		cols = append(cols, column{name: name, index: i})
	}
	return cols
}

func columnNames(cols []column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

func checkHeaders(headers []string, policy Policy) error {
	seen := make(map[string]bool, len(headers))
	var dup []string
	for _, h := range headers {
		if seen[h] {
			dup = append(dup, h)
			continue
		}
		seen[h] = true
	}

	var missing []string
	if policy.Mode == FixedSchema {
		for _, req := range policy.Required {
			if !seen[req] {
				missing = append(missing, req)
			}
		}
	}

	if len(missing) > 0 || len(dup) > 0 {
		return &SchemaError{Missing: missing, Duplicate: dup}
	}
	return nil
}

func parseRow(line string, cols []column, policy Policy) roster.Record {
	raw := splitFields(line)

	var rec roster.Record
	for _, c := range cols {
		var field string
		if c.index < len(raw) {
			field = unquote(strings.TrimSpace(raw[c.index]))
		}
		rec.Set(c.name, coerce(c.name, field, policy))
	}
	return rec
}

// recoverParse turns a tokenizer panic into the error Parse returns and
// clears the partial result. It must be deferred directly.
func recoverParse(res *Result, err *error) {
	r := recover()
	if r == nil {
		return
	}
	*res = Result{}
	if e, ok := r.(error); ok && e.Error() != "" {
		*err = &ParseError{Err: e}
		return
	}
	if s, ok := r.(string); ok && s != "" {
		*err = &ParseError{Err: errors.New(s)}
		return
	}
	*err = ErrUnknownParse
}

// IsNumeric reports whether s is a plain decimal number, the form a
// schema-free parse turns into a number. "Inf" and "NaN" are not numbers.
func IsNumeric(s string) bool {
	return s != "" && numericRegex.MatchString(s)
}

func coerce(name, field string, policy Policy) roster.Value {
	if policy.Mode == FixedSchema {
		if policy.isNumeric(name) {
			return roster.Number(parseFloatPrefix(field))
		}
		return roster.Text(field)
	}

	if IsNumeric(field) {
		if f, err := strconv.ParseFloat(field, 64); err == nil {
			return roster.Number(f)
		}
	}
	return roster.Text(field)
}

// parseFloatPrefix parses the leading number of s, ignoring any trailing
// text ("85%" is 85). Values with no numeric prefix are 0.
func parseFloatPrefix(s string) float64 {
	m := floatPrefixRegex.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

// splitFields splits line on every comma that is followed by an even number
// of double quotes, so commas inside a quoted field are kept.
func splitFields(line string) []string {
	remaining := strings.Count(line, `"`)
	fields := make([]string, 0, strings.Count(line, ",")+1)

	start := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			remaining--
		case ',':
			if remaining%2 == 0 {
				fields = append(fields, line[start:i])
				start = i + 1
			}
		}
	}
	return append(fields, line[start:])
}

// unquote strips one pair of surrounding double quotes and collapses
// doubled quotes inside them.
func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return s
}

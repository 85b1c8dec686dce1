package web

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/hrpulse/internal/core"
)

// maxJSONBody caps record edit and login bodies.
const maxJSONBody = 1 << 20

// maxSortLevels limits the number of sort columns.
const maxSortLevels = 2

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// parseSorts parses sort parameters from the URL.
// Format: ?sort=col1&dir=asc&sort=col2&dir=desc
// Columns are matched case-insensitively against the roster headers and
// unknown columns are dropped.
func parseSorts(q url.Values, headers []string) []core.SortSpec {
	cols := q["sort"]
	dirs := q["dir"]

	var sorts []core.SortSpec
	for i, col := range cols {
		if len(sorts) >= maxSortLevels {
			break
		}
		name, ok := canonicalColumn(headers, col)
		if !ok {
			continue
		}
		dir := "asc"
		if i < len(dirs) && strings.EqualFold(dirs[i], "desc") {
			dir = "desc"
		}
		sorts = append(sorts, core.SortSpec{Column: name, Dir: dir})
	}
	return sorts
}

// parseFilters parses filter parameters from the URL.
// Format: ?filter[column]=operator:value
// A value without an operator prefix means contains.
func parseFilters(q url.Values, headers []string) core.FilterSet {
	var filters []core.ColumnFilter

	for key, values := range q {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		col, ok := canonicalColumn(headers, key[len("filter["):len(key)-1])
		if !ok {
			continue
		}

		for _, raw := range values {
			if raw == "" {
				continue
			}
			op, value := core.OpContains, raw
			if before, after, found := strings.Cut(raw, ":"); found && isOperator(before) {
				op, value = core.FilterOperator(before), after
			}
			filters = append(filters, core.ColumnFilter{Column: col, Operator: op, Value: value})
		}
	}

	return core.FilterSet{Filters: filters}
}

// isOperator reports whether s looks like an operator prefix rather than
// part of a value such as a time of day.
func isOperator(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

// canonicalColumn returns the header spelled as the roster spells it.
func canonicalColumn(headers []string, name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, h := range headers {
		if strings.EqualFold(h, name) {
			return h, true
		}
	}
	return "", false
}

// queryParams builds roster query parameters from the URL.
func queryParams(r *http.Request, headers []string) core.QueryParams {
	q := r.URL.Query()
	return core.QueryParams{
		Page:     parseIntParam(r, "page", 1),
		PageSize: parseIntParam(r, "pageSize", core.DefaultPageSize),
		Sorts:    parseSorts(q, headers),
		Search:   strings.TrimSpace(q.Get("search")),
		Filters:  parseFilters(q, headers),
	}
}

// isJSONBody reports whether the request body is JSON.
func isJSONBody(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeFields reads a column to value map from a JSON object or a form
// post. JSON numbers and booleans are kept in their text form.
func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	if !isJSONBody(r) {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
		}
		fields := make(map[string]string, len(r.PostForm))
		for k, v := range r.PostForm {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
		return fields, nil
	}

	var raw map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		text, ok := cellText(v)
		if !ok {
			return nil, fmt.Errorf("%w: field %q must be a string or number", core.ErrInvalidRequest, k)
		}
		fields[k] = text
	}
	return fields, nil
}

// cellText converts a decoded JSON scalar to cell text. Decoders must use
// UseNumber so numbers keep their original spelling.
func cellText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// recordKey returns the {id} URL parameter unescaped.
func recordKey(raw string) string {
	if key, err := url.PathUnescape(raw); err == nil {
		return strings.TrimSpace(key)
	}
	return strings.TrimSpace(raw)
}

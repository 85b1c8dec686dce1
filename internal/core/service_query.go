package core

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/hrpulse/internal/roster"
)

// Page size limits for Query.
const (
	DefaultPageSize = 25
	MaxPageSize     = 500
	maxSortLevels   = 2
)

// Query returns one page of the roster after search, filters and sorting.
func (s *Service) Query(params QueryParams) TableDataResult {
	snap := s.store.Snapshot()
	rows := filterRecords(snap, params.Search, params.Filters)
	sortRecords(rows, snap.Headers, params.Sorts)

	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total := len(rows)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	page := params.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	return TableDataResult{
		Headers:    snap.Headers,
		Records:    rows[start:end],
		TotalRows:  total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Version:    snap.Version,
	}
}

// Aggregate computes sum, average, min and max for each column that holds
// numbers, over the records matching search and filters.
func (s *Service) Aggregate(search string, filters FilterSet) Aggregations {
	snap := s.store.Snapshot()
	rows := filterRecords(snap, search, filters)

	aggs := make(Aggregations)
	for _, h := range snap.Headers {
		agg := &ColumnAggregation{Column: h}
		var sum float64
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, r := range rows {
			f, ok := r.Value(h).Float()
			if !ok || math.IsNaN(f) {
				continue
			}
			agg.Count++
			sum += f
			lo = math.Min(lo, f)
			hi = math.Max(hi, f)
		}
		if agg.Count == 0 {
			continue
		}
		avg := sum / float64(agg.Count)
		agg.Sum, agg.Avg, agg.Min, agg.Max = &sum, &avg, &lo, &hi
		aggs[h] = agg
	}
	return aggs
}

// filterRecords applies a case-insensitive search over every column and
// then each column filter (AND).
func filterRecords(snap roster.Snapshot, search string, filters FilterSet) []roster.Record {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]roster.Record, 0, len(snap.Records))

	for _, r := range snap.Records {
		if search != "" && !recordContains(r, snap.Headers, search) {
			continue
		}
		keep := true
		for _, f := range filters.Filters {
			if !matchFilter(r.Value(f.Column), f) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

func recordContains(r roster.Record, headers []string, needle string) bool {
	for _, h := range headers {
		if strings.Contains(strings.ToLower(r.Value(h).String()), needle) {
			return true
		}
	}
	return false
}

// matchFilter evaluates one filter. Comparison operators compare numbers
// when both sides parse, text otherwise.
func matchFilter(v roster.Value, f ColumnFilter) bool {
	cell := strings.ToLower(v.String())
	want := strings.ToLower(strings.TrimSpace(f.Value))

	switch f.Operator {
	case OpContains:
		return strings.Contains(cell, want)
	case OpEquals:
		return cell == want
	case OpStartsWith:
		return strings.HasPrefix(cell, want)
	case OpEndsWith:
		return strings.HasSuffix(cell, want)
	case OpIn:
		for _, part := range strings.Split(want, ",") {
			if cell == strings.TrimSpace(part) {
				return true
			}
		}
		return false
	case OpGreaterEq, OpLessEq, OpGreater, OpLess:
		c := compareCell(v, f.Value)
		switch f.Operator {
		case OpGreaterEq:
			return c >= 0
		case OpLessEq:
			return c <= 0
		case OpGreater:
			return c > 0
		default:
			return c < 0
		}
	default:
		// Unknown operators match nothing rather than everything.
		return false
	}
}

// compareCell orders a cell against a raw filter value.
func compareCell(v roster.Value, raw string) int {
	if f, ok := cellNumber(v); ok {
		if g, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return compareFloat(f, g)
		}
	}
	return strings.Compare(strings.ToLower(v.String()), strings.ToLower(strings.TrimSpace(raw)))
}

func cellNumber(v roster.Value) (float64, bool) {
	if f, ok := v.Float(); ok {
		return f, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
	return f, err == nil
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// sortRecords orders rows by up to two sort levels. Unknown columns are
// ignored; with no valid sort the roster order is kept.
func sortRecords(rows []roster.Record, headers []string, sorts []SortSpec) {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}

	var valid []SortSpec
	for _, s := range sorts {
		if !known[s.Column] {
			continue
		}
		dir := strings.ToLower(s.Dir)
		if dir != "desc" {
			dir = "asc"
		}
		valid = append(valid, SortSpec{Column: s.Column, Dir: dir})
		if len(valid) == maxSortLevels {
			break
		}
	}
	if len(valid) == 0 {
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, s := range valid {
			c := compareValues(rows[i].Value(s.Column), rows[j].Value(s.Column))
			if c == 0 {
				continue
			}
			if s.Dir == "desc" {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareValues sorts numbers before text, numbers numerically and text
// case-insensitively.
func compareValues(a, b roster.Value) int {
	fa, aNum := a.Float()
	fb, bNum := b.Float()
	switch {
	case aNum && bNum:
		return compareFloat(fa, fb)
	case aNum:
		return -1
	case bNum:
		return 1
	default:
		return strings.Compare(strings.ToLower(a.String()), strings.ToLower(b.String()))
	}
}

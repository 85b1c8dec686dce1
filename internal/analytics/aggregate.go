package analytics

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/hrpulse/internal/csvcodec"
	"github.com/JonMunkholm/hrpulse/internal/roster"
)

// Point is one bar or slice of a chart.
type Point struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Measure converts a cell to a number for aggregation. Text that is not a
// plain decimal number counts as 0, as do non-finite values.
func Measure(v roster.Value) float64 {
	f, ok := v.Float()
	if !ok {
		s := strings.TrimSpace(v.String())
		if !csvcodec.IsNumeric(s) {
			return 0
		}
		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// truthy reports whether a cell counts as present: non-empty text or a
// non-zero number.
func truthy(v roster.Value) bool {
	if f, ok := v.Float(); ok {
		return f != 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return v.String() != ""
}

// group is an insertion-ordered bucket of record indexes.
type group struct {
	key     string
	members []int
}

// groupBy buckets records by dimension in first-seen order. Records whose
// dimension is empty are skipped unless fallback is set, in which case they
// land in the fallback bucket.
func groupBy(records []roster.Record, dimension, fallback string) []group {
	index := make(map[string]int)
	var groups []group

	for i, rec := range records {
		v := rec.Value(dimension)
		key := v.String()
		if !truthy(v) {
			if fallback == "" {
				continue
			}
			key = fallback
		}
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, group{key: key})
		}
		groups[pos].members = append(groups[pos].members, i)
	}
	return groups
}

// GroupAverage averages measure per distinct dimension value. Records with
// an empty dimension are skipped. With sortDesc the result is ordered by
// value, highest first; otherwise groups keep first-seen order.
func GroupAverage(snap roster.Snapshot, dimension, measure string, sortDesc bool) []Point {
	if dimension == "" || measure == "" {
		return []Point{}
	}

	groups := groupBy(snap.Records, dimension, "")
	points := make([]Point, 0, len(groups))
	for _, g := range groups {
		var total float64
		for _, i := range g.members {
			total += Measure(snap.Records[i].Value(measure))
		}
		points = append(points, Point{Name: g.key, Value: total / float64(len(g.members))})
	}

	if sortDesc {
		sort.SliceStable(points, func(i, j int) bool { return points[i].Value > points[j].Value })
	}
	return points
}

// Distribution counts records per distinct dimension value. Records with an
// empty dimension are skipped, or counted under fallback when it is set.
func Distribution(snap roster.Snapshot, dimension, fallback string) []Point {
	if dimension == "" {
		return []Point{}
	}

	groups := groupBy(snap.Records, dimension, fallback)
	points := make([]Point, 0, len(groups))
	for _, g := range groups {
		points = append(points, Point{Name: g.key, Value: float64(len(g.members))})
	}
	return points
}

// CrossTabRow counts column values for one row dimension value.
type CrossTabRow struct {
	Name   string         `json:"name"`
	Counts map[string]int `json:"counts"`
}

// CrossTab counts colDim values within each rowDim value.
type CrossTab struct {
	Columns []string      `json:"columns"`
	Rows    []CrossTabRow `json:"rows"`
}

// NotApplicable labels records whose column dimension is empty.
const NotApplicable = "N/A"

// BuildCrossTab counts colDim values per rowDim value. Columns lists the
// non-empty colDim values in first-seen order; records with an empty colDim
// are counted under NotApplicable.
func BuildCrossTab(snap roster.Snapshot, rowDim, colDim string) CrossTab {
	tab := CrossTab{Columns: []string{}, Rows: []CrossTabRow{}}
	if rowDim == "" || colDim == "" {
		return tab
	}

	seen := make(map[string]bool)
	for _, rec := range snap.Records {
		v := rec.Value(colDim)
		if truthy(v) && !seen[v.String()] {
			seen[v.String()] = true
			tab.Columns = append(tab.Columns, v.String())
		}
	}

	for _, g := range groupBy(snap.Records, rowDim, "") {
		row := CrossTabRow{Name: g.key, Counts: make(map[string]int)}
		for _, i := range g.members {
			v := snap.Records[i].Value(colDim)
			key := v.String()
			if !truthy(v) {
				key = NotApplicable
			}
			row.Counts[key]++
		}
		tab.Rows = append(tab.Rows, row)
	}
	return tab
}

// Quarters is the fixed x-axis of QuarterTrend.
var Quarters = []string{"Q1", "Q2", "Q3", "Q4"}

// QuarterTrend averages measure per quarter Q1..Q4. Quarter values are
// matched case-insensitively and must start with "Q". The result is empty
// when every quarter averages to 0 or less.
func QuarterTrend(snap roster.Snapshot, quarter, measure string) []Point {
	if quarter == "" || measure == "" || len(snap.Records) == 0 {
		return []Point{}
	}

	type acc struct {
		total float64
		count int
	}
	byQuarter := make(map[string]*acc)
	for _, rec := range snap.Records {
		v := rec.Value(quarter)
		if v.IsNumber() {
			continue
		}
		q := strings.ToUpper(v.String())
		if !strings.HasPrefix(q, "Q") {
			continue
		}
		a, ok := byQuarter[q]
		if !ok {
			a = &acc{}
			byQuarter[q] = a
		}
		a.total += Measure(rec.Value(measure))
		a.count++
	}

	points := make([]Point, len(Quarters))
	hasData := false
	for i, q := range Quarters {
		points[i] = Point{Name: q}
		if a, ok := byQuarter[q]; ok && a.count > 0 {
			points[i].Value = a.total / float64(a.count)
		}
		if points[i].Value > 0 {
			hasData = true
		}
	}
	if !hasData {
		return []Point{}
	}
	return points
}

// ScatterPoint is one record plotted on two measures.
type ScatterPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scatter plots x against y for records where both cells are present.
func Scatter(snap roster.Snapshot, x, y string) []ScatterPoint {
	points := []ScatterPoint{}
	if x == "" || y == "" {
		return points
	}
	for _, rec := range snap.Records {
		xv, yv := rec.Value(x), rec.Value(y)
		if !truthy(xv) || !truthy(yv) {
			continue
		}
		points = append(points, ScatterPoint{X: Measure(xv), Y: Measure(yv)})
	}
	return points
}

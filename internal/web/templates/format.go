// Package templates holds the HTML components rendered by the web server.
//
// Components are written as .templ files; the matching _templ.go files are
// produced by `templ generate` and committed alongside them.
package templates

import (
	"fmt"
	"strconv"

	"github.com/JonMunkholm/hrpulse/internal/analytics"
	"github.com/JonMunkholm/hrpulse/internal/core"
)

//go:generate templ generate

// percent formats f with the given number of decimals and a percent sign.
func percent(f float64, decimals int) string {
	return strconv.FormatFloat(f, 'f', decimals, 64) + "%"
}

// plainNumber formats f with the fewest digits that round-trip.
func plainNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// chartMax is the meter scale for c: its largest point, or 1 when nothing
// is positive.
func chartMax(c analytics.Chart) float64 {
	top := 0.0
	for _, p := range c.Points {
		top = max(top, p.Value)
	}
	if top <= 0 {
		return 1
	}
	return top
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func historyStatus(h core.ImportHistoryEntry) string {
	if h.Error != "" {
		return h.Status + ": " + h.Error
	}
	return h.Status
}

func importSummary(res *core.ImportResult) string {
	return fmt.Sprintf("Imported %d records with %d columns from %s.", res.Records, len(res.Columns), res.FileName)
}

package tables

import "strings"

// PerformanceLevels are the rating labels both layouts use.
var PerformanceLevels = []string{
	"Excellent",
	"Good",
	"Satisfactory",
	"Average",
	"Needs Improvement",
	"Poor",
}

// yesNo maps the spellings seen in exported spreadsheets to Yes or No.
var yesNo = map[string]string{
	"yes":   "Yes",
	"y":     "Yes",
	"true":  "Yes",
	"1":     "Yes",
	"no":    "No",
	"n":     "No",
	"false": "No",
	"0":     "No",
}

// NormalizeYesNo converts boolean-ish input to "Yes" or "No".
// Unrecognized input is returned trimmed so validation can reject it.
func NormalizeYesNo(s string) string {
	s = strings.TrimSpace(s)
	if v, ok := yesNo[strings.ToLower(s)]; ok {
		return v
	}
	return s
}

// NormalizeQuarter accepts "q3", "Q3 " and "3" as Q3.
func NormalizeQuarter(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) == 1 && s >= "1" && s <= "4" {
		return "Q" + s
	}
	return s
}

// NormalizeEmployeeID upper-cases identifiers so "e007" matches "E007".
func NormalizeEmployeeID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

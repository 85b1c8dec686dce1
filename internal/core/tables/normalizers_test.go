package tables

import (
	"testing"

	"github.com/JonMunkholm/hrpulse/internal/core"
	"github.com/JonMunkholm/hrpulse/internal/csvcodec"
)

func TestNormalizeYesNo(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"yes", "Yes"},
		{" Y ", "Yes"},
		{"TRUE", "Yes"},
		{"no", "No"},
		{"0", "No"},
		{"maybe", "maybe"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeYesNo(tt.input); got != tt.expected {
			t.Errorf("NormalizeYesNo(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeQuarter(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"q1", "Q1"},
		{" Q4 ", "Q4"},
		{"3", "Q3"},
		{"5", "5"},
		{"H1", "H1"},
	}
	for _, tt := range tests {
		if got := NormalizeQuarter(tt.input); got != tt.expected {
			t.Errorf("NormalizeQuarter(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeEmployeeID(t *testing.T) {
	if got := NormalizeEmployeeID(" e007 "); got != "E007" {
		t.Errorf("NormalizeEmployeeID = %q, want %q", got, "E007")
	}
}

func TestSchemasRegistered(t *testing.T) {
	for _, key := range []string{EmployeeRewards, PerformanceReview} {
		def, ok := core.Get(key)
		if !ok {
			t.Fatalf("schema %q not registered", key)
		}
		if len(def.Info.Columns) != len(def.FieldSpecs) {
			t.Errorf("%s: Columns = %d, want %d", key, len(def.Info.Columns), len(def.FieldSpecs))
		}
		if def.Info.Columns[0] != "Employee ID" {
			t.Errorf("%s: first column = %q, want Employee ID", key, def.Info.Columns[0])
		}
	}
}

func TestEmployeeRewardsPolicy(t *testing.T) {
	def, _ := core.Get(EmployeeRewards)
	policy := def.Policy(csvcodec.FixedSchema)
	if len(policy.Required) != 11 {
		t.Errorf("Required = %d, want 11", len(policy.Required))
	}
	if len(policy.Numeric) != 2 {
		t.Errorf("Numeric = %v, want KPI and productivity", policy.Numeric)
	}
}

func TestMatchPrefersFullerSchema(t *testing.T) {
	def, _ := core.Get(PerformanceReview)
	got, ok := core.Match(append([]string{"Extra"}, def.Info.Columns...))
	if !ok || got.Info.Key != PerformanceReview {
		t.Errorf("Match = %q, %v; want %q", got.Info.Key, ok, PerformanceReview)
	}
	if _, ok := core.Match([]string{"Employee ID", "Name"}); ok {
		t.Error("Match should fail for a partial header row")
	}
}

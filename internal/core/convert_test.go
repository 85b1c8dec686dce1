package core

import "testing"

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  hello  ", "hello"},
		{`="00123"`, "00123"},
		{`="`, `="`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.expected {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"123", 123, true},
		{"84.5", 84.5, true},
		{"$1,234.56", 1234.56, true},
		{"€99", 99, true},
		{"£10", 10, true},
		{"(50.25)", -50.25, true},
		{"92%", 92, true},
		{" 7 ", 7, true},
		{"1e3", 1000, true},
		{`="42"`, 42, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12abc", 0, false},
		{"--5", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumeric(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseNumeric(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseNumeric(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
		ok       bool
	}{
		{"true", true, true},
		{"Yes", true, true},
		{"Y", true, true},
		{"1", true, true},
		{"false", false, true},
		{"no", false, true},
		{"0", false, true},
		{"maybe", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		got, ok := ParseBool(tt.input)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("ParseBool(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.expected, tt.ok)
		}
	}
}

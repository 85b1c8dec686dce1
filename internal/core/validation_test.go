package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/hrpulse/internal/csvcodec"
)

func testSchema() SchemaDefinition {
	return SchemaDefinition{
		Info: SchemaInfo{Key: "test", Label: "Test"},
		FieldSpecs: []FieldSpec{
			{Name: "Employee ID", Type: FieldText, Required: true},
			{Name: "Average KPI (%)", Type: FieldNumeric, Required: true, AllowEmpty: true},
			{Name: "Final Performance Level", Type: FieldEnum, AllowEmpty: true, EnumValues: []string{"Excellent", "Good"}},
			{Name: "Remote", Type: FieldBool, AllowEmpty: true},
			{Name: "Bonus Eligibility", Type: FieldEnum, EnumValues: []string{"Yes", "No"}, Normalizer: strings.ToUpper},
		},
	}
}

func TestValidateCell(t *testing.T) {
	def := testSchema()
	tests := []struct {
		name    string
		column  string
		value   string
		wantErr string
	}{
		{"required empty", "Employee ID", "", "required field is empty"},
		{"required present", "Employee ID", "E001", ""},
		{"numeric ok", "Average KPI (%)", "$1,000", ""},
		{"numeric empty allowed", "Average KPI (%)", "", ""},
		{"numeric bad", "Average KPI (%)", "high", "invalid number format"},
		{"enum ok", "Final Performance Level", "good", ""},
		{"enum bad", "Final Performance Level", "Great", "invalid enum value"},
		{"bool ok", "Remote", "yes", ""},
		{"bool bad", "Remote", "sometimes", "must be yes/no"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, _ := def.Spec(tt.column)
			err := ValidateCell(tt.value, spec)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateCell(%q) error = %v, want nil", tt.value, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateCell(%q) error = %v, want containing %q", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFields_NormalizesAndCanonicalizes(t *testing.T) {
	out, err := ValidateFields(map[string]string{
		"Final Performance Level": " excellent ",
		"Bonus Eligibility":       "yes",
		"Notes":                   `="free text"`,
	}, testSchema())
	if err != nil {
		t.Fatalf("ValidateFields() error = %v", err)
	}
	if out["Final Performance Level"] != "Excellent" {
		t.Errorf("level = %q, want %q", out["Final Performance Level"], "Excellent")
	}
	// The normalizer upper-cases, and the enum match restores canonical case.
	if out["Bonus Eligibility"] != "Yes" {
		t.Errorf("bonus = %q, want %q", out["Bonus Eligibility"], "Yes")
	}
	if out["Notes"] != "free text" {
		t.Errorf("notes = %q, want %q", out["Notes"], "free text")
	}
}

func TestValidateFields_CollectsErrors(t *testing.T) {
	_, err := ValidateFields(map[string]string{
		"Average KPI (%)":         "lots",
		"Final Performance Level": "Stellar",
	}, testSchema())

	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("error = %T, want ValidationErrors", err)
	}
	if len(errs) != 2 {
		t.Fatalf("len(errs) = %d, want 2", len(errs))
	}
	// Sorted by column name.
	if errs[0].Field != "Average KPI (%)" {
		t.Errorf("errs[0].Field = %q, want %q", errs[0].Field, "Average KPI (%)")
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("joined error = %q, want separator", err.Error())
	}
}

func TestSchemaDefinition_Spec(t *testing.T) {
	def := testSchema()
	if _, ok := def.Spec("employee id"); !ok {
		t.Error("Spec should match case-insensitively")
	}
	if _, ok := def.Spec("Salary"); ok {
		t.Error("Spec(Salary) should not be found")
	}
}

func TestSchemaDefinition_Policy(t *testing.T) {
	def := testSchema()
	p := def.Policy(csvcodec.FixedSchema)
	if len(p.Required) != 2 {
		t.Errorf("Required = %v, want 2 columns", p.Required)
	}
	if len(p.Numeric) != 1 || p.Numeric[0] != "Average KPI (%)" {
		t.Errorf("Numeric = %v, want [Average KPI (%%)]", p.Numeric)
	}
	if free := def.Policy(csvcodec.SchemaFree); len(free.Required) != 0 {
		t.Errorf("schema-free Required = %v, want none", free.Required)
	}
}

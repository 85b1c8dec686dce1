package tables

import "github.com/JonMunkholm/hrpulse/internal/core"

// PerformanceReview is the key of the quarterly review roster.
const PerformanceReview = "performance_review"

func init() {
	registerPerformanceReview()
}

func registerPerformanceReview() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:   PerformanceReview,
			Label: "Quarterly Performance Review",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "Employee ID", Type: core.FieldText, Required: true, Normalizer: NormalizeEmployeeID},
			{Name: "Employee Name", Type: core.FieldText, Required: true, AllowEmpty: true},
			{Name: "Department", Type: core.FieldText, Required: true, AllowEmpty: true},
			{Name: "Job Title", Type: core.FieldText, Required: true, AllowEmpty: true},
			{Name: "Supervisor", Type: core.FieldText, Required: true, AllowEmpty: true},
			{Name: "Quarter", Type: core.FieldEnum, Required: true, AllowEmpty: true, EnumValues: []string{"Q1", "Q2", "Q3", "Q4"}, Normalizer: NormalizeQuarter},
			{Name: "KPI Score (%)", Type: core.FieldNumeric, Required: true, AllowEmpty: true},
			{Name: "Performance Rating", Type: core.FieldEnum, Required: true, AllowEmpty: true, EnumValues: PerformanceLevels},
			{Name: "Attendance Rate (%)", Type: core.FieldNumeric, Required: true, AllowEmpty: true},
			{Name: "Training Hours Attended", Type: core.FieldNumeric, Required: true, AllowEmpty: true},
			{Name: "Projects Completed", Type: core.FieldNumeric, Required: true, AllowEmpty: true},
			{Name: "System Recommendation", Type: core.FieldText, Required: true, AllowEmpty: true},
		},
	})
}

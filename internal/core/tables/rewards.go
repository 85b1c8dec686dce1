package tables

import "github.com/JonMunkholm/hrpulse/internal/core"

// EmployeeRewards is the key of the bundled rewards roster.
const EmployeeRewards = "employee_rewards"

func init() {
	registerEmployeeRewards()
}

func registerEmployeeRewards() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:   EmployeeRewards,
			Label: "Employee Rewards",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "Employee ID", Type: core.FieldText, Required: true, Normalizer: NormalizeEmployeeID},
			{Name: "Employee Name", Type: core.FieldText, Required: true, AllowEmpty: true},
			{Name: "Department", Type: core.FieldText, Required: true, AllowEmpty: true},
			{Name: "Job Title", Type: core.FieldText, Required: true, AllowEmpty: true},
			{Name: "Supervisor", Type: core.FieldText, Required: true, AllowEmpty: true},
			{Name: "Average KPI (%)", Type: core.FieldNumeric, Required: true, AllowEmpty: true},
			{Name: "Productivity Rate (%)", Type: core.FieldNumeric, Required: true, AllowEmpty: true},
			{Name: "Final Performance Level", Type: core.FieldEnum, Required: true, AllowEmpty: true, EnumValues: PerformanceLevels},
			{Name: "Bonus Eligibility", Type: core.FieldEnum, Required: true, AllowEmpty: true, EnumValues: []string{"Yes", "No"}, Normalizer: NormalizeYesNo},
			{Name: "Reward Type", Type: core.FieldText, Required: true, AllowEmpty: true},
			{Name: "Retention Action", Type: core.FieldText, Required: true, AllowEmpty: true},
		},
	})
}

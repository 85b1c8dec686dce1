package roster

// Column names of the bundled employee rewards dataset.
const (
	ColEmployeeID       = "Employee ID"
	ColEmployeeName     = "Employee Name"
	ColDepartment       = "Department"
	ColJobTitle         = "Job Title"
	ColSupervisor       = "Supervisor"
	ColAverageKPI       = "Average KPI (%)"
	ColProductivity     = "Productivity Rate (%)"
	ColPerformanceLevel = "Final Performance Level"
	ColBonusEligibility = "Bonus Eligibility"
	ColRewardType       = "Reward Type"
	ColRetentionAction  = "Retention Action"
)

// SampleHeaders lists the bundled dataset's columns in display order.
var SampleHeaders = []string{
	ColEmployeeID,
	ColEmployeeName,
	ColDepartment,
	ColJobTitle,
	ColSupervisor,
	ColAverageKPI,
	ColProductivity,
	ColPerformanceLevel,
	ColBonusEligibility,
	ColRewardType,
	ColRetentionAction,
}

type sampleRow struct {
	id, name, dept, title, supervisor string
	kpi, productivity                 float64
	level, bonus, reward, retention   string
}

var sampleRows = []sampleRow{
	{"E001", "Alice Johnson", "Engineering", "Software Engineer", "Bob Williams", 92, 95, "Excellent", "Yes", "Cash Bonus", "Promotion"},
	{"E002", "Brian Smith", "Engineering", "Senior Engineer", "Bob Williams", 85, 88, "Good", "Yes", "Gift Card", "Mentorship"},
	{"E003", "Carla Gomez", "Marketing", "Marketing Specialist", "Diana Prince", 78, 80, "Good", "No", "None", "Training"},
	{"E004", "David Lee", "Sales", "Account Executive", "Frank Castle", 95, 97, "Excellent", "Yes", "Cash Bonus", "Promotion"},
	{"E005", "Emma Davis", "Human Resources", "HR Coordinator", "Grace Hopper", 70, 72, "Average", "No", "None", "Performance Plan"},
	{"E006", "Farid Khan", "Finance", "Financial Analyst", "Henry Ford", 88, 90, "Good", "Yes", "Extra Leave", "Mentorship"},
	{"E007", "Gina Rossi", "Engineering", "DevOps Engineer", "Bob Williams", 81, 84, "Good", "No", "Recognition", "Training"},
	{"E008", "Hiro Tanaka", "Sales", "Sales Associate", "Frank Castle", 62, 65, "Needs Improvement", "No", "None", "Performance Plan"},
	{"E009", "Isabel Cruz", "Marketing", "Content Strategist", "Diana Prince", 90, 91, "Excellent", "Yes", "Cash Bonus", "Promotion"},
	{"E010", "Jamal Brooks", "Finance", "Accountant", "Henry Ford", 74, 76, "Average", "No", "None", "Training"},
	{"E011", "Kara Olsen", "Engineering", "QA Engineer", "Bob Williams", 79, 82, "Good", "No", "Recognition", "Mentorship"},
	{"E012", "Liam Walsh", "Sales", "Account Executive", "Frank Castle", 86, 89, "Good", "Yes", "Gift Card", "Mentorship"},
	{"E013", "Maya Patel", "Human Resources", "Recruiter", "Grace Hopper", 83, 85, "Good", "Yes", "Extra Leave", "Training"},
	{"E014", "Noah Kim", "Engineering", "Software Engineer", "Bob Williams", 58, 60, "Poor", "No", "None", "Performance Plan"},
	{"E015", "Olivia Chen", "Finance", "Financial Analyst", "Henry Ford", 93, 94, "Excellent", "Yes", "Cash Bonus", "Promotion"},
	{"E016", "Pedro Alvarez", "Marketing", "Marketing Specialist", "Diana Prince", 67, 70, "Average", "No", "None", "Training"},
	{"E017", "Quinn Murphy", "Sales", "Sales Associate", "Frank Castle", 76, 78, "Average", "No", "Recognition", "Training"},
	{"E018", "Rosa Martins", "Engineering", "Senior Engineer", "Bob Williams", 97, 98, "Excellent", "Yes", "Cash Bonus", "Promotion"},
	{"E019", "Sam Turner", "Human Resources", "HR Coordinator", "Grace Hopper", 80, 81, "Good", "No", "Recognition", "Mentorship"},
	{"E020", "Tara Singh", "Finance", "Accountant", "Henry Ford", 84.5, 86.5, "Good", "Yes", "Gift Card", "Mentorship"},
}

// SampleSnapshot returns the bundled employee dataset the store starts with.
func SampleSnapshot() Snapshot {
	records := make([]Record, 0, len(sampleRows))
	for _, r := range sampleRows {
		records = append(records, NewRecord(SampleHeaders, []Value{
			Text(r.id),
			Text(r.name),
			Text(r.dept),
			Text(r.title),
			Text(r.supervisor),
			Number(r.kpi),
			Number(r.productivity),
			Text(r.level),
			Text(r.bonus),
			Text(r.reward),
			Text(r.retention),
		}))
	}

	headers := make([]string, len(SampleHeaders))
	copy(headers, SampleHeaders)
	return Snapshot{Headers: headers, Records: records}
}

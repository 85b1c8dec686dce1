// Package analytics computes the aggregate views the admin dashboard charts:
// summary cards, per-group averages, distributions, a quarterly trend and a
// department by HR-action cross tab.
//
// Every function works on whatever columns the current roster has. Columns
// are found by keyword, so a chart whose inputs are missing is simply empty.
package analytics

import "github.com/JonMunkholm/hrpulse/internal/roster"

// Keyword lists, most specific first.
var (
	kpiKeywords            = []string{"kpi score (%)", "average kpi (%)"}
	performanceKeywords    = []string{"performance rating", "final performance level"}
	attendanceKeywords     = []string{"attendance rate (%)", "attendance"}
	trainingKeywords       = []string{"training hours attended", "training hours"}
	departmentKeywords     = []string{"department"}
	jobTitleKeywords       = []string{"job title", "role"}
	recommendationKeywords = []string{"system recommendation", "retention action"}
	projectsKeywords       = []string{"projects completed"}
	supervisorKeywords     = []string{"supervisor"}
	quarterKeywords        = []string{"quarter"}
)

// Columns holds the header resolved for each dashboard role. An empty field
// means the roster has no such column.
type Columns struct {
	KPI            string `json:"kpi"`
	Performance    string `json:"performance"`
	Attendance     string `json:"attendance"`
	TrainingHours  string `json:"trainingHours"`
	Department     string `json:"department"`
	JobTitle       string `json:"jobTitle"`
	Recommendation string `json:"recommendation"`
	Projects       string `json:"projects"`
	Supervisor     string `json:"supervisor"`
	Quarter        string `json:"quarter"`
}

// ResolveColumns finds each dashboard role in headers.
func ResolveColumns(headers []string) Columns {
	find := func(keywords []string) string {
		h, _ := roster.ResolveRole(headers, keywords...)
		return h
	}
	return Columns{
		KPI:            find(kpiKeywords),
		Performance:    find(performanceKeywords),
		Attendance:     find(attendanceKeywords),
		TrainingHours:  find(trainingKeywords),
		Department:     find(departmentKeywords),
		JobTitle:       find(jobTitleKeywords),
		Recommendation: find(recommendationKeywords),
		Projects:       find(projectsKeywords),
		Supervisor:     find(supervisorKeywords),
		Quarter:        find(quarterKeywords),
	}
}

package analytics

import (
	"strings"

	"github.com/JonMunkholm/hrpulse/internal/roster"
)

// Summary holds the headline cards. A Has* flag is false when the roster
// lacks the column, so the card can be hidden instead of showing 0.
type Summary struct {
	Employees        int     `json:"employees"`
	AvgKPI           float64 `json:"avgKpi"`
	ExcellentPercent float64 `json:"excellentPercent"`
	AvgAttendance    float64 `json:"avgAttendance"`
	TotalTraining    float64 `json:"totalTraining"`

	HasKPI         bool `json:"hasKpi"`
	HasPerformance bool `json:"hasPerformance"`
	HasAttendance  bool `json:"hasAttendance"`
	HasTraining    bool `json:"hasTraining"`
}

// BuildSummary computes the headline cards.
func BuildSummary(snap roster.Snapshot, cols Columns) Summary {
	s := Summary{
		Employees:      len(snap.Records),
		HasKPI:         cols.KPI != "",
		HasPerformance: cols.Performance != "",
		HasAttendance:  cols.Attendance != "",
		HasTraining:    cols.TrainingHours != "",
	}
	if s.Employees == 0 {
		return s
	}
	n := float64(s.Employees)

	var kpi, attendance, training float64
	excellent := 0
	for _, rec := range snap.Records {
		if s.HasKPI {
			kpi += Measure(rec.Value(cols.KPI))
		}
		if s.HasAttendance {
			attendance += Measure(rec.Value(cols.Attendance))
		}
		if s.HasTraining {
			training += Measure(rec.Value(cols.TrainingHours))
		}
		if s.HasPerformance && strings.EqualFold(rec.Value(cols.Performance).String(), "excellent") {
			excellent++
		}
	}

	s.AvgKPI = kpi / n
	s.AvgAttendance = attendance / n
	s.TotalTraining = training
	s.ExcellentPercent = float64(excellent) / n * 100
	return s
}

// Chart is one titled series.
type Chart struct {
	Key    string  `json:"key"`
	Title  string  `json:"title"`
	Series string  `json:"series"`
	Points []Point `json:"points"`
}

// Empty reports whether the chart has nothing to draw.
func (c Chart) Empty() bool { return len(c.Points) == 0 }

// Dashboard is everything the admin overview renders.
type Dashboard struct {
	Columns Columns `json:"columns"`
	Summary Summary `json:"summary"`
	Version uint64  `json:"version"`

	Charts        []Chart        `json:"charts"`
	ProjectsVsKPI []ScatterPoint `json:"projectsVsKpi"`
	HRActions     CrossTab       `json:"hrActions"`
}

// Chart returns the chart with key, if present.
func (d Dashboard) Chart(key string) (Chart, bool) {
	for _, c := range d.Charts {
		if c.Key == key {
			return c, true
		}
	}
	return Chart{}, false
}

// Chart keys, in display order.
const (
	ChartKPITrend                = "kpiTrend"
	ChartPerformanceDistribution = "performanceDistribution"
	ChartDepartmentKPI           = "departmentKpi"
	ChartKPIBySupervisor         = "avgKpiBySupervisor"
	ChartEmployeesByDepartment   = "employeeDistByDept"
	ChartKPIByJobTitle           = "avgKpiByJobTitle"
	ChartAttendanceByDepartment  = "avgAttendanceByDept"
	ChartTrainingByDepartment    = "avgTrainingByDept"
)

// Build computes every dashboard view from one snapshot.
func Build(snap roster.Snapshot) Dashboard {
	cols := ResolveColumns(snap.Headers)

	return Dashboard{
		Columns: cols,
		Summary: BuildSummary(snap, cols),
		Version: snap.Version,
		Charts: []Chart{
			{ChartKPITrend, "Quarterly KPI Trend", "Average KPI", QuarterTrend(snap, cols.Quarter, cols.KPI)},
			{ChartPerformanceDistribution, "Performance Rating Distribution", "Employees", Distribution(snap, cols.Performance, "")},
			{ChartDepartmentKPI, "Department-wise KPI", "Average KPI", GroupAverage(snap, cols.Department, cols.KPI, false)},
			{ChartKPIBySupervisor, "Team KPI by Supervisor", "Average Team KPI", GroupAverage(snap, cols.Supervisor, cols.KPI, true)},
			{ChartEmployeesByDepartment, "Employees by Department", "Employees", Distribution(snap, cols.Department, "Unknown")},
			{ChartKPIByJobTitle, "KPI by Job Title", "Average KPI", GroupAverage(snap, cols.JobTitle, cols.KPI, true)},
			{ChartAttendanceByDepartment, "Attendance by Department", "Average Attendance", GroupAverage(snap, cols.Department, cols.Attendance, false)},
			{ChartTrainingByDepartment, "Training Hours by Department", "Average Hours", GroupAverage(snap, cols.Department, cols.TrainingHours, false)},
		},
		ProjectsVsKPI: Scatter(snap, cols.Projects, cols.KPI),
		HRActions:     BuildCrossTab(snap, cols.Department, cols.Recommendation),
	}
}

package core_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/hrpulse/internal/config"
	"github.com/JonMunkholm/hrpulse/internal/core"
	_ "github.com/JonMunkholm/hrpulse/internal/core/tables"
	"github.com/JonMunkholm/hrpulse/internal/csvcodec"
	"github.com/JonMunkholm/hrpulse/internal/roster"
	"github.com/stretchr/testify/require"
)

func testConfig(mode string) *config.Config {
	return &config.Config{
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			ReadTimeout:   time.Second,
			SchemaMode:    mode,
			Schema:        "employee_rewards",
		},
		Auth: config.AuthConfig{
			AdminUsername:    "admin",
			AdminPassword:    "admin123",
			EmployeePassword: "password123",
			SessionTTL:       time.Hour,
		},
		Audit: config.AuditConfig{Capacity: 100},
	}
}

func newService(t *testing.T, mode string) (*core.Service, *roster.Store) {
	t.Helper()
	store := roster.NewStore(roster.SampleSnapshot())
	svc, err := core.NewService(store, testConfig(mode))
	require.NoError(t, err)
	return svc, store
}

func importCSV(svc *core.Service, text string) (*core.ImportResult, error) {
	return svc.Import(context.Background(), "roster.csv", strings.NewReader(text), int64(len(text)))
}

func TestNewService_UnknownSchemaInFixedMode(t *testing.T) {
	cfg := testConfig("fixed")
	cfg.Import.Schema = "payroll"
	_, err := core.NewService(roster.NewStore(roster.Snapshot{}), cfg)
	require.ErrorIs(t, err, core.ErrUnknownSchema)

	cfg.Import.SchemaMode = "free"
	_, err = core.NewService(roster.NewStore(roster.Snapshot{}), cfg)
	require.NoError(t, err)
}

func TestImport_SchemaFree(t *testing.T) {
	svc, _ := newService(t, "free")

	res, err := importCSV(svc, "Employee ID,Employee Name,Score\r\nX1,Ada,90\r\nX2,\"Lovelace, Ada\",n/a\r\n")
	require.NoError(t, err)
	require.Equal(t, 2, res.Records)
	require.Equal(t, []string{"Employee ID", "Employee Name", "Score"}, res.Columns)
	require.Equal(t, "free", res.Mode)
	require.NotEmpty(t, res.ImportID)

	snap := svc.Snapshot()
	require.Equal(t, res.Columns, snap.Headers)
	require.Len(t, snap.Records, 2)
	require.Equal(t, roster.Number(90), snap.Records[0].Value("Score"))
	require.Equal(t, roster.Text("n/a"), snap.Records[1].Value("Score"))
	require.Equal(t, "Lovelace, Ada", snap.Records[1].Value("Employee Name").String())

	audit := svc.AuditEntries(core.AuditLogFilter{Action: core.ActionImport})
	require.Equal(t, 1, audit.TotalCount)
	require.Equal(t, 2, audit.Entries[0].RowsAffected)
	require.Equal(t, res.ImportID, audit.Entries[0].ImportID)
}

func TestImport_FailureLeavesRosterUntouched(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		body    string
		wantErr error
	}{
		{"empty file", "free", "", core.ErrEmptyImport},
		{"header only", "free", "Employee ID,Name\n", core.ErrEmptyImport},
		{"fixed empty", "fixed", "", csvcodec.ErrEmptyInput},
		{"binary", "free", "PK\x03\x04\x00", core.ErrBinaryFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t, tt.mode)
			before := svc.Snapshot()

			_, err := importCSV(svc, tt.body)
			require.ErrorIs(t, err, tt.wantErr)
			require.True(t, core.IsRejectedImport(err))
			require.Equal(t, before, svc.Snapshot())
		})
	}
}

func TestImport_FixedSchemaMissingColumns(t *testing.T) {
	svc, _ := newService(t, "fixed")
	version := svc.Version()

	_, err := importCSV(svc, "Employee ID,Employee Name\nE1,Ada\n")
	var schemaErr *csvcodec.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Contains(t, schemaErr.Missing, roster.ColDepartment)
	require.Equal(t, "VAL004", core.MapError(err).Code)
	require.Equal(t, version, svc.Version())

	history := svc.ImportHistory()
	require.Len(t, history, 1)
	require.Equal(t, "failed", history[0].Status)
	require.Contains(t, history[0].Error, "VAL004")
}

func TestImport_FixedSchemaRoundTrip(t *testing.T) {
	svc, _ := newService(t, "fixed")
	data, name := svc.Export(context.Background())
	require.Equal(t, "employees.csv", name)

	res, err := svc.Import(context.Background(), name, strings.NewReader(string(data)), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, 20, res.Records)

	want := roster.SampleSnapshot()
	got := svc.Snapshot()
	require.Equal(t, want.Headers, got.Headers)
	for i := range want.Records {
		require.True(t, want.Records[i].Equal(got.Records[i]), "record %d differs", i)
	}
}

func TestImport_TooLarge(t *testing.T) {
	svc, _ := newService(t, "free")
	_, err := svc.Import(context.Background(), "big.csv", strings.NewReader("a\n1\n"), 2<<20)
	require.ErrorIs(t, err, core.ErrFileTooLarge)
	require.Equal(t, "FILE001", core.MapError(err).Code)
}

func TestImport_NoFile(t *testing.T) {
	svc, _ := newService(t, "free")
	_, err := svc.Import(context.Background(), "", nil, 0)
	require.ErrorIs(t, err, core.ErrNoFile)
}

func TestImport_HistoryNewestFirst(t *testing.T) {
	svc, _ := newService(t, "free")
	_, err := importCSV(svc, "")
	require.Error(t, err)
	_, err = importCSV(svc, "Employee ID\nE1\n")
	require.NoError(t, err)

	history := svc.ImportHistory()
	require.Len(t, history, 2)
	require.Equal(t, "completed", history[0].Status)
	require.Equal(t, 1, history[0].Records)
	require.Equal(t, "failed", history[1].Status)
}

func TestExport_SampleData(t *testing.T) {
	svc, _ := newService(t, "free")
	data, _ := svc.Export(context.Background())

	lines := strings.Split(string(data), "\r\n")
	require.Len(t, lines, 21)
	require.Equal(t, strings.Join(roster.SampleHeaders, ","), lines[0])
	require.True(t, strings.HasPrefix(lines[1], `"E001","Alice Johnson"`))
	require.Contains(t, lines[20], "84.5,86.5")
}

func TestReset_RestoresSample(t *testing.T) {
	svc, _ := newService(t, "free")
	_, err := importCSV(svc, "A\n1\n")
	require.NoError(t, err)

	svc.Reset(context.Background())
	require.Equal(t, roster.SampleHeaders, svc.Snapshot().Headers)
	require.Len(t, svc.Snapshot().Records, 20)

	svc.Reset(context.Background())
	require.Len(t, svc.Snapshot().Records, 20)
	require.Equal(t, 2, svc.AuditEntries(core.AuditLogFilter{Action: core.ActionReset}).TotalCount)
}

func TestTemplate(t *testing.T) {
	svc, _ := newService(t, "free")
	data, name := svc.Template()
	require.Equal(t, "employees_template.csv", name)
	require.Equal(t, strings.Join(roster.SampleHeaders, ","), string(data))
}

func TestColumns(t *testing.T) {
	svc, _ := newService(t, "fixed")
	cols := svc.Columns()
	require.Len(t, cols, len(roster.SampleHeaders))

	byName := map[string]core.ColumnInfo{}
	for _, c := range cols {
		byName[c.Name] = c
	}
	require.True(t, byName[roster.ColEmployeeID].Identity)
	require.True(t, byName[roster.ColEmployeeName].Display)
	require.True(t, byName[roster.ColAverageKPI].Numeric)
	require.Equal(t, "enum", byName[roster.ColPerformanceLevel].Type)
	require.False(t, byName[roster.ColDepartment].Numeric)
}

func TestAddRecord_Defaults(t *testing.T) {
	svc, _ := newService(t, "free")

	rec, err := svc.AddRecord(context.Background(), map[string]string{
		roster.ColEmployeeName: "Uma Rao",
		roster.ColAverageKPI:   "88",
	})
	require.NoError(t, err)
	require.Equal(t, "E021", rec.Value(roster.ColEmployeeID).String())
	require.Equal(t, "Uma Rao", rec.Value(roster.ColEmployeeName).String())
	require.Equal(t, roster.Number(88), rec.Value(roster.ColAverageKPI))
	require.Equal(t, roster.Number(85), rec.Value(roster.ColProductivity))
	require.Equal(t, "Engineering", rec.Value(roster.ColDepartment).String())

	snap := svc.Snapshot()
	require.Len(t, snap.Records, 21)
	require.Equal(t, "E021", snap.Records[0].Value(roster.ColEmployeeID).String())
	require.Equal(t, roster.SampleHeaders, snap.Headers)
}

func TestAddRecord_Errors(t *testing.T) {
	svc, _ := newService(t, "free")
	ctx := context.Background()

	_, err := svc.AddRecord(ctx, map[string]string{roster.ColEmployeeID: "E005"})
	require.ErrorIs(t, err, core.ErrDuplicateRecord)

	_, err = svc.AddRecord(ctx, map[string]string{"Salary": "100"})
	require.ErrorIs(t, err, core.ErrUnknownColumn)

	_, err = svc.AddRecord(ctx, map[string]string{roster.ColAverageKPI: "lots"})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, svc.Snapshot().Records, 20)
}

func TestAddRecord_EmptyRoster(t *testing.T) {
	store := roster.NewStore(roster.Snapshot{})
	svc, err := core.NewService(store, testConfig("free"))
	require.NoError(t, err)

	rec, err := svc.AddRecord(context.Background(), map[string]string{})
	require.NoError(t, err)
	require.Equal(t, "E001", rec.Value(roster.ColEmployeeID).String())
	require.Equal(t, roster.SampleHeaders, svc.Snapshot().Headers)
}

func TestUpdateRecord(t *testing.T) {
	svc, _ := newService(t, "free")
	ctx := context.Background()

	rec, err := svc.UpdateRecord(ctx, "E003", map[string]string{
		roster.ColAverageKPI: "81.5%",
		roster.ColDepartment: "Sales",
		roster.ColEmployeeID: "E003",
		roster.ColRewardType: "None",
	})
	require.NoError(t, err)
	require.Equal(t, roster.Number(81.5), rec.Value(roster.ColAverageKPI))
	require.Equal(t, "Sales", rec.Value(roster.ColDepartment).String())

	got, err := svc.GetRecord("E003")
	require.NoError(t, err)
	require.True(t, rec.Equal(got))

	// Unchanged columns are not audited.
	edits := svc.AuditEntries(core.AuditLogFilter{Action: core.ActionRecordEdit, RowKey: "E003"})
	require.Equal(t, 2, edits.TotalCount)
}

func TestUpdateRecord_Errors(t *testing.T) {
	svc, _ := newService(t, "free")
	ctx := context.Background()

	_, err := svc.UpdateRecord(ctx, "E003", map[string]string{roster.ColEmployeeID: "E999"})
	require.ErrorIs(t, err, core.ErrIdentityImmutable)

	_, err = svc.UpdateRecord(ctx, "E999", map[string]string{roster.ColDepartment: "Ops"})
	require.ErrorIs(t, err, roster.ErrRecordNotFound)

	_, err = svc.UpdateCell(ctx, "E003", roster.ColAverageKPI, "great")
	require.Equal(t, "VAL002", core.MapError(err).Code)

	// A text cell stays text even when the new value looks numeric.
	rec, err := svc.UpdateCell(ctx, "E003", roster.ColDepartment, "42")
	require.NoError(t, err)
	require.Equal(t, roster.Text("42"), rec.Value(roster.ColDepartment))
}

func TestUpdateRecord_FixedSchemaValidates(t *testing.T) {
	svc, _ := newService(t, "fixed")
	ctx := context.Background()

	_, err := svc.UpdateCell(ctx, "E001", roster.ColPerformanceLevel, "Legendary")
	require.Equal(t, "VAL006", core.MapError(err).Code)

	rec, err := svc.UpdateRecord(ctx, "E001", map[string]string{
		roster.ColPerformanceLevel: "needs improvement",
		roster.ColBonusEligibility: "n",
	})
	require.NoError(t, err)
	require.Equal(t, "Needs Improvement", rec.Value(roster.ColPerformanceLevel).String())
	require.Equal(t, "No", rec.Value(roster.ColBonusEligibility).String())
}

func TestUpsertRecord(t *testing.T) {
	svc, _ := newService(t, "free")
	ctx := context.Background()

	_, created, err := svc.UpsertRecord(ctx, "E002", map[string]string{roster.ColSupervisor: "Grace Hopper"})
	require.NoError(t, err)
	require.False(t, created)

	rec, created, err := svc.UpsertRecord(ctx, "E100", map[string]string{roster.ColEmployeeName: "Zed Quinn"})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "E100", rec.Value(roster.ColEmployeeID).String())
	require.Len(t, svc.Snapshot().Records, 21)
}

func TestUpsertRecord_ConcurrentNewKey(t *testing.T) {
	svc, _ := newService(t, "free")
	ctx := context.Background()

	const writers = 8
	errs := make(chan error, writers)
	created := make(chan bool, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, c, err := svc.UpsertRecord(ctx, "E900", map[string]string{
				roster.ColEmployeeName: fmt.Sprintf("Writer %d", i),
			})
			errs <- err
			created <- c
		}(i)
	}
	wg.Wait()
	close(errs)
	close(created)

	for err := range errs {
		require.NoError(t, err)
	}
	creates := 0
	for c := range created {
		if c {
			creates++
		}
	}
	require.Equal(t, 1, creates)

	matches := 0
	for _, r := range svc.Snapshot().Records {
		if r.Value(roster.ColEmployeeID).String() == "E900" {
			matches++
		}
	}
	require.Equal(t, 1, matches)
	require.Len(t, svc.Snapshot().Records, 21)
}

func TestDeleteRecord(t *testing.T) {
	svc, _ := newService(t, "free")
	ctx := context.Background()

	n, err := svc.DeleteRecord(ctx, "E010")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Len(t, svc.Snapshot().Records, 19)

	_, err = svc.DeleteRecord(ctx, "E010")
	require.ErrorIs(t, err, roster.ErrRecordNotFound)

	entries := svc.AuditEntries(core.AuditLogFilter{Action: core.ActionRecordDelete})
	require.Equal(t, 1, entries.TotalCount)
	require.Equal(t, "Jamal Brooks", entries.Entries[0].RowData[roster.ColEmployeeName])
	require.Equal(t, core.SeverityHigh, entries.Entries[0].Severity)
}

func TestDeleteRecord_AuditsRemovedRows(t *testing.T) {
	svc, store := newService(t, "free")
	ctx := context.Background()

	snap := store.Snapshot()
	dup := snap.Records[0].Clone()
	dup.Set(roster.ColEmployeeName, roster.Text("Second Copy"))
	store.Replace(append(snap.Records, dup), snap.Headers)

	n, err := svc.DeleteRecord(ctx, "E001")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	entries := svc.AuditEntries(core.AuditLogFilter{Action: core.ActionRecordDelete})
	require.Equal(t, 1, entries.TotalCount)
	require.Equal(t, 2, entries.Entries[0].RowsAffected)
	require.Equal(t, "Alice Johnson", entries.Entries[0].RowData[roster.ColEmployeeName])
}

func TestLogin(t *testing.T) {
	svc, _ := newService(t, "free")
	ctx := context.Background()

	admin, err := svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	require.Equal(t, core.RoleAdmin, admin.Role)
	require.NotEmpty(t, admin.Token)

	user, err := svc.Login(ctx, " E004 ", "password123")
	require.NoError(t, err)
	require.Equal(t, core.RoleUser, user.Role)
	require.Equal(t, "E004", user.Username)

	for _, bad := range [][2]string{
		{"admin", "password123"},
		{"E004", "admin123"},
		{"E999", "password123"},
		{"", "password123"},
	} {
		_, err := svc.Login(ctx, bad[0], bad[1])
		require.ErrorIs(t, err, core.ErrInvalidCredentials, "login %q/%q", bad[0], bad[1])
	}

	sess, ok := svc.Authenticate(user.Token)
	require.True(t, ok)
	require.Equal(t, "E004", sess.Username)

	svc.Logout(ctx, user.Token)
	_, ok = svc.Authenticate(user.Token)
	require.False(t, ok)

	require.Equal(t, 2, svc.AuditEntries(core.AuditLogFilter{Action: core.ActionLogin}).TotalCount)
	require.Equal(t, 1, svc.AuditEntries(core.AuditLogFilter{Action: core.ActionLogout}).TotalCount)
}

func TestLogin_FollowsImportedRoster(t *testing.T) {
	svc, _ := newService(t, "free")
	_, err := importCSV(svc, "Employee ID,Employee Name\nN7,Nadia\n")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "E001", "password123")
	require.ErrorIs(t, err, core.ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), "N7", "password123")
	require.NoError(t, err)
}

func TestProfile(t *testing.T) {
	svc, _ := newService(t, "free")
	ctx := context.Background()

	p, err := svc.Profile(ctx, "E001")
	require.NoError(t, err)
	require.Equal(t, "Alice Johnson", p.Name)
	require.Equal(t, "AJ", p.Initials)
	require.Equal(t, "Engineering", p.Department)
	require.Equal(t, "Software Engineer", p.JobTitle)
	require.Equal(t, "Bob Williams", p.Supervisor)
	require.Len(t, p.Performance, 3)
	require.Equal(t, core.ProfileField{Label: roster.ColAverageKPI, Value: "92"}, p.Performance[0])
	require.Len(t, p.Rewards, 3)

	_, err = svc.UpdateCell(ctx, "E001", roster.ColDepartment, "Research")
	require.NoError(t, err)
	p, err = svc.Profile(ctx, "E001")
	require.NoError(t, err)
	require.Equal(t, "Research", p.Department)

	_, err = svc.Profile(ctx, "E404")
	require.True(t, errors.Is(err, roster.ErrRecordNotFound))
}

func TestQuery(t *testing.T) {
	svc, _ := newService(t, "free")

	res := svc.Query(core.QueryParams{
		Search:   "engineering",
		Sorts:    []core.SortSpec{{Column: roster.ColAverageKPI, Dir: "desc"}},
		PageSize: 5,
	})
	require.Equal(t, 6, res.TotalRows)
	require.Equal(t, 2, res.TotalPages)
	require.Len(t, res.Records, 5)
	require.Equal(t, "Rosa Martins", res.Records[0].Value(roster.ColEmployeeName).String())

	res = svc.Query(core.QueryParams{
		Filters: core.FilterSet{Filters: []core.ColumnFilter{
			{Column: roster.ColAverageKPI, Operator: core.OpGreaterEq, Value: "90"},
		}},
	})
	require.Equal(t, 5, res.TotalRows)

	res = svc.Query(core.QueryParams{
		Filters: core.FilterSet{Filters: []core.ColumnFilter{
			{Column: roster.ColDepartment, Operator: core.OpIn, Value: "Sales, Finance"},
			{Column: roster.ColBonusEligibility, Operator: core.OpEquals, Value: "yes"},
		}},
		Page: 99,
	})
	require.Equal(t, 5, res.TotalRows)
	require.Equal(t, 1, res.Page)

	res = svc.Query(core.QueryParams{
		Filters: core.FilterSet{Filters: []core.ColumnFilter{
			{Column: roster.ColDepartment, Operator: "regex", Value: ".*"},
		}},
	})
	require.Zero(t, res.TotalRows)
}

func TestAggregate(t *testing.T) {
	svc, _ := newService(t, "free")

	aggs := svc.Aggregate("", core.FilterSet{Filters: []core.ColumnFilter{
		{Column: roster.ColDepartment, Operator: core.OpEquals, Value: "Finance"},
	}})
	kpi := aggs[roster.ColAverageKPI]
	require.NotNil(t, kpi)
	require.Equal(t, 4, kpi.Count)
	require.InDelta(t, 84.875, *kpi.Avg, 1e-9)
	require.Equal(t, 74.0, *kpi.Min)
	require.Equal(t, 93.0, *kpi.Max)
	require.NotContains(t, aggs, roster.ColDepartment)
}

func TestPreview(t *testing.T) {
	svc, _ := newService(t, "free")
	before := svc.Version()

	body := "Employee ID,Employee Name,Average KPI (%),Location\n" +
		"E001,Alice Johnson,99,Oslo\n" +
		"E002,Brian Smith,85,Lima\n" +
		"E002,Brian Smith,85,Lima\n" +
		"E777,New Person,70,Pune\n"
	resp, err := svc.Preview(context.Background(), "next.csv", strings.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	require.Equal(t, 4, resp.Summary.TotalRows)
	require.Equal(t, 1, resp.Summary.NewRows)
	require.Equal(t, 2, resp.Summary.MatchedRows)
	require.Equal(t, 18, resp.Summary.RemovedRows)
	require.Equal(t, 1, resp.Summary.DuplicateInFile)
	require.Equal(t, []string{"Location"}, resp.AddedColumns)
	require.Contains(t, resp.DroppedColumns, roster.ColDepartment)
	require.Equal(t, []core.DuplicatePreview{{RowKey: "E002", Count: 2}}, resp.DuplicateSamples)

	require.Len(t, resp.UpdateDiffs, 2)
	require.Equal(t, "E001", resp.UpdateDiffs[0].RowKey)
	require.Equal(t, []string{roster.ColAverageKPI, "Location"}, resp.UpdateDiffs[0].Changed)

	require.Equal(t, before, svc.Version())
}

func TestDashboard_FollowsRoster(t *testing.T) {
	svc, _ := newService(t, "free")
	require.Equal(t, 20, svc.Dashboard().Summary.Employees)

	_, err := svc.DeleteRecord(context.Background(), "E001")
	require.NoError(t, err)
	require.Equal(t, 19, svc.Dashboard().Summary.Employees)
}

func TestConcurrentEditsKeepRosterConsistent(t *testing.T) {
	svc, _ := newService(t, "free")
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, _ = svc.AddRecord(ctx, map[string]string{})
			svc.Query(core.QueryParams{Search: "new hire"})
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	snap := svc.Snapshot()
	require.Len(t, snap.Records, 28)
	seen := map[string]bool{}
	for _, r := range snap.Records {
		id := r.Value(roster.ColEmployeeID).String()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		require.Equal(t, snap.Headers, r.Keys())
	}
}

package core

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestDetermineSeverity(t *testing.T) {
	tests := []struct {
		action   AuditAction
		expected AuditSeverity
	}{
		{ActionReset, SeverityCritical},
		{ActionImport, SeverityHigh},
		{ActionRecordDelete, SeverityHigh},
		{ActionRecordEdit, SeverityMedium},
		{ActionRecordAdd, SeverityMedium},
		{ActionExport, SeverityLow},
		{ActionLogin, SeverityLow},
		{ActionLogout, SeverityLow},
	}
	for _, tt := range tests {
		if got := determineSeverity(tt.action); got != tt.expected {
			t.Errorf("determineSeverity(%q) = %q, want %q", tt.action, got, tt.expected)
		}
	}
}

func TestAuditLog_FillsFromContext(t *testing.T) {
	log := NewAuditLog(10)

	ctx := ContextWithIPAddress(context.Background(), "203.0.113.7")
	ctx = ContextWithUserAgent(ctx, "curl/8.0")
	ctx = ContextWithSession(ctx, &Session{Username: "admin", Role: RoleAdmin})

	entry := log.Log(ctx, AuditLogParams{Action: ActionExport, RowsAffected: 20})
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if entry.Username != "admin" {
		t.Errorf("Username = %q, want %q", entry.Username, "admin")
	}
	if entry.IPAddress != "203.0.113.7" || entry.UserAgent != "curl/8.0" {
		t.Errorf("client = %q/%q, want context values", entry.IPAddress, entry.UserAgent)
	}
	if entry.Severity != SeverityLow {
		t.Errorf("Severity = %q, want %q", entry.Severity, SeverityLow)
	}
}

func TestAuditLog_ExplicitUsernameWins(t *testing.T) {
	log := NewAuditLog(10)
	ctx := ContextWithSession(context.Background(), &Session{Username: "admin"})

	entry := log.Log(ctx, AuditLogParams{Action: ActionLogin, Username: "E007"})
	if entry.Username != "E007" {
		t.Errorf("Username = %q, want %q", entry.Username, "E007")
	}
}

func TestAuditLog_RingOverwritesOldest(t *testing.T) {
	log := NewAuditLog(3)
	ctx := context.Background()
	for _, key := range []string{"E1", "E2", "E3", "E4"} {
		log.Log(ctx, AuditLogParams{Action: ActionRecordEdit, RowKey: key})
	}

	if log.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", log.Len())
	}
	got := log.Entries(AuditLogFilter{})
	if got.TotalCount != 3 {
		t.Fatalf("TotalCount = %d, want 3", got.TotalCount)
	}
	want := []string{"E4", "E3", "E2"}
	for i, e := range got.Entries {
		if e.RowKey != want[i] {
			t.Errorf("Entries[%d].RowKey = %q, want %q", i, e.RowKey, want[i])
		}
	}
}

func TestAuditLog_Filter(t *testing.T) {
	log := NewAuditLog(10)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	log.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	ctx := context.Background()
	log.Log(ctx, AuditLogParams{Action: ActionImport, Username: "admin"})
	log.Log(ctx, AuditLogParams{Action: ActionRecordEdit, Username: "admin", RowKey: "E001"})
	log.Log(ctx, AuditLogParams{Action: ActionRecordEdit, Username: "admin", RowKey: "E002"})
	log.Log(ctx, AuditLogParams{Action: ActionLogin, Username: "E001"})

	tests := []struct {
		name   string
		filter AuditLogFilter
		want   int
	}{
		{"all", AuditLogFilter{}, 4},
		{"by action", AuditLogFilter{Action: ActionRecordEdit}, 2},
		{"by severity", AuditLogFilter{Severity: SeverityHigh}, 1},
		{"by user", AuditLogFilter{Username: "E001"}, 1},
		{"by row", AuditLogFilter{RowKey: "E002"}, 1},
		{"since", AuditLogFilter{StartTime: base.Add(3 * time.Minute)}, 2},
		{"until", AuditLogFilter{EndTime: base.Add(time.Minute)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := log.Entries(tt.filter).TotalCount; got != tt.want {
				t.Errorf("TotalCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAuditLog_Pagination(t *testing.T) {
	log := NewAuditLog(10)
	for i := 0; i < 5; i++ {
		log.Log(context.Background(), AuditLogParams{Action: ActionExport})
	}

	got := log.Entries(AuditLogFilter{Limit: 2, Offset: 2})
	if len(got.Entries) != 2 {
		t.Errorf("len(Entries) = %d, want 2", len(got.Entries))
	}
	if got.Page != 2 || got.TotalPages != 3 {
		t.Errorf("Page/TotalPages = %d/%d, want 2/3", got.Page, got.TotalPages)
	}

	past := log.Entries(AuditLogFilter{Limit: 2, Offset: 10})
	if len(past.Entries) != 0 {
		t.Errorf("len(Entries) past end = %d, want 0", len(past.Entries))
	}
}

func TestAuditLog_ExportCSV(t *testing.T) {
	log := NewAuditLog(10)
	if got := log.ExportCSV(AuditLogFilter{}); got != strings.Join(auditExportHeaders, ",") {
		t.Errorf("empty export = %q, want header line", got)
	}

	log.Log(context.Background(), AuditLogParams{
		Action:     ActionRecordEdit,
		Username:   "admin",
		RowKey:     "E001",
		ColumnName: "Department",
		OldValue:   "Sales",
		NewValue:   "Sales, EMEA",
	})

	lines := strings.Split(log.ExportCSV(AuditLogFilter{}), "\n")
	if len(lines) != 2 {
		t.Fatalf("export lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[1], `"Sales, EMEA"`) {
		t.Errorf("row = %q, want quoted new value", lines[1])
	}
	if !strings.Contains(lines[1], "record_edit") {
		t.Errorf("row = %q, want action", lines[1])
	}
}

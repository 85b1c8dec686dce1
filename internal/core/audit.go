package core

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/hrpulse/internal/csvcodec"
	"github.com/JonMunkholm/hrpulse/internal/roster"
	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionImport       AuditAction = "import"
	ActionExport       AuditAction = "export"
	ActionReset        AuditAction = "reset"
	ActionRecordAdd    AuditAction = "record_add"
	ActionRecordEdit   AuditAction = "record_edit"
	ActionRecordDelete AuditAction = "record_delete"
	ActionLogin        AuditAction = "login"
	ActionLogout       AuditAction = "logout"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// DefaultAuditCapacity is used when NewAuditLog gets a non-positive capacity.
const DefaultAuditCapacity = 1000

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           string            `json:"id"`
	Action       AuditAction       `json:"action"`
	Severity     AuditSeverity     `json:"severity"`
	Username     string            `json:"username,omitempty"`
	IPAddress    string            `json:"ipAddress,omitempty"`
	UserAgent    string            `json:"userAgent,omitempty"`
	RowKey       string            `json:"rowKey,omitempty"`
	ColumnName   string            `json:"columnName,omitempty"`
	OldValue     string            `json:"oldValue,omitempty"`
	NewValue     string            `json:"newValue,omitempty"`
	RowData      map[string]string `json:"rowData,omitempty"`
	RowsAffected int               `json:"rowsAffected,omitempty"`
	ImportID     string            `json:"importId,omitempty"`
	Reason       string            `json:"reason,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// AuditLogParams contains parameters for creating an audit log entry.
// Username, IPAddress and UserAgent are taken from the context when empty.
type AuditLogParams struct {
	Action       AuditAction
	Username     string
	IPAddress    string
	UserAgent    string
	RowKey       string
	ColumnName   string
	OldValue     string
	NewValue     string
	RowData      map[string]string
	RowsAffected int
	ImportID     string
	Reason       string
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionImport, ActionRecordDelete:
		return SeverityHigh
	case ActionReset:
		return SeverityCritical
	case ActionExport, ActionLogin, ActionLogout:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// AuditLog keeps the most recent entries in a fixed-size ring.
type AuditLog struct {
	mu      sync.RWMutex
	entries []AuditEntry
	next    int
	full    bool
	now     func() time.Time
}

// NewAuditLog creates a log that keeps at most capacity entries.
func NewAuditLog(capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &AuditLog{
		entries: make([]AuditEntry, capacity),
		now:     time.Now,
	}
}

// Log appends an entry built from params, overwriting the oldest entry when
// the ring is full.
func (a *AuditLog) Log(ctx context.Context, params AuditLogParams) AuditEntry {
	if params.Username == "" {
		if sess, ok := SessionFromContext(ctx); ok {
			params.Username = sess.Username
		}
	}
	if params.IPAddress == "" {
		params.IPAddress = GetIPAddressFromContext(ctx)
	}
	if params.UserAgent == "" {
		params.UserAgent = GetUserAgentFromContext(ctx)
	}

	entry := AuditEntry{
		ID:           uuid.NewString(),
		Action:       params.Action,
		Severity:     determineSeverity(params.Action),
		Username:     params.Username,
		IPAddress:    params.IPAddress,
		UserAgent:    params.UserAgent,
		RowKey:       params.RowKey,
		ColumnName:   params.ColumnName,
		OldValue:     params.OldValue,
		NewValue:     params.NewValue,
		RowData:      params.RowData,
		RowsAffected: params.RowsAffected,
		ImportID:     params.ImportID,
		Reason:       params.Reason,
	}

	a.mu.Lock()
	entry.CreatedAt = a.now()
	a.entries[a.next] = entry
	a.next = (a.next + 1) % len(a.entries)
	if a.next == 0 {
		a.full = true
	}
	a.mu.Unlock()

	slog.Debug("audit entry recorded",
		"action", entry.Action,
		"severity", entry.Severity,
		"username", entry.Username,
		"row_key", entry.RowKey,
	)
	return entry
}

// Len returns the number of entries held.
func (a *AuditLog) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.full {
		return len(a.entries)
	}
	return a.next
}

// AuditLogFilter contains filtering options for querying audit logs.
type AuditLogFilter struct {
	Action    AuditAction
	Severity  AuditSeverity
	Username  string
	RowKey    string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// DefaultHistoryLimit caps audit queries that do not set a limit.
const DefaultHistoryLimit = 100

// AuditLogResult contains the result of an audit log query.
type AuditLogResult struct {
	Entries    []AuditEntry `json:"entries"`
	TotalCount int          `json:"totalCount"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalPages int          `json:"totalPages"`
}

// Entries returns matching entries, newest first.
func (a *AuditLog) Entries(filter AuditLogFilter) AuditLogResult {
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	a.mu.RLock()
	matched := make([]AuditEntry, 0)
	n := a.next
	if a.full {
		n = len(a.entries)
	}
	for i := 0; i < n; i++ {
		// Walk backwards from the most recent write.
		idx := (a.next - 1 - i + len(a.entries)) % len(a.entries)
		if e := a.entries[idx]; filter.matches(e) {
			matched = append(matched, e)
		}
	}
	a.mu.RUnlock()

	total := len(matched)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)

	totalPages := (total + filter.Limit - 1) / filter.Limit
	if totalPages < 1 {
		totalPages = 1
	}

	return AuditLogResult{
		Entries:    matched[start:end],
		TotalCount: total,
		Page:       filter.Offset/filter.Limit + 1,
		PageSize:   filter.Limit,
		TotalPages: totalPages,
	}
}

func (f AuditLogFilter) matches(e AuditEntry) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if f.Username != "" && e.Username != f.Username {
		return false
	}
	if f.RowKey != "" && e.RowKey != f.RowKey {
		return false
	}
	if !f.StartTime.IsZero() && e.CreatedAt.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && e.CreatedAt.After(f.EndTime) {
		return false
	}
	return true
}

// auditExportHeaders is the column order of ExportCSV.
var auditExportHeaders = []string{
	"ID", "Timestamp", "Action", "Severity", "Username", "IP Address",
	"Row Key", "Column", "Old Value", "New Value", "Rows Affected", "Import ID", "Reason",
}

// ExportCSV serializes matching entries with the roster CSV codec.
func (a *AuditLog) ExportCSV(filter AuditLogFilter) string {
	filter.Offset = 0
	filter.Limit = len(a.entries)
	result := a.Entries(filter)

	records := make([]roster.Record, len(result.Entries))
	for i, e := range result.Entries {
		records[i] = roster.NewRecord(auditExportHeaders, []roster.Value{
			roster.Text(e.ID),
			roster.Text(e.CreatedAt.Format("2006-01-02 15:04:05")),
			roster.Text(string(e.Action)),
			roster.Text(string(e.Severity)),
			roster.Text(e.Username),
			roster.Text(e.IPAddress),
			roster.Text(e.RowKey),
			roster.Text(e.ColumnName),
			roster.Text(e.OldValue),
			roster.Text(e.NewValue),
			roster.Number(float64(e.RowsAffected)),
			roster.Text(e.ImportID),
			roster.Text(e.Reason),
		})
	}
	if len(records) == 0 {
		// Header only, so an empty export still opens as a table.
		return strings.Join(auditExportHeaders, ",")
	}
	return csvcodec.Serialize(records, auditExportHeaders)
}

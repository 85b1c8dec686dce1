package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/hrpulse/internal/core"
)

// auditFilter builds an audit query from URL parameters.
// Query params: action, severity, username, row, start, end (RFC 3339 or
// YYYY-MM-DD), limit, offset
func auditFilter(r *http.Request) (core.AuditLogFilter, error) {
	q := r.URL.Query()
	filter := core.AuditLogFilter{
		Action:   core.AuditAction(strings.TrimSpace(q.Get("action"))),
		Severity: core.AuditSeverity(strings.TrimSpace(q.Get("severity"))),
		Username: strings.TrimSpace(q.Get("username")),
		RowKey:   strings.TrimSpace(q.Get("row")),
		Limit:    parseIntParam(r, "limit", core.DefaultHistoryLimit),
		Offset:   parseIntParam(r, "offset", 0),
	}

	var err error
	if filter.StartTime, err = parseTime(q.Get("start"), false); err != nil {
		return filter, err
	}
	if filter.EndTime, err = parseTime(q.Get("end"), true); err != nil {
		return filter, err
	}
	return filter, nil
}

// parseTime accepts RFC 3339 or a bare date. A bare end date covers the
// whole day.
func parseTime(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad time %q", core.ErrInvalidRequest, s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// handleAuditLog returns audit entries, newest first.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilter(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, s.service.AuditEntries(filter))
}

// handleAuditLogExport downloads matching audit entries as CSV.
func (s *Server) handleAuditLogExport(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilter(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	name := fmt.Sprintf("audit_log_%s.csv", time.Now().Format("20060102"))
	writeCSV(w, name, s.service.ExportAuditLog(filter))
}

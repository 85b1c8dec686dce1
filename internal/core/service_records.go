package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/JonMunkholm/hrpulse/internal/csvcodec"
	"github.com/JonMunkholm/hrpulse/internal/logging"
	"github.com/JonMunkholm/hrpulse/internal/roster"
)

// newHireDefaults fills columns a new record did not provide.
var newHireDefaults = map[string]roster.Value{
	roster.ColEmployeeName:     roster.Text("New Hire"),
	roster.ColDepartment:       roster.Text("Engineering"),
	roster.ColJobTitle:         roster.Text("Software Engineer"),
	roster.ColSupervisor:       roster.Text("Bob Williams"),
	roster.ColAverageKPI:       roster.Number(80),
	roster.ColProductivity:     roster.Number(85),
	roster.ColPerformanceLevel: roster.Text("Good"),
	roster.ColBonusEligibility: roster.Text("No"),
	roster.ColRewardType:       roster.Text("None"),
	roster.ColRetentionAction:  roster.Text("Mentorship"),
}

// newHireName is used for the display column when no default applies.
const newHireName = "New Hire"

var employeeIDPattern = regexp.MustCompile(`^E(\d+)$`)

// GetRecord returns the first record whose identity equals key.
func (s *Service) GetRecord(key string) (roster.Record, error) {
	rec, ok := s.store.Find(key)
	if !ok {
		return roster.Record{}, fmt.Errorf("%w: %s", roster.ErrRecordNotFound, key)
	}
	return rec, nil
}

// AddRecord prepends a record built from fields. A missing identity gets a
// generated E### key; other missing columns get new-hire defaults.
func (s *Service) AddRecord(ctx context.Context, fields map[string]string) (roster.Record, error) {
	added, err := s.store.Add(func(snap roster.Snapshot) (roster.Record, error) {
		return s.newRecord(snap, fields)
	})
	if err != nil {
		return roster.Record{}, err
	}

	s.auditAdd(ctx, added)
	return added, nil
}

// newRecord builds the record AddRecord and UpsertRecord insert into snap.
func (s *Service) newRecord(snap roster.Snapshot, fields map[string]string) (roster.Record, error) {
	headers := snap.Headers
	if len(headers) == 0 {
		headers = roster.SampleHeaders
	}
	if err := checkColumns(fields, headers); err != nil {
		return roster.Record{}, err
	}
	normalized, err := s.validateEdit(fields)
	if err != nil {
		return roster.Record{}, err
	}

	idCol := roster.IdentityColumn(headers)
	nameCol := roster.NameColumn(headers)

	var rec roster.Record
	for _, h := range headers {
		raw, given := normalized[h]
		switch {
		case h == idCol:
			key := raw
			if key == "" {
				key = nextEmployeeID(snap, idCol)
			} else if snap.IndexOf(key) >= 0 {
				return roster.Record{}, fmt.Errorf("%w: %s", ErrDuplicateRecord, key)
			}
			rec.Set(h, roster.Text(key))
		case given:
			v, err := s.coerceEdit(h, raw, newHireDefaults[h])
			if err != nil {
				return roster.Record{}, err
			}
			rec.Set(h, v)
		default:
			v, ok := newHireDefaults[h]
			if !ok && h == nameCol {
				v = roster.Text(newHireName)
			}
			rec.Set(h, v)
		}
	}
	return rec, nil
}

func (s *Service) auditAdd(ctx context.Context, added roster.Record) {
	key := added.Value(roster.IdentityColumn(added.Keys())).String()
	s.audit.Log(ctx, AuditLogParams{
		Action:       ActionRecordAdd,
		RowKey:       key,
		RowData:      recordStrings(added),
		RowsAffected: 1,
	})
	logging.FromContext(ctx).Info("record added", "row_key", key)
}

// FieldChange is one column changed by UpdateRecord.
type FieldChange struct {
	Column   string `json:"column"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// UpdateRecord applies fields to the first record whose identity equals key.
// The identity column cannot change. Columns that held a number are parsed
// back into numbers.
func (s *Service) UpdateRecord(ctx context.Context, key string, fields map[string]string) (roster.Record, error) {
	var changes []FieldChange

	updated, err := s.store.Update(key, func(snap roster.Snapshot, current roster.Record) (roster.Record, error) {
		var err error
		current, changes, err = s.editRecord(snap, key, current, fields)
		return current, err
	})
	if errors.Is(err, roster.ErrRecordNotFound) {
		return roster.Record{}, fmt.Errorf("%w: %s", err, key)
	}
	if err != nil {
		return roster.Record{}, err
	}

	s.auditEdit(ctx, key, changes)
	return updated, nil
}

// editRecord applies fields to rec, a record of snap, and reports what
// changed.
func (s *Service) editRecord(snap roster.Snapshot, key string, rec roster.Record, fields map[string]string) (roster.Record, []FieldChange, error) {
	idCol := roster.IdentityColumn(snap.Headers)
	if err := checkColumns(fields, snap.Headers); err != nil {
		return rec, nil, err
	}
	if newKey, ok := fields[idCol]; ok && CleanCell(newKey) != key {
		return rec, nil, ErrIdentityImmutable
	}
	normalized, err := s.validateEdit(fields)
	if err != nil {
		return rec, nil, err
	}

	var changes []FieldChange
	for _, h := range snap.Headers {
		raw, ok := normalized[h]
		if !ok || h == idCol {
			continue
		}
		old := rec.Value(h)
		v, err := s.coerceEdit(h, raw, old)
		if err != nil {
			return rec, nil, err
		}
		if v != old {
			changes = append(changes, FieldChange{Column: h, OldValue: old.String(), NewValue: v.String()})
		}
		rec.Set(h, v)
	}
	return rec, changes, nil
}

func (s *Service) auditEdit(ctx context.Context, key string, changes []FieldChange) {
	for _, c := range changes {
		s.audit.Log(ctx, AuditLogParams{
			Action:       ActionRecordEdit,
			RowKey:       key,
			ColumnName:   c.Column,
			OldValue:     c.OldValue,
			NewValue:     c.NewValue,
			RowsAffected: 1,
		})
	}
	logging.FromContext(ctx).Info("record updated", "row_key", key, "columns_changed", len(changes))
}

// UpdateCell changes a single column of one record.
func (s *Service) UpdateCell(ctx context.Context, key, column, value string) (roster.Record, error) {
	return s.UpdateRecord(ctx, key, map[string]string{column: value})
}

// UpsertRecord updates the record for key, or adds it with that key when
// none exists. Concurrent upserts of a new key create it once; the rest
// update it.
func (s *Service) UpsertRecord(ctx context.Context, key string, fields map[string]string) (rec roster.Record, created bool, err error) {
	var changes []FieldChange

	rec, created, err = s.store.Upsert(key,
		func(snap roster.Snapshot, current roster.Record) (roster.Record, error) {
			var err error
			current, changes, err = s.editRecord(snap, key, current, fields)
			return current, err
		},
		func(snap roster.Snapshot) (roster.Record, error) {
			headers := snap.Headers
			if len(headers) == 0 {
				headers = roster.SampleHeaders
			}
			withKey := make(map[string]string, len(fields)+1)
			for k, v := range fields {
				withKey[k] = v
			}
			withKey[roster.IdentityColumn(headers)] = key
			return s.newRecord(snap, withKey)
		},
	)
	if err != nil {
		return roster.Record{}, false, err
	}

	if created {
		s.auditAdd(ctx, rec)
	} else {
		s.auditEdit(ctx, key, changes)
	}
	return rec, created, nil
}

// DeleteRecord removes every record whose identity equals key.
func (s *Service) DeleteRecord(ctx context.Context, key string) (int, error) {
	removed, err := s.store.Delete(key)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", err, key)
	}

	s.audit.Log(ctx, AuditLogParams{
		Action:       ActionRecordDelete,
		RowKey:       key,
		RowData:      recordStrings(removed[0]),
		RowsAffected: len(removed),
	})
	logging.FromContext(ctx).Info("record deleted", "row_key", key, "rows", len(removed))
	return len(removed), nil
}

// validateEdit applies schema rules in fixed mode. Schema-free rosters
// accept any text.
func (s *Service) validateEdit(fields map[string]string) (map[string]string, error) {
	if s.mode == csvcodec.FixedSchema && s.hasSchema {
		return ValidateFields(fields, s.schema)
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = CleanCell(v)
	}
	return out, nil
}

// coerceEdit converts an edited value to the type of the cell it replaces.
// In fixed mode the schema's numeric columns are always numbers.
func (s *Service) coerceEdit(column, raw string, previous roster.Value) (roster.Value, error) {
	numeric := previous.IsNumber()
	if s.mode == csvcodec.FixedSchema {
		if spec, ok := s.specFor(column); ok && spec.Type == FieldNumeric {
			numeric = true
		}
	}
	if !numeric {
		return roster.Text(raw), nil
	}
	if raw == "" {
		return roster.Text(""), nil
	}

	f, ok := ParseNumeric(raw)
	if !ok {
		return roster.Value{}, &ValidationError{Field: column, Value: raw, Message: "invalid number format"}
	}
	return roster.Number(f), nil
}

// checkColumns rejects fields naming columns outside headers.
func checkColumns(fields map[string]string, headers []string) error {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	var unknown []string
	for k := range fields {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %v", ErrUnknownColumn, unknown)
	}
	return nil
}

// nextEmployeeID returns "E" plus a three-digit number one above the
// highest existing E### key.
func nextEmployeeID(snap roster.Snapshot, idCol string) string {
	highest := 0
	for _, r := range snap.Records {
		m := employeeIDPattern.FindStringSubmatch(r.Value(idCol).String())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	for n := highest + 1; ; n++ {
		id := fmt.Sprintf("E%03d", n)
		if snap.IndexOf(id) < 0 {
			return id
		}
	}
}

func recordStrings(rec roster.Record) map[string]string {
	if rec.Len() == 0 {
		return nil
	}
	out := make(map[string]string, rec.Len())
	for _, k := range rec.Keys() {
		out[k] = rec.Value(k).String()
	}
	return out
}

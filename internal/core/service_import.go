package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/hrpulse/internal/csvcodec"
	"github.com/JonMunkholm/hrpulse/internal/logging"
	"github.com/JonMunkholm/hrpulse/internal/roster"
	"github.com/google/uuid"
)

// Import replaces the roster with the contents of an uploaded CSV file.
// size is the declared length of r, or 0 when unknown. On any error the
// roster is left untouched.
func (s *Service) Import(ctx context.Context, fileName string, r io.Reader, size int64) (*ImportResult, error) {
	start := time.Now()
	importID := uuid.NewString()
	log := logging.WithFields(ctx, "import_id", importID, "file", fileName, "mode", s.mode.String())

	res, err := s.parseUpload(ctx, r, size)
	if err != nil {
		log.Warn("import rejected", "error", err)
		s.recordHistory(ImportHistoryEntry{
			ImportID:   importID,
			FileName:   fileName,
			Status:     "failed",
			Error:      FormatUserError(err),
			ImportedBy: sessionUsername(ctx),
			ImportedAt: start,
		})
		return nil, err
	}

	version := s.store.Replace(res.Records, res.Headers)

	result := &ImportResult{
		ImportID: importID,
		FileName: fileName,
		Records:  len(res.Records),
		Columns:  res.Headers,
		Mode:     s.mode.String(),
		Version:  version,
		Duration: time.Since(start),
	}

	s.audit.Log(ctx, AuditLogParams{
		Action:       ActionImport,
		RowsAffected: result.Records,
		ImportID:     importID,
		Reason:       fileName,
	})
	s.recordHistory(ImportHistoryEntry{
		ImportID:   importID,
		FileName:   fileName,
		Records:    result.Records,
		Status:     "completed",
		ImportedBy: sessionUsername(ctx),
		ImportedAt: start,
	})
	log.Info("import completed",
		"rows", result.Records,
		"columns", len(result.Columns),
		"version", version,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// parseUpload runs the shared read and parse steps of Import and Preview.
func (s *Service) parseUpload(ctx context.Context, r io.Reader, size int64) (csvcodec.Result, error) {
	if r == nil {
		return csvcodec.Result{}, ErrNoFile
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return csvcodec.Result{}, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, size, s.maxFileSize)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return csvcodec.Result{}, err
	}
	defer s.limiter.Release()

	readCtx := ctx
	if s.readTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, s.readTimeout)
		defer cancel()
	}

	text, err := ReadUpload(readCtx, r, s.maxFileSize)
	if err != nil {
		return csvcodec.Result{}, err
	}

	res, err := csvcodec.Parse(text, s.policy())
	if err != nil {
		return csvcodec.Result{}, err
	}
	if len(res.Headers) == 0 || len(res.Records) == 0 {
		return csvcodec.Result{}, ErrEmptyImport
	}
	return res, nil
}

// sessionUsername returns the signed-in username, or "" without a session.
func sessionUsername(ctx context.Context) string {
	if sess, ok := SessionFromContext(ctx); ok {
		return sess.Username
	}
	return ""
}

// Preview sample limits
const (
	maxNewRowSamples    = 10
	maxUpdateDiffs      = 10
	maxDuplicateSamples = 10
)

// PreviewSummary contains the summary counts for an import preview.
type PreviewSummary struct {
	TotalRows       int `json:"totalRows"`
	NewRows         int `json:"newRows"`
	MatchedRows     int `json:"matchedRows"`
	RemovedRows     int `json:"removedRows"`
	DuplicateInFile int `json:"duplicateInFile"`
}

// UpdateDiff is a before/after view of a record whose key exists in both
// the current roster and the file.
type UpdateDiff struct {
	RowKey   string        `json:"rowKey"`
	Current  roster.Record `json:"current"`
	Incoming roster.Record `json:"incoming"`
	Changed  []string      `json:"changed"`
}

// DuplicatePreview represents keys that appear multiple times in the file.
type DuplicatePreview struct {
	RowKey string `json:"rowKey"`
	Count  int    `json:"count"`
}

// PreviewResponse describes what an import would do without doing it.
type PreviewResponse struct {
	FileName         string             `json:"fileName"`
	Mode             string             `json:"mode"`
	Headers          []string           `json:"headers"`
	AddedColumns     []string           `json:"addedColumns"`
	DroppedColumns   []string           `json:"droppedColumns"`
	MatchedSchema    string             `json:"matchedSchema,omitempty"`
	Summary          PreviewSummary     `json:"summary"`
	NewRowSamples    []roster.Record    `json:"newRowSamples"`
	UpdateDiffs      []UpdateDiff       `json:"updateDiffs"`
	DuplicateSamples []DuplicatePreview `json:"duplicateSamples"`
	ProcessingTimeMs int64              `json:"processingTimeMs"`
}

// Preview parses an upload and compares it with the current roster by
// identity column. Nothing is stored.
func (s *Service) Preview(ctx context.Context, fileName string, r io.Reader, size int64) (*PreviewResponse, error) {
	start := time.Now()

	res, err := s.parseUpload(ctx, r, size)
	if err != nil {
		return nil, err
	}
	current := s.store.Snapshot()

	resp := &PreviewResponse{
		FileName:         fileName,
		Mode:             s.mode.String(),
		Headers:          res.Headers,
		AddedColumns:     difference(res.Headers, current.Headers),
		DroppedColumns:   difference(current.Headers, res.Headers),
		Summary:          PreviewSummary{TotalRows: len(res.Records)},
		NewRowSamples:    []roster.Record{},
		UpdateDiffs:      []UpdateDiff{},
		DuplicateSamples: []DuplicatePreview{},
	}
	if def, ok := Match(res.Headers); ok {
		resp.MatchedSchema = def.Info.Key
	}

	curID := roster.IdentityColumn(current.Headers)
	newID := roster.IdentityColumn(res.Headers)

	existing := make(map[string]roster.Record, len(current.Records))
	for _, rec := range current.Records {
		key := rec.Value(curID).String()
		if _, ok := existing[key]; !ok {
			existing[key] = rec
		}
	}

	seen := make(map[string]int)
	var order []string
	for _, rec := range res.Records {
		key := rec.Value(newID).String()
		if seen[key] == 0 {
			order = append(order, key)
		}
		seen[key]++

		if seen[key] > 1 {
			continue
		}

		old, ok := existing[key]
		if !ok {
			resp.Summary.NewRows++
			if len(resp.NewRowSamples) < maxNewRowSamples {
				resp.NewRowSamples = append(resp.NewRowSamples, rec)
			}
			continue
		}

		resp.Summary.MatchedRows++
		if changed := changedColumns(old, rec, res.Headers); len(changed) > 0 && len(resp.UpdateDiffs) < maxUpdateDiffs {
			resp.UpdateDiffs = append(resp.UpdateDiffs, UpdateDiff{
				RowKey:   key,
				Current:  old,
				Incoming: rec,
				Changed:  changed,
			})
		}
	}

	for _, key := range order {
		if seen[key] > 1 {
			resp.Summary.DuplicateInFile++
			if len(resp.DuplicateSamples) < maxDuplicateSamples {
				resp.DuplicateSamples = append(resp.DuplicateSamples, DuplicatePreview{RowKey: key, Count: seen[key]})
			}
		}
	}
	for key := range existing {
		if seen[key] == 0 {
			resp.Summary.RemovedRows++
		}
	}

	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	logging.FromContext(ctx).Debug("import previewed",
		"file", fileName,
		"rows", resp.Summary.TotalRows,
		"new_rows", resp.Summary.NewRows,
		"matched_rows", resp.Summary.MatchedRows,
	)
	return resp, nil
}

// changedColumns lists headers whose display value differs between records.
func changedColumns(old, incoming roster.Record, headers []string) []string {
	var changed []string
	for _, h := range headers {
		if old.Value(h).String() != incoming.Value(h).String() {
			changed = append(changed, h)
		}
	}
	return changed
}

// difference returns the entries of a not present in b, in a's order.
func difference(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, s := range b {
		in[s] = true
	}
	out := []string{}
	for _, s := range a {
		if !in[s] {
			out = append(out, s)
		}
	}
	return out
}

// IsRejectedImport reports whether err came from validating the upload
// rather than from the server.
func IsRejectedImport(err error) bool {
	var schemaErr *csvcodec.SchemaError
	return errors.As(err, &schemaErr) ||
		errors.Is(err, ErrEmptyImport) ||
		errors.Is(err, csvcodec.ErrEmptyInput) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrBinaryFile) ||
		errors.Is(err, ErrNoFile)
}

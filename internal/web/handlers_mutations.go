package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/hrpulse/internal/core"
	"github.com/go-chi/chi/v5"
)

// cellUpdate is the body of a single-cell edit.
type cellUpdate struct {
	Column string          `json:"column"`
	Value  json.RawMessage `json:"value"`
}

// handleGetRecord returns one record by identity key.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetRecord(recordKey(chi.URLParam(r, "id")))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, rec)
}

// handleCreateRecord adds a record. Missing columns get new-hire defaults
// and a missing identity gets the next free ID.
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(w, r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	rec, err := s.service.AddRecord(r.Context(), fields)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	w.Header().Set("HX-Trigger", "roster-changed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rec)
}

// handleUpdateRecord edits the named columns of a record. With
// ?upsert=true a missing record is created instead of returning 404.
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	key := recordKey(chi.URLParam(r, "id"))
	fields, err := decodeFields(w, r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if upsert, _ := strconv.ParseBool(r.URL.Query().Get("upsert")); upsert {
		rec, created, err := s.service.UpsertRecord(r.Context(), key, fields)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		w.Header().Set("HX-Trigger", "roster-changed")
		if created {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(rec)
			return
		}
		writeJSON(w, rec)
		return
	}

	rec, err := s.service.UpdateRecord(r.Context(), key, fields)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.Header().Set("HX-Trigger", "roster-changed")
	writeJSON(w, rec)
}

// handleUpdateCell edits one cell: {"column": "KPI Score", "value": 91}.
func (s *Server) handleUpdateCell(w http.ResponseWriter, r *http.Request) {
	var body cellUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&body); err != nil {
		s.respondErr(w, r, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err))
		return
	}
	value, err := rawValue(body.Value)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	rec, err := s.service.UpdateCell(r.Context(), recordKey(chi.URLParam(r, "id")), body.Column, value)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.Header().Set("HX-Trigger", "roster-changed")
	writeJSON(w, rec)
}

// handleDeleteRecord removes every record with the key.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.DeleteRecord(r.Context(), recordKey(chi.URLParam(r, "id")))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	w.Header().Set("HX-Trigger", "roster-changed")
	if isHTMX(r) {
		// Empty body lets hx-swap="outerHTML" remove the row.
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, map[string]int{"deleted": n})
}

// rawValue turns a JSON string, number, bool or null into cell text.
func rawValue(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	text, ok := cellText(v)
	if !ok {
		return "", fmt.Errorf("%w: value must be a string or number", core.ErrInvalidRequest)
	}
	return text, nil
}

package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/hrpulse/internal/core"
	"github.com/JonMunkholm/hrpulse/internal/csvcodec"
	"github.com/JonMunkholm/hrpulse/internal/logging"
	"github.com/JonMunkholm/hrpulse/internal/web/templates"
)

// sseKeepAlive is how often an idle event stream sends a comment line.
const sseKeepAlive = 20 * time.Second

// handleRoster returns one page of the roster.
// Query params: page, pageSize, search, sort/dir (repeatable), filter[col]=op:value
func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	params := queryParams(r, s.service.Snapshot().Headers)
	writeJSON(w, s.service.Query(params))
}

// handleColumns describes the current roster columns.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Columns())
}

// handleAggregate returns sum, average, min and max for the numeric
// columns of the filtered roster.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	params := queryParams(r, s.service.Snapshot().Headers)
	writeJSON(w, s.service.Aggregate(params.Search, params.Filters))
}

// handleExport streams the roster as a CSV download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, name := s.service.Export(r.Context())
	writeCSV(w, name, data)
}

// handleDownloadTemplate serves a header-only CSV.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	data, name := s.service.Template()
	writeCSV(w, name, data)
}

// handleReset restores the sample roster.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	version := s.service.Reset(r.Context())

	if isHTMX(r) {
		w.Header().Set("HX-Trigger", "roster-changed")
		s.renderHTML(w, r, http.StatusOK, templates.SuccessAlert("Sample roster restored."))
		return
	}
	writeJSON(w, map[string]any{"version": version, "records": s.service.Snapshot().Len()})
}

// schemaResponse describes a registered roster layout.
type schemaResponse struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Columns  []string `json:"columns"`
	Required []string `json:"required"`
	Numeric  []string `json:"numeric"`
	Active   bool     `json:"active"`
}

// handleListSchemas lists registered layouts and marks the one enforced in
// fixed mode.
func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	active, hasActive := s.service.Schema()

	defs := core.All()
	out := make([]schemaResponse, 0, len(defs))
	for _, def := range defs {
		p := def.Policy(s.service.Mode())
		out = append(out, schemaResponse{
			Key:      def.Info.Key,
			Label:    def.Info.Label,
			Columns:  def.Info.Columns,
			Required: p.Required,
			Numeric:  p.Numeric,
			Active:   hasActive && active.Info.Key == def.Info.Key,
		})
	}
	writeJSON(w, out)
}

// handleRosterEvents streams roster versions as Server-Sent Events. Each
// change sends a "roster" event so dashboards can refresh.
func (s *Server) handleRosterEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, errors.New("streaming unsupported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	updates, unsubscribe := s.service.Subscribe()
	defer unsubscribe()

	log := logging.FromContext(r.Context())
	log.Debug("roster stream opened")

	fmt.Fprintf(w, "retry: 5000\n\n")
	flusher.Flush()

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	eventID := 0
	for {
		select {
		case <-r.Context().Done():
			log.Debug("roster stream closed")
			return
		case version, ok := <-updates:
			if !ok {
				return
			}
			eventID++
			if _, err := fmt.Fprintf(w, "id: %d\nevent: roster\ndata: {\"version\":%d}\n\n", eventID, version); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeCSV sends data as a file download.
func writeCSV(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", csvcodec.ExportContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

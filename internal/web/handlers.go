package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/hrpulse/internal/core"
	"github.com/JonMunkholm/hrpulse/internal/logging"
	"github.com/JonMunkholm/hrpulse/internal/roster"
	"github.com/JonMunkholm/hrpulse/internal/web/templates"
	"github.com/a-h/templ"
)

// renderHTML writes a component with the given status.
func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "path", r.URL.Path, "error", err)
	}
}

// currentUsername returns the signed-in username, or "".
func currentUsername(r *http.Request) string {
	if sess, ok := core.SessionFromContext(r.Context()); ok {
		return sess.Username
	}
	return ""
}

// healthResponse reports liveness and a few counters.
type healthResponse struct {
	Status  string             `json:"status"`
	Records int                `json:"records"`
	Version uint64             `json:"version"`
	Mode    string             `json:"mode"`
	Imports core.LimiterStatus `json:"imports"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()
	writeJSON(w, healthResponse{
		Status:  "ok",
		Records: snap.Len(),
		Version: snap.Version,
		Mode:    s.service.Mode().String(),
		Imports: s.service.ImportStatus(),
	})
}

// handleDashboardPage renders the admin overview.
func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	page := templates.DashboardPage(currentUsername(r), s.service.Dashboard(), s.service.ImportHistory())
	s.renderHTML(w, r, http.StatusOK, page)
}

// handleDashboard returns the dashboard as JSON, or as the HTMX refresh
// fragment when fragment=1 is set.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d := s.service.Dashboard()
	if isHTMX(r) || r.URL.Query().Get("fragment") == "1" {
		s.renderHTML(w, r, http.StatusOK, templates.DashboardBody(d))
		return
	}
	writeJSON(w, d)
}

// handleProfilePage renders the signed-in user's own record.
func (s *Server) handleProfilePage(w http.ResponseWriter, r *http.Request) {
	profile, err := s.service.Profile(r.Context(), currentUsername(r))
	if errors.Is(err, roster.ErrRecordNotFound) {
		// Admins and API keys have no roster row.
		if sess, ok := core.SessionFromContext(r.Context()); ok && sess.IsAdmin() {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.renderHTML(w, r, http.StatusOK, templates.ProfilePage(profile))
}

// handleMe returns the signed-in user's profile as JSON.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := s.service.Profile(r.Context(), currentUsername(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, profile)
}

// Package web provides the HTTP server for the roster service: the admin
// dashboard, the employee profile page and the JSON API behind them.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/hrpulse/internal/config"
	"github.com/JonMunkholm/hrpulse/internal/core"
	mw "github.com/JonMunkholm/hrpulse/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP server for the roster application.
type Server struct {
	service  *core.Service
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
	limiters []*mw.RateLimiter
}

// NewServer creates a Server with its middleware and routes installed.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Session(s.service, s.cfg.Auth.CookieName, s.cfg.Security.APIKeys))
	s.router.Use(mw.Identify)
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).Handler)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	importLimit := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled && s.cfg.Rate.ImportLimit > 0 {
		importLimit = s.newLimiter(s.cfg.Rate.ImportLimit).Handler
	}

	// Public
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/login", s.handleLoginPage)
	s.router.Post("/api/login", s.handleLogin)
	s.router.Post("/api/logout", s.handleLogout)

	// Any signed-in user
	s.router.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(core.RoleUser))
		r.Get("/me", s.handleProfilePage)
		r.Get("/api/me", s.handleMe)
	})

	// Admin pages and API
	s.router.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(core.RoleAdmin))

		r.Get("/", s.handleDashboardPage)
		r.Get("/api/dashboard", s.handleDashboard)
		r.Get("/api/schemas", s.handleListSchemas)

		// Roster table
		r.Get("/api/roster", s.handleRoster)
		r.Get("/api/roster/columns", s.handleColumns)
		r.Get("/api/roster/aggregate", s.handleAggregate)
		r.Get("/api/roster/events", s.handleRosterEvents)
		r.Get("/api/roster/export", s.handleExport)
		r.Get("/api/roster/template", s.handleDownloadTemplate)
		r.Post("/api/roster/reset", s.handleReset)

		// Imports
		r.With(importLimit).Post("/api/roster/import", s.handleImport)
		r.With(importLimit).Post("/api/roster/preview", s.handlePreview)
		r.Get("/api/roster/history", s.handleImportHistory)
		r.Get("/api/roster/import-status", s.handleImportStatus)

		// Records
		r.Post("/api/records", s.handleCreateRecord)
		r.Get("/api/records/{id}", s.handleGetRecord)
		r.Put("/api/records/{id}", s.handleUpdateRecord)
		r.Patch("/api/records/{id}", s.handleUpdateCell)
		r.Delete("/api/records/{id}", s.handleDeleteRecord)

		// Audit log
		r.Get("/api/audit-log", s.handleAuditLog)
		r.Get("/api/audit-log/export", s.handleAuditLogExport)
	})
}

func (s *Server) newLimiter(perMinute int) *mw.RateLimiter {
	l := mw.NewRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, l)
	return l
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	sc := s.cfg.Server
	s.server = &http.Server{
		Addr:         sc.Addr(),
		Handler:      s.router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout, // 0 keeps SSE streams open
		IdleTimeout:  sc.IdleTimeout,
	}

	slog.Info("starting server", "addr", sc.Addr())
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, l := range s.limiters {
		l.Close()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			// HTMX is loaded from unpkg; styles are inline.
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}

			// Control referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON and writes it to w. Values that cannot be
// encoded become a 500 before any header is sent.
func writeJSON(w http.ResponseWriter, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

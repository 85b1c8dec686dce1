package core

// scheduler.go runs background maintenance for the service.
//
// The session reaper drops expired sessions so an idle process does not
// keep every login it has ever seen. It is long-running and stops when its
// context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultReapInterval is used when StartSessionReaper gets a non-positive interval.
const DefaultReapInterval = 5 * time.Minute

// StartSessionReaper removes expired sessions every interval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartSessionReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	slog.Info("session reaper started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session reaper stopped")
			return
		case <-ticker.C:
			s.runReapJob()
		}
	}
}

// runReapJob performs one reap cycle.
func (s *Service) runReapJob() {
	start := time.Now()
	removed := s.sessions.Reap()
	if removed > 0 {
		slog.Info("expired sessions removed",
			"sessions_removed", removed,
			"sessions_active", s.sessions.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

package core

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSessions(ttl time.Duration) (*SessionStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
	s := NewSessionStore(ttl)
	s.now = clock.now
	return s, clock
}

func TestSessionStore_CreateAndTouch(t *testing.T) {
	s, clock := newTestSessions(time.Hour)

	sess := s.Create("E001", RoleUser)
	if sess.Token == "" {
		t.Fatal("Create() returned empty token")
	}
	if sess.IsAdmin() {
		t.Error("user session reports admin")
	}

	clock.advance(50 * time.Minute)
	got, ok := s.Touch(sess.Token)
	if !ok {
		t.Fatal("Touch() = false before expiry")
	}
	if want := clock.t.Add(time.Hour); !got.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want)
	}

	// Sliding expiry: 50 minutes after the touch is still inside the TTL.
	clock.advance(50 * time.Minute)
	if _, ok := s.Touch(sess.Token); !ok {
		t.Error("Touch() = false after sliding expiry extension")
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	s, clock := newTestSessions(time.Hour)
	sess := s.Create("admin", RoleAdmin)

	clock.advance(time.Hour)
	if _, ok := s.Touch(sess.Token); ok {
		t.Error("Touch() = true at expiry")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want expired session removed", s.Len())
	}
}

func TestSessionStore_Revoke(t *testing.T) {
	s, _ := newTestSessions(time.Hour)
	sess := s.Create("admin", RoleAdmin)

	if !s.Revoke(sess.Token) {
		t.Error("Revoke() = false for live session")
	}
	if s.Revoke(sess.Token) {
		t.Error("Revoke() = true for revoked session")
	}
	if _, ok := s.Touch(sess.Token); ok {
		t.Error("Touch() = true after Revoke")
	}
}

func TestSessionStore_Reap(t *testing.T) {
	s, clock := newTestSessions(time.Hour)
	s.Create("E001", RoleUser)
	s.Create("E002", RoleUser)

	clock.advance(30 * time.Minute)
	fresh := s.Create("admin", RoleAdmin)

	clock.advance(40 * time.Minute)
	if got := s.Reap(); got != 2 {
		t.Errorf("Reap() = %d, want 2", got)
	}
	if _, ok := s.Touch(fresh.Token); !ok {
		t.Error("fresh session should survive Reap")
	}
}

func TestSessionStore_DefaultTTL(t *testing.T) {
	s := NewSessionStore(0)
	if s.ttl != DefaultSessionTTL {
		t.Errorf("ttl = %v, want %v", s.ttl, DefaultSessionTTL)
	}
}

func TestSessionFromContext(t *testing.T) {
	if _, ok := SessionFromContext(context.Background()); ok {
		t.Error("empty context has a session")
	}
	if _, ok := SessionFromContext(ContextWithSession(context.Background(), nil)); ok {
		t.Error("nil session reported as present")
	}

	ctx := ContextWithSession(context.Background(), &Session{Username: "E003", Role: RoleUser})
	sess, ok := SessionFromContext(ctx)
	if !ok || sess.Username != "E003" {
		t.Errorf("SessionFromContext() = %+v, %v", sess, ok)
	}
}

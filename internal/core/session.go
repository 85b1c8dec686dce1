package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role is what a signed-in user may do.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// DefaultSessionTTL is used when NewSessionStore gets a non-positive TTL.
const DefaultSessionTTL = 8 * time.Hour

// Session is one signed-in browser or API client.
type Session struct {
	Token     string    `json:"-"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsAdmin reports whether the session has the admin role.
func (s *Session) IsAdmin() bool { return s.Role == RoleAdmin }

// SessionStore keeps sessions in memory. Sessions do not survive a restart,
// which matches the roster itself.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates an empty store whose sessions live for ttl after
// their last use.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a session and returns a copy of it.
func (s *SessionStore) Create(username string, role Role) Session {
	now := s.now()
	sess := &Session{
		Token:     uuid.NewString(),
		Username:  username,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()

	return *sess
}

// Touch returns the session for token and extends its expiry. Expired
// sessions are removed and reported as missing.
func (s *SessionStore) Touch(token string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return Session{}, false
	}
	now := s.now()
	if !now.Before(sess.ExpiresAt) {
		delete(s.sessions, token)
		return Session{}, false
	}
	sess.ExpiresAt = now.Add(s.ttl)
	return *sess, true
}

// Revoke ends the session for token. Unknown tokens are ignored.
func (s *SessionStore) Revoke(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[token]
	delete(s.sessions, token)
	return ok
}

// Reap removes expired sessions and returns how many were removed.
func (s *SessionStore) Reap() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of live or not-yet-reaped sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

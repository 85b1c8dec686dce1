package core

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/JonMunkholm/hrpulse/internal/logging"
	"github.com/JonMunkholm/hrpulse/internal/roster"
)

// Login checks credentials and starts a session. The admin account comes
// from configuration; every employee signs in with their identity value and
// the shared employee password.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	log := logging.WithFields(ctx, "username", username)

	role, ok := s.checkCredentials(username, password)
	if !ok {
		log.Warn("login failed")
		return Session{}, ErrInvalidCredentials
	}

	sess := s.sessions.Create(username, role)
	s.audit.Log(ctx, AuditLogParams{
		Action:   ActionLogin,
		Username: username,
		Reason:   string(role),
	})
	log.Info("login succeeded", "role", role)
	return sess, nil
}

func (s *Service) checkCredentials(username, password string) (Role, bool) {
	if secureEqual(username, s.auth.AdminUsername) && secureEqual(password, s.auth.AdminPassword) {
		return RoleAdmin, true
	}
	if username == "" || !secureEqual(password, s.auth.EmployeePassword) {
		return "", false
	}
	if _, ok := s.findEmployee(username); ok {
		return RoleUser, true
	}
	return "", false
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// findEmployee returns the record whose login column equals username.
func (s *Service) findEmployee(username string) (roster.Record, bool) {
	snap := s.store.Snapshot()
	col := roster.LoginColumn(snap.Headers)
	if col == "" {
		return roster.Record{}, false
	}
	for _, r := range snap.Records {
		if r.Value(col).String() == username {
			return r, true
		}
	}
	return roster.Record{}, false
}

// Logout ends the session for token.
func (s *Service) Logout(ctx context.Context, token string) {
	sess, ok := s.sessions.Touch(token)
	s.sessions.Revoke(token)
	if !ok {
		return
	}
	s.audit.Log(ctx, AuditLogParams{Action: ActionLogout, Username: sess.Username})
	logging.FromContext(ctx).Info("logout", "username", sess.Username)
}

// Authenticate returns the live session for token and extends it.
func (s *Service) Authenticate(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}
	return s.sessions.Touch(token)
}

// ProfileField is one labelled attribute on the profile page.
type ProfileField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Profile is the signed-in employee's view of their own record.
type Profile struct {
	Username    string         `json:"username"`
	Role        Role           `json:"role"`
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Initials    string         `json:"initials"`
	JobTitle    string         `json:"jobTitle,omitempty"`
	Department  string         `json:"department,omitempty"`
	Supervisor  string         `json:"supervisor,omitempty"`
	Performance []ProfileField `json:"performance"`
	Rewards     []ProfileField `json:"rewards"`
	Record      roster.Record  `json:"record"`
}

// profileRole pairs a keyword with the section it belongs to.
type profileRole struct {
	keyword string
	rewards bool
}

var profileRoles = []profileRole{
	{"kpi", false},
	{"productivity", false},
	{"performance level", false},
	{"bonus", true},
	{"reward", true},
	{"retention", true},
}

// Profile returns the current record for username, read fresh from the
// roster so imports and edits show up immediately.
func (s *Service) Profile(ctx context.Context, username string) (*Profile, error) {
	rec, ok := s.findEmployee(username)
	if !ok {
		return nil, roster.ErrRecordNotFound
	}

	headers := rec.Keys()
	find := func(kw string) string {
		h, _ := roster.ResolveRole(headers, kw)
		return h
	}
	value := func(h string) string {
		if h == "" {
			return ""
		}
		return rec.Value(h).String()
	}

	name := value(roster.NameColumn(headers))
	p := &Profile{
		Username:    username,
		Role:        RoleUser,
		ID:          value(roster.IdentityColumn(headers)),
		Name:        name,
		Initials:    roster.Initials(name),
		JobTitle:    value(find("job title")),
		Department:  value(find("department")),
		Supervisor:  value(find("supervisor")),
		Performance: []ProfileField{},
		Rewards:     []ProfileField{},
		Record:      rec,
	}
	if p.Initials == "" {
		p.Initials = "U"
	}
	if sess, ok := SessionFromContext(ctx); ok {
		p.Role = sess.Role
	}

	for _, pr := range profileRoles {
		h := find(pr.keyword)
		if h == "" {
			continue
		}
		field := ProfileField{Label: h, Value: value(h)}
		if pr.rewards {
			p.Rewards = append(p.Rewards, field)
		} else {
			p.Performance = append(p.Performance, field)
		}
	}
	return p, nil
}

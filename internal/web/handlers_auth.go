package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/hrpulse/internal/core"
	"github.com/JonMunkholm/hrpulse/internal/web/templates"
)

// credentials is the login request body.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is returned to JSON clients after a successful login.
type loginResponse struct {
	Username  string    `json:"username"`
	Role      core.Role `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
	Redirect  string    `json:"redirect"`
}

// landingPage is where a role goes after signing in.
func landingPage(role core.Role) string {
	if role == core.RoleAdmin {
		return "/"
	}
	return "/me"
}

// handleLoginPage renders the sign-in form, or sends a signed-in caller to
// their landing page.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if sess, ok := core.SessionFromContext(r.Context()); ok {
		http.Redirect(w, r, landingPage(sess.Role), http.StatusSeeOther)
		return
	}
	s.renderHTML(w, r, http.StatusOK, templates.LoginPage(""))
}

// handleLogin checks credentials and starts a session. Browser form posts
// are redirected; HTMX gets HX-Redirect; JSON clients get the session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(w, r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	sess, err := s.service.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		if isFormPost(r) {
			msg := core.MapError(err)
			s.renderHTML(w, r, statusFor(err), templates.LoginPage(msg.Message))
			return
		}
		s.respondErr(w, r, err)
		return
	}

	s.setSessionCookie(w, r, sess)
	target := landingPage(sess.Role)

	switch {
	case isHTMX(r):
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
	case isFormPost(r):
		http.Redirect(w, r, target, http.StatusSeeOther)
	default:
		writeJSON(w, loginResponse{
			Username:  sess.Username,
			Role:      sess.Role,
			ExpiresAt: sess.ExpiresAt,
			Redirect:  target,
		})
	}
}

// handleLogout ends the session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(s.cfg.Auth.CookieName); err == nil {
		s.service.Logout(r.Context(), c.Value)
	}
	s.clearSessionCookie(w, r)

	switch {
	case isHTMX(r):
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusNoContent)
	case isFormPost(r):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// readCredentials accepts a JSON body or a form post.
func readCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	var c credentials
	if isJSONBody(r) {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&c); err != nil {
			return c, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
		}
		return c, nil
	}
	if err := r.ParseForm(); err != nil {
		return c, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	c.Username = r.PostForm.Get("username")
	c.Password = r.PostForm.Get("password")
	return c, nil
}

// isFormPost reports whether a plain browser form submitted the request.
func isFormPost(r *http.Request) bool {
	return !isHTMX(r) && strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sess core.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

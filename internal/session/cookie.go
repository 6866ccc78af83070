// Package session reads and writes the visitor's session cookie. The cookie
// holds the lead token issued at lead creation and is only set once a
// booking has succeeded.
package session

import (
	"net/http"
	"strings"
	"time"
)

const CookieName = "b2bflow_session"

type Store struct {
	secure bool
}

func NewStore(secure bool) *Store {
	return &Store{secure: secure}
}

// Read returns the session token, if any.
func (s *Store) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(c.Value)
	return token, token != ""
}

// Write sets the session cookie until expires.
func (s *Store) Write(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, s.cookie(token, expires.UTC()))
}

// Clear expires the session cookie immediately.
func (s *Store) Clear(w http.ResponseWriter) {
	c := s.cookie("", time.Unix(0, 0).UTC())
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func (s *Store) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

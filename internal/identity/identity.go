// Package identity keeps the per-browser cookie: the auth token issued by the
// backend, a stable client ID, and flash notices for the next page.
package identity

import (
	"crypto/rand"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/ashureev/online-courses/internal/domain"
	"github.com/gorilla/sessions"
)

const (
	CookieName   = "courses_session"
	cookieMaxAge = 30 * 24 * time.Hour

	tokenKey    = "token"
	clientIDKey = "client_id"
)

var clientIDPattern = regexp.MustCompile(`^client_[a-f0-9]{32}$`)

func init() {
	gob.Register(domain.Notice{})
}

// Cookies reads and writes the signed browser cookie.
type Cookies struct {
	store *sessions.CookieStore
}

// NewCookies creates a cookie store signed with secret. Secure is off in
// development so the cookie works over plain http://localhost.
func NewCookies(secret []byte, isDev bool) *Cookies {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	}
	return &Cookies{store: store}
}

func (c *Cookies) session(r *http.Request) *sessions.Session {
	s, err := c.store.Get(r, CookieName)
	if err != nil {
		// A cookie signed with an old secret decodes to a fresh session.
		slog.Debug("identity: discarding undecodable cookie", "error", err)
	}
	return s
}

// Token returns the auth token stored for this browser, or "".
func (c *Cookies) Token(r *http.Request) string {
	if v, ok := c.session(r).Values[tokenKey].(string); ok {
		return v
	}
	return ""
}

// SetToken stores the auth token.
func (c *Cookies) SetToken(w http.ResponseWriter, r *http.Request, token string) error {
	s := c.session(r)
	s.Values[tokenKey] = token
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("save token cookie: %w", err)
	}
	return nil
}

// ClearToken forgets the auth token but keeps the client ID and notices.
func (c *Cookies) ClearToken(w http.ResponseWriter, r *http.Request) error {
	s := c.session(r)
	delete(s.Values, tokenKey)
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("clear token cookie: %w", err)
	}
	return nil
}

// AddNotice queues a notice for the next rendered page.
func (c *Cookies) AddNotice(w http.ResponseWriter, r *http.Request, n domain.Notice) error {
	s := c.session(r)
	s.AddFlash(n)
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("save notice: %w", err)
	}
	return nil
}

// PopNotices returns and clears queued notices. Must run before the response
// body is written.
func (c *Cookies) PopNotices(w http.ResponseWriter, r *http.Request) []domain.Notice {
	s := c.session(r)
	flashes := s.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	if err := s.Save(r, w); err != nil {
		slog.Warn("identity: failed to clear notices", "error", err)
	}

	notices := make([]domain.Notice, 0, len(flashes))
	for _, f := range flashes {
		if n, ok := f.(domain.Notice); ok {
			notices = append(notices, n)
		}
	}
	return notices
}

// ClientID returns a stable random identifier for this browser, creating it
// on first use. It is independent of sign-in state.
func (c *Cookies) ClientID(w http.ResponseWriter, r *http.Request) (string, error) {
	s := c.session(r)
	if v, ok := s.Values[clientIDKey].(string); ok && clientIDPattern.MatchString(v) {
		return v, nil
	}

	id, err := generateClientID()
	if err != nil {
		return "", err
	}
	s.Values[clientIDKey] = id
	if err := s.Save(r, w); err != nil {
		return "", fmt.Errorf("save client id: %w", err)
	}
	return id, nil
}

func generateClientID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate client id: %w", err)
	}
	return "client_" + hex.EncodeToString(buf), nil
}

// IPFromRequest returns a normalized remote IP for rate limiting and logs.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Package gate keeps signed-out users away from pages that need a session.
//
// A page asks the auth provider for the current session once on entry
// (Require) and, while it stays open in the browser, listens for session
// changes over a websocket (Watcher). In both places the last observed
// session wins and an absent session sends the browser to LoginPath.
package gate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ashureev/online-courses/internal/auth"
	"github.com/ashureev/online-courses/internal/domain"
)

// LoginPath is where a page without a session goes.
const LoginPath = "/auth"

// Gate holds the last session a page observed.
type Gate struct {
	mu       sync.Mutex
	observed bool
	session  *domain.Session
}

// Observe records s as the current session. nil means signed out.
func (g *Gate) Observe(s *domain.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observed = true
	g.session = s
}

// Session returns the last observed session, or nil.
func (g *Gate) Session() *domain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

// Redirect reports where the next render must go instead of the page. It
// reports false until something has been observed.
func (g *Gate) Redirect() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.observed && g.session == nil {
		return LoginPath, true
	}
	return "", false
}

// lookup asks the provider for token's session. Failures count as no session.
func lookup(ctx context.Context, p auth.Provider, token string) *domain.Session {
	if token == "" {
		return nil
	}
	s, err := p.CurrentSession(ctx, token)
	if err != nil {
		slog.Warn("Session lookup failed, treating as signed out", "error", err)
		return nil
	}
	return s
}

type ctxKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// SessionFromContext returns the session stored by Require, or nil.
func SessionFromContext(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(ctxKey{}).(*domain.Session)
	return s
}

package gate

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/online-courses/internal/auth"
	"github.com/ashureev/online-courses/internal/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// writeTimeout bounds a single push to the browser.
const writeTimeout = 5 * time.Second

// Views is the per-page state kept alive while the page is mounted.
type Views interface {
	Hold(viewID string) bool
	Release(viewID string) bool
}

// Message is pushed to the browser over the session socket.
type Message struct {
	Type     string `json:"type"`
	Location string `json:"location,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Message types.
const (
	MessageSession  = "session"
	MessageRedirect = "redirect"
)

// Watcher serves /ws/session. The socket stays open for as long as the page
// is mounted; closing it is the teardown.
type Watcher struct {
	provider      auth.Provider
	tokens        TokenSource
	views         Views
	allowedOrigin string
	isDev         bool
	now           func() time.Time
}

// NewWatcher creates the session socket handler. views may be nil.
func NewWatcher(p auth.Provider, tokens TokenSource, views Views, allowedOrigin string, isDev bool) *Watcher {
	return &Watcher{
		provider:      p,
		tokens:        tokens,
		views:         views,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		now:           time.Now,
	}
}

// ServeHTTP implements http.Handler for the websocket upgrade.
func (h *Watcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept session websocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "page closed"); closeErr != nil {
			slog.Debug("Failed to close session websocket", "error", closeErr)
		}
	}()

	if viewID := r.URL.Query().Get("view"); viewID != "" && h.views != nil {
		if !h.views.Hold(viewID) {
			slog.Debug("Session websocket for unknown view", "view", viewID)
		}
		defer h.views.Release(viewID)
	}

	// The browser never sends anything; CloseRead cancels ctx on disconnect.
	ctx := ws.CloseRead(r.Context())
	h.watch(ctx, ws, h.tokens.Token(r))
}

func (h *Watcher) watch(ctx context.Context, ws *websocket.Conn, token string) {
	mailbox := make(chan auth.Event, 1)
	if token != "" {
		sub := h.provider.Subscribe(token, func(ev auth.Event) { offer(mailbox, ev) })
		defer sub.Unsubscribe()
	}

	var g Gate
	g.Observe(lookup(ctx, h.provider, token))
	if s := g.Session(); s != nil {
		if err := h.write(ctx, ws, Message{Type: MessageSession, Email: s.Email}); err != nil {
			return
		}
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		if loc, ok := g.Redirect(); ok {
			if err := h.write(ctx, ws, Message{Type: MessageRedirect, Location: loc}); err != nil {
				slog.Debug("Failed to push redirect", "error", err)
			}
			return
		}

		if timer != nil {
			timer.Stop()
			timer = nil
		}
		var expiry <-chan time.Time
		if s := g.Session(); s != nil && !s.ExpiresAt.IsZero() {
			timer = time.NewTimer(s.TTL(h.now()))
			expiry = timer.C
		}

		select {
		case <-ctx.Done():
			return
		case ev := <-mailbox:
			g.Observe(ev.Session)
		case <-expiry:
			g.Observe(h.recheck(ctx, token))
		}
	}
}

// recheck asks the provider again once the known expiry has passed.
func (h *Watcher) recheck(ctx context.Context, token string) *domain.Session {
	s := lookup(ctx, h.provider, token)
	if s.Expired(h.now()) {
		return nil
	}
	return s
}

func (h *Watcher) write(ctx context.Context, ws *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, msg)
}

func (h *Watcher) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("Session websocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// offer puts ev in the one-slot mailbox, replacing anything unread.
func offer(mailbox chan auth.Event, ev auth.Event) {
	for {
		select {
		case mailbox <- ev:
			return
		default:
		}
		select {
		case <-mailbox:
		default:
		}
	}
}
